// Package federation answers queries by fanning out across every document
// collection in the vector store and merging the per-collection results
// into a single ranked list.
package federation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/stacks/pkg/collections"
	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/vector"
)

var (
	// ErrEmptyQuery indicates a blank query string.
	ErrEmptyQuery = errors.New("empty query")

	// ErrQueryUnavailable indicates every candidate collection failed to
	// answer.
	ErrQueryUnavailable = errors.New("query unavailable: all collections failed")
)

var (
	defaultMaxInFlight  = 8
	defaultShardTimeout = 5 * time.Second
	defaultLimit        = 10
)

// Mode selects how per-collection queries are executed.
type Mode string

const (
	// ModeVector embeds the query once and searches by vector.
	ModeVector Mode = "vector"

	// ModeText passes the raw query text to drivers that embed
	// server-side.
	ModeText Mode = "text"
)

// Config holds configuration for the query engine.
type Config struct {
	// Driver is the vector store to query.
	Driver vector.Driver

	// Embedder embeds query strings in vector mode.
	Embedder embeddings.Embedder

	// Mode selects vector or text querying (defaults to ModeVector).
	Mode Mode

	// MaxInFlight bounds concurrent per-collection queries (defaults
	// to 8).
	MaxInFlight int

	// ShardTimeout bounds each per-collection query (defaults to 5s).
	ShardTimeout time.Duration

	Logger *slog.Logger
}

// Engine executes federated queries.
type Engine struct {
	driver       vector.Driver
	embedder     embeddings.Embedder
	mode         Mode
	maxInFlight  int
	shardTimeout time.Duration
	logger       *slog.Logger
}

// NewEngine creates a new federated query engine.
func NewEngine(c *Config) (*Engine, error) {
	if c.Driver == nil {
		return nil, errors.New("vector driver is required")
	}

	mode := c.Mode
	if mode == "" {
		mode = ModeVector
	}
	if mode == ModeVector && c.Embedder == nil {
		return nil, errors.New("embedder is required in vector mode")
	}

	maxInFlight := c.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}

	shardTimeout := c.ShardTimeout
	if shardTimeout <= 0 {
		shardTimeout = defaultShardTimeout
	}

	return &Engine{
		driver:       c.Driver,
		embedder:     c.Embedder,
		mode:         mode,
		maxInFlight:  maxInFlight,
		shardTimeout: shardTimeout,
		logger:       c.Logger,
	}, nil
}

// Query searches every document collection for the query and returns the
// closest limit chunks across all of them, nearest first.
func (e *Engine) Query(ctx context.Context, query string, limit int) ([]vector.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	names, err := e.driver.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	candidates := make([]string, 0, len(names))
	for _, name := range names {
		if collections.IsDocumentCollection(name) {
			candidates = append(candidates, name)
		}
	}

	if len(candidates) == 0 {
		return []vector.QueryResult{}, nil
	}

	// Embed once, share the vector across every shard.
	var embedding []float32
	if e.mode == ModeVector {
		embedding, err = e.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
	}

	merged, failures := e.fanOut(ctx, candidates, query, embedding, limit)

	if failures == len(candidates) {
		return nil, ErrQueryUnavailable
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Distance < merged[j].Distance
	})

	merged = dedupe(merged)

	if len(merged) > limit {
		merged = merged[:limit]
	}

	e.logger.Debug("federated query complete",
		"collections", len(candidates),
		"failures", failures,
		"results", len(merged),
	)

	return merged, nil
}

// QueryCollection searches a single named collection.
func (e *Engine) QueryCollection(ctx context.Context, collection, query string, limit int) ([]vector.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	if e.mode == ModeText {
		return e.driver.QueryText(ctx, collection, query, limit)
	}

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	return e.driver.Query(ctx, collection, embedding, limit)
}

// fanOut queries every candidate collection with bounded concurrency.
// Results keep candidate order before the merge sort so equal distances
// stay deterministic. Returns the concatenated results and the failure
// count.
func (e *Engine) fanOut(ctx context.Context, candidates []string, query string, embedding []float32, limit int) ([]vector.QueryResult, int) {
	perShard := make([][]vector.QueryResult, len(candidates))
	shardErrs := make([]error, len(candidates))

	sem := make(chan struct{}, e.maxInFlight)
	var wg sync.WaitGroup

	for i, name := range candidates {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			shardCtx, cancel := context.WithTimeout(ctx, e.shardTimeout)
			defer cancel()

			var results []vector.QueryResult
			var err error
			if e.mode == ModeText {
				results, err = e.driver.QueryText(shardCtx, name, query, limit)
			} else {
				results, err = e.driver.Query(shardCtx, name, embedding, limit)
			}
			if err != nil {
				shardErrs[i] = err
				e.logger.Warn("collection query failed",
					"collection", name,
					"error", err,
				)
				return
			}

			perShard[i] = results
		}(i, name)
	}

	wg.Wait()

	merged := make([]vector.QueryResult, 0, len(candidates)*limit)
	failures := 0
	for i := range candidates {
		if shardErrs[i] != nil {
			failures++
			continue
		}
		merged = append(merged, perShard[i]...)
	}

	return merged, failures
}

// dedupe drops repeated chunk IDs, keeping the closest occurrence. The
// input must already be sorted by distance.
func dedupe(results []vector.QueryResult) []vector.QueryResult {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		if r.ID != "" {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
		}
		out = append(out, r)
	}
	return out
}

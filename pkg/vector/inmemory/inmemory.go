// Package inmemory provides a brute-force in-process vector driver used for
// development and tests. Collections live in maps; similarity search scans
// every chunk and ranks by cosine distance.
package inmemory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/stacks/pkg/vector"
)

// Driver is an in-memory vector.Driver. Safe for concurrent use.
type Driver struct {
	mu          sync.RWMutex
	collections map[string]*collection
	logger      *slog.Logger
}

type collection struct {
	dimensions uint

	// order preserves insertion order for Peek.
	order  []string
	chunks map[string]vector.Chunk
}

var _ vector.Driver = (*Driver)(nil)

// NewDriver creates an empty in-memory driver.
func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{
		collections: make(map[string]*collection),
		logger:      logger,
	}
}

func (d *Driver) ListCollections(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.collections))
	for name := range d.collections {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

func (d *Driver) EnsureCollection(_ context.Context, name string, dimensions uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.collections[name]; ok {
		return nil
	}

	d.collections[name] = &collection{
		dimensions: dimensions,
		chunks:     make(map[string]vector.Chunk),
	}
	d.logger.Debug("created collection", "name", name, "dimensions", dimensions)

	return nil
}

func (d *Driver) Add(_ context.Context, name string, chunks []vector.Chunk) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	col, ok := d.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, name)
	}

	for _, c := range chunks {
		if col.dimensions > 0 && uint(len(c.Embedding)) != col.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection %s expects %d",
				vector.ErrDimensionMismatch, c.ID, len(c.Embedding), name, col.dimensions)
		}
	}

	for _, c := range chunks {
		if _, exists := col.chunks[c.ID]; !exists {
			col.order = append(col.order, c.ID)
		}
		col.chunks[c.ID] = c
	}

	return nil
}

func (d *Driver) Query(_ context.Context, name string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	col, ok := d.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, name)
	}

	results := make([]vector.QueryResult, 0, len(col.chunks))
	for _, id := range col.order {
		c := col.chunks[id]
		results = append(results, vector.QueryResult{
			Chunk:      c,
			Collection: name,
			Distance:   cosineDistance(embedding, c.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

func (d *Driver) QueryText(_ context.Context, _ string, _ string, _ int) ([]vector.QueryResult, error) {
	return nil, vector.ErrTextQueryUnsupported
}

func (d *Driver) Count(_ context.Context, name string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	col, ok := d.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", vector.ErrNotFound, name)
	}

	return len(col.chunks), nil
}

func (d *Driver) Peek(_ context.Context, name string, limit int) ([]vector.Chunk, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	col, ok := d.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, name)
	}

	n := len(col.order)
	if limit > 0 && limit < n {
		n = limit
	}

	chunks := make([]vector.Chunk, 0, n)
	for _, id := range col.order[:n] {
		c := col.chunks[id]
		c.Embedding = nil
		chunks = append(chunks, c)
	}

	return chunks, nil
}

func (d *Driver) DeleteCollection(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.collections[name]; !ok {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, name)
	}
	delete(d.collections, name)

	return nil
}

func (d *Driver) Close() error {
	return nil
}

// cosineDistance returns 1 minus the cosine similarity of a and b. Zero or
// mismatched vectors score as maximally distant.
func cosineDistance(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}

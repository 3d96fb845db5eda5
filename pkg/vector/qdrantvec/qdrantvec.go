// Package qdrantvec provides a Qdrant-backed vector driver over the gRPC
// client. Each document collection maps to a Qdrant collection with cosine
// distance.
package qdrantvec

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/stacks/pkg/vector"
)

const defaultPort = 6334

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	client *qdrant.Client
	logger *slog.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is the Qdrant gRPC address (e.g., "localhost:6334").
	Target string

	// APIKey authenticates against Qdrant Cloud. Empty for local instances.
	APIKey string
}

var _ vector.Driver = (*Driver)(nil)

// NewDriver creates a new Qdrant vector driver.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.Target == "" {
		return nil, fmt.Errorf("qdrant target is required")
	}

	host, port, err := splitTarget(c.Target)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrConnection, err)
	}

	logger.Info("connected to Qdrant", "target", c.Target)

	return &Driver{
		client: client,
		logger: logger,
	}, nil
}

func splitTarget(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return target, defaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}

	return host, port, nil
}

// pointID derives a stable Qdrant point ID from a chunk ID. Qdrant only
// accepts integers and UUIDs as point IDs, so the chunk ID is hashed into
// a name-based UUID. The same chunk always maps to the same point, which
// makes re-ingestion overwrite instead of duplicate.
func pointID(chunkID string) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String())
}

// ListCollections returns the names of all collections on the server.
func (d *Driver) ListCollections(ctx context.Context) ([]string, error) {
	names, err := d.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing collections: %v", vector.ErrConnection, err)
	}
	return names, nil
}

// EnsureCollection creates the named collection if it does not exist.
func (d *Driver) EnsureCollection(ctx context.Context, name string, dimensions uint) error {
	exists, err := d.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	d.logger.Debug("created collection", "name", name, "dimensions", dimensions)

	return nil
}

// Add upserts chunks into the named collection.
func (d *Driver) Add(ctx context.Context, collection string, chunks []vector.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	exists, err := d.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, collection)
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		payload := map[string]any{
			"chunk_id": c.ID,
			"text":     c.Text,
		}
		if c.Metadata != nil {
			meta := make(map[string]any, len(c.Metadata))
			for k, v := range c.Metadata {
				meta[k] = v
			}
			payload["metadata"] = meta
		}

		points[i] = &qdrant.PointStruct{
			Id:      pointID(c.ID),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err = d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("upserted chunks to qdrant",
		"collection", collection,
		"count", len(chunks),
	)

	return nil
}

// Query finds the topK nearest chunks to the given embedding.
func (d *Driver) Query(ctx context.Context, collection string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		result := vector.QueryResult{
			Chunk:      chunkFromPayload(p.GetPayload()),
			Collection: collection,
			// Cosine scores are similarities; flip to a distance so
			// lower stays closer.
			Distance: 1 - p.GetScore(),
		}
		results = append(results, result)
	}

	d.logger.Debug("queried qdrant",
		"collection", collection,
		"results", len(results),
	)

	return results, nil
}

// QueryText is not supported; Qdrant stores raw vectors only.
func (d *Driver) QueryText(_ context.Context, _ string, _ string, _ int) ([]vector.QueryResult, error) {
	return nil, vector.ErrTextQueryUnsupported
}

// Count returns the number of chunks in the named collection.
func (d *Driver) Count(ctx context.Context, collection string) (int, error) {
	count, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}

	return int(count), nil
}

// Peek returns up to limit chunks from the named collection.
func (d *Driver) Peek(ctx context.Context, collection string, limit int) ([]vector.Chunk, error) {
	if limit <= 0 {
		limit = 10
	}

	points, err := d.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("scrolling points: %w", err)
	}

	chunks := make([]vector.Chunk, 0, len(points))
	for _, p := range points {
		chunks = append(chunks, chunkFromPayload(p.GetPayload()))
	}

	return chunks, nil
}

// DeleteCollection removes the named collection and all of its points.
func (d *Driver) DeleteCollection(ctx context.Context, collection string) error {
	exists, err := d.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, collection)
	}

	if err := d.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("deleting collection %s: %w", collection, err)
	}

	d.logger.Debug("deleted collection", "name", collection)

	return nil
}

// Close releases the underlying gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func chunkFromPayload(payload map[string]*qdrant.Value) vector.Chunk {
	c := vector.Chunk{}

	if v, ok := payload["chunk_id"]; ok {
		c.ID = v.GetStringValue()
	}
	if v, ok := payload["text"]; ok {
		c.Text = v.GetStringValue()
	}
	if v, ok := payload["metadata"]; ok {
		fields := v.GetStructValue().GetFields()
		if len(fields) > 0 {
			c.Metadata = make(map[string]string, len(fields))
			for k, fv := range fields {
				c.Metadata[k] = fv.GetStringValue()
			}
		}
	}

	return c
}

// Package worker provides an asynchronous worker pool for ingesting
// documents in the background.
//
// The pool decouples chunking and embedding from the API's HTTP hot path so
// that uploads return immediately with a document ID while the heavy work
// happens off-request.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/stacks/pkg/ingest"
)

var (
	defaultNumWorkers   uint = 4
	defaultJobQueueSize uint = 64
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	// DocumentID is the pre-assigned document ID, already returned to
	// the uploader.
	DocumentID string

	OriginalName string
	Text         string
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Ingestor performs the actual chunk-embed-store work.
	Ingestor *ingest.Ingestor

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes ingest jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Ingestor == nil {
		return nil, fmt.Errorf("ingestor is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("ingest job queued",
			"original_name", job.OriginalName,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"original_name", job.OriginalName,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("ingest worker stopped", "worker_id", id)
}

// processJob ingests a single document. Errors are logged, not returned;
// there is no caller left to report them to.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	receipt, err := p.config.Ingestor.IngestWithID(ctx, job.DocumentID, job.OriginalName, job.Text)
	if err != nil {
		p.logger.Error("async ingest failed",
			"original_name", job.OriginalName,
			"error", err,
		)
		return
	}

	p.logger.Info("document ingested in background",
		"document_id", receipt.DocumentID,
		"collection", receipt.CollectionName,
		"chunks", receipt.ChunkCount,
	)
}

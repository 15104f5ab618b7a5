// Package pipeline orchestrates concurrent processing of input documents
// through a completion client under a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abdhe/llm-batch-processor/pkg/metrics"
	"github.com/abdhe/llm-batch-processor/pkg/store"
)

// DefaultMaxWorkers caps the pool when configuration does not override it.
const DefaultMaxWorkers = 5

// Completer is the completion surface the pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// DocumentStore is the file surface the pipeline depends on.
type DocumentStore interface {
	ListDocuments() ([]string, error)
	ReadDocument(name string) (string, error)
	WriteOutput(name, text string) (string, error)
}

var _ DocumentStore = (*store.FileStore)(nil)

// Stats reports the outcome tally of one run.
type Stats struct {
	Processed int
	Failed    int
}

// Pipeline fans input documents out to a fixed-size pool of workers.
// Each worker reads its document, calls the completer and writes the
// output; a failure in one task never affects its siblings.
type Pipeline struct {
	store      DocumentStore
	completer  Completer
	maxWorkers int
	logger     *zap.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// New creates a Pipeline. maxWorkers <= 0 selects DefaultMaxWorkers.
func New(docs DocumentStore, completer Completer, maxWorkers int, logger *zap.Logger) *Pipeline {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:      docs,
		completer:  completer,
		maxWorkers: maxWorkers,
		logger:     logger.Named("pipeline"),
	}
}

// Stats returns the outcome tally so far. Stable once Run has returned.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed: int(p.processed.Load()),
		Failed:    int(p.failed.Load()),
	}
}

// Run enumerates the input documents and processes each one under the
// worker pool, sized min(maxWorkers, document count). It returns only
// after every task has finished. The returned error reflects enumeration
// alone; per-document failures are logged and tallied, never propagated.
func (p *Pipeline) Run(ctx context.Context, systemPrompt string) error {
	docs, err := p.store.ListDocuments()
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if len(docs) == 0 {
		p.logger.Info("no input documents found, nothing to do")
		return nil
	}

	workers := p.maxWorkers
	if len(docs) < workers {
		workers = len(docs)
	}

	runID := uuid.NewString()
	p.logger.Info("starting batch",
		zap.String("run_id", runID),
		zap.Int("documents", len(docs)),
		zap.Int("workers", workers))

	tasks := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range tasks {
				metrics.ActiveWorkers.Inc()
				p.process(ctx, name, systemPrompt)
				metrics.ActiveWorkers.Dec()
			}
		}()
	}

	for _, name := range docs {
		tasks <- name
	}
	close(tasks)
	wg.Wait()

	p.logger.Info("batch complete",
		zap.String("run_id", runID),
		zap.Int64("processed", p.processed.Load()),
		zap.Int64("failed", p.failed.Load()))
	return nil
}

// process handles one document end to end. Every failure is terminal for
// this task only: it is logged with the document name and leaves no
// output artifact.
func (p *Pipeline) process(ctx context.Context, name, systemPrompt string) {
	log := p.logger.With(
		zap.String("document", name),
		zap.String("task_id", uuid.NewString()))

	content, err := p.store.ReadDocument(name)
	if err != nil {
		p.fail(log, "failed to read document", "read_error", err)
		return
	}
	if strings.TrimSpace(content) == "" {
		p.fail(log, "document is empty, skipping", "read_error", nil)
		return
	}

	text, err := p.completer.Complete(ctx, systemPrompt, content)
	if err != nil {
		p.fail(log, "completion failed", "completion_error", err)
		return
	}

	out, err := p.store.WriteOutput(name, text)
	if err != nil {
		p.fail(log, "failed to write output", "write_error", err)
		return
	}

	p.processed.Add(1)
	metrics.DocumentsProcessedTotal.WithLabelValues("success").Inc()
	log.Info("document processed", zap.String("output", out))
}

func (p *Pipeline) fail(log *zap.Logger, msg, status string, err error) {
	p.failed.Add(1)
	metrics.DocumentsProcessedTotal.WithLabelValues(status).Inc()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
}

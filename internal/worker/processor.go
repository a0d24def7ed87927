// Package worker runs the ingestion loop: it polls the job queue, and for
// each claimed job extracts text, chunks it, embeds every chunk, and writes
// the batch into the skill's vector table.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/skillbase-io/skillbase/internal/embedding"
	"github.com/skillbase-io/skillbase/internal/models"
	"github.com/skillbase-io/skillbase/internal/vectorstore"
	"github.com/skillbase-io/skillbase/pkg/chunker"
	"github.com/skillbase-io/skillbase/pkg/textextract"
)

// Progress milestones reported while a job moves through the pipeline.
const (
	progressExtracted = 10
	progressChunked   = 30
	progressEmbedding = 50
	progressEmbedded  = 80
	progressDone      = 100
)

// Queue is the slice of the job queue the worker needs.
type Queue interface {
	Dequeue(ctx context.Context) (*models.Job, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error
	Complete(ctx context.Context, id uuid.UUID, progress int) error
	Fail(ctx context.Context, id uuid.UUID, detail string) error
}

// Extractor pulls plain text out of an uploaded file.
type Extractor interface {
	ExtractFile(path, mimeType string) (*textextract.ExtractedText, error)
}

// SkillStore flips the skill's knowledge flag once chunks land.
type SkillStore interface {
	SetHasKnowledge(ctx context.Context, skillID string, has bool) error
}

type Processor struct {
	queue     Queue
	extractor Extractor
	embedder  embedding.Embedder
	store     vectorstore.Store
	skills    SkillStore
	opts      chunker.ChunkOptions
	interval  time.Duration

	running atomic.Bool
	busy    atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

type Options struct {
	PollInterval time.Duration
	ChunkSize    int
	ChunkOverlap int
}

func NewProcessor(queue Queue, extractor Extractor, embedder embedding.Embedder, store vectorstore.Store, skills SkillStore, opts Options) *Processor {
	chunkOpts := chunker.DefaultOptions()
	if opts.ChunkSize > 0 {
		chunkOpts.ChunkSize = opts.ChunkSize
	}
	if opts.ChunkOverlap >= 0 {
		chunkOpts.Overlap = opts.ChunkOverlap
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Processor{
		queue:     queue,
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		skills:    skills,
		opts:      chunkOpts,
		interval:  interval,
	}
}

// Start launches the polling loop. Calling Start on a running processor is a
// no-op.
func (p *Processor) Start(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		slog.Warn("worker already running, ignoring start")
		return
	}

	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.loop(ctx)

	slog.Info("worker started", "poll_interval", p.interval)
}

// Stop halts polling and waits for an in-flight job to finish. Safe to call
// repeatedly; a stopped processor stays stopped.
func (p *Processor) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stop)
	p.wg.Wait()
	slog.Info("worker stopped")
}

func (p *Processor) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Poll once immediately so restarts pick up backlog without waiting a
	// full interval.
	p.poll(ctx)

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll claims and processes at most one job. A tick that fires while a job is
// still in flight is skipped; jobs never overlap.
func (p *Processor) poll(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		return
	}
	defer p.busy.Store(false)

	job, err := p.queue.Dequeue(ctx)
	if err != nil {
		slog.Error("dequeue failed", "error", err)
		return
	}
	if job == nil {
		return
	}

	start := time.Now()
	slog.Info("processing job", "job_id", job.ID, "skill_id", job.SkillID, "file", job.FileName)

	if err := p.processJob(ctx, job); err != nil {
		slog.Error("job failed", "job_id", job.ID, "error", err)
		if failErr := p.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			slog.Error("could not record job failure", "job_id", job.ID, "error", failErr)
		}
		return
	}

	slog.Info("job completed", "job_id", job.ID, "duration", time.Since(start))
}

func (p *Processor) processJob(ctx context.Context, job *models.Job) error {
	extracted, err := p.extractor.ExtractFile(job.FilePath, "")
	if err != nil {
		return fmt.Errorf("extract %s: %w", job.FileName, err)
	}
	p.reportProgress(ctx, job.ID, progressExtracted)

	chunks := chunker.Chunk(extracted.Text, p.opts)
	if len(chunks) == 0 {
		return fmt.Errorf("document %s produced no chunks", job.FileName)
	}
	p.reportProgress(ctx, job.ID, progressChunked)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	p.reportProgress(ctx, job.ID, progressEmbedding)

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(chunks))
	}
	p.reportProgress(ctx, job.ID, progressEmbedded)

	now := time.Now().UTC()
	records := make([]vectorstore.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.ChunkRecord{
			ID:         fmt.Sprintf("%s_chunk_%d", job.ID, c.Index),
			SkillID:    job.SkillID,
			DocumentID: job.ID.String(),
			Content:    c.Content,
			Embedding:  embeddings[i].Vector,
			TokenCount: chunker.EstimateTokens(c.Content),
			Metadata: vectorstore.ChunkMetadata{
				Source:      job.FileName,
				ChunkIndex:  c.Index,
				TotalChunks: len(chunks),
				StartChar:   c.Start,
				EndChar:     c.End,
			},
			CreatedAt: now,
		}
	}

	if err := p.writeRecords(ctx, job.SkillID, records); err != nil {
		return fmt.Errorf("store %d chunks: %w", len(records), err)
	}

	if err := p.skills.SetHasKnowledge(ctx, job.SkillID, true); err != nil {
		return fmt.Errorf("mark skill %s: %w", job.SkillID, err)
	}

	if err := p.queue.Complete(ctx, job.ID, progressDone); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	return nil
}

// writeRecords appends to the skill's table, creating it on first use.
func (p *Processor) writeRecords(ctx context.Context, skillID string, records []vectorstore.ChunkRecord) error {
	err := p.store.Append(ctx, skillID, records)
	if errors.Is(err, vectorstore.ErrTableNotFound) {
		return p.store.Create(ctx, skillID, records)
	}
	return err
}

func (p *Processor) reportProgress(ctx context.Context, id uuid.UUID, progress int) {
	if err := p.queue.UpdateProgress(ctx, id, progress); err != nil {
		slog.Warn("progress update failed", "job_id", id, "progress", progress, "error", err)
	}
}

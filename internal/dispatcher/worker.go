package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gtlocalize/storypath/internal/book"
	"github.com/gtlocalize/storypath/internal/compiler"
	"github.com/gtlocalize/storypath/internal/measure"
	"github.com/gtlocalize/storypath/internal/metrics"
	"github.com/gtlocalize/storypath/internal/queue"
	"github.com/gtlocalize/storypath/internal/store"
	"github.com/gtlocalize/storypath/internal/story"
)

// Queue is the job transport the workers consume from. The orchestrator takes
// the per-story lock when it enqueues; the worker that finishes the job
// releases it.
type Queue interface {
	Dequeue(ctx context.Context, consumer string, block time.Duration) (string, []byte, error)
	Ack(ctx context.Context, msgID string) error
	AddDLQ(ctx context.Context, payload []byte, reason string) error
	ReleaseLock(ctx context.Context, storyID string) error
}

// SceneSource provides the finalized story data a compile reads.
type SceneSource interface {
	GetStory(ctx context.Context, id string) (story.Story, bool, error)
	ListScenes(ctx context.Context, storyID string) ([]story.Scene, error)
}

// LayoutSink persists the compiled layout document.
type LayoutSink interface {
	Save(ctx context.Context, l book.Layout) error
}

// StatusStore records compile-job progress for the progress endpoint.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st store.Status) error
}

// Archiver mirrors the compiled layout to durable storage. Optional.
type Archiver interface {
	ArchiveLayout(ctx context.Context, prefix, storyID string, version int, data []byte) (string, error)
}

// Config defines worker behavior.
type Config struct {
	Concurrency   int
	DequeueBlock  time.Duration
	ArchivePrefix string
	Book          measure.Config
}

// Dependencies wires the worker's collaborators.
type Dependencies struct {
	Queue   Queue
	Scenes  SceneSource
	Layouts LayoutSink
	Status  StatusStore
	Archive Archiver
}

// Worker runs layout compilations dequeued from the compile stream. Each job
// compiles one story start to finish on a single goroutine; parallelism only
// exists across distinct stories.
type Worker struct {
	cfg  Config
	deps Dependencies
}

func New(cfg Config, deps Dependencies) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.DequeueBlock <= 0 {
		cfg.DequeueBlock = 2 * time.Second
	}
	return &Worker{cfg: cfg, deps: deps}
}

// Run blocks until ctx is cancelled, consuming compile jobs with
// cfg.Concurrency loops.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		id := i
		g.Go(func() error { return w.loop(ctx, id) })
	}
	return g.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) error {
	consumer := fmt.Sprintf("compiler-%d", id)
	log.Info().Int("worker", id).Msg("compile worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("compile worker stopped")
			return nil
		default:
		}

		msgID, data, err := w.deps.Queue.Dequeue(ctx, consumer, w.cfg.DequeueBlock)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("queue dequeue error")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if data == nil {
			continue
		}

		var job queue.CompileJob
		if err := json.Unmarshal(data, &job); err != nil || job.StoryID == "" {
			log.Error().Err(err).Str("msg_id", msgID).Msg("malformed compile job; dropping to dlq")
			_ = w.deps.Queue.AddDLQ(ctx, data, "malformed payload")
			_ = w.deps.Queue.Ack(ctx, msgID)
			continue
		}

		w.process(ctx, job, data)
		_ = w.deps.Queue.Ack(ctx, msgID)
	}
}

// process runs one compilation to completion. A started compile is never
// cancelled mid-run; only service shutdown interrupts it, and the lock TTL
// covers that case.
func (w *Worker) process(ctx context.Context, job queue.CompileJob, raw []byte) {
	defer func() {
		_ = w.deps.Queue.ReleaseLock(ctx, job.StoryID)
	}()

	started := time.Now()
	w.setStatus(ctx, job.JobID, "processing", 0, "compiling layout", &started, nil)

	st, ok, err := w.deps.Scenes.GetStory(ctx, job.StoryID)
	if err != nil || !ok {
		w.fail(ctx, job, raw, started, fmt.Sprintf("story not found: %v", err))
		return
	}
	if !st.Finished {
		w.fail(ctx, job, raw, started, "story not finished; layout compilation refused")
		return
	}
	scenes, err := w.deps.Scenes.ListScenes(ctx, job.StoryID)
	if err != nil {
		w.fail(ctx, job, raw, started, fmt.Sprintf("load scenes: %v", err))
		return
	}

	layout, err := compiler.Compile(st, scenes, w.cfg.Book, func(pct float64) {
		w.setStatus(ctx, job.JobID, "processing", int(pct), "compiling layout", &started, nil)
	})
	if err != nil {
		w.fail(ctx, job, raw, started, err.Error())
		return
	}

	if err := w.deps.Layouts.Save(ctx, layout); err != nil {
		w.fail(ctx, job, raw, started, fmt.Sprintf("save layout: %v", err))
		return
	}

	if w.deps.Archive != nil {
		b, _ := json.Marshal(layout)
		if _, err := w.deps.Archive.ArchiveLayout(ctx, w.cfg.ArchivePrefix, job.StoryID, layout.Version, b); err != nil {
			// Redis copy is authoritative; archive failure is not fatal.
			log.Warn().Err(err).Str("story_id", job.StoryID).Msg("layout archive failed")
		}
	}

	end := time.Now()
	w.setStatus(ctx, job.JobID, "success", 100, "layout compiled", &started, &end)
	metrics.ObserveCompile("success", end.Sub(started), len(scenes))
	log.Info().
		Str("job_id", job.JobID).
		Str("story_id", job.StoryID).
		Int("pages", layout.TotalPages).
		Dur("took", end.Sub(started)).
		Msg("compile job finished")
}

func (w *Worker) fail(ctx context.Context, job queue.CompileJob, raw []byte, started time.Time, reason string) {
	end := time.Now()
	w.setStatus(ctx, job.JobID, "failed", 0, reason, &started, &end)
	_ = w.deps.Queue.AddDLQ(ctx, raw, reason)
	metrics.ObserveCompile("failed", end.Sub(started), 0)
	log.Error().Str("job_id", job.JobID).Str("story_id", job.StoryID).Str("reason", reason).Msg("compile job failed")
}

func (w *Worker) setStatus(ctx context.Context, jobID, status string, progress int, msg string, start, end *time.Time) {
	_ = w.deps.Status.Set(ctx, jobID, store.Status{
		Status:   status,
		Progress: progress,
		Message:  msg,
		Start:    start,
		End:      end,
	})
}

package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gtlocalize/storypath/internal/ai"
	"github.com/gtlocalize/storypath/internal/book"
	"github.com/gtlocalize/storypath/internal/limiter"
	"github.com/gtlocalize/storypath/internal/metrics"
	"github.com/gtlocalize/storypath/internal/paginate"
	"github.com/gtlocalize/storypath/internal/queue"
	"github.com/gtlocalize/storypath/internal/statuscheck"
	"github.com/gtlocalize/storypath/internal/story"
)

// SceneStore is the story/scene CRUD surface the orchestrator consumes.
type SceneStore interface {
	SaveStory(ctx context.Context, st story.Story) error
	GetStory(ctx context.Context, id string) (story.Story, bool, error)
	AppendScene(ctx context.Context, storyID string, sc story.Scene) error
	ListScenes(ctx context.Context, storyID string) ([]story.Scene, error)
	MarkFinished(ctx context.Context, storyID, endingType string) error
}

// LayoutStore serves persisted compiled layouts.
type LayoutStore interface {
	Get(ctx context.Context, storyID string) (book.Layout, bool, error)
}

// Queue enqueues compile jobs and owns the per-story compile lock.
type Queue interface {
	Enqueue(ctx context.Context, payload []byte) error
	AcquireLock(ctx context.Context, storyID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, storyID string) error
}

// Status mirrors a compile job's progress document.
type Status struct {
	Status   string
	Progress int
	Message  string
	Start    *time.Time
	End      *time.Time
	Metadata map[string]any
}

// StatusStore reads and writes compile-job status.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st Status) error
	Get(ctx context.Context, jobID string) (Status, bool, error)
	SetStoryJobMapping(ctx context.Context, storyID, jobID string) error
	GetJobByStoryID(ctx context.Context, storyID string) (string, error)
}

// AssetStore stores uploaded cover assets. Nil when archiving is disabled.
type AssetStore interface {
	UploadAsset(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Config holds the orchestrator's own knobs.
type Config struct {
	AdminTokenHash string
	LockTTL        time.Duration
}

// Dependencies wires the orchestrator's collaborators. Assets and Generator
// are optional; their endpoints answer 503 when unset.
type Dependencies struct {
	Scenes    SceneStore
	Layouts   LayoutStore
	Status    StatusStore
	Queue     Queue
	Assets    AssetStore
	Generator ai.Generator
	Checker   *statuscheck.Checker
	Limiter   *limiter.PerClient
}

type Orchestrator struct {
	cfg  Config
	deps Dependencies
}

func New(cfg Config, deps Dependencies) *Orchestrator {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	return &Orchestrator{cfg: cfg, deps: deps}
}

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", o.handleHealth)
	mux.HandleFunc("/stories", o.handleCreateStory)
	mux.HandleFunc("/stories/", o.handleStories)
	mux.HandleFunc("/compile_progress/", o.handleProgress)
}

func (o *Orchestrator) handleHealth(w http.ResponseWriter, r *http.Request) {
	if o.deps.Checker == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	sum := o.deps.Checker.Check(r.Context())
	code := http.StatusOK
	if !sum.OK() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, sum)
}

// handleCreateStory registers or updates story metadata.
func (o *Orchestrator) handleCreateStory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	o.requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var st story.Story
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		if st.Title == "" {
			http.Error(w, "missing title", http.StatusBadRequest)
			return
		}
		if err := o.deps.Scenes.SaveStory(r.Context(), st); err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		log.Info().Str("story_id", st.ID).Str("title", st.Title).Msg("story registered")
		writeJSON(w, http.StatusCreated, map[string]any{"status": "ok", "story_id": st.ID})
	})(w, r)
}

// handleStories dispatches /stories/{id}/{action}.
func (o *Orchestrator) handleStories(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/stories/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case action == "view" && r.Method == http.MethodGet:
		o.rateLimited(o.handleView(id))(w, r)
	case action == "book" && r.Method == http.MethodGet:
		o.rateLimited(o.handleBook(id))(w, r)
	case action == "compile" && r.Method == http.MethodPost:
		o.requireAdmin(o.handleCompile(id))(w, r)
	case action == "scenes" && r.Method == http.MethodPost:
		o.requireAdmin(o.handleAppendScene(id))(w, r)
	case action == "continue" && r.Method == http.MethodPost:
		o.rateLimited(o.handleContinue(id))(w, r)
	case action == "finish" && r.Method == http.MethodPost:
		o.requireAdmin(o.handleFinish(id))(w, r)
	case action == "cover" && r.Method == http.MethodPost:
		o.requireAdmin(o.handleCoverUpload(id))(w, r)
	case action == "" && r.Method == http.MethodGet:
		o.handleGetStory(id)(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (o *Orchestrator) handleGetStory(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok, err := o.deps.Scenes.GetStory(r.Context(), id)
		if err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// handleView paginates the story with the render-time heuristic and hands the
// transient page list straight to the page-flip widget. Nothing is persisted;
// the same scenes always yield the same pages across reloads.
func (o *Orchestrator) handleView(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok, err := o.deps.Scenes.GetStory(r.Context(), id)
		if err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		scenes, err := o.deps.Scenes.ListScenes(r.Context(), id)
		if err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		pages := paginate.View(st, scenes)
		metrics.IncView("heuristic")
		metrics.ObserveViewPages(len(pages))
		writeJSON(w, http.StatusOK, map[string]any{
			"story_id":    id,
			"title":       st.Title,
			"total_pages": len(pages),
			"pages":       pages,
		})
	}
}

// handleBook serves the compiled layout document, the canonical rendering
// source once compilation has run.
func (o *Orchestrator) handleBook(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok, err := o.deps.Layouts.Get(r.Context(), id)
		if err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "layout not compiled yet", http.StatusNotFound)
			return
		}
		metrics.IncView("compiled")
		writeJSON(w, http.StatusOK, l)
	}
}

func (o *Orchestrator) handleCompile(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok, err := o.deps.Scenes.GetStory(r.Context(), id)
		if err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		if !st.Finished {
			http.Error(w, "story not finished", http.StatusConflict)
			return
		}

		got, err := o.deps.Queue.AcquireLock(r.Context(), id, o.cfg.LockTTL)
		if err != nil {
			http.Error(w, "lock error", http.StatusInternalServerError)
			return
		}
		if !got {
			metrics.IncCompile("locked")
			http.Error(w, "compilation already in flight", http.StatusConflict)
			return
		}

		jobID := uuid.NewString()
		start := time.Now()
		_ = o.deps.Status.Set(r.Context(), jobID, Status{
			Status: "queued", Progress: 0, Message: "queued", Start: &start,
			Metadata: map[string]any{"story_id": id},
		})
		_ = o.deps.Status.SetStoryJobMapping(r.Context(), id, jobID)

		payload, _ := json.Marshal(queue.CompileJob{JobID: jobID, StoryID: id})
		if err := o.deps.Queue.Enqueue(r.Context(), payload); err != nil {
			_ = o.deps.Queue.ReleaseLock(r.Context(), id)
			http.Error(w, "enqueue failed", http.StatusInternalServerError)
			return
		}
		log.Info().Str("job_id", jobID).Str("story_id", id).Msg("compile job queued")
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "job_id": jobID})
	}
}

// handleAppendScene stores a scene produced by the external generation
// service. Finished stories are immutable.
func (o *Orchestrator) handleAppendScene(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		st, ok, err := o.deps.Scenes.GetStory(r.Context(), id)
		if err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		if st.Finished {
			http.Error(w, "story is finished; scenes are immutable", http.StatusConflict)
			return
		}
		var sc story.Scene
		if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(sc.Text) == "" {
			http.Error(w, "missing scene text", http.StatusBadRequest)
			return
		}
		if err := o.deps.Scenes.AppendScene(r.Context(), id, sc); err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		log.Info().Str("story_id", id).Int("scene", sc.Index).Bool("has_image", sc.HasImage()).Msg("scene stored")
		writeJSON(w, http.StatusCreated, map[string]any{"status": "ok", "scene": sc.Index})
	}
}

func (o *Orchestrator) handleFinish(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req struct {
			EndingType string `json:"ending_type"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if err := o.deps.Scenes.MarkFinished(r.Context(), id, req.EndingType); err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		log.Info().Str("story_id", id).Str("ending_type", req.EndingType).Msg("story finished")
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}

// handleProgress serves a compile job's status. Accepts a job id, or a story
// id which resolves through the story→job mapping.
func (o *Orchestrator) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/compile_progress/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	st, ok, err := o.deps.Status.Get(r.Context(), id)
	if err == nil && !ok {
		if jobID, merr := o.deps.Status.GetJobByStoryID(r.Context(), id); merr == nil {
			st, ok, err = o.deps.Status.Get(r.Context(), jobID)
		}
	}
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   st.Status,
		"progress": st.Progress,
		"message":  st.Message,
		"start":    st.Start,
		"end":      st.End,
		"metadata": st.Metadata,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

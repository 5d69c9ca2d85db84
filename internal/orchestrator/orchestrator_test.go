package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gtlocalize/storypath/internal/ai"
	"github.com/gtlocalize/storypath/internal/book"
	"github.com/gtlocalize/storypath/internal/story"
)

type fakeScenes struct {
	stories map[string]story.Story
	scenes  map[string][]story.Scene
}

func newFakeScenes() *fakeScenes {
	return &fakeScenes{stories: map[string]story.Story{}, scenes: map[string][]story.Scene{}}
}

func (f *fakeScenes) SaveStory(_ context.Context, st story.Story) error {
	f.stories[st.ID] = st
	return nil
}

func (f *fakeScenes) GetStory(_ context.Context, id string) (story.Story, bool, error) {
	st, ok := f.stories[id]
	return st, ok, nil
}

func (f *fakeScenes) AppendScene(_ context.Context, storyID string, sc story.Scene) error {
	f.scenes[storyID] = append(f.scenes[storyID], sc)
	return nil
}

func (f *fakeScenes) ListScenes(_ context.Context, storyID string) ([]story.Scene, error) {
	return f.scenes[storyID], nil
}

func (f *fakeScenes) MarkFinished(_ context.Context, storyID, endingType string) error {
	st := f.stories[storyID]
	st.Finished = true
	st.EndingType = endingType
	f.stories[storyID] = st
	return nil
}

type fakeLayouts struct{ layouts map[string]book.Layout }

func (f *fakeLayouts) Get(_ context.Context, storyID string) (book.Layout, bool, error) {
	l, ok := f.layouts[storyID]
	return l, ok, nil
}

type fakeQueue struct {
	locked   map[string]bool
	enqueued [][]byte
	failNext bool
}

func newFakeQueue() *fakeQueue { return &fakeQueue{locked: map[string]bool{}} }

func (f *fakeQueue) Enqueue(_ context.Context, payload []byte) error {
	f.enqueued = append(f.enqueued, payload)
	return nil
}

func (f *fakeQueue) AcquireLock(_ context.Context, storyID string, _ time.Duration) (bool, error) {
	if f.locked[storyID] {
		return false, nil
	}
	f.locked[storyID] = true
	return true, nil
}

func (f *fakeQueue) ReleaseLock(_ context.Context, storyID string) error {
	delete(f.locked, storyID)
	return nil
}

type fakeStatus struct {
	set     map[string]Status
	mapping map[string]string
}

func newFakeStatus() *fakeStatus {
	return &fakeStatus{set: map[string]Status{}, mapping: map[string]string{}}
}

func (f *fakeStatus) Set(_ context.Context, jobID string, st Status) error {
	f.set[jobID] = st
	return nil
}

func (f *fakeStatus) Get(_ context.Context, jobID string) (Status, bool, error) {
	st, ok := f.set[jobID]
	return st, ok, nil
}

func (f *fakeStatus) SetStoryJobMapping(_ context.Context, storyID, jobID string) error {
	f.mapping[storyID] = jobID
	return nil
}

func (f *fakeStatus) GetJobByStoryID(_ context.Context, storyID string) (string, error) {
	return f.mapping[storyID], nil
}

type fakeGenerator struct {
	resp ai.GenerateResponse
	err  error
}

func (f *fakeGenerator) NextScene(_ context.Context, _ ai.GenerateRequest) (ai.GenerateResponse, error) {
	return f.resp, f.err
}

const adminToken = "test-admin-token"

func newTestServer(t *testing.T, deps Dependencies) *httptest.Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	o := New(Config{AdminTokenHash: string(hash), LockTTL: time.Minute}, deps)
	mux := http.NewServeMux()
	o.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func adminPost(t *testing.T, url string, body []byte) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp
}

func TestViewReturnsPages(t *testing.T) {
	scenes := newFakeScenes()
	scenes.stories["s1"] = story.Story{ID: "s1", Title: "T", EndingType: "happy"}
	scenes.scenes["s1"] = []story.Scene{
		{Index: 0, Text: "A short scene.", ImageURL: "https://img.example/0.png"},
	}
	srv := newTestServer(t, Dependencies{Scenes: scenes})

	resp, err := http.Get(srv.URL + "/stories/s1/view")
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
	var out struct {
		TotalPages int         `json:"total_pages"`
		Pages      []book.Page `json:"pages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Front cover, title, one content page, back cover.
	if out.TotalPages != 4 {
		t.Errorf("total_pages %d, want 4", out.TotalPages)
	}
	if out.Pages[2].Kind != book.PageContent || !out.Pages[2].ShowImage {
		t.Errorf("content page wrong: %+v", out.Pages[2])
	}
}

func TestCompileLifecycle(t *testing.T) {
	scenes := newFakeScenes()
	scenes.stories["s1"] = story.Story{ID: "s1", Title: "T"}
	q := newFakeQueue()
	status := newFakeStatus()
	srv := newTestServer(t, Dependencies{Scenes: scenes, Queue: q, Status: status})

	// Unfinished stories cannot compile.
	resp := adminPost(t, srv.URL+"/stories/s1/compile", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("unfinished compile status %d, want 409", resp.StatusCode)
	}

	resp = adminPost(t, srv.URL+"/stories/s1/finish", []byte(`{"ending_type":"tragic"}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finish status %d, want 200", resp.StatusCode)
	}

	resp = adminPost(t, srv.URL+"/stories/s1/compile", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("compile status %d, want 202", resp.StatusCode)
	}
	var out struct {
		JobID string `json:"job_id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if out.JobID == "" {
		t.Fatal("missing job_id")
	}
	if len(q.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(q.enqueued))
	}
	if status.mapping["s1"] != out.JobID {
		t.Errorf("story to job mapping not recorded")
	}

	// The lock is still held, so a second trigger is refused.
	resp = adminPost(t, srv.URL+"/stories/s1/compile", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("locked compile status %d, want 409", resp.StatusCode)
	}

	// Progress resolves through the story id as well as the job id.
	for _, id := range []string{out.JobID, "s1"} {
		pr, err := http.Get(srv.URL + "/compile_progress/" + id)
		if err != nil {
			t.Fatalf("progress: %v", err)
		}
		pr.Body.Close()
		if pr.StatusCode != http.StatusOK {
			t.Errorf("progress by %q status %d, want 200", id, pr.StatusCode)
		}
	}
}

func TestFinishedStoryIsImmutable(t *testing.T) {
	scenes := newFakeScenes()
	scenes.stories["s1"] = story.Story{ID: "s1", Title: "T", Finished: true}
	srv := newTestServer(t, Dependencies{Scenes: scenes})

	resp := adminPost(t, srv.URL+"/stories/s1/scenes", []byte(`{"index":0,"text":"more"}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("append to finished story status %d, want 409", resp.StatusCode)
	}
}

func TestAdminAuthRequired(t *testing.T) {
	scenes := newFakeScenes()
	scenes.stories["s1"] = story.Story{ID: "s1", Title: "T", Finished: true}
	srv := newTestServer(t, Dependencies{Scenes: scenes, Queue: newFakeQueue(), Status: newFakeStatus()})

	resp, err := http.Post(srv.URL+"/stories/s1/compile", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/stories/s1/compile", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status %d, want 401", resp.StatusCode)
	}
}

func TestBookNotCompiledYet(t *testing.T) {
	scenes := newFakeScenes()
	scenes.stories["s1"] = story.Story{ID: "s1", Title: "T"}
	srv := newTestServer(t, Dependencies{Scenes: scenes, Layouts: &fakeLayouts{layouts: map[string]book.Layout{}}})

	resp, err := http.Get(srv.URL + "/stories/s1/book")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}

func TestContinueAppendsAndFinishes(t *testing.T) {
	scenes := newFakeScenes()
	scenes.stories["s1"] = story.Story{ID: "s1", Title: "T"}
	scenes.scenes["s1"] = []story.Scene{{Index: 0, Text: "opening"}}
	gen := &fakeGenerator{resp: ai.GenerateResponse{
		Scene:      story.Scene{Text: "the end"},
		Finished:   true,
		EndingType: "triumph",
	}}
	srv := newTestServer(t, Dependencies{Scenes: scenes, Generator: gen})

	resp, err := http.Post(srv.URL+"/stories/s1/continue", "application/json",
		strings.NewReader(`{"choice_index":1,"choice_text":"open the door"}`))
	if err != nil {
		t.Fatalf("post continue: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, want 201", resp.StatusCode)
	}

	got := scenes.scenes["s1"]
	if len(got) != 2 || got[1].Index != 1 || got[1].Text != "the end" {
		t.Errorf("generated scene not appended at next index: %+v", got)
	}
	st := scenes.stories["s1"]
	if !st.Finished || st.EndingType != "triumph" {
		t.Errorf("story not finished with generator's ending: %+v", st)
	}

	// Frozen stories cannot continue.
	resp2, err := http.Post(srv.URL+"/stories/s1/continue", "application/json", nil)
	if err != nil {
		t.Fatalf("post continue: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusConflict {
		t.Errorf("continue on finished story status %d, want 409", resp2.StatusCode)
	}
}

func TestContinueGeneratorFailureClasses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"rate limited", ai.ErrRateLimited, http.StatusTooManyRequests},
		{"content refused", ai.ErrContentRefused, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scenes := newFakeScenes()
			scenes.stories["s1"] = story.Story{ID: "s1", Title: "T"}
			srv := newTestServer(t, Dependencies{Scenes: scenes, Generator: &fakeGenerator{err: tc.err}})
			resp, err := http.Post(srv.URL+"/stories/s1/continue", "application/json", nil)
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("status %d, want %d", resp.StatusCode, tc.want)
			}
			if len(scenes.scenes["s1"]) != 0 {
				t.Errorf("failed generation must not append a scene")
			}
		})
	}
}

func TestContinueDisabledWithoutGenerator(t *testing.T) {
	scenes := newFakeScenes()
	scenes.stories["s1"] = story.Story{ID: "s1", Title: "T"}
	srv := newTestServer(t, Dependencies{Scenes: scenes})
	resp, err := http.Post(srv.URL+"/stories/s1/continue", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status %d, want 503", resp.StatusCode)
	}
}

package orchestrator

import (
	"context"

	"github.com/gtlocalize/storypath/internal/store"
)

type redisStatusAdapter struct{ s *store.RedisStatus }

// NewStatusAdapter exposes the redis status store through the orchestrator's
// StatusStore interface.
func NewStatusAdapter(s *store.RedisStatus) StatusStore { return &redisStatusAdapter{s: s} }

func (a *redisStatusAdapter) Set(ctx context.Context, jobID string, st Status) error {
	return a.s.Set(ctx, jobID, store.Status{
		Status:   st.Status,
		Progress: st.Progress,
		Message:  st.Message,
		Start:    st.Start,
		End:      st.End,
		Metadata: st.Metadata,
	})
}

func (a *redisStatusAdapter) Get(ctx context.Context, jobID string) (Status, bool, error) {
	st, ok, err := a.s.Get(ctx, jobID)
	if !ok || err != nil {
		return Status{}, ok, err
	}
	return Status{
		Status:   st.Status,
		Progress: st.Progress,
		Message:  st.Message,
		Start:    st.Start,
		End:      st.End,
		Metadata: st.Metadata,
	}, true, nil
}

func (a *redisStatusAdapter) SetStoryJobMapping(ctx context.Context, storyID, jobID string) error {
	return a.s.SetStoryJobMapping(ctx, storyID, jobID)
}

func (a *redisStatusAdapter) GetJobByStoryID(ctx context.Context, storyID string) (string, error) {
	return a.s.GetJobByStoryID(ctx, storyID)
}

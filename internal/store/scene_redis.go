package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	redis "github.com/redis/go-redis/v9"

	"github.com/gtlocalize/storypath/internal/story"
)

// SceneStore keeps story metadata and the ordered scene list in redis hashes.
// The pagination core only borrows scene data from here; it never writes back.
type SceneStore struct {
	client *redis.Client
}

func NewSceneStore(redisURL string) (*SceneStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &SceneStore{client: c}, nil
}

func (s *SceneStore) Close() error { return s.client.Close() }

func (s *SceneStore) storyKey(id string) string { return fmt.Sprintf("story:%s", id) }

func (s *SceneStore) sceneKey(id string, idx int) string {
	return fmt.Sprintf("story:%s:scene:%d", id, idx)
}

func (s *SceneStore) SaveStory(ctx context.Context, st story.Story) error {
	m := map[string]interface{}{
		"title":    st.Title,
		"language": st.Language,
		"genre":    st.Genre,
		"finished": strconv.FormatBool(st.Finished),
	}
	if st.Maturity != "" {
		m["maturity"] = st.Maturity
	}
	if st.CoverImageURL != "" {
		m["cover_image_url"] = st.CoverImageURL
	}
	if st.EndingType != "" {
		m["ending_type"] = st.EndingType
	}
	return s.client.HSet(ctx, s.storyKey(st.ID), m).Err()
}

func (s *SceneStore) GetStory(ctx context.Context, id string) (story.Story, bool, error) {
	res, err := s.client.HGetAll(ctx, s.storyKey(id)).Result()
	if err != nil {
		return story.Story{}, false, err
	}
	if len(res) == 0 {
		return story.Story{}, false, nil
	}
	st := story.Story{
		ID:            id,
		Title:         res["title"],
		Language:      res["language"],
		Genre:         res["genre"],
		Maturity:      res["maturity"],
		CoverImageURL: res["cover_image_url"],
		EndingType:    res["ending_type"],
	}
	st.Finished, _ = strconv.ParseBool(res["finished"])
	return st, true, nil
}

// AppendScene stores a scene under its ordinal index and advances the
// story's scene counter when the index extends the sequence.
func (s *SceneStore) AppendScene(ctx context.Context, storyID string, sc story.Scene) error {
	m := map[string]interface{}{"text": sc.Text}
	if sc.ImageURL != "" {
		m["image_url"] = sc.ImageURL
	}
	if len(sc.Choices) > 0 {
		b, _ := json.Marshal(sc.Choices)
		m["choices"] = string(b)
	}
	if err := s.client.HSet(ctx, s.sceneKey(storyID, sc.Index), m).Err(); err != nil {
		return err
	}
	count, err := s.SceneCount(ctx, storyID)
	if err != nil {
		return err
	}
	if sc.Index+1 > count {
		return s.client.HSet(ctx, s.storyKey(storyID), "scene_count", sc.Index+1).Err()
	}
	return nil
}

func (s *SceneStore) SceneCount(ctx context.Context, storyID string) (int, error) {
	res, err := s.client.HGet(ctx, s.storyKey(storyID), "scene_count").Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(res)
	return n, nil
}

// ListScenes returns the story's scenes in index order. A missing index is
// returned as an empty scene so the ordering the reader saw is preserved; the
// paginators skip empty scenes on their own.
func (s *SceneStore) ListScenes(ctx context.Context, storyID string) ([]story.Scene, error) {
	count, err := s.SceneCount(ctx, storyID)
	if err != nil {
		return nil, err
	}
	scenes := make([]story.Scene, 0, count)
	for i := 0; i < count; i++ {
		res, err := s.client.HGetAll(ctx, s.sceneKey(storyID, i)).Result()
		if err != nil {
			return scenes, err
		}
		sc := story.Scene{Index: i, Text: res["text"], ImageURL: res["image_url"]}
		if c := res["choices"]; c != "" {
			_ = json.Unmarshal([]byte(c), &sc.Choices)
		}
		scenes = append(scenes, sc)
	}
	return scenes, nil
}

// MarkFinished freezes the story and records its terminal ending tag. From
// here on the scene sequence is immutable and compilation may run.
func (s *SceneStore) MarkFinished(ctx context.Context, storyID, endingType string) error {
	m := map[string]interface{}{"finished": "true"}
	if endingType != "" {
		m["ending_type"] = endingType
	}
	return s.client.HSet(ctx, s.storyKey(storyID), m).Err()
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	redis "github.com/redis/go-redis/v9"

	"github.com/gtlocalize/storypath/internal/book"
)

// LayoutStore persists compiled layout documents. Book views are read-heavy
// and the document is immutable once written, so reads go through a short
// in-process cache in front of redis.
type LayoutStore struct {
	client *redis.Client
	cache  *gocache.Cache
}

func NewLayoutStore(redisURL string) (*LayoutStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &LayoutStore{
		client: c,
		cache:  gocache.New(5*time.Minute, 10*time.Minute),
	}, nil
}

func (s *LayoutStore) Close() error { return s.client.Close() }

func (s *LayoutStore) key(storyID string) string { return fmt.Sprintf("story:%s:layout", storyID) }

func (s *LayoutStore) Save(ctx context.Context, l book.Layout) error {
	b, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	if err := s.client.Set(ctx, s.key(l.StoryID), b, 0).Err(); err != nil {
		return err
	}
	s.cache.Set(l.StoryID, l, gocache.DefaultExpiration)
	return nil
}

func (s *LayoutStore) Get(ctx context.Context, storyID string) (book.Layout, bool, error) {
	if v, ok := s.cache.Get(storyID); ok {
		return v.(book.Layout), true, nil
	}
	res, err := s.client.Get(ctx, s.key(storyID)).Result()
	if err == redis.Nil {
		return book.Layout{}, false, nil
	}
	if err != nil {
		return book.Layout{}, false, err
	}
	var l book.Layout
	if err := json.Unmarshal([]byte(res), &l); err != nil {
		return book.Layout{}, false, fmt.Errorf("unmarshal layout: %w", err)
	}
	s.cache.Set(storyID, l, gocache.DefaultExpiration)
	return l, true, nil
}

// Package ai declares the contracts of the external generation services the
// engine collaborates with. Scene text, illustrations and speech are produced
// elsewhere; this service only consumes their output, so only the interfaces
// live here.
package ai

import (
	"context"
	"errors"

	"github.com/gtlocalize/storypath/internal/story"
)

// GenerateRequest asks the language-model service for the next scene.
type GenerateRequest struct {
	Story      story.Story
	Scenes     []story.Scene
	ChoiceIdx  int    // choice the reader took on the latest scene
	ChoiceText string // its label, for prompt context
}

// GenerateResponse carries the generated scene plus story-level deltas.
type GenerateResponse struct {
	Scene      story.Scene
	Finished   bool
	EndingType string
}

// Generator is the language-model scene generation service.
type Generator interface {
	NextScene(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// Illustrator is the image generation service for scene illustrations and
// covers. It returns a stable reference the stores persist as-is.
type Illustrator interface {
	Illustrate(ctx context.Context, storyID string, sceneIndex int, prompt string) (imageURL string, err error)
	Cover(ctx context.Context, storyID, title, genre string) (imageURL string, err error)
}

// Speech is the text-to-speech synthesis service.
type Speech interface {
	Synthesize(ctx context.Context, language, text string) (audioURL string, err error)
}

var (
	ErrRateLimited    = errors.New("rate_limited")
	ErrContentRefused = errors.New("content_refused")
)

func IsRateLimited(err error) bool    { return errors.Is(err, ErrRateLimited) }
func IsContentRefused(err error) bool { return errors.Is(err, ErrContentRefused) }

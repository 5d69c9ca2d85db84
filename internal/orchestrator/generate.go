package orchestrator

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gtlocalize/storypath/internal/ai"
)

// handleContinue advances a story one scene: the reader's choice goes to the
// generation service, the produced scene is appended, and the story is frozen
// when the generator declares an ending.
func (o *Orchestrator) handleContinue(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if o.deps.Generator == nil {
			http.Error(w, "scene generation disabled", http.StatusServiceUnavailable)
			return
		}
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
			http.Error(w, "story is finished", http.StatusConflict)
			return
		}

		var req struct {
			ChoiceIdx  int    `json:"choice_index"`
			ChoiceText string `json:"choice_text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		scenes, err := o.deps.Scenes.ListScenes(r.Context(), id)
		if err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}

		resp, err := o.deps.Generator.NextScene(r.Context(), ai.GenerateRequest{
			Story:      st,
			Scenes:     scenes,
			ChoiceIdx:  req.ChoiceIdx,
			ChoiceText: req.ChoiceText,
		})
		switch {
		case ai.IsRateLimited(err):
			http.Error(w, "generation rate limited, try again shortly", http.StatusTooManyRequests)
			return
		case ai.IsContentRefused(err):
			http.Error(w, "generation refused the requested continuation", http.StatusUnprocessableEntity)
			return
		case err != nil:
			log.Error().Err(err).Str("story_id", id).Msg("scene generation failed")
			http.Error(w, "generation error", http.StatusBadGateway)
			return
		}

		sc := resp.Scene
		sc.Index = len(scenes)
		if err := o.deps.Scenes.AppendScene(r.Context(), id, sc); err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		if resp.Finished {
			if err := o.deps.Scenes.MarkFinished(r.Context(), id, resp.EndingType); err != nil {
				http.Error(w, "store error", http.StatusInternalServerError)
				return
			}
		}
		log.Info().
			Str("story_id", id).
			Int("scene", sc.Index).
			Bool("finished", resp.Finished).
			Msg("story continued")
		writeJSON(w, http.StatusCreated, map[string]any{
			"scene":       sc,
			"finished":    resp.Finished,
			"ending_type": resp.EndingType,
		})
	}
}

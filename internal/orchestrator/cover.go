package orchestrator

import (
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gtlocalize/storypath/internal/assets"
)

const maxCoverBytes = 16 << 20

// handleCoverUpload accepts a cover illustration for a story, verifies it is
// actually an image by magic bytes, stores it, and records the reference on
// the story metadata.
func (o *Orchestrator) handleCoverUpload(id string) http.HandlerFunc {
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
		if o.deps.Assets == nil {
			http.Error(w, "asset storage disabled", http.StatusServiceUnavailable)
			return
		}

		if err := r.ParseMultipartForm(maxCoverBytes); err != nil {
			http.Error(w, "invalid multipart form", http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxCoverBytes))
		if err != nil {
			http.Error(w, "upload error", http.StatusInternalServerError)
			return
		}

		info, err := assets.DetectImage(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}

		key := fmt.Sprintf("covers/%s/cover%s", id, info.Extension)
		url, err := o.deps.Assets.UploadAsset(r.Context(), key, data, info.MIMEType)
		if err != nil {
			http.Error(w, "asset upload failed", http.StatusInternalServerError)
			return
		}

		st.CoverImageURL = url
		if err := o.deps.Scenes.SaveStory(r.Context(), st); err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		log.Info().Str("story_id", id).Str("url", url).Str("mime", info.MIMEType).Msg("cover uploaded")
		writeJSON(w, http.StatusCreated, map[string]any{"status": "ok", "cover_image_url": url})
	}
}

// Package compiler produces the authoritative persisted page layout for a
// completed story. It runs once, measures real text heights against the
// simulated page geometry, and emits a versioned Layout document that later
// book views replay without recomputation.
package compiler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gtlocalize/storypath/internal/book"
	"github.com/gtlocalize/storypath/internal/measure"
	"github.com/gtlocalize/storypath/internal/paginate"
	"github.com/gtlocalize/storypath/internal/story"
)

// ProgressFunc receives fractional completion (0 to 100) as scenes are laid
// out. Advisory only: reporting never changes the resulting layout.
type ProgressFunc func(percent float64)

// Compile lays out a finalized story. It acquires its own measuring surface
// and releases it on every return path. A surface acquisition failure is
// fatal and the caller should retry later rather than persist anything
// partial; a defect inside one scene never aborts the rest of the story.
func Compile(st story.Story, scenes []story.Scene, cfg measure.Config, progress ProgressFunc) (book.Layout, error) {
	surf, err := measure.NewSurface(cfg)
	if err != nil {
		return book.Layout{}, fmt.Errorf("layout compile %s: %w", st.ID, err)
	}
	defer surf.Close()

	pages := []book.Page{
		{Kind: book.PageFrontCover, ImageURL: st.CoverImageURL},
		{Kind: book.PageTitle, Title: st.Title},
	}

	num := 0
	for i, sc := range scenes {
		paras := story.SplitParagraphs(sc.Text)
		if len(paras) == 0 {
			log.Warn().Str("story_id", st.ID).Int("scene", sc.Index).Msg("scene has no paragraphs; skipping")
			continue
		}

		budget := paginate.Budget{First: cfg.AvailNoImage(), Rest: cfg.AvailNoImage()}
		if sc.HasImage() {
			budget.First = cfg.AvailWithImage()
		}
		groups := paginate.FillScene(paras, surf, budget, !sc.HasImage())
		for _, p := range paginate.ScenePages(sc, groups) {
			num++
			p.Number = num
			pages = append(pages, p)
		}

		if progress != nil {
			progress(float64(i+1) / float64(len(scenes)) * 100)
		}
	}

	ending := book.Classify(st.EndingType)
	pages = append(pages, book.Page{
		Kind:        book.PageBackCover,
		EndingLabel: ending.Label,
		Quote:       ending.QuoteFor(st.ID),
	})

	log.Info().
		Str("story_id", st.ID).
		Int("scenes", len(scenes)).
		Int("pages", len(pages)).
		Msg("layout compiled")

	return book.Layout{
		Version:       book.LayoutVersion,
		StoryID:       st.ID,
		Title:         st.Title,
		Language:      st.Language,
		Genre:         st.Genre,
		CoverImageURL: st.CoverImageURL,
		EndingType:    st.EndingType,
		TotalPages:    len(pages),
		Pages:         pages,
		CompiledAt:    time.Now().UTC(),
	}, nil
}

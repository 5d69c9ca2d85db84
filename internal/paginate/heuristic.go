package paginate

import (
	"github.com/gtlocalize/storypath/internal/book"
	"github.com/gtlocalize/storypath/internal/story"
)

// Render-time capacities, in visible runes. The illustrated capacity is
// smaller because the image eats roughly half the page.
const (
	CapacityWithImage = 380
	CapacityNoImage   = 600

	// A scene splits only when its text exceeds the first page's nominal
	// capacity by this factor. The band avoids a near-empty continuation
	// page for text that merely slightly overflows; modest visual overflow
	// on one page reads better than an awkward short second page.
	splitFactor = 1.8
)

// CharCount estimates paragraph height as its visible rune count. Ruby
// annotations are excluded so furigana does not inflate the estimate.
type CharCount struct{}

func (CharCount) ParagraphHeight(text string, _ bool) float64 {
	return float64(story.PlainLength(text))
}

// HeuristicScenePages paginates one scene for the live reader view using
// fixed character-count capacities. Synchronous and pure; the result is
// handed to the page-flip widget and never persisted.
func HeuristicScenePages(sc story.Scene) []book.Page {
	paras := story.SplitParagraphs(sc.Text)
	if len(paras) == 0 {
		return nil
	}

	firstCap := CapacityNoImage
	if sc.HasImage() {
		firstCap = CapacityWithImage
	}

	total := 0
	for _, p := range paras {
		total += story.PlainLength(p)
	}
	if float64(total) <= float64(firstCap)*splitFactor {
		return ScenePages(sc, [][]string{paras})
	}

	groups := FillScene(paras, CharCount{}, Budget{
		First: float64(firstCap),
		Rest:  CapacityNoImage,
	}, false)
	return ScenePages(sc, groups)
}

// View assembles the full transient book for the page-flip widget: front
// cover, title page, every scene's heuristic pages with running content page
// numbers, and a back cover with a freshly drawn ending quote.
func View(st story.Story, scenes []story.Scene) []book.Page {
	pages := []book.Page{
		{Kind: book.PageFrontCover, ImageURL: st.CoverImageURL},
		{Kind: book.PageTitle, Title: st.Title},
	}
	num := 0
	for _, sc := range scenes {
		for _, p := range HeuristicScenePages(sc) {
			num++
			p.Number = num
			pages = append(pages, p)
		}
	}
	ending := book.Classify(st.EndingType)
	pages = append(pages, book.Page{
		Kind:        book.PageBackCover,
		EndingLabel: ending.Label,
		Quote:       ending.RandomQuote(),
	})
	return pages
}

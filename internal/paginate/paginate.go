// Package paginate packs scene paragraphs into fixed-capacity book pages.
//
// One greedy fill algorithm serves both renderers: the render-time heuristic
// feeds it a character-count estimator, the layout compiler feeds it a real
// text-measurement surface. Capacity is always a soft target: a paragraph
// that alone exceeds a page is force-placed rather than dropped or split.
package paginate

import (
	"github.com/gtlocalize/storypath/internal/book"
	"github.com/gtlocalize/storypath/internal/story"
)

// HeightEstimator reports the vertical space one paragraph occupies on a
// page. dropCap is set for the opening paragraph of an illustration-free
// first page, which renders with a decorative first letter and needs extra
// room. Units are whatever the estimator's Budget uses (runes for the
// heuristic, pixels for the measured compiler).
type HeightEstimator interface {
	ParagraphHeight(text string, dropCap bool) float64
}

// Budget is the available capacity for one scene's pages, in the estimator's
// units. First applies to the scene's first page (smaller when that page
// shows the illustration), Rest to every continuation page.
type Budget struct {
	First float64
	Rest  float64
}

// FillScene greedily groups paragraphs into pages. Each page takes paragraphs
// while the running total stays within its budget; the first candidate of a
// page is force-placed if it alone does not fit, so no page is emitted empty
// and no paragraph is ever lost. dropCap enables the decorative-first-letter
// allowance on the very first paragraph.
func FillScene(paras []string, est HeightEstimator, b Budget, dropCap bool) [][]string {
	var groups [][]string
	rest := paras
	first := true
	for len(rest) > 0 {
		avail := b.Rest
		if first {
			avail = b.First
		}
		var page []string
		used := 0.0
		for len(rest) > 0 {
			dc := dropCap && first && len(groups) == 0 && len(page) == 0
			h := est.ParagraphHeight(rest[0], dc)
			if used+h > avail && len(page) > 0 {
				break
			}
			// First candidate always lands, even oversize.
			page = append(page, rest[0])
			used += h
			rest = rest[1:]
		}
		groups = append(groups, page)
		first = false
	}
	return groups
}

// imagePattern alternates illustration placement across scenes. Fixed 6-slot
// cycle keyed by scene index, independent of content.
var imagePattern = [6]book.ImagePosition{
	book.ImageTop, book.ImageTop, book.ImageBottom,
	book.ImageTop, book.ImageBottom, book.ImageTop,
}

// ImagePositionFor returns the illustration slot for a scene.
func ImagePositionFor(sceneIndex int) book.ImagePosition {
	return imagePattern[sceneIndex%len(imagePattern)]
}

// ScenePages materializes page groups into content pages for one scene. Only
// the first page may show the scene's illustration; continuations never do.
// Page numbers are left unset, the caller assigns the running book-wide
// sequence.
func ScenePages(sc story.Scene, groups [][]string) []book.Page {
	pages := make([]book.Page, 0, len(groups))
	for i, g := range groups {
		p := book.Page{
			Kind:         book.PageContent,
			Paragraphs:   g,
			SceneIndex:   sc.Index,
			FirstOfScene: i == 0,
			Continuation: i > 0,
		}
		if i == 0 && sc.HasImage() {
			p.ShowImage = true
			p.ImageURL = sc.ImageURL
			p.ImagePosition = ImagePositionFor(sc.Index)
		}
		pages = append(pages, p)
	}
	return pages
}

package paginate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/gtlocalize/storypath/internal/book"
	"github.com/gtlocalize/storypath/internal/story"
)

// runeCount is the simplest possible estimator: one rune, one unit.
type runeCount struct{}

func (runeCount) ParagraphHeight(text string, _ bool) float64 {
	return float64(len([]rune(text)))
}

func para(n int) string { return strings.Repeat("x", n) }

func TestFillSceneGreedy(t *testing.T) {
	paras := []string{para(100), para(100), para(100), para(100)}
	groups := FillScene(paras, runeCount{}, Budget{First: 250, Rest: 300}, false)
	if len(groups) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(groups))
	}
	if len(groups[0]) != 2 || len(groups[1]) != 2 {
		t.Errorf("expected 2+2 paragraphs, got %d+%d", len(groups[0]), len(groups[1]))
	}
}

func TestFillSceneForcePlacement(t *testing.T) {
	// A paragraph larger than any budget still lands alone; nothing is
	// dropped and no page comes out empty.
	paras := []string{para(1000), para(50)}
	groups := FillScene(paras, runeCount{}, Budget{First: 100, Rest: 100}, false)
	if len(groups) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(groups))
	}
	if len(groups[0]) != 1 || groups[0][0] != para(1000) {
		t.Errorf("oversize paragraph should be force-placed alone on page 1")
	}
	if len(groups[1]) != 1 || groups[1][0] != para(50) {
		t.Errorf("remaining paragraph should spill to page 2")
	}
}

func TestFillSceneSingleOversizeParagraph(t *testing.T) {
	groups := FillScene([]string{para(9999)}, runeCount{}, Budget{First: 10, Rest: 10}, false)
	if len(groups) != 1 || len(groups[0]) != 1 {
		t.Fatalf("single oversize paragraph must yield exactly one page, got %#v", groups)
	}
}

func TestFillSceneConservation(t *testing.T) {
	paras := []string{para(90), para(10), para(300), para(40), para(40), para(220), para(5)}
	groups := FillScene(paras, runeCount{}, Budget{First: 120, Rest: 250}, false)
	var flat []string
	for _, g := range groups {
		if len(g) == 0 {
			t.Fatal("empty page emitted")
		}
		flat = append(flat, g...)
	}
	if !reflect.DeepEqual(flat, paras) {
		t.Errorf("paragraphs reordered, duplicated or dropped:\n got %v\nwant %v", lens(flat), lens(paras))
	}
}

func lens(ps []string) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = len(p)
	}
	return out
}

func TestFillSceneDropCapOnlyFirstParagraph(t *testing.T) {
	// The drop-cap allowance applies to the very first paragraph only.
	calls := map[string]bool{}
	est := estFunc(func(text string, dropCap bool) float64 {
		if dropCap {
			calls[text] = true
		}
		return float64(len(text))
	})
	FillScene([]string{"aaa", "bbb", "ccc"}, est, Budget{First: 4, Rest: 4}, true)
	if !calls["aaa"] || calls["bbb"] || calls["ccc"] {
		t.Errorf("drop-cap flag misapplied: %v", calls)
	}
}

type estFunc func(string, bool) float64

func (f estFunc) ParagraphHeight(text string, dropCap bool) float64 { return f(text, dropCap) }

func TestImagePositionFor(t *testing.T) {
	want := []book.ImagePosition{
		book.ImageTop, book.ImageTop, book.ImageBottom,
		book.ImageTop, book.ImageBottom, book.ImageTop,
		book.ImageTop, // wraps
	}
	for i, w := range want {
		if got := ImagePositionFor(i); got != w {
			t.Errorf("scene %d: got %s, want %s", i, got, w)
		}
	}
}

func TestScenePagesIllustrationInvariant(t *testing.T) {
	sc := story.Scene{Index: 2, Text: "unused", ImageURL: "https://img.example/2.png"}
	pages := ScenePages(sc, [][]string{{"a"}, {"b"}, {"c"}})
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if !pages[0].ShowImage || pages[0].ImagePosition != book.ImageBottom {
		t.Errorf("first page should show the illustration at the pattern slot, got %+v", pages[0])
	}
	if !pages[0].FirstOfScene || pages[0].Continuation {
		t.Errorf("first page flags wrong: %+v", pages[0])
	}
	for _, p := range pages[1:] {
		if p.ShowImage {
			t.Errorf("continuation page must not show an illustration: %+v", p)
		}
		if !p.Continuation || p.FirstOfScene {
			t.Errorf("continuation flags wrong: %+v", p)
		}
		if p.SceneIndex != 2 {
			t.Errorf("page belongs to scene 2, got %d", p.SceneIndex)
		}
	}
}

func TestScenePagesNoImage(t *testing.T) {
	pages := ScenePages(story.Scene{Index: 0, Text: "t"}, [][]string{{"a"}})
	if pages[0].ShowImage || pages[0].ImageURL != "" {
		t.Errorf("scene without illustration must not show one: %+v", pages[0])
	}
}

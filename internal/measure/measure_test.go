package measure

import (
	"strings"
	"testing"
)

func newTestSurface(t *testing.T) *Surface {
	t.Helper()
	s, err := NewSurface(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConfigBudgets(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AvailWithImage() >= cfg.AvailNoImage() {
		t.Errorf("illustrated budget %f should be smaller than plain budget %f",
			cfg.AvailWithImage(), cfg.AvailNoImage())
	}
	if cfg.TextWidth() <= 0 || cfg.AvailWithImage() <= 0 {
		t.Errorf("degenerate geometry: width %f, illustrated height %f",
			cfg.TextWidth(), cfg.AvailWithImage())
	}
}

func TestParagraphHeightGrowsWithText(t *testing.T) {
	s := newTestSurface(t)
	short := s.ParagraphHeight("A single line of text.", false)
	long := s.ParagraphHeight(strings.Repeat("many words flowing onward ", 40), false)
	if short <= 0 {
		t.Fatalf("short paragraph height %f, want > 0", short)
	}
	if long <= short {
		t.Errorf("long paragraph (%f) should measure taller than short (%f)", long, short)
	}
}

func TestParagraphHeightDeterministic(t *testing.T) {
	s := newTestSurface(t)
	text := strings.Repeat("the lantern swung in the dark ", 12)
	first := s.ParagraphHeight(text, false)
	for i := 0; i < 10; i++ {
		if got := s.ParagraphHeight(text, false); got != first {
			t.Fatalf("measurement drifted: %f vs %f", got, first)
		}
	}
}

func TestParagraphHeightDropCap(t *testing.T) {
	cfg := DefaultConfig()
	s := newTestSurface(t)
	plain := s.ParagraphHeight("Opening paragraph.", false)
	dropped := s.ParagraphHeight("Opening paragraph.", true)
	if dropped != plain+cfg.DropCapExtra {
		t.Errorf("drop cap should add exactly %f, got %f over %f", cfg.DropCapExtra, dropped, plain)
	}
}

func TestParagraphHeightRubyExcluded(t *testing.T) {
	s := newTestSurface(t)
	with := s.ParagraphHeight("<ruby>漢字<rt>かんじ</rt></ruby>の話", false)
	without := s.ParagraphHeight("漢字の話", false)
	if with != without {
		t.Errorf("ruby annotations must not change measured height: %f vs %f", with, without)
	}
}

func TestCJKTextWraps(t *testing.T) {
	// Unspaced ideographic text has no word boundaries; it must still wrap
	// instead of measuring as one infinite line.
	s := newTestSurface(t)
	one := s.ParagraphHeight("夜", false)
	many := s.ParagraphHeight(strings.Repeat("夜の森を歩いた。", 30), false)
	if many <= one {
		t.Errorf("long CJK paragraph (%f) should be taller than one rune (%f)", many, one)
	}
}

func TestHardNewlineForcesLine(t *testing.T) {
	s := newTestSurface(t)
	single := s.ParagraphHeight("alpha beta", false)
	broken := s.ParagraphHeight("alpha\nbeta", false)
	if broken <= single {
		t.Errorf("hard newline should add a line: %f vs %f", broken, single)
	}
}

// Package measure provides the text-metrics capability behind the layout
// compiler: a transient measuring surface that word-wraps a paragraph at the
// page's text width using real font metrics and reports its rendered height.
package measure

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/gtlocalize/storypath/internal/story"
)

// Config fixes the simulated page geometry per deployment. All lengths are in
// pixels at 72 DPI.
type Config struct {
	PageWidth     float64
	PageHeight    float64
	Padding       float64
	ImageFraction float64 // fraction of page height the illustration occupies
	ImageTextGap  float64
	LineSpacing   float64
	FontSize      float64
	ParagraphGap  float64
	DropCapExtra  float64 // extra height for the decorative first letter
}

// DefaultConfig mirrors the production book geometry.
func DefaultConfig() Config {
	return Config{
		PageWidth:     400,
		PageHeight:    600,
		Padding:       24,
		ImageFraction: 0.45,
		ImageTextGap:  16,
		LineSpacing:   1.6,
		FontSize:      16,
		ParagraphGap:  10,
		DropCapExtra:  28,
	}
}

// TextWidth is the horizontal space left for text after side padding.
func (c Config) TextWidth() float64 { return c.PageWidth - 2*c.Padding }

// AvailWithImage is the text height budget of an illustrated page.
func (c Config) AvailWithImage() float64 {
	return c.PageHeight*(1-c.ImageFraction) - 2*c.Padding - c.ImageTextGap
}

// AvailNoImage is the text height budget of a page without illustration.
func (c Config) AvailNoImage() float64 { return c.PageHeight - 2*c.Padding }

// Surface is the scratch measuring context for one compilation run. It owns
// a font face and must be released with Close when the run ends, on error
// paths included. Not safe for concurrent use; the caller keeps at most one
// compilation per surface in flight.
type Surface struct {
	cfg   Config
	face  font.Face
	line  float64 // line height after spacing multiplier
	em    float64 // fallback advance for glyphs the face lacks
	space float64
}

// NewSurface parses the embedded book font and derives line metrics. An error
// here means no measurement environment exists and the whole compilation must
// be aborted; there is no fallback estimator.
func NewSurface(cfg Config) (*Surface, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse book font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    cfg.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	s := &Surface{
		cfg:  cfg,
		face: face,
		line: fixedToPx(face.Metrics().Height) * cfg.LineSpacing,
		em:   cfg.FontSize,
	}
	s.space = s.runeAdvance(' ')
	return s, nil
}

// Close releases the font face. The surface must not be used afterwards.
func (s *Surface) Close() error { return s.face.Close() }

// Config returns the geometry this surface measures against.
func (s *Surface) Config() Config { return s.cfg }

// ParagraphHeight implements paginate.HeightEstimator: wrap the paragraph's
// visible text at the page text width and return lines × line height plus the
// inter-paragraph gap. Ruby annotations sit inside the line box and do not
// add height of their own.
func (s *Surface) ParagraphHeight(text string, dropCap bool) float64 {
	h := float64(s.lineCount(story.PlainText(text)))*s.line + s.cfg.ParagraphGap
	if dropCap {
		h += s.cfg.DropCapExtra
	}
	return h
}

func (s *Surface) runeAdvance(r rune) float64 {
	if a, ok := s.face.GlyphAdvance(r); ok && a > 0 {
		return fixedToPx(a)
	}
	// Glyph not in the face (CJK, mostly): assume a full em, which is what
	// the real reader font advances for ideographs.
	return s.em
}

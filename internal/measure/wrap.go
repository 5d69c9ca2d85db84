package measure

import (
	"strings"

	"golang.org/x/image/math/fixed"
)

func fixedToPx(v fixed.Int26_6) float64 { return float64(v) / 64 }

// lineCount greedily word-wraps plain text at the page text width and returns
// the number of laid-out lines. Hard newlines inside a paragraph force a
// break. A word wider than a whole line wraps rune by rune, which also covers
// unspaced CJK text where every rune is a break opportunity.
func (s *Surface) lineCount(plain string) int {
	max := s.cfg.TextWidth()
	lines := 0
	for _, hard := range strings.Split(plain, "\n") {
		lines += s.wrapOne(strings.TrimSpace(hard), max)
	}
	if lines == 0 {
		lines = 1
	}
	return lines
}

func (s *Surface) wrapOne(line string, max float64) int {
	words := strings.Fields(line)
	if len(words) == 0 {
		return 1
	}
	count := 0
	cur := 0.0
	for _, w := range words {
		ww := s.wordWidth(w)
		sep := 0.0
		if cur > 0 {
			sep = s.space
		}
		switch {
		case cur+sep+ww <= max:
			cur += sep + ww
		case ww <= max:
			count++
			cur = ww
		default:
			// Word wider than a line: finish the current line and break
			// the word wherever it overflows.
			if cur > 0 {
				count++
				cur = 0
			}
			for _, r := range w {
				ra := s.runeAdvance(r)
				if cur+ra > max && cur > 0 {
					count++
					cur = 0
				}
				cur += ra
			}
		}
	}
	if cur > 0 {
		count++
	}
	return count
}

func (s *Surface) wordWidth(w string) float64 {
	sum := 0.0
	for _, r := range w {
		sum += s.runeAdvance(r)
	}
	return sum
}

package story

import (
	"strings"
	"unicode/utf8"
)

// SplitParagraphs splits narrative text into trimmed, non-empty paragraphs on
// blank-line boundaries (one or more consecutive blank lines). Pure and
// deterministic: paragraphs are never reordered and non-whitespace content is
// preserved exactly once.
func SplitParagraphs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) == 0 {
			return
		}
		p := strings.TrimSpace(strings.Join(cur, "\n"))
		if p != "" {
			paras = append(paras, p)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(normalized, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return paras
}

// PlainText strips inline ruby markup, leaving only the base text readers see
// in the main line. Supported form is the HTML one the generation service
// emits: <ruby>漢字<rt>かんじ</rt></ruby>, optionally with <rp> fallback
// parentheses. Unknown markup passes through untouched.
func PlainText(s string) string {
	if !strings.Contains(s, "<ruby") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:lt])
		s = s[lt:]
		switch {
		case strings.HasPrefix(s, "<ruby>") || strings.HasPrefix(s, "<ruby "):
			s = skipTag(s)
		case strings.HasPrefix(s, "</ruby>"):
			s = s[len("</ruby>"):]
		case strings.HasPrefix(s, "<rt>"):
			s = dropUntil(s[len("<rt>"):], "</rt>")
		case strings.HasPrefix(s, "<rp>"):
			s = dropUntil(s[len("<rp>"):], "</rp>")
		default:
			// Not ruby markup; keep the '<' literally.
			b.WriteByte('<')
			s = s[1:]
		}
	}
	return b.String()
}

func skipTag(s string) string {
	if gt := strings.IndexByte(s, '>'); gt >= 0 {
		return s[gt+1:]
	}
	return ""
}

func dropUntil(s, closing string) string {
	if i := strings.Index(s, closing); i >= 0 {
		return s[i+len(closing):]
	}
	return ""
}

// PlainLength counts the visible runes of s with ruby annotations excluded.
// Rune count, not byte count, so CJK text is not over-weighted.
func PlainLength(s string) int {
	return utf8.RuneCountInString(PlainText(s))
}

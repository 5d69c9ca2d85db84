package story

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitParagraphs(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "  \n\t\n  ", nil},
		{"single paragraph", "The door creaked open.", []string{"The door creaked open."}},
		{
			"blank line split",
			"First paragraph.\n\nSecond paragraph.",
			[]string{"First paragraph.", "Second paragraph."},
		},
		{
			"multiple blank lines collapse",
			"One.\n\n\n\nTwo.",
			[]string{"One.", "Two."},
		},
		{
			"whitespace-only line is blank",
			"One.\n   \nTwo.",
			[]string{"One.", "Two."},
		},
		{
			"internal newline stays inside paragraph",
			"Line a\nline b\n\nNext.",
			[]string{"Line a\nline b", "Next."},
		},
		{
			"crlf input",
			"One.\r\n\r\nTwo.",
			[]string{"One.", "Two."},
		},
		{
			"leading and trailing blanks dropped",
			"\n\nOnly one.\n\n",
			[]string{"Only one."},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitParagraphs(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("SplitParagraphs(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSplitParagraphsConservation(t *testing.T) {
	in := "Alpha beta.\n\nGamma\ndelta.\n\n\nEpsilon."
	paras := SplitParagraphs(in)
	joined := strings.Join(paras, "")
	for _, word := range []string{"Alpha", "beta.", "Gamma", "delta.", "Epsilon."} {
		if !strings.Contains(joined, word) {
			t.Errorf("paragraph content lost: %q missing from %q", word, joined)
		}
	}
	if len(paras) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d: %#v", len(paras), paras)
	}
}

func TestPlainText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no markup", "ただの文章です。", "ただの文章です。"},
		{
			"ruby stripped",
			"<ruby>漢字<rt>かんじ</rt></ruby>を読む。",
			"漢字を読む。",
		},
		{
			"ruby with rp fallback",
			"<ruby>話<rp>(</rp><rt>はなし</rt><rp>)</rp></ruby>",
			"話",
		},
		{
			"multiple ruby runs",
			"<ruby>森<rt>もり</rt></ruby>の<ruby>奥<rt>おく</rt></ruby>へ",
			"森の奥へ",
		},
		{"stray angle bracket kept", "a < b", "a < b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PlainText(tc.in); got != tc.want {
				t.Errorf("PlainText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPlainLength(t *testing.T) {
	if got := PlainLength("<ruby>漢字<rt>かんじ</rt></ruby>"); got != 2 {
		t.Errorf("ruby annotation should not count: got %d, want 2", got)
	}
	if got := PlainLength("abcde"); got != 5 {
		t.Errorf("got %d, want 5", got)
	}
	// Rune count, not bytes.
	if got := PlainLength("あいう"); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

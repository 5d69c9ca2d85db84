package book

import (
	"hash/fnv"
	"math/rand"
	"strings"
)

// Ending maps a free-text ending tag onto the closed display vocabulary the
// back cover uses.
type Ending struct {
	Tag    string
	Label  string
	Quotes []string
}

var defaultEnding = Ending{
	Tag:   "open",
	Label: "To Be Continued",
	Quotes: []string{
		"Every ending is a door left ajar.",
		"The story rests here, but it is not done with you.",
		"Some roads simply fade into the mist.",
	},
}

var endings = map[string]Ending{
	"triumph": {
		Tag:   "triumph",
		Label: "A Triumphant End",
		Quotes: []string{
			"Fortune favors the bold.",
			"They came, they saw, they prevailed.",
			"Victory tastes sweetest after the longest night.",
		},
	},
	"happy": {
		Tag:   "happy",
		Label: "Happily Ever After",
		Quotes: []string{
			"And so the sun rose on better days.",
			"All's well that ends well.",
			"Home, at last, was wherever they stood.",
		},
	},
	"tragic": {
		Tag:   "tragic",
		Label: "A Tragic End",
		Quotes: []string{
			"Not all who set out return.",
			"The candle burned brightest just before the dark.",
			"Grief is the price of a story worth telling.",
		},
	},
	"bittersweet": {
		Tag:   "bittersweet",
		Label: "A Bittersweet Farewell",
		Quotes: []string{
			"Something gained, something given away.",
			"They smiled, though their eyes said otherwise.",
			"Joy and sorrow drink from the same cup.",
		},
	},
	"mystery": {
		Tag:   "mystery",
		Label: "The Mystery Remains",
		Quotes: []string{
			"Some questions are answers in disguise.",
			"What was seen cannot be unseen; what was hidden stays hidden.",
			"The truth slipped out the back door, unobserved.",
		},
	},
}

// Classify maps a free-text ending tag to its display entry. Unrecognized or
// empty tags fall back to the default entry.
func Classify(tag string) Ending {
	if e, ok := endings[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return e
	}
	return defaultEnding
}

// RandomQuote picks uniformly from the pool. Used by the transient
// render-time view, where drift between renders is acceptable.
func (e Ending) RandomQuote() string {
	return e.Quotes[rand.Intn(len(e.Quotes))]
}

// QuoteFor picks deterministically, seeded by the story identifier. The
// compiled layout is cached and replayed, so its quote must not drift.
func (e Ending) QuoteFor(storyID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(storyID))
	return e.Quotes[int(h.Sum32())%len(e.Quotes)]
}

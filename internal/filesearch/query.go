package filesearch

import "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/fuzzy"

// Query is a parsed file path search.
type Query struct {
	Text  string
	Parts []string
}

// ParseQuery splits text into path pattern segments. Empty text yields nil.
func ParseQuery(text string) *Query {
	if text == "" {
		return nil
	}
	return &Query{
		Text:  text,
		Parts: fuzzy.SplitPathPattern(text),
	}
}

package symbolsearch

import "strings"

// ScopeSeparator joins the segments of a qualified name.
const ScopeSeparator = "::"

// Query is a parsed symbol search. Parts holds the "::" separated segments
// of the text. Name is the final segment, empty when the text ends with
// "::" so that any symbol inside the named scope matches.
type Query struct {
	Text  string
	Name  string
	Parts []string
}

// Qualified reports whether q names an enclosing scope.
func (q *Query) Qualified() bool {
	return len(q.Parts) > 1
}

// ParseQuery parses text. Empty text yields nil.
func ParseQuery(text string) *Query {
	if text == "" {
		return nil
	}
	q := &Query{
		Text:  text,
		Parts: strings.Split(text, ScopeSeparator),
	}
	if !strings.HasSuffix(text, ScopeSeparator) {
		q.Name = q.Parts[len(q.Parts)-1]
	}
	return q
}

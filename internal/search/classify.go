package search

import (
	"regexp"
	"strings"
)

// QueryKind tags the outcome of query classification.
type QueryKind int

const (
	KindUnknown QueryKind = iota
	KindQuestion
	KindStatement
)

func (k QueryKind) String() string {
	switch k {
	case KindQuestion:
		return "question"
	case KindStatement:
		return "statement"
	default:
		return "unknown"
	}
}

// Classification is the single place query-shape heuristics live. The
// threshold-adjustment step and the keyword scorer both consume it rather
// than re-deriving their own patterns.
type Classification struct {
	Kind QueryKind
	// Subject is the attribute target of a personal question, e.g. "car"
	// in "what is my favorite car?". Empty when none was found.
	Subject string
	// Attribute reports whether the question used an attribute-indicating
	// word (favorite, preferred, best) rather than a bare "my X".
	Attribute bool
}

var interrogatives = map[string]bool{
	"what": true, "who": true, "where": true, "when": true, "why": true,
	"how": true, "which": true, "whose": true, "is": true, "are": true,
	"am": true, "do": true, "does": true, "did": true, "can": true,
	"could": true, "would": true, "will": true, "should": true, "have": true,
}

var (
	attributeSubjectRe = regexp.MustCompile(`(?i)\b(?:favorite|favourite|preferred|best)\s+([a-z]+)`)
	personalSubjectRe  = regexp.MustCompile(`(?i)\b(?:my|your)\s+([a-z]+)`)
)

// Classify determines whether a query is a question or a statement and, for
// personal-attribute questions, extracts the subject being asked about.
func Classify(query string) Classification {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Classification{Kind: KindUnknown}
	}

	isQuestion := strings.Contains(trimmed, "?")
	if !isQuestion {
		first := strings.ToLower(firstWord(trimmed))
		isQuestion = interrogatives[first]
	}
	if !isQuestion {
		return Classification{Kind: KindStatement}
	}

	c := Classification{Kind: KindQuestion}
	if m := attributeSubjectRe.FindStringSubmatch(trimmed); m != nil {
		c.Subject = strings.ToLower(m[1])
		c.Attribute = true
	} else if m := personalSubjectRe.FindStringSubmatch(trimmed); m != nil {
		subject := strings.ToLower(m[1])
		if !isStopword(subject) {
			c.Subject = subject
		}
	}
	return c
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t\n"); i > 0 {
		return s[:i]
	}
	return s
}

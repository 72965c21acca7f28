package search

import (
	"regexp"
	"strings"

	"github.com/orsinium-labs/stopwords"
)

// Lexical relevance scoring between a query and candidate memory content.
// Scores combine three signals with fixed weights: brand-model token matches
// dominate when present, then phrase matches, then individual word matches.
// Output is always clamped to [0,1].

var englishStops = stopwords.MustGet("en")

func isStopword(w string) bool {
	return englishStops.Contains(w)
}

// brandModelRe matches tokens where a word sits immediately adjacent to a
// number, e.g. "308GTSi", "GT500", "A380".
var brandModelRe = regexp.MustCompile(`\b(?:[A-Za-z]+\d+[A-Za-z0-9]*|\d+[A-Za-z][A-Za-z0-9]*)\b`)

var nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)

// Score computes a lexical relevance score for content against query.
// Empty query or content yields 0.
func Score(query, content string) float64 {
	query = strings.TrimSpace(query)
	content = strings.TrimSpace(content)
	if query == "" || content == "" {
		return 0
	}

	lowerContent := strings.ToLower(content)

	// Personal-attribute questions get fixed high scores when the content
	// speaks to the asked-about subject.
	c := Classify(query)
	if c.Kind == KindQuestion && c.Subject != "" {
		hasAttribute := strings.Contains(lowerContent, "favorite") ||
			strings.Contains(lowerContent, "favourite") ||
			strings.Contains(lowerContent, "prefer") ||
			strings.Contains(lowerContent, "best")
		hasSubject := strings.Contains(lowerContent, c.Subject)
		if hasAttribute && hasSubject {
			return 0.95
		}
		if hasSubject {
			return 0.85
		}
	}

	brandScore := scoreBrandModels(query, content)
	words := extractKeywords(query)
	phrases := extractPhrases(query)
	wordScore := scoreWords(words, lowerContent)
	phraseScore := scorePhrases(phrases, lowerContent)

	var combined float64
	switch {
	case brandScore > 0:
		combined = brandScore*0.7 + phraseScore*0.2 + wordScore*0.1
	case len(phrases) > 0:
		combined = phraseScore*0.6 + wordScore*0.4
	default:
		combined = wordScore
	}

	return clamp01(combined)
}

// scoreBrandModels awards matches between brand-model tokens in the query
// and the content. An exact token match scores 1.0, a substring containment
// 0.8. Returns 0 when the query carries no such tokens.
func scoreBrandModels(query, content string) float64 {
	queryTokens := brandModelRe.FindAllString(query, -1)
	if len(queryTokens) == 0 {
		return 0
	}

	lowerContent := strings.ToLower(content)
	contentTokens := make(map[string]bool)
	for _, t := range brandModelRe.FindAllString(content, -1) {
		contentTokens[strings.ToLower(t)] = true
	}

	var best float64
	for _, t := range queryTokens {
		lt := strings.ToLower(t)
		switch {
		case contentTokens[lt]:
			best = 1.0
		case strings.Contains(lowerContent, lt) && best < 0.8:
			best = 0.8
		}
	}
	return best
}

// extractKeywords pulls lowercased, punctuation-stripped words longer than
// two characters, skipping stopwords.
func extractKeywords(query string) []string {
	var words []string
	for _, raw := range strings.Fields(strings.ToLower(query)) {
		w := nonWordRe.ReplaceAllString(raw, "")
		if len(w) <= 2 || isStopword(w) {
			continue
		}
		words = append(words, w)
	}
	return words
}

// extractPhrases builds 2- and 3-word phrases from consecutive keywords.
func extractPhrases(query string) []string {
	words := extractKeywords(query)
	if len(words) < 2 {
		return nil
	}
	var phrases []string
	for i := 0; i+1 < len(words); i++ {
		phrases = append(phrases, words[i]+" "+words[i+1])
		if i+2 < len(words) {
			phrases = append(phrases, words[i]+" "+words[i+1]+" "+words[i+2])
		}
	}
	return phrases
}

// scoreWords awards whole-word matches over substring matches, with a capped
// bonus for repeated occurrences.
func scoreWords(words []string, lowerContent string) float64 {
	if len(words) == 0 {
		return 0
	}

	var total float64
	for _, w := range words {
		count := countWholeWord(lowerContent, w)
		if count > 0 {
			total += 1.0
			// Repeats add a little, capped so one word cannot dominate.
			extra := float64(count-1) * 0.1
			if extra > 0.3 {
				extra = 0.3
			}
			total += extra
		} else if strings.Contains(lowerContent, w) {
			total += 0.5
		}
	}
	return clamp01(total / float64(len(words)))
}

// scorePhrases awards phrase containment, with a bonus when the phrase
// appears in the first 50 characters of the content.
func scorePhrases(phrases []string, lowerContent string) float64 {
	if len(phrases) == 0 {
		return 0
	}

	head := lowerContent
	if len(head) > 50 {
		head = head[:50]
	}

	var total float64
	for _, p := range phrases {
		if !strings.Contains(lowerContent, p) {
			continue
		}
		total += 1.0
		if strings.Contains(head, p) {
			total += 0.25
		}
	}
	return clamp01(total / float64(len(phrases)))
}

func countWholeWord(content, word string) int {
	count := 0
	idx := 0
	for {
		i := strings.Index(content[idx:], word)
		if i < 0 {
			return count
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(content[start-1])
		afterOK := end == len(content) || !isWordChar(content[end])
		if beforeOK && afterOK {
			count++
		}
		idx = end
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 'A' && b <= 'Z'
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Package verify plans and executes external verification missions for
// low-confidence findings.
package verify

import (
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-z0-9]{3,}`)

var fillerWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "was": true, "has": true, "have": true, "this": true,
	"that": true, "with": true, "from": true, "they": true, "been": true,
	"were": true, "will": true, "would": true, "there": true, "their": true,
	"what": true, "which": true, "when": true, "into": true, "more": true,
	"some": true, "than": true, "then": true, "them": true, "also": true,
	"about": true, "these": true, "those": true, "because": true,
}

// extractKeywords returns up to max distinctive terms from text, most
// frequent first, ties broken alphabetically so output is stable.
func extractKeywords(text string, max int) []string {
	counts := make(map[string]int)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if !fillerWords[w] {
			counts[w]++
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > max {
		words = words[:max]
	}
	return words
}

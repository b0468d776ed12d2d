package search

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`\w+`)

// wordSet lowercases text and returns its distinct \w+ words.
func wordSet(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// overlap returns the fraction of query words present in field.
func overlap(query, field map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	var hits int
	for w := range query {
		if _, ok := field[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

// exactMatchScore weights the title and summary overlaps.
func exactMatchScore(query map[string]struct{}, title, summary string, titleWeight, summaryWeight float64) float64 {
	return overlap(query, wordSet(title))*titleWeight + overlap(query, wordSet(summary))*summaryWeight
}

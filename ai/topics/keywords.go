package topics

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/khabar/ai"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// tokenize lowercases text and keeps words of two or more characters that
// are not stop words or plain numbers.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, w := range raw {
		if utf8.RuneCountInString(w) < 2 || isNumber(w) {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// classKeywords scores words per topic with class-based TF-IDF:
// tf(w,c)/|c| * log(1 + A/f(w)), where A is the mean word count per topic
// and f(w) the frequency of w across all topics. Outliers are ignored.
func classKeywords(texts []string, topics []int, top int) map[int][]ai.TopicKeyword {
	counts := make(map[int]map[string]int)
	totals := make(map[int]int)
	freq := make(map[string]int)

	for i, text := range texts {
		topic := topics[i]
		if topic < 0 {
			continue
		}
		if counts[topic] == nil {
			counts[topic] = make(map[string]int)
		}
		for _, w := range tokenize(text) {
			counts[topic][w]++
			totals[topic]++
			freq[w]++
		}
	}

	result := make(map[int][]ai.TopicKeyword, len(counts))
	if len(counts) == 0 {
		return result
	}

	var all int
	for _, t := range totals {
		all += t
	}
	avg := float64(all) / float64(len(counts))

	for topic, words := range counts {
		kws := make([]ai.TopicKeyword, 0, len(words))
		for w, c := range words {
			tf := float64(c) / float64(totals[topic])
			idf := math.Log(1 + avg/float64(freq[w]))
			kws = append(kws, ai.TopicKeyword{Word: w, Score: tf * idf})
		}
		sort.Slice(kws, func(i, j int) bool {
			if kws[i].Score != kws[j].Score {
				return kws[i].Score > kws[j].Score
			}
			return kws[i].Word < kws[j].Word
		})
		if len(kws) > top {
			kws = kws[:top]
		}
		result[topic] = kws
	}
	return result
}

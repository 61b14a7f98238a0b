// Package textprep reduces long text files to an excerpt that fits an embedding model.
package textprep

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentencePattern = regexp.MustCompile(`[^.!?\n]+(?:[.!?\n]|$)`)
	stopwords       = defaultStopwords()
)

// Tokens lowercases text and returns its word tokens without stopwords.
func Tokens(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Sentences splits text on sentence punctuation and line breaks. A trailing
// fragment without either still counts as a sentence. Blank fragments are dropped.
func Sentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Excerpt returns text unchanged when it has at most maxChars runes, or when
// maxChars <= 0. Otherwise it keeps the highest scoring sentences, in their
// original order, without exceeding maxChars.
func Excerpt(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	sentences := Sentences(text)
	if len(sentences) <= 1 {
		return truncateRunes(text, maxChars)
	}

	// Word frequencies normalized by the most frequent word.
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range Tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := Tokens(sent)
		s := 0.0
		for _, tok := range toks {
			s += freq[tok]
		}
		// length-normalized so long sentences don't dominate
		if len(toks) > 0 {
			s /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = scored{i, s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	var selected []int
	budget := maxChars
	for _, sc := range scores {
		n := utf8.RuneCountInString(sentences[sc.idx])
		if len(selected) > 0 {
			n++ // joining space
		}
		if n > budget {
			continue
		}
		selected = append(selected, sc.idx)
		budget -= n
	}
	if len(selected) == 0 {
		return truncateRunes(sentences[scores[0].idx], maxChars)
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

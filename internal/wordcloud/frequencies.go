// Package wordcloud counts words and renders them as a PNG word cloud.
package wordcloud

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxWords is how many words a cloud shows
const DefaultMaxWords = 100

// Word is a token and how often it occurred
type Word struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// Frequencies tokenizes text into runs of letters and digits (any script),
// lower-cases them, drops stopwords, one-rune tokens and pure numbers, and
// returns the maxWords most frequent, ties broken alphabetically.
func Frequencies(text string, maxWords int) []Word {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	counts := make(map[string]int)
	for _, tok := range tokenize(text) {
		counts[tok]++
	}

	words := make([]Word, 0, len(counts))
	for t, c := range counts {
		words = append(words, Word{Text: t, Count: c})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Text < words[j].Text
	})

	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return words
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.ToLower(strings.Trim(f, "'"))
		tok = strings.TrimSuffix(tok, "'s")
		if utf8.RuneCountInString(tok) < 2 || isNumber(tok) || stopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var stopwords = func() map[string]bool {
	list := `a about above after again against all also am an and any are aren't as at
be because been before being below between both but by can cannot could couldn't
did didn't do does doesn't doing don't down during each else ever few for from
further get had hadn't has hasn't have haven't having he he'd he'll he's her here
here's hers herself him himself his how how's however http https i i'd i'll i'm
i've if in into is isn't it it's its itself just k let's like me more most mustn't
my myself no nor not of off on once only or other otherwise ought our ours
ourselves out over own r same shall shan't she she'd she'll she's should
shouldn't since so some such than that that's the their theirs them themselves
then there there's these they they'd they'll they're they've this those through
to too under until up very was wasn't we we'd we'll we're we've were weren't what
what's when when's where where's which while who who's whom why why's with won't
would wouldn't www you you'd you'll you're you've your yours yourself yourselves`
	m := make(map[string]bool)
	for _, w := range strings.Fields(list) {
		m[w] = true
	}
	return m
}()

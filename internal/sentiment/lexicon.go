package sentiment

import (
	"context"
	"strings"
	"unicode"
)

type entry struct {
	polarity     float64
	subjectivity float64
}

// english maps adjectives and verbs to a polarity in [-1,1] and a
// subjectivity in [0,1].
var english = map[string]entry{
	"good": {0.7, 0.6}, "great": {0.8, 0.75}, "excellent": {1.0, 1.0},
	"amazing": {0.6, 0.9}, "awesome": {1.0, 1.0}, "wonderful": {1.0, 1.0},
	"fantastic": {0.4, 0.9}, "best": {1.0, 0.3}, "better": {0.5, 0.5},
	"nice": {0.6, 1.0}, "happy": {0.8, 1.0}, "glad": {0.5, 1.0},
	"love": {0.5, 0.6}, "loved": {0.7, 0.8}, "like": {0.2, 0.3},
	"enjoy": {0.4, 0.5}, "enjoyed": {0.5, 0.6}, "beautiful": {0.85, 1.0},
	"perfect": {1.0, 1.0}, "fun": {0.3, 0.2}, "helpful": {0.5, 0.4},
	"pleasant": {0.73, 0.97}, "recommend": {0.4, 0.4}, "success": {0.6, 0.5},
	"successful": {0.75, 0.95}, "easy": {0.43, 0.83}, "fast": {0.2, 0.6},
	"friendly": {0.38, 0.5}, "interesting": {0.5, 0.5}, "impressive": {1.0, 1.0},
	"bad": {-0.7, 0.67}, "worse": {-0.4, 0.6}, "worst": {-1.0, 1.0},
	"terrible": {-1.0, 1.0}, "awful": {-1.0, 1.0}, "horrible": {-1.0, 1.0},
	"poor": {-0.4, 0.6}, "sad": {-0.5, 1.0}, "angry": {-0.5, 1.0},
	"hate": {-0.8, 0.9}, "hated": {-0.9, 0.7}, "boring": {-1.0, 1.0},
	"disappointing": {-0.6, 0.7}, "disappointed": {-0.75, 0.75}, "ugly": {-0.7, 1.0},
	"wrong": {-0.5, 0.9}, "slow": {-0.3, 0.4}, "difficult": {-0.5, 1.0},
	"broken": {-0.4, 0.4}, "annoying": {-0.8, 0.9}, "useless": {-0.5, 0.2},
	"fail": {-0.5, 0.3}, "failed": {-0.5, 0.3}, "problem": {-0.3, 0.4},
	"stupid": {-0.8, 1.0}, "painful": {-0.7, 0.9}, "scary": {-0.5, 1.0},
}

// korean maps stems; a token matches when it starts with the stem.
var korean = map[string]entry{
	"좋": {0.7, 0.6}, "최고": {1.0, 0.9}, "행복": {0.8, 1.0}, "기쁘": {0.8, 1.0},
	"기뻐": {0.8, 1.0}, "사랑": {0.6, 0.7}, "감사": {0.6, 0.5}, "훌륭": {0.9, 0.9},
	"멋지": {0.7, 0.9}, "멋있": {0.7, 0.9}, "재미있": {0.5, 0.6}, "재밌": {0.5, 0.6},
	"즐거": {0.7, 0.8}, "만족": {0.6, 0.6}, "추천": {0.4, 0.4}, "아름다": {0.85, 1.0},
	"나쁘": {-0.7, 0.7}, "나빠": {-0.7, 0.7}, "싫": {-0.7, 0.9}, "최악": {-1.0, 1.0},
	"슬프": {-0.5, 1.0}, "슬퍼": {-0.5, 1.0}, "화나": {-0.5, 1.0}, "짜증": {-0.8, 0.9},
	"실망": {-0.7, 0.75}, "지루": {-0.8, 0.9}, "재미없": {-0.5, 0.6}, "별로": {-0.4, 0.6},
	"불만": {-0.5, 0.6}, "문제": {-0.3, 0.4}, "힘들": {-0.5, 0.8}, "무섭": {-0.5, 1.0},
}

var intensifiers = map[string]float64{
	"very": 1.3, "really": 1.3, "so": 1.3, "too": 1.3, "extremely": 1.5,
	"incredibly": 1.5, "quite": 1.1, "pretty": 1.1, "super": 1.4,
	"정말": 1.3, "너무": 1.3, "아주": 1.3, "매우": 1.3, "진짜": 1.3, "완전": 1.4,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true, "nor": true, "without": true,
	"안": true, "못": true,
}

// koreanPostNegation negates the assessment right before it, as in "좋지 않다"
var koreanPostNegation = []string{"않", "못하", "아니"}

// Lexicon scores text offline by averaging word polarities. A preceding
// intensifier scales a word and a negation flips it at half strength.
type Lexicon struct{}

// NewLexicon creates the offline analyzer
func NewLexicon() *Lexicon { return &Lexicon{} }

// Name returns "lexicon"
func (l *Lexicon) Name() string { return "lexicon" }

// Analyze implements Analyzer
func (l *Lexicon) Analyze(ctx context.Context, text string) (Result, error) {
	text, err := Prepare(text, 0)
	if err != nil {
		return Result{}, err
	}

	polarity, subjectivity := Score(text)
	positive := (polarity + 1) / 2
	res := NewResult(positive, 1-positive)
	s := round3(subjectivity)
	res.Subjectivity = &s
	return res, nil
}

// Score returns polarity in [-1,1] and subjectivity in [0,1]
func Score(text string) (float64, float64) {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var assessments []entry
	negate := false
	intensity := 1.0

	for _, tok := range tokens {
		if hasAnyPrefix(tok, koreanPostNegation) && len(assessments) > 0 {
			last := &assessments[len(assessments)-1]
			last.polarity *= -0.5
			continue
		}
		if negations[tok] || strings.HasSuffix(tok, "n't") {
			negate = true
			continue
		}
		if f, ok := intensifiers[tok]; ok {
			intensity *= f
			continue
		}

		e, ok := lookup(tok)
		if !ok {
			continue
		}
		e.polarity = clamp(e.polarity*intensity, -1, 1)
		e.subjectivity = clamp(e.subjectivity*intensity, 0, 1)
		if negate {
			e.polarity *= -0.5
		}
		assessments = append(assessments, e)
		negate = false
		intensity = 1.0
	}

	if len(assessments) == 0 {
		return 0, 0
	}
	var p, s float64
	for _, a := range assessments {
		p += a.polarity
		s += a.subjectivity
	}
	n := float64(len(assessments))
	return p / n, s / n
}

func lookup(tok string) (entry, bool) {
	tok = strings.Trim(tok, "'")
	if e, ok := english[tok]; ok {
		return e, true
	}
	best, bestLen := entry{}, 0
	for stem, e := range korean {
		if len(stem) > bestLen && strings.HasPrefix(tok, stem) {
			best, bestLen = e, len(stem)
		}
	}
	return best, bestLen > 0
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ Analyzer = (*Lexicon)(nil)

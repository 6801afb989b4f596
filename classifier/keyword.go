package classifier

import (
	"context"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"github.com/use-agent/tenderscope/models"
)

// Keyword scores titles locally. A keyword appearing as a phrase in the
// title scores 1; otherwise each keyword token is matched to its closest
// title token by Jaro-Winkler similarity and the scores are averaged. The
// best keyword wins.
type Keyword struct {
	Threshold float64
}

func NewKeyword(threshold float64) *Keyword {
	return &Keyword{Threshold: threshold}
}

func (k *Keyword) Classify(_ context.Context, title string, keywords []string) (models.Relevance, error) {
	score := Score(title, keywords)
	if score >= k.Threshold {
		return models.Relevance{Relevant: true, Confidence: score}, nil
	}
	return models.Relevance{Relevant: false, Confidence: 1 - score}, nil
}

// Score returns the best similarity in [0, 1] between title and any keyword.
func Score(title string, keywords []string) float64 {
	titleTokens := tokenize(title)
	if len(titleTokens) == 0 {
		return 0
	}
	joined := " " + strings.Join(titleTokens, " ") + " "

	best := 0.0
	for _, kw := range keywords {
		kwTokens := tokenize(kw)
		if len(kwTokens) == 0 {
			continue
		}
		if strings.Contains(joined, " "+strings.Join(kwTokens, " ")+" ") {
			return 1
		}

		total := 0.0
		for _, kt := range kwTokens {
			closest := 0.0
			for _, tt := range titleTokens {
				if sim := matchr.JaroWinkler(kt, tt, false); sim > closest {
					closest = sim
				}
			}
			total += closest
		}
		if avg := total / float64(len(kwTokens)); avg > best {
			best = avg
		}
	}
	return best
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

package score

import (
	"regexp"
	"strings"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// Analysis is the verdict read out of a provider answer
type Analysis struct {
	Verdict     model.Verdict
	Confidence  float64
	Explanation string
}

// Analyzer maps free-text provider answers onto a verdict with keyword rules
type Analyzer struct {
	supports  *regexp.Regexp
	hedges    *regexp.Regexp
	refutes   *regexp.Regexp
	uncertain *regexp.Regexp
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		supports:  wordsRE("true", "correct", "accurate", "confirmed"),
		hedges:    wordsRE("partially", "somewhat", "mostly"),
		refutes:   wordsRE("false", "incorrect", "inaccurate", "wrong"),
		uncertain: wordsRE("unclear", "uncertain", "insufficient", "cannot determine"),
	}
}

// wordsRE matches any of words as whole words, case-insensitively.
// Substring matching would read "incorrect" as "correct" and
// "misconstrued" as "true".
func wordsRE(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Analyze applies the rules in order: supporting words (hedged or not),
// refuting words, uncertainty words, then a neutral fallback
func (a *Analyzer) Analyze(answer string) Analysis {
	res := Analysis{Explanation: strings.TrimSpace(answer)}

	switch {
	case a.supports.MatchString(answer):
		if a.hedges.MatchString(answer) {
			res.Verdict, res.Confidence = model.VerdictPartiallyTrue, 0.7
		} else {
			res.Verdict, res.Confidence = model.VerdictTrue, 0.9
		}
	case a.refutes.MatchString(answer):
		res.Verdict, res.Confidence = model.VerdictFalse, 0.85
	case a.uncertain.MatchString(answer):
		res.Verdict, res.Confidence = model.VerdictUnverified, 0.3
	default:
		res.Verdict, res.Confidence = model.VerdictUnverified, 0.5
	}

	return res
}

package sentiment

import (
	"math"
	"strings"
)

// lexicon maps financial news vocabulary to valence values. Scale follows
// the usual -4..+4 intensity convention so the compound normalization
// lands in [-1, 1].
var lexicon = map[string]float64{
	"surge":         2.9,
	"surges":        2.9,
	"soar":          3.1,
	"soars":         3.1,
	"rally":         2.5,
	"rallies":       2.5,
	"gain":          1.8,
	"gains":         1.8,
	"jump":          2.0,
	"jumps":         2.0,
	"climb":         1.7,
	"climbs":        1.7,
	"record":        1.5,
	"beat":          2.2,
	"beats":         2.2,
	"strong":        1.9,
	"growth":        1.8,
	"profit":        2.0,
	"profits":       2.0,
	"upgrade":       2.3,
	"upgraded":      2.3,
	"bullish":       2.6,
	"optimism":      2.1,
	"optimistic":    2.1,
	"outperform":    2.2,
	"breakthrough":  2.4,
	"recovery":      1.6,
	"rebound":       1.8,
	"rebounds":      1.8,

	"plunge":        -3.1,
	"plunges":       -3.1,
	"crash":         -3.4,
	"crashes":       -3.4,
	"tumble":        -2.6,
	"tumbles":       -2.6,
	"slump":         -2.4,
	"slumps":        -2.4,
	"drop":          -1.8,
	"drops":         -1.8,
	"fall":          -1.7,
	"falls":         -1.7,
	"decline":       -1.8,
	"declines":      -1.8,
	"loss":          -2.0,
	"losses":        -2.0,
	"miss":          -2.1,
	"misses":        -2.1,
	"weak":          -1.9,
	"downgrade":     -2.3,
	"downgraded":    -2.3,
	"bearish":       -2.6,
	"fear":          -2.2,
	"fears":         -2.2,
	"recession":     -2.8,
	"crisis":        -2.9,
	"bankruptcy":    -3.5,
	"bankrupt":      -3.5,
	"fraud":         -3.2,
	"lawsuit":       -2.0,
	"layoff":        -2.3,
	"layoffs":       -2.3,
	"selloff":       -2.5,
	"warning":       -1.8,
	"cuts":          -1.6,
	"underperform":  -2.2,
	"default":       -2.7,
	"investigation": -1.9,
}

var negators = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"without": true,
	"avoid":   true,
	"avoids":  true,
	"avoided": true,
}

// compoundScore computes a valence score for a block of text, normalized
// to [-1, 1] with x / sqrt(x^2 + 15). A negating word flips the sign of
// the word that follows it.
func compoundScore(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	var sum float64
	for i, w := range words {
		w = strings.Trim(w, ".,;:!?'\"()[]")
		valence, ok := lexicon[w]
		if !ok {
			continue
		}
		if i > 0 && negators[strings.Trim(words[i-1], ".,;:!?'\"()[]")] {
			valence = -valence * 0.74
		}
		sum += valence
	}
	if sum == 0 {
		return 0
	}
	return sum / math.Sqrt(sum*sum+15)
}

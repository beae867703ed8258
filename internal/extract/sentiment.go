package extract

// Tone selects the flavour of canned replies.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneNeutral  Tone = "neutral"
)

var (
	positiveWords = map[string]struct{}{
		"great": {}, "good": {}, "awesome": {}, "love": {}, "nice": {}, "cool": {},
		"excellent": {}, "perfect": {}, "happy": {}, "amazing": {}, "thanks": {},
	}
	negativeWords = map[string]struct{}{
		"bad": {}, "terrible": {}, "scam": {}, "angry": {}, "hate": {}, "slow": {},
		"worst": {}, "annoying": {}, "useless": {}, "broken": {}, "awful": {},
	}
)

// Sentiment counts positive and negative keywords. Ties are neutral.
func Sentiment(text string) Tone {
	score := 0
	for _, w := range Tokenize(text) {
		if _, ok := positiveWords[w]; ok {
			score++
		}
		if _, ok := negativeWords[w]; ok {
			score--
		}
	}

	switch {
	case score > 0:
		return TonePositive
	case score < 0:
		return ToneNegative
	default:
		return ToneNeutral
	}
}

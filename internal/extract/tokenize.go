package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var groupedNumber = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)

// Tokenize lower-cases text and splits it into words. Letters, digits and . _ , - + stay inside
// words; trailing punctuation is trimmed.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._,-+", r))
	})

	words := fields[:0]
	for _, f := range fields {
		f = strings.TrimRight(f, ".,")
		f = strings.TrimLeft(f, ",")
		if f == "" {
			continue
		}
		words = append(words, f)
	}
	return words
}

// ParseAmount parses a finite non-negative decimal such as "50", "0.5" or "1,250.75".
func ParseAmount(word string) (float64, bool) {
	if word == "" {
		return 0, false
	}
	if groupedNumber.MatchString(word) {
		word = strings.ReplaceAll(word, ",", "")
	}

	first := word[0]
	if !(first >= '0' && first <= '9') && first != '.' {
		return 0, false
	}
	if strings.ContainsAny(word, "xX_,") {
		return 0, false
	}

	v, err := strconv.ParseFloat(word, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

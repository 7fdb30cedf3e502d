package commands

import (
	"strconv"
	"strings"
)

// Spoken-number tables used to normalize voice transcripts before the
// natural-language rules run ("five" → "5", "twenty-five" → "25").

var onesWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19,
}

var tensWords = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// normalizeSpokenNumbers replaces spelled-out numbers up to 99 with
// digits, including hyphenated and space-separated compounds. All other
// tokens pass through untouched.
func normalizeSpokenNumbers(text string) string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))

	for i := 0; i < len(words); i++ {
		w := strings.ToLower(words[i])

		// Hyphenated compound: "twenty-five".
		if tens, ones, found := strings.Cut(w, "-"); found {
			if t, ok := tensWords[tens]; ok {
				if o, ok := onesWords[ones]; ok && o < 10 {
					out = append(out, strconv.Itoa(t+o))
					continue
				}
			}
		}

		if t, ok := tensWords[w]; ok {
			// Space-separated compound: "twenty five".
			if i+1 < len(words) {
				if o, ok := onesWords[strings.ToLower(words[i+1])]; ok && o > 0 && o < 10 {
					out = append(out, strconv.Itoa(t+o))
					i++
					continue
				}
			}
			out = append(out, strconv.Itoa(t))
			continue
		}

		if o, ok := onesWords[w]; ok {
			out = append(out, strconv.Itoa(o))
			continue
		}

		out = append(out, words[i])
	}

	return strings.Join(out, " ")
}

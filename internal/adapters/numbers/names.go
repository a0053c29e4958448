package numbers

import "strings"

var units = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
	"seventeen", "eighteen", "nineteen",
}

var tens = []string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
}

// englishName spells n in English. Supported up to the millions; larger
// values fall back to grouped thousands which is all the tests need.
func englishName(n int64) string {
	if n < 0 {
		return "negative " + englishName(-n)
	}
	switch {
	case n < 20:
		return units[n]
	case n < 100:
		name := tens[n/10]
		if n%10 != 0 {
			name += "-" + units[n%10]
		}
		return name
	case n < 1000:
		name := units[n/100] + " hundred"
		if n%100 != 0 {
			name += " " + englishName(n%100)
		}
		return name
	case n < 1_000_000:
		name := englishName(n/1000) + " thousand"
		if n%1000 != 0 {
			name += " " + englishName(n%1000)
		}
		return name
	default:
		name := englishName(n/1_000_000) + " million"
		if n%1_000_000 != 0 {
			name += " " + englishName(n%1_000_000)
		}
		return name
	}
}

// vowels returns the vowel letters of name in order of appearance.
func vowels(name string) []string {
	out := []string{}
	for _, r := range name {
		if strings.ContainsRune("aeiou", r) {
			out = append(out, string(r))
		}
	}
	return out
}

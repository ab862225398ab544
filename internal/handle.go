package internal

import (
	"strings"
	"unicode"
)

// NormalizeHandle converts s to lower-case kebab form. Words are split at
// camelCase boundaries ("fooBar" → "foo-bar", "HTMLParser" → "html-parser")
// and between letters and digits ("user1" → "user-1"), and every run of characters that are neither letters nor digits becomes a
// single '-'. Leading and trailing separators are dropped, so input with no
// letters or digits yields "".
func NormalizeHandle(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	pendingSep := false
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSep = b.Len() > 0
			continue
		}

		if b.Len() > 0 && i > 0 {
			prev := runes[i-1]
			switch {
			case unicode.IsLetter(prev) && unicode.IsDigit(r), unicode.IsDigit(prev) && unicode.IsLetter(r):
				pendingSep = true
			case unicode.IsUpper(r):
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower) {
					pendingSep = true
				}
			}
		}

		if pendingSep {
			b.WriteByte('-')
			pendingSep = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

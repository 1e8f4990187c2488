package utils

import (
	"regexp"
	"strings"
)

// Optional + then up to 15 digits, no leading zero.
var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// NormalizePhone strips separators from phone and reports whether what is
// left is a dialable number.
func NormalizePhone(phone string) (string, bool) {
	cleaned := phoneSeparators.Replace(strings.TrimSpace(phone))
	if !phonePattern.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

func ValidatePhone(phone string) bool {
	_, ok := NormalizePhone(phone)
	return ok
}

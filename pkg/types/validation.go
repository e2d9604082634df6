package types

import (
	"regexp"
	"strings"
)

// Compiled once at package initialization.
var codeRegex = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)

// MaxNameLength bounds participant display names.
const MaxNameLength = 30

// NormalizeName trims surrounding whitespace from a display name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// IsValidName checks a display name after normalization: non-empty and
// length-bounded.
func IsValidName(name string) bool {
	name = NormalizeName(name)
	return name != "" && len(name) <= MaxNameLength
}

// NormalizeCode upper-cases and trims a join code so lookups are
// case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCode checks the XXXX-XXXX join code format. The alphabet excludes
// the visually confusable characters 0, O, 1 and I.
func IsValidCode(code string) bool {
	return codeRegex.MatchString(NormalizeCode(code))
}

// IsValidChoice checks that a vote choice is one of the closed set.
func IsValidChoice(choice VoteChoice) bool {
	return choice == VoteYes || choice == VoteNo
}

package password

import (
	"strings"
)

const (
	MinPasswordLen = 8

	// SpecialChars is the set accepted for the special-character requirement
	SpecialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

// Requirement names reported by Validate
const (
	ReqMinLength = "min_length"
	ReqUppercase = "uppercase"
	ReqLowercase = "lowercase"
	ReqDigit     = "digit"
	ReqSpecial   = "special"
)

// Requirement is the outcome of one structural password rule
type Requirement struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// PolicyResult reports pass/fail per requirement plus the aggregate verdict.
// It is derived only and never persisted.
type PolicyResult struct {
	Requirements []Requirement `json:"requirements"`
	Valid        bool          `json:"valid"`
	Errors       []string      `json:"errors,omitempty"`
}

// Strength is the scored evaluation of a password
type Strength struct {
	Score   int    `json:"score"`   // 0-4
	Label   string `json:"label"`   // "very weak" .. "very strong"
	Percent int    `json:"percent"` // 20 .. 100
	Valid   bool   `json:"valid"`
}

// Substrings that immediately mark a password as guessable. Matched
// case-insensitively against both the raw password and a form with common
// digit/symbol substitutions undone, so "Passw0rd" is caught as "password".
var weakPatterns = []string{"123", "abc", "qwerty", "password", "admin"}

var leetReplacer = strings.NewReplacer(
	"0", "o",
	"1", "l",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"@", "a",
	"$", "s",
)

// Validate checks the five structural requirements and returns per-rule
// results with human-readable messages for the failures.
func Validate(pw string) PolicyResult {
	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSpecial := false

	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(SpecialChars, r):
			hasSpecial = true
		}
	}

	requirements := []Requirement{
		{Name: ReqMinLength, Passed: len(pw) >= MinPasswordLen, Message: "must be at least 8 characters"},
		{Name: ReqUppercase, Passed: hasUpper, Message: "must contain at least one uppercase letter"},
		{Name: ReqLowercase, Passed: hasLower, Message: "must contain at least one lowercase letter"},
		{Name: ReqDigit, Passed: hasDigit, Message: "must contain at least one digit"},
		{Name: ReqSpecial, Passed: hasSpecial, Message: "must contain at least one special character"},
	}

	result := PolicyResult{Requirements: requirements, Valid: true}
	for _, req := range requirements {
		if !req.Passed {
			result.Valid = false
			result.Errors = append(result.Errors, req.Message)
		}
	}

	return result
}

// Score computes the 0-4 strength score. The ordering of adjustments is part
// of the contract and must not change.
func Score(pw string) int {
	validation := Validate(pw)

	// 1. base = number of passed requirements
	score := 0
	for _, req := range validation.Requirements {
		if req.Passed {
			score++
		}
	}

	// 2. length bonuses
	if len(pw) >= 12 {
		score++
	}
	if len(pw) >= 16 {
		score++
	}

	hasUpper := requirementPassed(validation, ReqUppercase)
	hasLower := requirementPassed(validation, ReqLowercase)
	hasDigit := requirementPassed(validation, ReqDigit)
	hasSpecial := requirementPassed(validation, ReqSpecial)

	// 3. mixed case plus letters and digits
	if hasUpper && hasLower && hasDigit {
		score++
	}

	// 4. special character on a reasonably long password
	if hasSpecial && len(pw) >= 10 {
		score++
	}

	// 5-6. single character class
	if isLettersOnly(pw) {
		score--
	}
	if isDigitsOnly(pw) {
		score--
	}

	// 7. repeated character runs
	if hasRepeatedRun(pw, 3) {
		score--
	}

	// 8. guessable substrings
	if containsWeakPattern(pw) {
		score -= 2
	}

	// 9. clamp
	if score < 0 {
		score = 0
	}
	if score > 4 {
		score = 4
	}

	return score
}

// Evaluate combines Score with the fixed label table. Scores below 2 are
// never valid regardless of the structural requirements.
func Evaluate(pw string) Strength {
	score := Score(pw)

	labels := [5]string{"very weak", "weak", "medium", "strong", "very strong"}
	percents := [5]int{20, 40, 60, 80, 100}

	valid := false
	if score >= 2 {
		valid = Validate(pw).Valid
	}

	return Strength{
		Score:   score,
		Label:   labels[score],
		Percent: percents[score],
		Valid:   valid,
	}
}

func requirementPassed(result PolicyResult, name string) bool {
	for _, req := range result.Requirements {
		if req.Name == name {
			return req.Passed
		}
	}
	return false
}

func isLettersOnly(pw string) bool {
	if pw == "" {
		return false
	}
	for _, r := range pw {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func isDigitsOnly(pw string) bool {
	if pw == "" {
		return false
	}
	for _, r := range pw {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasRepeatedRun(pw string, n int) bool {
	run := 1
	for i := 1; i < len(pw); i++ {
		if pw[i] == pw[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

func containsWeakPattern(pw string) bool {
	lower := strings.ToLower(pw)
	normalized := leetReplacer.Replace(lower)
	for _, pattern := range weakPatterns {
		if strings.Contains(lower, pattern) || strings.Contains(normalized, pattern) {
			return true
		}
	}
	return false
}

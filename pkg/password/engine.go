package password

import (
	"context"
)

// Engine composes structural validation, strength scoring, and the optional
// breach and history collaborators.
type Engine struct {
	breach  *BreachChecker
	history *HistoryChecker
}

// NewEngine creates a policy engine. Either collaborator may be nil; the
// corresponding check is then skipped even when requested.
func NewEngine(breach *BreachChecker, history *HistoryChecker) *Engine {
	return &Engine{breach: breach, history: history}
}

// Options selects which checks ValidateComprehensive performs
type Options struct {
	CheckBreach            bool
	CheckHistory           bool
	RequireMinimumStrength bool
}

// Result is the combined outcome of a comprehensive validation. Errors make
// the password unacceptable; Warnings are advisory (fail-open collaborator
// outages) and never block acceptance by themselves.
type Result struct {
	Policy   PolicyResult   `json:"policy"`
	Strength Strength       `json:"strength"`
	Breach   *BreachResult  `json:"breach,omitempty"`
	History  *HistoryResult `json:"history,omitempty"`
	Valid    bool           `json:"valid"`
	Errors   []string       `json:"errors,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// ValidateComprehensive runs the structural rules, the strength score, and
// the selected external checks. userID may be empty during signup.
func (e *Engine) ValidateComprehensive(ctx context.Context, pw, userID string, opts Options) Result {
	result := Result{
		Policy:   Validate(pw),
		Strength: Evaluate(pw),
	}

	result.Valid = result.Policy.Valid
	result.Errors = append(result.Errors, result.Policy.Errors...)

	if opts.RequireMinimumStrength && result.Strength.Score < 2 {
		result.Valid = false
		result.Errors = append(result.Errors, "password is too weak")
	}

	if opts.CheckBreach && e.breach != nil {
		breach := e.breach.Check(ctx, pw)
		result.Breach = &breach
		if breach.Warning != "" {
			result.Warnings = append(result.Warnings, breach.Warning)
		}
		if breach.Breached {
			result.Valid = false
			result.Errors = append(result.Errors, "password has appeared in a known data breach")
		}
	}

	if opts.CheckHistory && e.history != nil {
		history := e.history.Check(ctx, userID, pw)
		result.History = &history
		if history.Warning != "" {
			result.Warnings = append(result.Warnings, history.Warning)
		}
		if history.Reused {
			result.Valid = false
			result.Errors = append(result.Errors, "password was used recently, choose a different one")
		}
	}

	return result
}

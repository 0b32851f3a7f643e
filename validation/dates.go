package validation

import (
	"time"

	"github.com/guslozua/bitacora-sync/models"
)

type Reason string

const (
	ReasonEndBeforeStart   Reason = "EndBeforeStart"
	ReasonOutOfParentRange Reason = "OutOfParentRange"
)

// Result of a date-range check. The zero reason means the range was
// accepted.
type Result struct {
	Reason Reason
}

func (r Result) Ok() bool {
	return r.Reason == ""
}

// Err converts a rejection into a validation error, nil when accepted.
func (r Result) Err() error {
	if r.Ok() {
		return nil
	}
	return models.NewValidationError("invalid date range: %s", r.Reason)
}

// Validate checks that a child interval is well-formed and contained in
// its parent interval. EndBeforeStart is checked first; only one reason
// is surfaced even when both violations hold. A zero parent bound leaves
// that side unbounded (projects may have defaulted intervals).
func Validate(childStart, childEnd, parentStart, parentEnd time.Time) Result {
	if childEnd.Before(childStart) {
		return Result{Reason: ReasonEndBeforeStart}
	}
	if !parentStart.IsZero() && childStart.Before(parentStart) {
		return Result{Reason: ReasonOutOfParentRange}
	}
	if !parentEnd.IsZero() && childEnd.After(parentEnd) {
		return Result{Reason: ReasonOutOfParentRange}
	}
	return Result{}
}

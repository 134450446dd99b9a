// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package reconcile

import "fmt"

// Level is the kind of a user notification.
type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Notifier shows messages to the user. The controller calls it exactly
// once per finished command.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) { f(level, message) }

// Observer receives the outcome of every mutation, for metrics.
type Observer interface {
	ObserveMutation(action, outcome string)
}

// Mutation outcomes reported to the Observer.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeCycle    = "cycle"
)

// User-facing fallback messages.
const (
	DefaultMoveSuccess   = "Term updated successfully."
	DefaultSaveSuccess   = "Term saved successfully."
	DefaultDeleteSuccess = "Term deleted successfully."

	moveFailed   = "Error updating term hierarchy."
	saveFailed   = "Error saving term."
	deleteFailed = "Error deleting term."
	cycleMessage = "A term cannot be moved under itself or one of its descendants."
)

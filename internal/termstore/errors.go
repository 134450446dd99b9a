// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package termstore

import "fmt"

// RequestError is a transport-level failure: the request did not reach the
// store, the store answered with a non-2xx status or an unreadable body, or
// the circuit breaker refused the call.
type RequestError struct {
	Action     string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Action, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// RejectionError is an application-level refusal: the store answered
// success=false with a message meant for the user.
type RejectionError struct {
	Action  string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Action, e.Message)
}

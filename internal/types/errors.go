// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"fmt"
	"time"
)

// ConnectionError reports a failure to reach the database layer. It is
// terminal for the current operation; callers surface an operational error
// and do not retry.
type ConnectionError struct {
	Database string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection failed for %q: %v", e.Database, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ValidationError reports malformed or missing caller input. Field names
// the offending input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Reason)
}

// LimitExceededError is a business-rule block, not a system fault.
type LimitExceededError struct {
	Limit   string
	Allowed int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit reached (allowed %d)", e.Limit, e.Allowed)
}

// LockedOutError carries the remaining cooldown before the identity may
// attempt to log in again.
type LockedOutError struct {
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %s", e.Remaining.Round(time.Second))
}

// ProvisioningError reports a strict failure during tenant provisioning,
// such as the admin user not being created.
type ProvisioningError struct {
	Stage string
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning failed at %s: %v", e.Stage, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// AuthError is intentionally generic so that responses do not disclose
// whether an identity exists.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// ErrInvalidCredentials is the uniform answer to both unknown identities
// and wrong passwords.
var ErrInvalidCredentials = &AuthError{Message: "invalid credentials"}

// ErrTryAgain hides unexpected internal failures from end users.
var ErrTryAgain = &AuthError{Message: "something went wrong, please try again"}

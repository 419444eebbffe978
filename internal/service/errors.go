package service

import (
	"errors"
	"fmt"

	"alcyxob/program-generator/internal/llm"
)

// --- Error Definitions ---
// Each type maps to exactly one response class at the HTTP boundary.

// ValidationError is a malformed request or an out-of-range phase number.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// AuthError means no user identity could be resolved.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string { return e.Msg }

// QuotaExceededError means the monthly generation credit is exhausted.
type QuotaExceededError struct {
	Used  int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly generation limit reached (%d/%d)", e.Used, e.Limit)
}

// GenerationError means the model call failed, timed out, or returned output
// that could not be validated after the repair attempt. Nothing was persisted.
type GenerationError struct {
	Reason     string
	Attempts   int
	TokensUsed int
	Err        error
	Model      string
	Transcript []llm.Message
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Reason, e.Err)
	}
	return "generation failed: " + e.Reason
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PersistenceError means a database write failed after a successful generation.
// No credit has been charged.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// --- Sentinels ---
var (
	ErrProgramNotFound = errors.New("program not found")
	ErrProgramAccess   = errors.New("program belongs to another user")
)

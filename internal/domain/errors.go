package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by loaders,
// the player and the grader to communicate domain-specific conditions.
// -----------------------------------------------------------------------------

// Exercise errors
var (
	ErrExerciseNotFound     = errors.New("exercise not found")
	ErrExercisePackNotFound = errors.New("exercise pack not found")
	ErrInvalidExercise      = errors.New("invalid exercise definition")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFinished = errors.New("session finished")
)

// General errors
var ErrInvalidInput = errors.New("invalid input")

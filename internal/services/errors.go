package services

import "errors"

var (
	// ErrNoExperiments is returned when a directory tree holds no experiment
	ErrNoExperiments = errors.New("no experiments found")

	// ErrInvalidInput is returned for malformed service arguments
	ErrInvalidInput = errors.New("invalid input")
)

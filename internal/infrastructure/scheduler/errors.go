package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrJobNotFound is returned when running an unregistered job by name
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyRegistered is returned when two jobs share a name
	ErrJobAlreadyRegistered = errors.New("job already registered")

	// ErrJobRunning is returned when a job is triggered while its previous run is still going
	ErrJobRunning = errors.New("job already running")
)

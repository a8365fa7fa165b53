package ingestion

import "errors"

var (
	// ErrSourceRequired is returned when a dump source is not provided.
	ErrSourceRequired = errors.New("dump source required")

	// ErrSinkRequired is returned when a sink is not provided.
	ErrSinkRequired = errors.New("sink required")

	// ErrInvalidConfig is returned for an unusable pipeline configuration.
	ErrInvalidConfig = errors.New("invalid ingestion config")

	// ErrAlreadyRunning is returned when Run is called on a pipeline that has already run.
	ErrAlreadyRunning = errors.New("pipeline already running")

	// ErrStopperRequired is returned when an Interrupter has nothing to stop.
	ErrStopperRequired = errors.New("stopper required")

	// errStopped unwinds the unit loop after Stop.
	errStopped = errors.New("stop requested")
)

package ingestion

import (
	"context"
	"log/slog"
	"os"
)

// Stopper is anything that can be asked to stop cooperatively.
type Stopper interface {
	Stop()
}

// Interrupter turns OS signals into a graceful stop followed, on a second
// signal, by a forced exit.
type Interrupter struct {
	stopper Stopper
	force   func()
	logger  *slog.Logger
}

// NewInterrupter creates an Interrupter. force is called on the second signal;
// it typically exits the process without waiting for a checkpoint flush.
// A nil logger uses slog.Default().
func NewInterrupter(stopper Stopper, force func(), logger *slog.Logger) (*Interrupter, error) {
	if stopper == nil {
		return nil, ErrStopperRequired
	}
	if force == nil {
		force = func() { os.Exit(1) }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interrupter{
		stopper: stopper,
		force:   force,
		logger:  logger.With("component", "interrupter"),
	}, nil
}

// Watch reacts to signals until ctx is done. It always returns nil.
func (i *Interrupter) Watch(ctx context.Context, signals <-chan os.Signal) error {
	stopping := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-signals:
			if !stopping {
				stopping = true
				i.logger.Warn("interrupt received, finishing current unit and saving checkpoint; interrupt again to force exit",
					"signal", sig.String())
				i.stopper.Stop()
				continue
			}
			i.logger.Error("second interrupt received, exiting without saving checkpoint", "signal", sig.String())
			i.force()
			return nil
		}
	}
}

package platform

import (
	"context"
	"time"

	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/message"
)

// Send runs one send on d: it copies the common fields of opts into the
// driver's message, applies the channel overrides, checks the destination,
// initializes the provider client and delivers. Validation failures are
// reported to cb as they happen; the outcome is reported last and returned.
// cb may be nil.
func Send(ctx context.Context, d Driver, opts *message.Options, cb Callback) Result {
	start := time.Now()
	if cb == nil {
		cb = func(Result) {}
	}

	d.Lock()
	defer d.Unlock()

	report := func(err error) {
		cb(Result{
			Service:  d.ID(),
			Message:  err.Error(),
			Err:      err,
			Stage:    StageValidation,
			Duration: time.Since(start),
		})
	}
	finish := func(stage Stage, text string, err error) Result {
		if text == "" && err != nil {
			text = err.Error()
		}
		r := Result{
			Service:  d.ID(),
			Message:  text,
			Err:      err,
			Stage:    stage,
			Duration: time.Since(start),
		}
		cb(r)
		return r
	}

	d.Message().Populate(opts, d.SetTo, report)
	d.Merge(opts, report)

	if _, err := d.Destination(); err != nil {
		return finish(StageRejected, "", err)
	}

	if err := d.Initialize(ctx, false); err != nil {
		return finish(stageOf(err, StageConfiguration), "", err)
	}

	text, err := d.Deliver(ctx)
	if err != nil {
		stage := stageOf(err, StageTransport)
		if stage == StageTransport && !errors.IsTransport(err) {
			dest, _ := d.Destination()
			err = errors.NewTransportError(d.ID().String(), dest, 0, err)
		}
		return finish(stage, text, err)
	}
	return finish(StageDelivered, text, nil)
}

// stageOf maps a NotifyError code to the stage it ends a send in
func stageOf(err error, fallback Stage) Stage {
	switch errors.CodeOf(err) {
	case errors.ErrCodeValidation:
		return StageRejected
	case errors.ErrCodeConfiguration, errors.ErrCodeUnsupportedService:
		return StageConfiguration
	case errors.ErrCodeTransport:
		return StageTransport
	default:
		return fallback
	}
}

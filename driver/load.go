package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalsfoundry/isd-drivers/internal/logging"
	"github.com/signalsfoundry/isd-drivers/kernel"
	"github.com/signalsfoundry/isd-drivers/label"
	"github.com/signalsfoundry/isd-drivers/model"
)

// ErrNoDriver is returned by Load when every candidate driver fails.
var ErrNoDriver = errors.New("no driver could export the label")

// Candidate is a driver Load can try: a Sensor that can scope its kernels.
type Candidate interface {
	Sensor
	WithKernels(ctx context.Context, fn func(ctx context.Context) error) error
}

// Screener is implemented by candidates that can reject a label from its
// fields alone, before any kernel is furnished.
type Screener interface {
	Screen() error
}

// Constructor builds a candidate driver over a label.
type Constructor func(l *label.Label, pool kernel.Pool, log logging.Logger, opts ...Option) Candidate

// Registered lists the drivers Load tries, in order.
func Registered() []Constructor {
	return []Constructor{
		func(l *label.Label, pool kernel.Pool, log logging.Logger, opts ...Option) Candidate {
			return NewMdisPds3(l, pool, log, opts...)
		},
		func(l *label.Label, pool kernel.Pool, log logging.Logger, opts ...Option) Candidate {
			return NewMdisIsis(l, pool, log, opts...)
		},
		func(l *label.Label, pool kernel.Pool, log logging.Logger, opts ...Option) Candidate {
			return NewDawnFc(l, pool, log, opts...)
		},
	}
}

// Load tries each registered driver against l. The first one that exports
// inside its kernel session wins; otherwise every failure is returned joined
// under ErrNoDriver.
func Load(ctx context.Context, l *label.Label, pool kernel.Pool, log logging.Logger, opts ...Option) (*model.ISD, error) {
	return LoadWith(ctx, Registered(), l, pool, log, opts...)
}

// LoadWith is Load over an explicit candidate list.
func LoadWith(ctx context.Context, candidates []Constructor, l *label.Label, pool kernel.Pool, log logging.Logger, opts ...Option) (*model.ISD, error) {
	if log == nil {
		log = logging.Noop()
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrNoDriver)
	}

	var errs []error
	for _, build := range candidates {
		c := build(l, pool, log, opts...)
		if s, ok := c.(Screener); ok {
			if err := s.Screen(); err != nil {
				log.Debug(ctx, "driver skipped label", logging.String("driver", c.Name()), logging.Err(err))
				errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
				continue
			}
		}

		var isd *model.ISD
		err := c.WithKernels(ctx, func(ctx context.Context) error {
			var err error
			isd, err = Export(ctx, c)
			return err
		})
		if err == nil {
			log.Info(ctx, "driver selected", logging.String("driver", c.Name()))
			return isd, nil
		}
		log.Debug(ctx, "driver rejected label", logging.String("driver", c.Name()), logging.Err(err))
		errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
	}
	return nil, fmt.Errorf("%w: %w", ErrNoDriver, errors.Join(errs...))
}

package driver

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/isd-drivers/internal/logging"
	"github.com/signalsfoundry/isd-drivers/kernel"
)

// Session is a kernel furnishing scope. While open, the driver's metakernel
// is furnished into the pool when the pool can furnish kernels.
type Session struct {
	ctx        context.Context
	log        logging.Logger
	metakernel string
	furnisher  kernel.Furnisher
	closed     bool
}

// Open resolves the metakernel and furnishes it. The returned session must be
// closed; WithKernels does that on every exit path.
func (d *Driver) Open(ctx context.Context) (*Session, error) {
	ctx, log := logging.WithSessionLogger(ctx, d.log)
	ctx, span := startSpan(ctx, "driver.Open", attribute.String("driver", d.name))
	defer span.End()

	mk, err := d.Metakernel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "metakernel")
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	span.SetAttributes(attribute.String("metakernel", mk))

	s := &Session{ctx: ctx, log: log, metakernel: mk}
	if f, ok := d.pool.(kernel.Furnisher); ok {
		if err := f.Furnish(mk); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "furnish")
			return nil, fmt.Errorf("open %s: %w", d.name, err)
		}
		s.furnisher = f
		log.Debug(ctx, "metakernel furnished", logging.String("metakernel", mk))
	}
	return s, nil
}

// Context carries the session logger and trace span.
func (s *Session) Context() context.Context { return s.ctx }

// Metakernel is the furnished metakernel path.
func (s *Session) Metakernel() string { return s.metakernel }

// Close unloads the metakernel. Closing twice is a no-op.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	if s.furnisher == nil {
		return nil
	}
	if err := s.furnisher.Unload(s.metakernel); err != nil {
		s.log.Warn(s.ctx, "metakernel unload failed", logging.String("metakernel", s.metakernel), logging.Err(err))
		return err
	}
	s.log.Debug(s.ctx, "metakernel unloaded", logging.String("metakernel", s.metakernel))
	return nil
}

// WithKernels runs fn inside a kernel session and releases it afterwards,
// including when fn fails or panics.
func (d *Driver) WithKernels(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	s, err := d.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s session: %w", d.name, cerr)
		}
	}()
	return fn(s.Context())
}

package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/signalsfoundry/isd-drivers/internal/logging"
)

func newSessionDriver(t *testing.T) (*MdisPds3, *countingPool) {
	t.Helper()
	pool := loadPool(t)
	dir := metakernelDir(t, "msgr_2005_v01.tm")
	return NewMdisPds3(loadLabel(t, "mdis_pds3.yaml"), pool, nil, WithMetakernelDir(MissionMDIS, dir)), pool
}

func TestWithKernelsReleasesOnError(t *testing.T) {
	d, pool := newSessionDriver(t)
	boom := errors.New("boom")

	err := d.WithKernels(context.Background(), func(ctx context.Context) error {
		if got := pool.Furnished(); len(got) != 1 {
			t.Fatalf("furnished inside session = %v, want one metakernel", got)
		}
		if logging.SessionIDFromContext(ctx) == "" {
			t.Fatalf("session context has no session id")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithKernels error = %v, want boom", err)
	}
	if got := pool.Furnished(); len(got) != 0 {
		t.Fatalf("furnished after failed session = %v", got)
	}
}

func TestWithKernelsReleasesOnPanic(t *testing.T) {
	d, pool := newSessionDriver(t)

	func() {
		defer func() {
			if r := recover(); r != "kaboom" {
				t.Fatalf("recovered %v, want kaboom", r)
			}
		}()
		_ = d.WithKernels(context.Background(), func(context.Context) error {
			panic("kaboom")
		})
	}()

	if len(pool.unloaded) != 1 {
		t.Fatalf("unloaded %v after panic, want the metakernel", pool.unloaded)
	}
	if got := pool.Furnished(); len(got) != 0 {
		t.Fatalf("furnished after panic = %v", got)
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	d, pool := newSessionDriver(t)

	s, err := d.Open(context.Background())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if s.Metakernel() == "" {
		t.Fatalf("session has no metakernel")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	if len(pool.unloaded) != 1 {
		t.Fatalf("unloaded %d times, want 1", len(pool.unloaded))
	}

	var nilSession *Session
	if err := nilSession.Close(); err != nil {
		t.Fatalf("nil session Close error: %v", err)
	}
}

func TestNestedSessionsShareFurnishing(t *testing.T) {
	d, pool := newSessionDriver(t)

	err := d.WithKernels(context.Background(), func(ctx context.Context) error {
		return d.WithKernels(ctx, func(context.Context) error {
			if got := pool.Furnished(); len(got) != 1 {
				t.Fatalf("furnished in nested session = %v", got)
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("WithKernels error: %v", err)
	}
	if got := pool.Furnished(); len(got) != 0 {
		t.Fatalf("furnished after nested sessions = %v", got)
	}
}

func TestWithKernelsReportsUnloadFailure(t *testing.T) {
	d, pool := newSessionDriver(t)

	err := d.WithKernels(context.Background(), func(context.Context) error {
		// Unload behind the session's back so its own Unload fails.
		return pool.MemoryPool.Unload(pool.furnished[0])
	})
	if err == nil {
		t.Fatalf("expected the session close error to surface")
	}
}

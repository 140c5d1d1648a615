// Package metakernel selects the SPICE metakernel matching an observation's
// start year from a directory of candidates.
package metakernel

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/isd-drivers/internal/logging"
)

// ErrNotFound is returned when no candidate matches the start year.
var ErrNotFound = errors.New("no metakernel found")

// Extension is the metakernel file suffix.
const Extension = ".tm"

// Lister enumerates the entries of a candidate directory. Entries are
// returned as paths that can be furnished directly.
type Lister interface {
	List(dir string) ([]string, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(dir string) ([]string, error)

func (f ListerFunc) List(dir string) ([]string, error) { return f(dir) }

// Resolve lists dir, keeps files ending in .tm, sorts them ascending and
// returns the last one whose base name contains the start year.
func Resolve(start time.Time, dir string, lister Lister) (string, error) {
	if lister == nil {
		return "", errors.New("metakernel: nil lister")
	}
	entries, err := lister.List(dir)
	if err != nil {
		return "", fmt.Errorf("list metakernels in %q: %w", dir, err)
	}

	candidates := make([]string, 0, len(entries))
	for _, e := range entries {
		base := path.Base(strings.ReplaceAll(e, "\\", "/"))
		if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, Extension) {
			continue
		}
		candidates = append(candidates, e)
	}
	sort.Strings(candidates)

	year := strconv.Itoa(start.Year())
	selected := ""
	for _, c := range candidates {
		if strings.Contains(path.Base(strings.ReplaceAll(c, "\\", "/")), year) {
			selected = c
		}
	}
	if selected == "" {
		return "", fmt.Errorf("%w: year %s in %q (%d candidates)", ErrNotFound, year, dir, len(candidates))
	}
	return selected, nil
}

// ScanRecorder observes metakernel directory scans.
type ScanRecorder interface {
	RecordMetakernelScan(err error)
}

// Ref memoizes the metakernel chosen for one driver. The first successful
// resolution is kept for the Ref's lifetime; failures are not cached. A Ref
// is not safe for concurrent use.
type Ref struct {
	dir    string
	lister Lister
	rec    ScanRecorder
	log    logging.Logger

	path *string
}

// RefOption customises a Ref.
type RefOption func(*Ref)

// WithScanRecorder reports each directory scan to rec.
func WithScanRecorder(rec ScanRecorder) RefOption {
	return func(r *Ref) {
		r.rec = rec
	}
}

// WithLogger sets the logger used for selection messages.
func WithLogger(log logging.Logger) RefOption {
	return func(r *Ref) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRef builds a lazily resolved reference into dir. A nil lister lists the
// local filesystem.
func NewRef(dir string, lister Lister, opts ...RefOption) *Ref {
	if lister == nil {
		lister = DirLister{}
	}
	r := &Ref{
		dir:    dir,
		lister: lister,
		log:    logging.Noop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the metakernel for start, scanning the directory only until
// one scan succeeds.
func (r *Ref) Get(start time.Time) (string, error) {
	if r.path != nil {
		return *r.path, nil
	}
	p, err := Resolve(start, r.dir, r.lister)
	if r.rec != nil {
		r.rec.RecordMetakernelScan(err)
	}
	if err != nil {
		return "", err
	}
	r.log.Debug(context.Background(), "metakernel selected",
		logging.String("dir", r.dir),
		logging.String("metakernel", p),
		logging.Int("year", start.Year()),
	)
	r.path = &p
	return p, nil
}

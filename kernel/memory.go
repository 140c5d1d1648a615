package kernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/signalsfoundry/isd-drivers/internal/logging"
)

// MemoryPool is an in-memory, thread-safe kernel pool. Variables come from
// setters or from furnished pool documents. Every assignment is kept in load
// order, so unloading a document uncovers whatever value lay beneath it.
type MemoryPool struct {
	mu sync.RWMutex

	numeric layers[[]float64]
	text    layers[[]string]
	bodies  layers[int]

	furnished map[string]*furnishing

	log logging.Logger
}

type furnishing struct {
	refs int
	doc  *Document
}

// direct is the source of values assigned through setters and Merge.
const direct = ""

// NewMemoryPool constructs an empty pool.
func NewMemoryPool(log logging.Logger) *MemoryPool {
	if log == nil {
		log = logging.Noop()
	}
	return &MemoryPool{
		numeric:   make(layers[[]float64]),
		text:      make(layers[[]string]),
		bodies:    make(layers[int]),
		furnished: make(map[string]*furnishing),
		log:       log,
	}
}

// SetNumeric assigns a numeric variable, replacing any previous value.
func (p *MemoryPool) SetNumeric(name string, vals ...float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.numeric.set(strings.TrimSpace(name), direct, append([]float64(nil), vals...))
}

// SetText assigns a string variable, replacing any previous value.
func (p *MemoryPool) SetText(name string, vals ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text.set(strings.TrimSpace(name), direct, append([]string(nil), vals...))
}

// SetBody registers a name to NAIF id mapping.
func (p *MemoryPool) SetBody(name string, code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies.set(normalizeName(name), direct, code)
}

// Delete removes a variable of either kind, whatever provided it.
func (p *MemoryPool) Delete(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name = strings.TrimSpace(name)
	delete(p.numeric, name)
	delete(p.text, name)
}

// Merge copies every entry of doc into the pool as if assigned by the setters.
func (p *MemoryPool) Merge(doc *Document) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mergeLocked(doc, direct)
}

func (p *MemoryPool) mergeLocked(doc *Document, source string) {
	if doc == nil {
		return
	}
	for k, v := range doc.Variables {
		p.numeric.set(strings.TrimSpace(k), source, append([]float64(nil), v...))
	}
	for k, v := range doc.Strings {
		p.text.set(strings.TrimSpace(k), source, append([]string(nil), v...))
	}
	for k, v := range doc.Bodies {
		p.bodies.set(normalizeName(k), source, v)
	}
}

func (p *MemoryPool) dropLocked(doc *Document, source string) {
	if doc == nil {
		return
	}
	for k := range doc.Variables {
		p.numeric.drop(strings.TrimSpace(k), source)
	}
	for k := range doc.Strings {
		p.text.drop(strings.TrimSpace(k), source)
	}
	for k := range doc.Bodies {
		p.bodies.drop(normalizeName(k), source)
	}
}

// Get returns up to count values of a numeric variable starting at start.
func (p *MemoryPool) Get(name string, start, count int) ([]float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.getLocked(name, start, count)
}

func (p *MemoryPool) getLocked(name string, start, count int) ([]float64, error) {
	name = strings.TrimSpace(name)
	if count < 1 {
		return nil, fmt.Errorf("get %q: count must be positive, got %d", name, count)
	}
	vals, ok := p.numeric.get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingKey, name)
	}
	if start < 0 || start >= len(vals) {
		return nil, fmt.Errorf("%w: %q has %d values, start %d out of range", ErrMissingKey, name, len(vals), start)
	}
	end := start + count
	if end > len(vals) {
		end = len(vals)
	}
	return append([]float64(nil), vals[start:end]...), nil
}

// NameToID resolves a body or instrument name. Registered bodies are checked
// first, then the NAIF_BODY_NAME/NAIF_BODY_CODE assignments, where the latest
// assignment of a name wins. Integer strings resolve to themselves.
func (p *MemoryPool) NameToID(name string) (int, error) {
	key := normalizeName(name)
	if key == "" {
		return 0, fmt.Errorf("%w: empty name", ErrIDResolution)
	}
	if id, err := strconv.Atoi(key); err == nil {
		return id, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if id, ok := p.bodies.get(key); ok {
		return id, nil
	}
	names, _ := p.text.get("NAIF_BODY_NAME")
	codes, _ := p.numeric.get("NAIF_BODY_CODE")
	n := len(names)
	if len(codes) < n {
		n = len(codes)
	}
	for i := n - 1; i >= 0; i-- {
		if normalizeName(names[i]) == key {
			return int(codes[i]), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrIDResolution, name)
}

// Furnish loads a kernel file. YAML and JSON pool documents are merged into
// the pool; other kernels, local or remote, are only recorded. Furnishing a
// file that is already loaded bumps its reference count.
func (p *MemoryPool) Furnish(path string) error {
	abs, err := kernelKey(path)
	if err != nil {
		return fmt.Errorf("furnish %q: %w", path, err)
	}

	p.mu.Lock()
	if f, ok := p.furnished[abs]; ok {
		f.refs++
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	var doc *Document
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".yaml", ".yml", ".json":
		if isRemote(abs) {
			return fmt.Errorf("furnish %q: remote pool documents are not supported", path)
		}
		doc, err = ReadDocumentFile(abs)
		if err != nil {
			return fmt.Errorf("furnish %q: %w", path, err)
		}
	default:
		if isRemote(abs) {
			break
		}
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("furnish %q: %w", path, err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.furnished[abs]; ok {
		f.refs++
		return nil
	}
	p.mergeLocked(doc, abs)
	p.furnished[abs] = &furnishing{refs: 1, doc: doc}
	p.log.Debug(context.Background(), "kernel furnished", logging.String("path", abs))
	return nil
}

// Unload releases one reference to a furnished kernel. When the last
// reference goes, the values it contributed leave the pool and any value an
// earlier assignment gave the same variable becomes visible again.
func (p *MemoryPool) Unload(path string) error {
	abs, err := kernelKey(path)
	if err != nil {
		return fmt.Errorf("unload %q: %w", path, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.furnished[abs]
	if !ok {
		return fmt.Errorf("unload %q: kernel not furnished", path)
	}
	f.refs--
	if f.refs > 0 {
		return nil
	}
	p.dropLocked(f.doc, abs)
	delete(p.furnished, abs)
	p.log.Debug(context.Background(), "kernel unloaded", logging.String("path", abs))
	return nil
}

// Furnished lists the loaded kernel paths in sorted order.
func (p *MemoryPool) Furnished() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, 0, len(p.furnished))
	for path := range p.furnished {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// kernelKey identifies a furnished kernel: absolute for local files, as given
// for URLs such as s3://bucket/key.
func kernelKey(path string) (string, error) {
	if isRemote(path) {
		return path, nil
	}
	return filepath.Abs(path)
}

func isRemote(path string) bool {
	return strings.Contains(path, "://")
}

// normalizeName upper-cases a body name and collapses runs of whitespace.
func normalizeName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// layers holds every assignment of each variable, oldest first. The newest
// assignment is the visible value.
type layers[T any] map[string][]layer[T]

type layer[T any] struct {
	source string
	val    T
}

// set makes val the visible value of key. A source that assigned key before
// loses its older assignment.
func (l layers[T]) set(key, source string, val T) {
	l[key] = append(without(l[key], source), layer[T]{source: source, val: val})
}

// drop removes the assignment source made to key.
func (l layers[T]) drop(key, source string) {
	rest := without(l[key], source)
	if len(rest) == 0 {
		delete(l, key)
		return
	}
	l[key] = rest
}

func (l layers[T]) get(key string) (T, bool) {
	stack := l[key]
	if len(stack) == 0 {
		var zero T
		return zero, false
	}
	return stack[len(stack)-1].val, true
}

func without[T any](stack []layer[T], source string) []layer[T] {
	out := make([]layer[T], 0, len(stack)+1)
	for _, e := range stack {
		if e.source != source {
			out = append(out, e)
		}
	}
	return out
}

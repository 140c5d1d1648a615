package kernel

// QueryRecorder receives one call per pool query. The field is the
// instrument parameter name without the INS<id>_ prefix, which keeps label
// cardinality bounded.
type QueryRecorder interface {
	RecordPoolQuery(field string, err error)
}

// Instrument wraps p so every query is reported to rec. When p can furnish
// kernels, so can the returned pool.
func Instrument(p Pool, rec QueryRecorder) Pool {
	if rec == nil {
		return p
	}
	ip := instrumentedPool{inner: p, rec: rec}
	if f, ok := p.(Furnisher); ok {
		return &instrumentedFurnisher{instrumentedPool: ip, furnisher: f}
	}
	return &ip
}

type instrumentedPool struct {
	inner Pool
	rec   QueryRecorder
}

func (p *instrumentedPool) Get(name string, start, count int) ([]float64, error) {
	vals, err := p.inner.Get(name, start, count)
	p.rec.RecordPoolQuery(FieldOf(name), err)
	return vals, err
}

func (p *instrumentedPool) NameToID(name string) (int, error) {
	id, err := p.inner.NameToID(name)
	p.rec.RecordPoolQuery("name_to_id", err)
	return id, err
}

func (p *instrumentedPool) ClockToEphemeris(spacecraftID int, clock string) (float64, error) {
	et, err := p.inner.ClockToEphemeris(spacecraftID, clock)
	p.rec.RecordPoolQuery("clock_to_ephemeris", err)
	return et, err
}

type instrumentedFurnisher struct {
	instrumentedPool
	furnisher Furnisher
}

func (p *instrumentedFurnisher) Furnish(path string) error { return p.furnisher.Furnish(path) }
func (p *instrumentedFurnisher) Unload(path string) error  { return p.furnisher.Unload(path) }

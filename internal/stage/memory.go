package stage

import (
	"fmt"
	"iter"
	"slices"
	"sort"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/sdfpath"
)

// Attribute is one authored value plus optional time samples.
type Attribute struct {
	Default any
	Samples map[TimeCode]any
}

// Times returns the sample times in ascending order.
func (a *Attribute) Times() []TimeCode {
	times := make([]TimeCode, 0, len(a.Samples))
	for t := range a.Samples {
		times = append(times, t)
	}
	slices.Sort(times)
	return times
}

// ValueAt resolves the attribute at t. Before the first sample the first
// sample holds, after the last the last one holds.
func (a *Attribute) ValueAt(t TimeCode, interp Interpolation) (any, bool) {
	if t.IsDefault() || len(a.Samples) == 0 {
		if a.Default != nil {
			return a.Default, true
		}
		if len(a.Samples) == 0 {
			return nil, false
		}
		return a.Samples[a.Times()[0]], true
	}
	times := a.Times()
	i := sort.Search(len(times), func(i int) bool { return times[i] > t })
	switch {
	case i == 0:
		return a.Samples[times[0]], true
	case i == len(times) || interp == Held:
		return a.Samples[times[i-1]], true
	}
	lo, hi := times[i-1], times[i]
	if lo == t {
		return a.Samples[lo], true
	}
	frac := float64(t-lo) / float64(hi-lo)
	return lerp(a.Samples[lo], a.Samples[hi], frac), true
}

// Prim is one node of a Memory graph.
type Prim struct {
	Path     sdfpath.Path
	TypeName string
	// Master is the referenced master root for instance prims.
	Master   sdfpath.Path
	Attrs    map[string]*Attribute
	children []sdfpath.Path
	master   bool
}

// InMaster reports whether the prim is a master root or inside one.
func (p *Prim) InMaster() bool { return p.master }

// Children returns the child paths in definition order.
func (p *Prim) Children() []sdfpath.Path { return p.children }

// AttrNames returns the authored attribute names, sorted.
func (p *Prim) AttrNames() []string {
	names := make([]string, 0, len(p.Attrs))
	for n := range p.Attrs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Memory is an in-memory Graph and Writer.
type Memory struct {
	up      basis.UpAxis
	time    TimeCode
	interp  Interpolation
	prims   map[sdfpath.Path]*Prim
	masters []sdfpath.Path
}

func NewMemory() *Memory {
	m := &Memory{
		time:  DefaultTime(),
		prims: make(map[sdfpath.Path]*Prim),
	}
	m.prims[sdfpath.Root] = &Prim{Path: sdfpath.Root, Attrs: map[string]*Attribute{}}
	return m
}

func (m *Memory) UpAxis() basis.UpAxis { return m.up }

func (m *Memory) SetUpAxis(axis basis.UpAxis) { m.up = axis }

func (m *Memory) SetTime(t TimeCode) { m.time = t }

func (m *Memory) Time() TimeCode { return m.time }

func (m *Memory) SetInterpolation(i Interpolation) { m.interp = i }

func (m *Memory) Interpolation() Interpolation { return m.interp }

// Prim returns the prim at path.
func (m *Memory) Prim(path sdfpath.Path) (*Prim, bool) {
	p, ok := m.prims[path]
	return p, ok
}

// Define creates the prim at path or changes its type.
func (m *Memory) Define(path sdfpath.Path, typeName string) error {
	_, err := m.define(path, typeName)
	return err
}

func (m *Memory) define(path sdfpath.Path, typeName string) (*Prim, error) {
	if !path.IsAbsolute() || path.IsRoot() {
		return nil, fmt.Errorf("stage: define %s: not an absolute prim path", path)
	}
	if p, ok := m.prims[path]; ok {
		p.TypeName = typeName
		return p, nil
	}
	parent, ok := m.prims[path.Parent()]
	if !ok {
		return nil, fmt.Errorf("stage: define %s: parent %s: %w", path, path.Parent(), ErrNotFound)
	}
	p := &Prim{Path: path, TypeName: typeName, Attrs: map[string]*Attribute{}, master: parent.master}
	parent.children = append(parent.children, path)
	m.prims[path] = p
	return p, nil
}

// DefineMaster creates a root-level master prim. Masters are excluded from
// AllPaths and exposed through the Instancing interface.
func (m *Memory) DefineMaster(path sdfpath.Path, typeName string) error {
	if !path.IsRootPrim() {
		return fmt.Errorf("stage: master %s must be a root prim", path)
	}
	p, err := m.define(path, typeName)
	if err != nil {
		return err
	}
	if !p.master {
		p.master = true
		m.masters = append(m.masters, path)
	}
	return nil
}

// SetInstance makes the prim at path an instance of master.
func (m *Memory) SetInstance(path, master sdfpath.Path) error {
	p, ok := m.prims[path]
	if !ok {
		return fmt.Errorf("stage: instance %s: %w", path, ErrNotFound)
	}
	p.Master = master
	return nil
}

// SetAttr authors the default value of an attribute.
func (m *Memory) SetAttr(path sdfpath.Path, name string, v any) error {
	a, err := m.attr(path, name, v)
	if err != nil {
		return err
	}
	a.Default = v
	return nil
}

// SetTimeSample authors the value of an attribute at t.
func (m *Memory) SetTimeSample(path sdfpath.Path, name string, t TimeCode, v any) error {
	if t.IsDefault() {
		return m.SetAttr(path, name, v)
	}
	a, err := m.attr(path, name, v)
	if err != nil {
		return err
	}
	if a.Samples == nil {
		a.Samples = make(map[TimeCode]any)
	}
	a.Samples[t] = v
	return nil
}

func (m *Memory) attr(path sdfpath.Path, name string, v any) (*Attribute, error) {
	p, ok := m.prims[path]
	if !ok || path.IsRoot() {
		return nil, fmt.Errorf("stage: set %s.%s: %w", path, name, ErrNotFound)
	}
	vt := TypeOf(v)
	if vt == Invalid {
		return nil, fmt.Errorf("stage: set %s.%s: unsupported value %T", path, name, v)
	}
	if spec, ok := AttrSpecFor(p.TypeName, name); ok && spec.Type != vt {
		return nil, fmt.Errorf("stage: set %s.%s: want %s, got %s", path, name, spec.Type, vt)
	}
	a, ok := p.Attrs[name]
	if !ok {
		a = &Attribute{}
		p.Attrs[name] = a
	}
	return a, nil
}

// Attr resolves one attribute at the current time.
func (m *Memory) Attr(path sdfpath.Path, name string) (any, bool) {
	p, ok := m.prims[path]
	if !ok {
		return nil, false
	}
	a, ok := p.Attrs[name]
	if !ok {
		return nil, false
	}
	return a.ValueAt(m.time, m.interp)
}

// Read implements Graph.
func (m *Memory) Read(path sdfpath.Path, dst Sample) error {
	p, ok := m.prims[path]
	if !ok || path.IsRoot() {
		return fmt.Errorf("stage: read %s: %w", path, ErrNotFound)
	}
	if !IsA(p.TypeName, dst.SchemaName()) {
		return &SchemaMismatchError{Path: path, TypeName: p.TypeName, Schema: dst.SchemaName()}
	}
	if h, ok := dst.(headerSetter); ok {
		h.setHeader(p.TypeName, p.Master)
	}
	for _, f := range dst.Fields() {
		a, ok := p.Attrs[f.Name]
		if !ok {
			continue
		}
		v, ok := a.ValueAt(m.time, m.interp)
		if !ok {
			continue
		}
		if err := Assign(f.Ptr, v); err != nil {
			return fmt.Errorf("stage: read %s.%s: %w", path, f.Name, err)
		}
	}
	for _, spec := range SchemaAttrs(dst.SchemaName()) {
		if _, ok := p.Attrs[spec.FullName()]; spec.Required && !ok {
			return &MissingAttributeError{Path: path, Attr: spec.FullName()}
		}
	}
	return nil
}

// Write implements Writer. Values are written as time samples unless the
// current time is the default time.
func (m *Memory) Write(path sdfpath.Path, src Sample) error {
	for _, f := range src.Fields() {
		v, ok := Load(f.Ptr)
		if !ok {
			continue
		}
		if err := m.SetTimeSample(path, f.Name, m.time, v); err != nil {
			return err
		}
	}
	return nil
}

// AllPaths implements Graph. Master subtrees are skipped unless root is inside one.
func (m *Memory) AllPaths(root sdfpath.Path) iter.Seq[sdfpath.Path] {
	return func(yield func(sdfpath.Path) bool) {
		start, ok := m.prims[root]
		if !ok {
			return
		}
		m.walk(start, start.master, yield)
	}
}

func (m *Memory) walk(p *Prim, inMaster bool, yield func(sdfpath.Path) bool) bool {
	if p.master && !inMaster {
		return true
	}
	if !p.Path.IsRoot() && !yield(p.Path) {
		return false
	}
	for _, c := range p.children {
		if !m.walk(m.prims[c], inMaster, yield) {
			return false
		}
	}
	return true
}

// Masters implements Instancing.
func (m *Memory) Masters() []sdfpath.Path {
	return slices.Clone(m.masters)
}

// MasterPaths implements Instancing.
func (m *Memory) MasterPaths(master sdfpath.Path) iter.Seq[sdfpath.Path] {
	return func(yield func(sdfpath.Path) bool) {
		p, ok := m.prims[master]
		if !ok || !p.master {
			return
		}
		m.walk(p, true, yield)
	}
}

// Len is the number of prims, excluding the pseudo-root.
func (m *Memory) Len() int { return len(m.prims) - 1 }

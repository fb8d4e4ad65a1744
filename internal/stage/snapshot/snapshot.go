// Package snapshot stores stages as msgpack documents. Every attribute
// carries its value type so a snapshot decodes without the schema table.
package snapshot

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

const version = 1

type document struct {
	Version       int      `msgpack:"version"`
	UpAxis        string   `msgpack:"up_axis"`
	Interpolation string   `msgpack:"interpolation,omitempty"`
	Masters       []string `msgpack:"masters,omitempty"`
	Prims         []prim   `msgpack:"prims"`
}

type prim struct {
	Path     string `msgpack:"path"`
	Type     string `msgpack:"type,omitempty"`
	Instance string `msgpack:"instance,omitempty"`
	Attrs    []attr `msgpack:"attrs,omitempty"`
}

type attr struct {
	Name    string   `msgpack:"name"`
	Type    string   `msgpack:"type"`
	Default *value   `msgpack:"default,omitempty"`
	Samples []sample `msgpack:"samples,omitempty"`
}

type sample struct {
	Time  float64 `msgpack:"t"`
	Value value   `msgpack:"v"`
}

// value is the flattened wire form of every stage value type.
type value struct {
	Bool    bool      `msgpack:"b,omitempty"`
	Ints    []int64   `msgpack:"i,omitempty"`
	Floats  []float64 `msgpack:"f,omitempty"`
	Strings []string  `msgpack:"s,omitempty"`
}

// Format is the stage.Format for .usdpack snapshots.
type Format struct{}

func (Format) Name() string { return "snapshot" }

func (Format) Extensions() []string { return []string{".usdpack"} }

// Encode writes m as one msgpack document.
func (Format) Encode(w io.Writer, m *stage.Memory) error {
	doc, err := build(m)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	return nil
}

// Decode reads one msgpack document.
func (Format) Decode(r io.Reader) (*stage.Memory, error) {
	var doc document
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if doc.Version != version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", doc.Version)
	}
	return restore(&doc)
}

func build(m *stage.Memory) (*document, error) {
	doc := &document{Version: version, UpAxis: m.UpAxis().String()}
	if m.Interpolation() != stage.Held {
		doc.Interpolation = m.Interpolation().String()
	}
	for _, p := range m.Masters() {
		doc.Masters = append(doc.Masters, p.String())
	}

	var visit func(path sdfpath.Path) error
	visit = func(path sdfpath.Path) error {
		p, _ := m.Prim(path)
		if !path.IsRoot() {
			rec := prim{Path: path.String(), Type: p.TypeName, Instance: p.Master.String()}
			for _, name := range p.AttrNames() {
				a, err := encodeAttr(name, p.Attrs[name])
				if err != nil {
					return fmt.Errorf("snapshot: %s.%s: %w", path, name, err)
				}
				rec.Attrs = append(rec.Attrs, a)
			}
			doc.Prims = append(doc.Prims, rec)
		}
		for _, c := range p.Children() {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(sdfpath.Root); err != nil {
		return nil, err
	}
	return doc, nil
}

func encodeAttr(name string, a *stage.Attribute) (attr, error) {
	out := attr{Name: name}
	vt := stage.Invalid
	if a.Default != nil {
		vt = stage.TypeOf(a.Default)
		v, err := encodeValue(a.Default)
		if err != nil {
			return out, err
		}
		out.Default = &v
	}
	for _, t := range a.Times() {
		sv := a.Samples[t]
		if vt == stage.Invalid {
			vt = stage.TypeOf(sv)
		}
		v, err := encodeValue(sv)
		if err != nil {
			return out, err
		}
		out.Samples = append(out.Samples, sample{Time: float64(t), Value: v})
	}
	out.Type = vt.String()
	return out, nil
}

func restore(doc *document) (*stage.Memory, error) {
	m := stage.NewMemory()
	axis, err := basis.ParseUpAxis(doc.UpAxis)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	m.SetUpAxis(axis)
	interp, err := stage.ParseInterpolation(doc.Interpolation)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	m.SetInterpolation(interp)

	masters := make(map[string]bool, len(doc.Masters))
	for _, p := range doc.Masters {
		masters[p] = true
	}

	for _, rec := range doc.Prims {
		path, err := sdfpath.Parse(rec.Path)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		if masters[rec.Path] {
			err = m.DefineMaster(path, rec.Type)
		} else {
			err = m.Define(path, rec.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		if rec.Instance != "" {
			master, err := sdfpath.Parse(rec.Instance)
			if err != nil {
				return nil, fmt.Errorf("snapshot: %s: %w", path, err)
			}
			if err := m.SetInstance(path, master); err != nil {
				return nil, err
			}
		}
		for _, a := range rec.Attrs {
			if err := restoreAttr(m, path, a); err != nil {
				return nil, fmt.Errorf("snapshot: %s.%s: %w", path, a.Name, err)
			}
		}
	}
	return m, nil
}

func restoreAttr(m *stage.Memory, path sdfpath.Path, a attr) error {
	vt, ok := stage.ParseValueType(a.Type)
	if !ok {
		return fmt.Errorf("unknown value type %q", a.Type)
	}
	if a.Default != nil {
		v, err := decodeValue(vt, *a.Default)
		if err != nil {
			return err
		}
		if err := m.SetAttr(path, a.Name, v); err != nil {
			return err
		}
	}
	for _, s := range a.Samples {
		v, err := decodeValue(vt, s.Value)
		if err != nil {
			return err
		}
		if err := m.SetTimeSample(path, a.Name, stage.TimeCode(s.Time), v); err != nil {
			return err
		}
	}
	return nil
}

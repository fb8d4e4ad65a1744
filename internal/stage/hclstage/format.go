package hclstage

import (
	"fmt"
	"io"
	"slices"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

// Format is the stage.Format for .hcl stage files.
type Format struct{}

func (Format) Name() string { return "hcl" }

func (Format) Extensions() []string { return []string{".hcl"} }

// Decode parses an HCL stage.
func (Format) Decode(r io.Reader) (*stage.Memory, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("hclstage: read: %w", err)
	}
	return Parse(src, "stage.hcl")
}

// Parse decodes src; filename is only used in diagnostics.
func Parse(src []byte, filename string) (*stage.Memory, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("hclstage: parse %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("hclstage: decode %s: %w", filename, diags)
	}

	m := stage.NewMemory()
	if root.Stage != nil {
		if root.Stage.UpAxis != "" {
			axis, err := basis.ParseUpAxis(root.Stage.UpAxis)
			if err != nil {
				return nil, fmt.Errorf("hclstage: %s: %w", filename, err)
			}
			m.SetUpAxis(axis)
		}
		interp, err := stage.ParseInterpolation(root.Stage.Interpolation)
		if err != nil {
			return nil, fmt.Errorf("hclstage: %s: %w", filename, err)
		}
		m.SetInterpolation(interp)
	}

	for _, b := range root.Masters {
		path, err := childPath(sdfpath.Root, b.Name)
		if err != nil {
			return nil, err
		}
		if err := m.DefineMaster(path, b.Type); err != nil {
			return nil, err
		}
		if err := fill(m, path, b); err != nil {
			return nil, err
		}
	}
	for _, b := range root.Prims {
		if err := definePrim(m, sdfpath.Root, b); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func childPath(parent sdfpath.Path, name string) (sdfpath.Path, error) {
	if !sdfpath.IsValidName(name) {
		return sdfpath.Empty, fmt.Errorf("hclstage: invalid prim name %q under %s", name, parent)
	}
	return parent.Append(name), nil
}

func definePrim(m *stage.Memory, parent sdfpath.Path, b *primBlock) error {
	path, err := childPath(parent, b.Name)
	if err != nil {
		return err
	}
	if err := m.Define(path, b.Type); err != nil {
		return err
	}
	return fill(m, path, b)
}

// fill authors the block's attributes, samples and children on the prim at path.
func fill(m *stage.Memory, path sdfpath.Path, b *primBlock) error {
	if b.Instance != "" {
		master, err := sdfpath.Parse(b.Instance)
		if err != nil {
			return fmt.Errorf("hclstage: %s: instance: %w", path, err)
		}
		if err := m.SetInstance(path, master); err != nil {
			return err
		}
	}

	if b.Attributes != nil {
		val, diags := b.Attributes.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("hclstage: %s: attributes: %w", path, diags)
		}
		if !val.IsNull() {
			if !val.Type().IsObjectType() && !val.Type().IsMapType() {
				return fmt.Errorf("hclstage: %s: attributes must be an object", path)
			}
			attrs := val.AsValueMap()
			names := make([]string, 0, len(attrs))
			for name := range attrs {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				v, err := attrValue(b.Type, name, attrs[name])
				if err != nil {
					return fmt.Errorf("hclstage: %s.%s: %w", path, name, err)
				}
				if err := m.SetAttr(path, name, v); err != nil {
					return err
				}
			}
		}
	}

	for _, s := range b.Samples {
		val, diags := s.Value.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("hclstage: %s.%s: sample: %w", path, s.Attr, diags)
		}
		v, err := attrValue(b.Type, s.Attr, val)
		if err != nil {
			return fmt.Errorf("hclstage: %s.%s at %g: %w", path, s.Attr, s.Time, err)
		}
		if err := m.SetTimeSample(path, s.Attr, stage.TimeCode(s.Time), v); err != nil {
			return err
		}
	}

	for _, c := range b.Children {
		if err := definePrim(m, path, c); err != nil {
			return err
		}
	}
	return nil
}

func attrValue(typeName, name string, v cty.Value) (any, error) {
	if spec, ok := stage.AttrSpecFor(typeName, name); ok {
		return decodeValue(spec.Type, v)
	}
	vt, err := inferType(v)
	if err != nil {
		return nil, err
	}
	return decodeValue(vt, v)
}

// Encode writes m as an HCL stage.
func (Format) Encode(w io.Writer, m *stage.Memory) error {
	src, err := Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(src)
	return err
}

// Marshal renders m as formatted HCL.
func Marshal(m *stage.Memory) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	st := body.AppendNewBlock("stage", nil).Body()
	st.SetAttributeValue("up_axis", cty.StringVal(m.UpAxis().String()))
	if m.Interpolation() != stage.Held {
		st.SetAttributeValue("interpolation", cty.StringVal(m.Interpolation().String()))
	}

	pseudo, _ := m.Prim(sdfpath.Root)
	for _, masterPath := range m.Masters() {
		body.AppendNewline()
		if err := writePrim(m, body, "master", masterPath); err != nil {
			return nil, err
		}
	}
	for _, c := range pseudo.Children() {
		if p, _ := m.Prim(c); p.InMaster() {
			continue
		}
		body.AppendNewline()
		if err := writePrim(m, body, "prim", c); err != nil {
			return nil, err
		}
	}
	return f.Bytes(), nil
}

func writePrim(m *stage.Memory, parent *hclwrite.Body, blockType string, path sdfpath.Path) error {
	p, ok := m.Prim(path)
	if !ok {
		return fmt.Errorf("hclstage: write %s: %w", path, stage.ErrNotFound)
	}
	body := parent.AppendNewBlock(blockType, []string{p.TypeName, path.Name()}).Body()
	if !p.Master.IsEmpty() {
		body.SetAttributeValue("instance", cty.StringVal(p.Master.String()))
	}

	defaults := make(map[string]cty.Value)
	for _, name := range p.AttrNames() {
		a := p.Attrs[name]
		if a.Default == nil {
			continue
		}
		v, err := encodeValue(a.Default)
		if err != nil {
			return fmt.Errorf("hclstage: write %s.%s: %w", path, name, err)
		}
		defaults[name] = v
	}
	if len(defaults) > 0 {
		body.SetAttributeValue("attributes", cty.ObjectVal(defaults))
	}

	for _, name := range p.AttrNames() {
		a := p.Attrs[name]
		for _, t := range a.Times() {
			v, err := encodeValue(a.Samples[t])
			if err != nil {
				return fmt.Errorf("hclstage: write %s.%s: %w", path, name, err)
			}
			sb := body.AppendNewBlock("sample", []string{name}).Body()
			sb.SetAttributeValue("time", cty.NumberFloatVal(float64(t)))
			sb.SetAttributeValue("value", v)
		}
	}

	for _, c := range p.Children() {
		if err := writePrim(m, body, "prim", c); err != nil {
			return err
		}
	}
	return nil
}

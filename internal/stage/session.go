package stage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Format reads and writes Memory graphs in one file format.
type Format interface {
	Name() string
	Extensions() []string
	Decode(r io.Reader) (*Memory, error)
	Encode(w io.Writer, m *Memory) error
}

// Session is the initialized stage environment: a validated schema table and
// the registered file formats.
type Session struct {
	formats map[string]Format
}

// Initializer runs session setup once. The first result, success or failure,
// is returned by every later call.
type Initializer struct {
	formats []Format

	once    sync.Once
	session *Session
	err     error
}

func NewInitializer(formats ...Format) *Initializer {
	return &Initializer{formats: formats}
}

// Init returns the session, running setup on the first call only.
func (i *Initializer) Init() (*Session, error) {
	i.once.Do(func() {
		i.session, i.err = setup(i.formats)
	})
	return i.session, i.err
}

func setup(formats []Format) (*Session, error) {
	if err := ValidateSchemas(Schemas); err != nil {
		return nil, err
	}
	if err := validateSamples(); err != nil {
		return nil, err
	}
	s := &Session{formats: make(map[string]Format)}
	for _, f := range formats {
		for _, ext := range f.Extensions() {
			ext = strings.ToLower(ext)
			if prev, dup := s.formats[ext]; dup {
				return nil, fmt.Errorf("stage: extension %s claimed by %s and %s", ext, prev.Name(), f.Name())
			}
			s.formats[ext] = f
		}
	}
	return s, nil
}

func validateSamples() error {
	var errs []error
	for _, sample := range SampleTypes() {
		for _, f := range sample.Fields() {
			spec, ok := AttrSpecFor(sample.SchemaName(), f.Name)
			if !ok {
				errs = append(errs, fmt.Errorf("stage: %T field %s not declared by %s", sample, f.Name, sample.SchemaName()))
				continue
			}
			if got := FieldType(f.Ptr); got != spec.Type {
				errs = append(errs, fmt.Errorf("stage: %T field %s is %s, schema says %s", sample, f.Name, got, spec.Type))
			}
		}
	}
	return errors.Join(errs...)
}

// Extensions lists the registered file extensions, sorted.
func (s *Session) Extensions() []string {
	exts := make([]string, 0, len(s.formats))
	for ext := range s.formats {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// FormatFor picks the format registered for path's extension.
func (s *Session) FormatFor(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := s.formats[ext]
	if !ok {
		return nil, fmt.Errorf("stage: no format for %q (known: %s)", ext, strings.Join(s.Extensions(), ", "))
	}
	return f, nil
}

// Open decodes the stage file at path.
func (s *Session) Open(path string) (*Memory, error) {
	f, err := s.FormatFor(path)
	if err != nil {
		return nil, err
	}
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stage: open %s: %w", path, err)
	}
	defer r.Close()

	m, err := f.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("stage: decode %s: %w", path, err)
	}
	return m, nil
}

// Save encodes m to path, choosing the format by extension.
func (s *Session) Save(path string, m *Memory) error {
	f, err := s.FormatFor(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("stage: save %s: %w", path, err)
	}
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stage: save %s: %w", path, err)
	}
	if err := f.Encode(w, m); err != nil {
		w.Close()
		return fmt.Errorf("stage: encode %s: %w", path, err)
	}
	return w.Close()
}

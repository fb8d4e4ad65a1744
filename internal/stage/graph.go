// Package stage holds the source scene graph seen by the translator: the
// interfaces it consumes, the schema descriptor table, typed samples and an
// in-memory implementation.
package stage

import (
	"errors"
	"fmt"
	"iter"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/sdfpath"
)

// ErrNotFound is returned by Read when no prim exists at the path.
var ErrNotFound = errors.New("stage: prim not found")

// SchemaMismatchError is returned when a prim cannot be read into a sample.
type SchemaMismatchError struct {
	Path     sdfpath.Path
	TypeName string
	Schema   string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("stage: %s is a %s, not a %s", e.Path, e.TypeName, e.Schema)
}

// MissingAttributeError is returned when a required attribute is not authored.
type MissingAttributeError struct {
	Path sdfpath.Path
	Attr string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("stage: %s: required attribute %s not authored", e.Path, e.Attr)
}

// Graph is the source scene graph consumed by the import translation.
type Graph interface {
	// AllPaths yields root's subtree, parents before children.
	AllPaths(root sdfpath.Path) iter.Seq[sdfpath.Path]
	// Read fills dst from the prim at path at the current time. Attributes
	// that are not authored leave their sample fields untouched.
	Read(path sdfpath.Path, dst Sample) error
	UpAxis() basis.UpAxis
	SetTime(t TimeCode)
}

// Instancing is implemented by graphs that expose masters for scene instancing.
type Instancing interface {
	// Masters returns the master root paths.
	Masters() []sdfpath.Path
	// MasterPaths yields a master's subtree, parents before children.
	MasterPaths(master sdfpath.Path) iter.Seq[sdfpath.Path]
}

// Writer is the destination of the export translation.
type Writer interface {
	// Define creates or retypes the prim at path. Its parent must exist.
	Define(path sdfpath.Path, typeName string) error
	// Write stores every populated sample field on the prim at the current time.
	Write(path sdfpath.Path, src Sample) error
	SetUpAxis(axis basis.UpAxis)
}

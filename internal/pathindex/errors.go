package pathindex

import (
	"fmt"

	"usd-scene-translator/internal/sdfpath"
)

// DuplicatePathError is returned when a path is registered twice in one pass.
type DuplicatePathError struct {
	Path sdfpath.Path
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("pathindex: duplicate path %s", e.Path)
}

// UnresolvedPathError is returned when no node is registered for a path.
type UnresolvedPathError struct {
	Path sdfpath.Path
}

func (e *UnresolvedPathError) Error() string {
	return fmt.Sprintf("pathindex: unresolved path %s", e.Path)
}

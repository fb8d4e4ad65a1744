// Package basis converts transforms between the source graph's right-handed
// frame and the runtime tree's left-handed, Y-up frame.
package basis

import (
	"fmt"
	"strings"
)

// Policy selects how handedness is converted.
type Policy int

const (
	// None passes matrices through unchanged.
	None Policy = iota
	// Exact conjugates every matrix with diag(1, 1, -1).
	Exact
	// ExactMirrorX conjugates every matrix with diag(-1, 1, 1).
	ExactMirrorX
	// Fast leaves matrices untouched and puts a negative scale on the root node.
	Fast
)

var policyNames = map[Policy]string{
	None:         "none",
	Exact:        "exact",
	ExactMirrorX: "exact-mirror-x",
	Fast:         "fast",
}

func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts the names printed by String, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return None, fmt.Errorf("basis: unknown policy %q", s)
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// FlipsHandedness reports whether geometry must be mirrored per element.
func (p Policy) FlipsHandedness() bool {
	return p == Exact || p == ExactMirrorX
}

// UpAxis is the stage's up direction.
type UpAxis int

const (
	YUp UpAxis = iota
	ZUp
)

func (a UpAxis) String() string {
	if a == ZUp {
		return "Z"
	}
	return "Y"
}

// ParseUpAxis accepts "Y" or "Z" in any case.
func ParseUpAxis(s string) (UpAxis, error) {
	switch strings.ToUpper(s) {
	case "Y":
		return YUp, nil
	case "Z":
		return ZUp, nil
	}
	return YUp, fmt.Errorf("basis: invalid up axis %q", s)
}

func (a UpAxis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *UpAxis) UnmarshalText(b []byte) error {
	v, err := ParseUpAxis(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

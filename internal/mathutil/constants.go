package mathutil

import "math"

// Basis change matrices used by the scene converters.
var (
	// FlipZ converts between right-handed and left-handed frames by negating Z: diag(1, 1, -1).
	FlipZ = Mat4Diag(1, 1, -1, 1)

	// FlipX is the mirror-X variant of FlipZ: diag(-1, 1, 1).
	FlipX = Mat4Diag(-1, 1, 1, 1)
)

// Epsilon is the tolerance used by the approximate comparisons in this package.
const Epsilon = 1e-6

// ApproxEqual reports whether a and b differ by at most tol.
func ApproxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

package cloth

import (
	"fmt"
	"sort"
)

// ConstraintKind distinguishes the three constraint families of a cloth.
type ConstraintKind int

const (
	// Stretch links 4-neighbours at the base distance.
	Stretch ConstraintKind = iota
	// Shear links diagonal neighbours.
	Shear
	// Bend links particles two apart along a row or column.
	Bend
)

func (k ConstraintKind) String() string {
	switch k {
	case Stretch:
		return "stretch"
	case Shear:
		return "shear"
	case Bend:
		return "bend"
	default:
		return fmt.Sprintf("ConstraintKind(%d)", int(k))
	}
}

// ParseConstraintKind resolves the names produced by ConstraintKind.String.
func ParseConstraintKind(name string) (ConstraintKind, error) {
	for _, k := range []ConstraintKind{Stretch, Shear, Bend} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("cloth: unknown constraint kind %q", name)
}

// Constraint keeps particles P1 and P2 at RestDistance. P1 < P2 always.
type Constraint struct {
	Kind         ConstraintKind
	P1, P2       int
	RestDistance float64
}

type constraintKey struct {
	p1, p2 int
	kind   ConstraintKind
}

// constraintSet collects constraints without duplicates, whichever
// endpoint they were discovered from.
type constraintSet map[constraintKey]float64

func (s constraintSet) add(kind ConstraintKind, a, b int, rest float64) {
	if a == b {
		return
	}
	if a > b {
		a, b = b, a
	}
	s[constraintKey{p1: a, p2: b, kind: kind}] = rest
}

// sorted returns the set ordered by (P1, P2, Kind).
func (s constraintSet) sorted() []Constraint {
	out := make([]Constraint, 0, len(s))
	for k, rest := range s {
		out = append(out, Constraint{Kind: k.kind, P1: k.p1, P2: k.p2, RestDistance: rest})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.P1 != b.P1 {
			return a.P1 < b.P1
		}
		if a.P2 != b.P2 {
			return a.P2 < b.P2
		}
		return a.Kind < b.Kind
	})
	return out
}

type neighbour struct {
	dr, dc int
	kind   ConstraintKind
}

// neighbourhood lists every offset a particle is linked to. Both signs are
// visited; the set folds the mirrored pairs together.
var neighbourhood = []neighbour{
	{1, 0, Stretch}, {-1, 0, Stretch}, {0, 1, Stretch}, {0, -1, Stretch},
	{1, 1, Shear}, {-1, 1, Shear}, {1, -1, Shear}, {-1, -1, Shear},
	{2, 0, Bend}, {-2, 0, Bend}, {0, 2, Bend}, {0, -2, Bend},
}

// buildConstraints links a rows x cols grid. A non-positive rest distance
// for a family leaves that family out.
func buildConstraints(rows, cols int, rest map[ConstraintKind]float64) []Constraint {
	set := make(constraintSet)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			for _, n := range neighbourhood {
				d := rest[n.kind]
				if d <= 0 {
					continue
				}
				nr, nc := r+n.dr, c+n.dc
				if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
					continue
				}
				set.add(n.kind, r*cols+c, nr*cols+nc, d)
			}
		}
	}
	return set.sorted()
}

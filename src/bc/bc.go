// Package bc classifies the per-face boundary codes of the input into the
// boundary kinds the implicit operator understands.
package bc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
)

// ErrInvalidCode is returned for a boundary code outside the recognised
// set. It is a configuration error and aborts the run.
var ErrInvalidCode = errors.New("invalid boundary code")

// ErrPeriodicMismatch is returned when a dimension is periodic on one side
// only, or disagrees with the geometry.
var ErrPeriodicMismatch = errors.New("inconsistent periodic boundary")

// Kind is the canonical boundary kind of one face of the domain.
type Kind int

// Canonical boundary kinds.
const (
	Periodic Kind = iota
	Neumann
	Dirichlet
	Robin
)

func (k Kind) String() string {
	switch k {
	case Periodic:
		return "Periodic"
	case Neumann:
		return "Neumann"
	case Dirichlet:
		return "Dirichlet"
	case Robin:
		return "Robin"
	}
	return "Unknown"
}

// Code is the symbolic boundary code read from the input.
type Code int

// Recognised codes. The numbering follows the AMReX BCType values.
const (
	IntDir   Code = 0 // interior, periodic wrap
	FOExtrap Code = 2 // first-order extrapolation
	ExtDir   Code = 3 // external Dirichlet value
	RobinBC  Code = 6
)

var codeKinds = map[Code]Kind{
	IntDir:   Periodic,
	FOExtrap: Neumann,
	ExtDir:   Dirichlet,
	RobinBC:  Robin,
}

// codeNames maps the names accepted in input files to codes. Keys are
// lowercase.
var codeNames = map[string]Code{
	"int_dir":   IntDir,
	"periodic":  IntDir,
	"foextrap":  FOExtrap,
	"neumann":   FOExtrap,
	"ext_dir":   ExtDir,
	"dirichlet": ExtDir,
	"robin":     RobinBC,
}

// Lookup maps a code to its kind.
func Lookup(c Code) (Kind, error) {
	k, ok := codeKinds[c]
	if !ok {
		return 0, fmt.Errorf("%w %d", ErrInvalidCode, int(c))
	}
	return k, nil
}

// ParseCode accepts either an integer code or one of the names in
// codeNames. Unknown names are rejected here; unknown integers are
// rejected by Classify.
func ParseCode(s string) (Code, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := codeNames[s]; ok {
		return c, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidCode, s)
	}
	return Code(n), nil
}

// UnmarshalYAML lets input files use integers or names.
func (c *Code) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: boundary code must be a scalar", node.Line)
	}
	parsed, err := ParseCode(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = parsed
	return nil
}

// Side selects the low or high face of a dimension.
type Side int

// Sides.
const (
	Lo Side = iota
	Hi
)

func (s Side) String() string {
	if s == Hi {
		return "hi"
	}
	return "lo"
}

// Set is the classified boundary of every face of the domain.
type Set struct {
	Dim      int
	Lo, Hi   [grid.MaxDim]Kind
	AnyRobin bool
}

// Classify maps the per-dimension low and high codes onto boundary kinds.
// Any code outside the recognised set fails; there is no default.
func Classify(dim int, lo, hi []Code) (Set, error) {
	s := Set{Dim: dim}
	if len(lo) < dim || len(hi) < dim {
		return s, fmt.Errorf("%w: need %d codes per side, got %d lo and %d hi",
			ErrInvalidCode, dim, len(lo), len(hi))
	}
	for d := 0; d < dim; d++ {
		k, err := Lookup(lo[d])
		if err != nil {
			return s, fmt.Errorf("invalid bc_lo[%d]: %w", d, err)
		}
		s.Lo[d] = k

		k, err = Lookup(hi[d])
		if err != nil {
			return s, fmt.Errorf("invalid bc_hi[%d]: %w", d, err)
		}
		s.Hi[d] = k

		if s.Lo[d] == Robin || s.Hi[d] == Robin {
			s.AnyRobin = true
		}
	}
	return s, nil
}

// Kind returns the kind of face (d, side).
func (s Set) Kind(d int, side Side) Kind {
	if side == Hi {
		return s.Hi[d]
	}
	return s.Lo[d]
}

// Periodicity returns, per dimension, whether both faces are periodic.
func (s Set) Periodicity() [grid.MaxDim]bool {
	var p [grid.MaxDim]bool
	for d := 0; d < s.Dim; d++ {
		p[d] = s.Lo[d] == Periodic && s.Hi[d] == Periodic
	}
	return p
}

// Validate checks that each dimension is periodic on both sides or on
// neither, and that this matches the geometry's periodicity.
func (s Set) Validate(periodic [grid.MaxDim]bool) error {
	for d := 0; d < s.Dim; d++ {
		lo, hi := s.Lo[d] == Periodic, s.Hi[d] == Periodic
		if lo != hi {
			return fmt.Errorf("%w: dimension %d is periodic on one side only", ErrPeriodicMismatch, d)
		}
		if lo != periodic[d] {
			return fmt.Errorf("%w: dimension %d boundary says periodic=%t, geometry says %t",
				ErrPeriodicMismatch, d, lo, periodic[d])
		}
	}
	return nil
}

func (s Set) String() string {
	var b strings.Builder
	for d := 0; d < s.Dim; d++ {
		if d > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%d:[%s,%s]", d, s.Lo[d], s.Hi[d])
	}
	return b.String()
}

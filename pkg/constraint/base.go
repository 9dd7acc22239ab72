package constraint

import (
	"fmt"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"gonum.org/v1/gonum/mat"
)

// Base is a constraint whose fields are set explicitly. Used alone it is a
// static constraint: Update is a no-op.
type Base struct {
	id    string
	xSize int

	lowerBound, upperBound []float64

	aeq *mat.Dense
	beq []float64

	aineq          *mat.Dense
	bLower, bUpper []float64
}

// New creates an empty constraint over xSize variables.
func New(id string, xSize int) *Base {
	return &Base{id: id, xSize: xSize}
}

func (b *Base) ID() string             { return b.id }
func (b *Base) XSize() int             { return b.xSize }
func (b *Base) LowerBound() []float64  { return b.lowerBound }
func (b *Base) UpperBound() []float64  { return b.upperBound }
func (b *Base) Aeq() *mat.Dense        { return b.aeq }
func (b *Base) Beq() []float64         { return b.beq }
func (b *Base) Aineq() *mat.Dense      { return b.aineq }
func (b *Base) BLowerBound() []float64 { return b.bLower }
func (b *Base) BUpperBound() []float64 { return b.bUpper }

// Update does nothing for static constraints.
func (b *Base) Update(x []float64) error { return nil }

// SetBounds sets the box bounds. Either side may be empty.
func (b *Base) SetBounds(lb, ub []float64) error {
	if len(lb) != 0 && len(lb) != b.xSize {
		return fmt.Errorf("%w: %s: lower bound has %d elements, want %d", domain.ErrValidation, b.id, len(lb), b.xSize)
	}
	if len(ub) != 0 && len(ub) != b.xSize {
		return fmt.Errorf("%w: %s: upper bound has %d elements, want %d", domain.ErrValidation, b.id, len(ub), b.xSize)
	}
	b.lowerBound = linalg.CloneVec(lb)
	b.upperBound = linalg.CloneVec(ub)
	return nil
}

// SetEquality sets Aeq x = beq. A nil matrix clears the equality.
func (b *Base) SetEquality(aeq *mat.Dense, beq []float64) error {
	if err := b.checkMatrix("Aeq", aeq); err != nil {
		return err
	}
	if len(beq) != linalg.Rows(aeq) {
		return fmt.Errorf("%w: %s: beq has %d elements, Aeq has %d rows", domain.ErrValidation, b.id, len(beq), linalg.Rows(aeq))
	}
	b.aeq = linalg.Clone(aeq)
	b.beq = linalg.CloneVec(beq)
	return nil
}

// SetInequality sets bLower <= Aineq x <= bUpper. Either side may be empty,
// but a non-empty Aineq needs at least one.
func (b *Base) SetInequality(aineq *mat.Dense, bLower, bUpper []float64) error {
	if err := b.checkMatrix("Aineq", aineq); err != nil {
		return err
	}
	r := linalg.Rows(aineq)
	if len(bLower) != 0 && len(bLower) != r {
		return fmt.Errorf("%w: %s: bLowerBound has %d elements, Aineq has %d rows", domain.ErrValidation, b.id, len(bLower), r)
	}
	if len(bUpper) != 0 && len(bUpper) != r {
		return fmt.Errorf("%w: %s: bUpperBound has %d elements, Aineq has %d rows", domain.ErrValidation, b.id, len(bUpper), r)
	}
	if r > 0 && len(bLower) == 0 && len(bUpper) == 0 {
		return fmt.Errorf("%w: %s: Aineq without bounds", domain.ErrValidation, b.id)
	}
	if r == 0 && (len(bLower) != 0 || len(bUpper) != 0) {
		return fmt.Errorf("%w: %s: inequality bounds without Aineq", domain.ErrValidation, b.id)
	}
	b.aineq = linalg.Clone(aineq)
	b.bLower = linalg.CloneVec(bLower)
	b.bUpper = linalg.CloneVec(bUpper)
	return nil
}

func (b *Base) checkMatrix(name string, m *mat.Dense) error {
	if linalg.Rows(m) > 0 && linalg.Cols(m) != b.xSize {
		return fmt.Errorf("%w: %s: %s has %d columns, want %d", domain.ErrValidation, b.id, name, linalg.Cols(m), b.xSize)
	}
	return nil
}

// Log exports the non-empty fields as <id>_Aeq, <id>_beq, <id>_Aineq,
// <id>_bLowerBound, <id>_bUpperBound, <id>_lowerBound and <id>_upperBound.
func (b *Base) Log(sink ports.DiagnosticSink) {
	Log(b, sink)
}

// Log exports the non-empty fields of any constraint.
func Log(c ports.Constraint, sink ports.DiagnosticSink) {
	id := c.ID()
	if linalg.Rows(c.Aeq()) > 0 {
		sink.AddMatrix(id+"_Aeq", c.Aeq())
		sink.AddVector(id+"_beq", c.Beq())
	}
	if linalg.Rows(c.Aineq()) > 0 {
		sink.AddMatrix(id+"_Aineq", c.Aineq())
		if v := c.BLowerBound(); len(v) > 0 {
			sink.AddVector(id+"_bLowerBound", v)
		}
		if v := c.BUpperBound(); len(v) > 0 {
			sink.AddVector(id+"_bUpperBound", v)
		}
	}
	if v := c.LowerBound(); len(v) > 0 {
		sink.AddVector(id+"_lowerBound", v)
	}
	if v := c.UpperBound(); len(v) > 0 {
		sink.AddVector(id+"_upperBound", v)
	}
}

// Package linalg holds the dense helpers shared by the solver packages.
//
// gonum refuses zero sized matrices, so a nil *mat.Dense stands for a matrix
// with zero rows throughout the module. Every helper here accepts nil.
package linalg

import (
	"fmt"
	"math"

	"github.com/aretw0/sot/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// Rows returns the row count of m, zero for nil.
func Rows(m *mat.Dense) int {
	if m == nil || m.IsEmpty() {
		return 0
	}
	r, _ := m.Dims()
	return r
}

// Cols returns the column count of m, zero for nil.
func Cols(m *mat.Dense) int {
	if m == nil || m.IsEmpty() {
		return 0
	}
	_, c := m.Dims()
	return c
}

// Clone deep-copies m.
func Clone(m *mat.Dense) *mat.Dense {
	if Rows(m) == 0 {
		return nil
	}
	return mat.DenseCopyOf(m)
}

// CloneVec deep-copies v, keeping nil as nil.
func CloneVec(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// Filled returns a vector of length n with every element set to v.
func Filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Identity returns the n x n identity, nil for n == 0.
func Identity(n int) *mat.Dense {
	if n == 0 {
		return nil
	}
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

// Zeros returns an r x c zero matrix, nil when r or c is zero.
func Zeros(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return nil
	}
	return mat.NewDense(r, c, nil)
}

// FromRows builds a matrix from row slices. All rows must share a length.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil
	}
	c := len(rows[0])
	data := make([]float64, 0, len(rows)*c)
	for i, r := range rows {
		if len(r) != c {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", domain.ErrShapeMismatch, i, len(r), c)
		}
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), c, data), nil
}

// Row copies row i of m.
func Row(m *mat.Dense, i int) []float64 {
	return mat.Row(nil, i, m)
}

// VStack stacks matrices vertically, skipping empty ones.
func VStack(ms ...*mat.Dense) (*mat.Dense, error) {
	rows, cols := 0, -1
	for _, m := range ms {
		if Rows(m) == 0 {
			continue
		}
		if cols >= 0 && Cols(m) != cols {
			return nil, fmt.Errorf("%w: cannot stack %d columns onto %d", domain.ErrShapeMismatch, Cols(m), cols)
		}
		cols = Cols(m)
		rows += Rows(m)
	}
	if rows == 0 {
		return nil, nil
	}
	out := mat.NewDense(rows, cols, nil)
	off := 0
	for _, m := range ms {
		r := Rows(m)
		if r == 0 {
			continue
		}
		out.Slice(off, off+r, 0, cols).(*mat.Dense).Copy(m)
		off += r
	}
	return out, nil
}

// BlockDiag builds the block-diagonal matrix of square or rectangular blocks.
func BlockDiag(ms ...*mat.Dense) *mat.Dense {
	rows, cols := 0, 0
	for _, m := range ms {
		rows += Rows(m)
		cols += Cols(m)
	}
	if rows == 0 || cols == 0 {
		return nil
	}
	out := mat.NewDense(rows, cols, nil)
	ro, co := 0, 0
	for _, m := range ms {
		r, c := Rows(m), Cols(m)
		if r == 0 {
			continue
		}
		out.Slice(ro, ro+r, co, co+c).(*mat.Dense).Copy(m)
		ro += r
		co += c
	}
	return out
}

// Concat concatenates vectors.
func Concat(vs ...[]float64) []float64 {
	n := 0
	for _, v := range vs {
		n += len(v)
	}
	out := make([]float64, 0, n)
	for _, v := range vs {
		out = append(out, v...)
	}
	return out
}

// Scale returns s*v as a new vector.
func Scale(s float64, v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = s * v[i]
	}
	return out
}

// Add returns a+b.
func Add(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// Sub returns a-b.
func Sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// Dot returns the inner product of a and b.
func Dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Norm returns the Euclidean norm of v.
func Norm(v []float64) float64 {
	return math.Sqrt(Dot(v, v))
}

// NormInf returns the largest absolute element of v.
func NormInf(v []float64) float64 {
	var m float64
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// MulVec returns m*x. A nil m yields an empty vector.
func MulVec(m *mat.Dense, x []float64) []float64 {
	r := Rows(m)
	if r == 0 {
		return []float64{}
	}
	out := mat.NewVecDense(r, nil)
	out.MulVec(m, mat.NewVecDense(len(x), CloneVec(x)))
	return out.RawVector().Data
}

// MulTransVec returns mᵀ*x with n columns. A nil m yields zeros of length n.
func MulTransVec(m *mat.Dense, x []float64, n int) []float64 {
	if Rows(m) == 0 {
		return make([]float64, n)
	}
	out := mat.NewVecDense(n, nil)
	out.MulVec(m.T(), mat.NewVecDense(len(x), CloneVec(x)))
	return out.RawVector().Data
}

// Gram returns the symmetrised n x n product AᵀWA. A nil A yields the zero matrix.
func Gram(a, w *mat.Dense, n int) *mat.Dense {
	h := mat.NewDense(n, n, nil)
	if Rows(a) == 0 {
		return h
	}
	var wa mat.Dense
	if w != nil {
		wa.Mul(w, a)
	} else {
		wa.CloneFrom(a)
	}
	h.Mul(a.T(), &wa)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := 0.5 * (h.At(i, j) + h.At(j, i))
			h.Set(i, j, v)
			h.Set(j, i, v)
		}
	}
	return h
}

// Clamp clamps every element of v into [-limit, limit] in place.
func Clamp(v []float64, limit float64) {
	for i := range v {
		if v[i] < -limit {
			v[i] = -limit
		} else if v[i] > limit {
			v[i] = limit
		}
	}
}

// EqualApprox reports whether a and b have the same length and differ by at most tol.
func EqualApprox(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// Raw returns a row-major copy of m along with its dimensions.
func Raw(m *mat.Dense) (rows, cols int, data []float64) {
	rows, cols = Rows(m), Cols(m)
	data = make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, mat.Row(nil, i, m)...)
	}
	return rows, cols, data
}

// FromRaw rebuilds a matrix from row-major data, nil when empty.
func FromRaw(rows, cols int, data []float64) (*mat.Dense, error) {
	if rows == 0 || cols == 0 {
		return nil, nil
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d", domain.ErrShapeMismatch, len(data), rows, cols)
	}
	return mat.NewDense(rows, cols, CloneVec(data)), nil
}

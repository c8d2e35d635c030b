package matrix

import (
	"fmt"
	"sort"

	"github.com/notargets/spmat/container"
)

// Host-side images of each encoding. Every transfer, conversion and
// structural permutation passes through these.

type cooData[T container.Float] struct {
	nrow, ncol int
	row, col   []int32
	val        []T
}

type csrData[T container.Float] struct {
	nrow, ncol int
	ptr, col   []int32 // len(ptr) == nrow+1
	val        []T
}

// diaData holds row r of diagonal d at val[d*nrow+r], column r+offset[d].
type diaData[T container.Float] struct {
	nrow, ncol int
	offset     []int32
	val        []T
}

// ellData holds slot k of row r at k*nrow+r. Unused slots have column -1.
type ellData[T container.Float] struct {
	nrow, ncol, maxRow int
	col                []int32
	val                []T
}

type hybData[T container.Float] struct {
	ell ellData[T]
	coo cooData[T]
}

func structureError(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidStructure, fmt.Sprintf(format, a...))
}

func (d cooData[T]) check() error {
	if len(d.row) != len(d.val) || len(d.col) != len(d.val) {
		return structureError("COO arrays of length %d, %d, %d", len(d.row), len(d.col), len(d.val))
	}
	for i := range d.val {
		if d.row[i] < 0 || int(d.row[i]) >= d.nrow || d.col[i] < 0 || int(d.col[i]) >= d.ncol {
			return structureError("COO entry %d at (%d,%d) outside %dx%d", i, d.row[i], d.col[i], d.nrow, d.ncol)
		}
	}
	return nil
}

func (d csrData[T]) check() error {
	if len(d.ptr) != d.nrow+1 {
		return structureError("CSR row offsets of length %d for %d rows", len(d.ptr), d.nrow)
	}
	if len(d.col) != len(d.val) {
		return structureError("CSR arrays of length %d and %d", len(d.col), len(d.val))
	}
	if d.ptr[0] != 0 || int(d.ptr[d.nrow]) != len(d.val) {
		return structureError("CSR row offsets span [%d,%d], nnz %d", d.ptr[0], d.ptr[d.nrow], len(d.val))
	}
	for r := 0; r < d.nrow; r++ {
		if d.ptr[r+1] < d.ptr[r] {
			return structureError("CSR row offsets decrease at row %d", r)
		}
	}
	for k, c := range d.col {
		if c < 0 || int(c) >= d.ncol {
			return structureError("CSR column %d at %d outside [0,%d)", c, k, d.ncol)
		}
	}
	return nil
}

func (d diaData[T]) check() error {
	if len(d.val) != len(d.offset)*d.nrow {
		return structureError("DIA values of length %d for %d diagonals of %d rows", len(d.val), len(d.offset), d.nrow)
	}
	seen := make(map[int32]bool, len(d.offset))
	for _, off := range d.offset {
		if seen[off] {
			return structureError("DIA offset %d repeated", off)
		}
		seen[off] = true
	}
	return nil
}

func (d ellData[T]) check() error {
	if len(d.col) != d.nrow*d.maxRow || len(d.val) != len(d.col) {
		return structureError("ELL arrays of length %d and %d for %d rows of width %d", len(d.col), len(d.val), d.nrow, d.maxRow)
	}
	for i, c := range d.col {
		if c < -1 || int(c) >= d.ncol {
			return structureError("ELL column %d at %d outside [-1,%d)", c, i, d.ncol)
		}
	}
	return nil
}

func (d hybData[T]) check() error {
	if d.ell.nrow != d.coo.nrow || d.ell.ncol != d.coo.ncol {
		return structureError("HYB parts of shape %dx%d and %dx%d", d.ell.nrow, d.ell.ncol, d.coo.nrow, d.coo.ncol)
	}
	if err := d.ell.check(); err != nil {
		return err
	}
	return d.coo.check()
}

// toCSR is a stable counting sort by row.
func (d cooData[T]) toCSR() csrData[T] {
	c := csrData[T]{
		nrow: d.nrow, ncol: d.ncol,
		ptr: make([]int32, d.nrow+1),
		col: make([]int32, len(d.val)),
		val: make([]T, len(d.val)),
	}
	for _, r := range d.row {
		c.ptr[r+1]++
	}
	for r := 0; r < d.nrow; r++ {
		c.ptr[r+1] += c.ptr[r]
	}
	next := make([]int32, d.nrow)
	copy(next, c.ptr[:d.nrow])
	for i, r := range d.row {
		k := next[r]
		next[r]++
		c.col[k], c.val[k] = d.col[i], d.val[i]
	}
	return c
}

func (d cooData[T]) sorted() cooData[T] {
	c := d.toCSR()
	out := c.toCOO()
	// Within a row, order by column keeping duplicates in their original order.
	for r := 0; r < c.nrow; r++ {
		lo, hi := c.ptr[r], c.ptr[r+1]
		sort.Stable(byCol[T]{col: out.col[lo:hi], val: out.val[lo:hi]})
	}
	return out
}

type byCol[T container.Float] struct {
	col []int32
	val []T
}

func (s byCol[T]) Len() int           { return len(s.col) }
func (s byCol[T]) Less(i, j int) bool { return s.col[i] < s.col[j] }
func (s byCol[T]) Swap(i, j int) {
	s.col[i], s.col[j] = s.col[j], s.col[i]
	s.val[i], s.val[j] = s.val[j], s.val[i]
}

func (c csrData[T]) toCOO() cooData[T] {
	d := cooData[T]{
		nrow: c.nrow, ncol: c.ncol,
		row: make([]int32, len(c.val)),
		col: append([]int32{}, c.col...),
		val: append([]T{}, c.val...),
	}
	for r := 0; r < c.nrow; r++ {
		for k := c.ptr[r]; k < c.ptr[r+1]; k++ {
			d.row[k] = int32(r)
		}
	}
	return d
}

// toCOO emits in-bounds slots holding non-zero values, ordered by row then
// offset.
func (a diaData[T]) toCOO() cooData[T] {
	order := make([]int, len(a.offset))
	for d := range order {
		order[d] = d
	}
	sort.Slice(order, func(i, j int) bool { return a.offset[order[i]] < a.offset[order[j]] })
	d := cooData[T]{nrow: a.nrow, ncol: a.ncol}
	for r := 0; r < a.nrow; r++ {
		for _, k := range order {
			c := r + int(a.offset[k])
			if c < 0 || c >= a.ncol {
				continue
			}
			if v := a.val[k*a.nrow+r]; v != 0 {
				d.row = append(d.row, int32(r))
				d.col = append(d.col, int32(c))
				d.val = append(d.val, v)
			}
		}
	}
	return d
}

// toDIA places every entry on its diagonal, summing duplicates. Patterns
// whose diagonal storage would exceed fillLimit times the entry count are
// rejected.
func (d cooData[T]) toDIA(fillLimit float64) (diaData[T], error) {
	index := make(map[int32]int)
	var offsets []int32
	for i := range d.val {
		off := d.col[i] - d.row[i]
		if _, ok := index[off]; !ok {
			index[off] = len(offsets)
			offsets = append(offsets, off)
		}
	}
	var (
		ndiag   = len(offsets)
		storage = float64(ndiag * d.nrow)
		allowed = fillLimit * float64(max(len(d.val), 1))
	)
	if storage > allowed {
		return diaData[T]{}, fmt.Errorf("%w: %d diagonals need %d slots for %d entries (limit %g)",
			ErrConversionUnsupported, ndiag, ndiag*d.nrow, len(d.val), fillLimit)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	for k, off := range offsets {
		index[off] = k
	}
	a := diaData[T]{nrow: d.nrow, ncol: d.ncol, offset: offsets, val: make([]T, ndiag*d.nrow)}
	for i, v := range d.val {
		k := index[d.col[i]-d.row[i]]
		a.val[k*d.nrow+int(d.row[i])] += v
	}
	return a, nil
}

// toELL sizes the slot width to the longest row.
func (c csrData[T]) toELL() ellData[T] {
	maxRow := 0
	for r := 0; r < c.nrow; r++ {
		maxRow = max(maxRow, int(c.ptr[r+1]-c.ptr[r]))
	}
	e, _ := c.split(maxRow)
	return e
}

// split places the first width entries of each row in ELL slots and the
// rest, in row order, in a COO overflow.
func (c csrData[T]) split(width int) (ellData[T], cooData[T]) {
	e := ellData[T]{
		nrow: c.nrow, ncol: c.ncol, maxRow: width,
		col: make([]int32, c.nrow*width),
		val: make([]T, c.nrow*width),
	}
	for i := range e.col {
		e.col[i] = -1
	}
	o := cooData[T]{nrow: c.nrow, ncol: c.ncol}
	for r := 0; r < c.nrow; r++ {
		for k := c.ptr[r]; k < c.ptr[r+1]; k++ {
			slot := int(k - c.ptr[r])
			if slot < width {
				e.col[slot*c.nrow+r], e.val[slot*c.nrow+r] = c.col[k], c.val[k]
				continue
			}
			o.row = append(o.row, int32(r))
			o.col = append(o.col, c.col[k])
			o.val = append(o.val, c.val[k])
		}
	}
	return e, o
}

func (c csrData[T]) toHYB() hybData[T] {
	width := 0
	if c.nrow > 0 {
		width = len(c.val) / c.nrow
	}
	e, o := c.split(width)
	return hybData[T]{ell: e, coo: o}
}

func (e ellData[T]) toCOO() cooData[T] {
	d := cooData[T]{nrow: e.nrow, ncol: e.ncol}
	for r := 0; r < e.nrow; r++ {
		for k := 0; k < e.maxRow; k++ {
			i := k*e.nrow + r
			if e.col[i] < 0 {
				continue
			}
			d.row = append(d.row, int32(r))
			d.col = append(d.col, e.col[i])
			d.val = append(d.val, e.val[i])
		}
	}
	return d
}

// toCOO lists the ELL part followed by the overflow.
func (h hybData[T]) toCOO() cooData[T] {
	d := h.ell.toCOO()
	d.row = append(d.row, h.coo.row...)
	d.col = append(d.col, h.coo.col...)
	d.val = append(d.val, h.coo.val...)
	return d
}

// Permutations

func validatePermutation(p []int32, n int) error {
	if len(p) != n {
		return fmt.Errorf("%w: length %d for %d rows", ErrInvalidPermutation, len(p), n)
	}
	seen := make([]bool, n)
	for i, v := range p {
		if v < 0 || int(v) >= n || seen[v] {
			return fmt.Errorf("%w: entry %d is %d", ErrInvalidPermutation, i, v)
		}
		seen[v] = true
	}
	return nil
}

func invert(p []int32) []int32 {
	q := make([]int32, len(p))
	for i, v := range p {
		q[v] = int32(i)
	}
	return q
}

func permuteIndices(idx, p []int32) {
	for i, v := range idx {
		idx[i] = p[v]
	}
}

// permute moves row r to p[r] keeping the order of its entries.
func (c csrData[T]) permute(p []int32) csrData[T] {
	out := csrData[T]{
		nrow: c.nrow, ncol: c.ncol,
		ptr: make([]int32, c.nrow+1),
		col: make([]int32, len(c.col)),
		val: make([]T, len(c.val)),
	}
	for r := 0; r < c.nrow; r++ {
		out.ptr[p[r]+1] = c.ptr[r+1] - c.ptr[r]
	}
	for r := 0; r < c.nrow; r++ {
		out.ptr[r+1] += out.ptr[r]
	}
	for r := 0; r < c.nrow; r++ {
		dst := out.ptr[p[r]]
		for k := c.ptr[r]; k < c.ptr[r+1]; k++ {
			out.col[dst], out.val[dst] = p[c.col[k]], c.val[k]
			dst++
		}
	}
	return out
}

func (e ellData[T]) permute(p []int32) ellData[T] {
	out := ellData[T]{
		nrow: e.nrow, ncol: e.ncol, maxRow: e.maxRow,
		col: make([]int32, len(e.col)),
		val: make([]T, len(e.val)),
	}
	for r := 0; r < e.nrow; r++ {
		for k := 0; k < e.maxRow; k++ {
			src, dst := k*e.nrow+r, k*e.nrow+int(p[r])
			out.col[dst], out.val[dst] = -1, e.val[src]
			if c := e.col[src]; c >= 0 {
				out.col[dst] = p[c]
			}
		}
	}
	return out
}

package align

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// matrix represents a 2 dimensional score matrix, plus the traceback
// operation chosen for every cell.
type matrix struct {
	nRow, nCol int
	data       []int       // row-major nRow*nCol array.
	trace      []operation // row-major nRow*nCol array.
}

var matrixPool = sync.Pool{New: func() interface{} { return &matrix{} }}

// getMatrix returns an n x m matrix from the pool.  Its contents are
// unspecified; every cell is written before it is read.
func getMatrix(n, m int) *matrix {
	x := matrixPool.Get().(*matrix)
	x.nRow, x.nCol = n, m
	if cap(x.data) < n*m {
		x.data = make([]int, n*m)
		x.trace = make([]operation, n*m)
	}
	x.data = x.data[:n*m]
	x.trace = x.trace[:n*m]
	return x
}

func putMatrix(x *matrix) {
	matrixPool.Put(x)
}

// String returns a string representation of a matrix.
func (m *matrix) String() (r string) {
	maxLength := 0
	for _, d := range m.data {
		if l := len(strconv.Itoa(d)); l > maxLength {
			maxLength = l
		}
	}

	lines := []string{"\n"}
	for i := 0; i < m.nRow; i++ {
		var parts []string
		for j := 0; j < m.nCol; j++ {
			parts = append(parts, fmt.Sprintf("%*s", maxLength, strconv.Itoa(m.data[i*m.nCol+j])))
		}
		lines = append(lines, strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}

// operation is a type that describes one of the three possible traversals in
// the alignment matrix.
//
//   ___|___
//    1 | 3
//    2 | 4
//
// (1) diagonal (1 -> 4): reference and query base aligned
// (2) right (2 -> 4): query base against a reference gap
// (3) down (3 -> 4): reference base against a query gap
type operation uint8

const (
	diagonal operation = iota
	right
	down
)

// computeCell computes the cell (i, j), where row i covers reference[:i] and
// column j covers query[:j].  On ties, down wins over right, and right wins
// over diagonal.  Since traceback starts from the last cell, this pushes gap
// columns towards the end of the alignment.
func (m *matrix) computeCell(i, j int, reference, query string, sc Scoring) {
	idx := i*m.nCol + j
	if i == 0 {
		m.data[idx] = j * sc.Gap
		m.trace[idx] = right
		return
	}
	if j == 0 {
		m.data[idx] = i * sc.Gap
		m.trace[idx] = down
		return
	}
	diagonalValue := m.data[(i-1)*m.nCol+(j-1)]
	if reference[i-1] == query[j-1] {
		diagonalValue += sc.Match
	} else {
		diagonalValue += sc.Mismatch
	}
	downValue := m.data[(i-1)*m.nCol+j] + sc.Gap
	rightValue := m.data[i*m.nCol+(j-1)] + sc.Gap

	best, op := downValue, down
	if rightValue > best {
		best, op = rightValue, right
	}
	if diagonalValue > best {
		best, op = diagonalValue, diagonal
	}
	m.data[idx] = best
	m.trace[idx] = op
}

// fill computes every cell of the matrix.
func (m *matrix) fill(reference, query string, sc Scoring) {
	for i := 0; i < m.nRow; i++ {
		for j := 0; j < m.nCol; j++ {
			m.computeCell(i, j, reference, query, sc)
		}
	}
}

// traceback walks from the bottom-right cell to the origin and returns the
// alignment columns in forward order.
func (m *matrix) traceback(reference, query string) []Op {
	i, j := m.nRow-1, m.nCol-1
	ops := make([]Op, 0, i+j)
	for i > 0 || j > 0 {
		switch m.trace[i*m.nCol+j] {
		case diagonal:
			if reference[i-1] == query[j-1] {
				ops = append(ops, Match)
			} else {
				ops = append(ops, Mismatch)
			}
			i--
			j--
		case down:
			ops = append(ops, Deletion)
			i--
		case right:
			ops = append(ops, Insertion)
			j--
		}
	}
	for a, b := 0, len(ops)-1; a < b; a, b = a+1, b-1 {
		ops[a], ops[b] = ops[b], ops[a]
	}
	return ops
}

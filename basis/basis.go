// Package basis converts between Fock basis indices and the binary visible vectors
// the RBMs are defined over.
package basis

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Vectors returns a [len(indices), dim] matrix whose i-th row is the binary
// representation of indices[i], zero padded and most significant bit first.
//
// Every index must lie in [0, 2^dim).
func Vectors(indices []int, dim int) *tensor.Dense {
	backing := make([]float64, len(indices)*dim)
	for i, idx := range indices {
		if idx < 0 || idx >= 1<<uint(dim) {
			panic(fmt.Sprintf("basis index %d out of range for %d modes", idx, dim))
		}
		row := backing[i*dim : (i+1)*dim]
		for j := range row {
			row[j] = float64((idx >> uint(dim-1-j)) & 1)
		}
	}
	return tensor.New(tensor.WithShape(len(indices), dim), tensor.WithBacking(backing))
}

// Indices is the inverse of Vectors: each row is dotted with descending powers of two.
func Indices(vis *tensor.Dense) ([]int, error) {
	if vis.Dims() != 2 {
		return nil, errors.Errorf("expected a matrix of visible vectors. Got shape %v", vis.Shape())
	}
	rows, err := native.MatrixF64(vis)
	if err != nil {
		return nil, errors.Wrapf(err, "Indices failed")
	}
	dim := vis.Shape()[1]
	retVal := make([]int, len(rows))
	for i, row := range rows {
		var idx int
		for j, v := range row {
			idx += int(v) << uint(dim-1-j)
		}
		retVal[i] = idx
	}
	return retVal, nil
}

// Range returns 0, 1, ..., n-1.
func Range(n int) []int {
	retVal := make([]int, n)
	for i := range retVal {
		retVal[i] = i
	}
	return retVal
}

// Enumerate returns all 2^dim visible vectors in index order.
func Enumerate(dim int) *tensor.Dense { return Vectors(Range(1<<uint(dim)), dim) }

// Label renders a basis index as a ket, e.g. |01>.
func Label(index, dim int) string { return fmt.Sprintf("|%0*b>", dim, index) }

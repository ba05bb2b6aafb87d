package rbm

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

type maebe struct {
	err error
}

// generic monad... may be useful
func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// affine computes input×w + b, with b broadcast over the rows of input.
func (m *maebe) affine(input, w, b *G.Node) *G.Node {
	xw := m.do(func() (*G.Node, error) { return G.Mul(input, w) })
	row := m.reshape(b, tensor.Shape{1, b.Shape().TotalSize()})
	return m.do(func() (*G.Node, error) { return G.BroadcastAdd(xw, row, nil, []byte{0}) })
}

func (m *maebe) reshape(input *G.Node, to tensor.Shape) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = G.Reshape(input, to); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) softplus(input *G.Node) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = G.Softplus(input); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultHiddenSizes mirrors the production no-show network: three ReLU layers
// feeding a single sigmoid unit.
var DefaultHiddenSizes = []int{64, 32, 16}

const DefaultDropout = 0.2

var ErrShapeMismatch = errors.New("input does not match network shape")

type layer struct {
	w *mat.Dense    // out x in
	b *mat.VecDense // out
}

// Network is a fully connected feed-forward binary classifier. Inputs are
// standardised with the scaler fitted at training time before the first layer.
type Network struct {
	sizes   []int
	dropout float64
	layers  []layer
	scaler  *Scaler
}

// NewNetwork allocates a network with He-initialised weights. sizes lists
// every layer width including input and the single output unit.
func NewNetwork(sizes []int, dropout float64, rng *rand.Rand) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("network needs at least 2 layers, got %d", len(sizes))
	}
	if sizes[len(sizes)-1] != 1 {
		return nil, fmt.Errorf("output layer must have 1 unit, got %d", sizes[len(sizes)-1])
	}
	for i, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("layer %d has non-positive width %d", i, s)
		}
	}
	if dropout < 0 || dropout >= 1 {
		return nil, fmt.Errorf("dropout %v out of range [0, 1)", dropout)
	}

	n := &Network{
		sizes:   append([]int(nil), sizes...),
		dropout: dropout,
		layers:  make([]layer, len(sizes)-1),
	}
	for i := range n.layers {
		in, out := sizes[i], sizes[i+1]
		limit := math.Sqrt(6.0 / float64(in))
		data := make([]float64, out*in)
		for j := range data {
			data[j] = (rng.Float64()*2 - 1) * limit
		}
		n.layers[i] = layer{
			w: mat.NewDense(out, in, data),
			b: mat.NewVecDense(out, nil),
		}
	}
	return n, nil
}

func (n *Network) InputSize() int {
	return n.sizes[0]
}

func (n *Network) Sizes() []int {
	return append([]int(nil), n.sizes...)
}

// Predict returns the sigmoid output for one input vector.
func (n *Network) Predict(x []float64) (float64, error) {
	if len(x) != n.InputSize() {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrShapeMismatch, len(x), n.InputSize())
	}
	acts, _ := n.forward(n.scaler.Transform(x), nil)
	return acts[len(acts)-1].AtVec(0), nil
}

// forward runs the network, returning the activation of every layer (index 0
// is the input) and the pre-activations of every non-input layer. masks, when
// non-nil, holds a dropout mask per hidden layer.
func (n *Network) forward(x []float64, masks []*mat.VecDense) ([]*mat.VecDense, []*mat.VecDense) {
	acts := make([]*mat.VecDense, len(n.layers)+1)
	zs := make([]*mat.VecDense, len(n.layers))
	acts[0] = mat.NewVecDense(len(x), append([]float64(nil), x...))

	for i, l := range n.layers {
		out, _ := l.w.Dims()
		z := mat.NewVecDense(out, nil)
		z.MulVec(l.w, acts[i])
		z.AddVec(z, l.b)
		zs[i] = z

		a := mat.NewVecDense(out, nil)
		if i == len(n.layers)-1 {
			for j := 0; j < out; j++ {
				a.SetVec(j, sigmoid(z.AtVec(j)))
			}
		} else {
			for j := 0; j < out; j++ {
				a.SetVec(j, math.Max(0, z.AtVec(j)))
			}
			if masks != nil && masks[i] != nil {
				a.MulElemVec(a, masks[i])
			}
		}
		acts[i+1] = a
	}
	return acts, zs
}

// dropoutMasks builds inverted-dropout masks for every hidden layer except
// the last one, matching the production layout.
func (n *Network) dropoutMasks(rng *rand.Rand) []*mat.VecDense {
	masks := make([]*mat.VecDense, len(n.layers))
	if n.dropout == 0 {
		return masks
	}
	keep := 1 - n.dropout
	for i := 0; i < len(n.layers)-2; i++ {
		size := n.sizes[i+1]
		m := mat.NewVecDense(size, nil)
		for j := 0; j < size; j++ {
			if rng.Float64() < keep {
				m.SetVec(j, 1/keep)
			}
		}
		masks[i] = m
	}
	return masks
}

func (n *Network) clone() *Network {
	c := &Network{
		sizes:   append([]int(nil), n.sizes...),
		dropout: n.dropout,
		layers:  make([]layer, len(n.layers)),
		scaler:  n.scaler.clone(),
	}
	for i, l := range n.layers {
		c.layers[i] = layer{
			w: mat.DenseCopyOf(l.w),
			b: mat.VecDenseCopyOf(l.b),
		}
	}
	return c
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// Scaler standardises each input column with the mean and standard deviation
// observed in the training set. A nil scaler is the identity.
type Scaler struct {
	Mean   []float64 `json:"mean"`
	Stddev []float64 `json:"stddev"`
}

func FitScaler(rows [][]float64) *Scaler {
	if len(rows) == 0 {
		return nil
	}
	width := len(rows[0])
	s := &Scaler{Mean: make([]float64, width), Stddev: make([]float64, width)}
	col := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, row := range rows {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std < 1e-10 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Stddev[j] = std
	}
	return s
}

func (s *Scaler) Transform(x []float64) []float64 {
	if s == nil || len(x) != len(s.Mean) {
		return x
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Stddev[i]
	}
	return out
}

func (s *Scaler) clone() *Scaler {
	if s == nil {
		return nil
	}
	return &Scaler{
		Mean:   append([]float64(nil), s.Mean...),
		Stddev: append([]float64(nil), s.Stddev...),
	}
}

// Weights is the serialisable form of a Network.
type Weights struct {
	Sizes   []int          `json:"sizes"`
	Dropout float64        `json:"dropout"`
	Layers  []LayerWeights `json:"layers"`
	Scaler  *Scaler        `json:"scaler,omitempty"`
}

type LayerWeights struct {
	W []float64 `json:"w"`
	B []float64 `json:"b"`
}

func (n *Network) Weights() Weights {
	w := Weights{
		Sizes:   append([]int(nil), n.sizes...),
		Dropout: n.dropout,
		Layers:  make([]LayerWeights, len(n.layers)),
		Scaler:  n.scaler.clone(),
	}
	for i, l := range n.layers {
		w.Layers[i] = LayerWeights{
			W: append([]float64(nil), l.w.RawMatrix().Data...),
			B: append([]float64(nil), l.b.RawVector().Data...),
		}
	}
	return w
}

// FromWeights rebuilds a Network, validating every layer against Sizes.
func FromWeights(w Weights) (*Network, error) {
	if len(w.Sizes) < 2 {
		return nil, fmt.Errorf("weights describe %d layers, need at least 2", len(w.Sizes))
	}
	if len(w.Layers) != len(w.Sizes)-1 {
		return nil, fmt.Errorf("weights have %d layers, sizes imply %d", len(w.Layers), len(w.Sizes)-1)
	}
	if w.Sizes[len(w.Sizes)-1] != 1 {
		return nil, fmt.Errorf("output layer must have 1 unit, got %d", w.Sizes[len(w.Sizes)-1])
	}
	if w.Scaler != nil && (len(w.Scaler.Mean) != w.Sizes[0] || len(w.Scaler.Stddev) != w.Sizes[0]) {
		return nil, fmt.Errorf("scaler width does not match input size %d", w.Sizes[0])
	}

	n := &Network{
		sizes:   append([]int(nil), w.Sizes...),
		dropout: w.Dropout,
		layers:  make([]layer, len(w.Layers)),
		scaler:  w.Scaler.clone(),
	}
	for i, lw := range w.Layers {
		in, out := w.Sizes[i], w.Sizes[i+1]
		if len(lw.W) != in*out || len(lw.B) != out {
			return nil, fmt.Errorf("layer %d: got %d weights and %d biases, want %d and %d",
				i, len(lw.W), len(lw.B), in*out, out)
		}
		n.layers[i] = layer{
			w: mat.NewDense(out, in, append([]float64(nil), lw.W...)),
			b: mat.NewVecDense(out, append([]float64(nil), lw.B...)),
		}
	}
	return n, nil
}

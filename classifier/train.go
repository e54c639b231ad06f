package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type TrainConfig struct {
	Epochs       int
	BatchSize    int
	Patience     int
	LearningRate float64
	Seed         int64
}

func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:       50,
		BatchSize:    32,
		Patience:     5,
		LearningRate: 0.001,
		Seed:         1,
	}
}

// Dataset holds encoded rows and their 0/1 labels.
type Dataset struct {
	X [][]float64
	Y []float64
}

func (d Dataset) Len() int {
	return len(d.X)
}

func (d Dataset) validate(width int) error {
	if len(d.X) != len(d.Y) {
		return fmt.Errorf("%d rows but %d labels", len(d.X), len(d.Y))
	}
	for i, row := range d.X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrShapeMismatch, i, len(row), width)
		}
	}
	for i, y := range d.Y {
		if y != 0 && y != 1 {
			return fmt.Errorf("label %d is %v, want 0 or 1", i, y)
		}
	}
	return nil
}

var ErrEmptyDataset = errors.New("training dataset is empty")

type Metrics struct {
	Accuracy    float64 `json:"accuracy"`
	ValAccuracy float64 `json:"val_accuracy"`
	AUC         float64 `json:"auc"`
	ValAUC      float64 `json:"val_auc"`
	Loss        float64 `json:"loss"`
	ValLoss     float64 `json:"val_loss"`
	Epochs      int     `json:"epochs"`
}

type adamState struct {
	mw, vw *mat.Dense
	mb, vb *mat.VecDense
}

type trainer struct {
	net   *Network
	cfg   TrainConfig
	rng   *rand.Rand
	step  int
	adam  []adamState
	gradW []*mat.Dense
	gradB []*mat.VecDense
}

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
)

// Train fits a fresh network on train, stopping early when the monitored loss
// (validation when present, training otherwise) has not improved for
// cfg.Patience epochs. The best weights seen are returned.
func Train(ctx context.Context, sizes []int, dropout float64, cfg TrainConfig, train, val Dataset) (*Network, Metrics, error) {
	if train.Len() == 0 {
		return nil, Metrics{}, ErrEmptyDataset
	}
	if err := train.validate(sizes[0]); err != nil {
		return nil, Metrics{}, fmt.Errorf("training data: %w", err)
	}
	if err := val.validate(sizes[0]); err != nil {
		return nil, Metrics{}, fmt.Errorf("validation data: %w", err)
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = DefaultTrainConfig().Epochs
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultTrainConfig().BatchSize
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = DefaultTrainConfig().LearningRate
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	net, err := NewNetwork(sizes, dropout, rng)
	if err != nil {
		return nil, Metrics{}, err
	}
	net.scaler = FitScaler(train.X)

	t := newTrainer(net, cfg, rng)

	best := net.clone()
	bestLoss := math.Inf(1)
	stale := 0
	epochs := 0

	order := make([]int, train.Len())
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, Metrics{}, err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for start := 0; start < len(order); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			t.batch(train, order[start:end])
		}
		epochs++

		monitored := train
		if val.Len() > 0 {
			monitored = val
		}
		loss := net.loss(monitored)
		if loss < bestLoss {
			bestLoss = loss
			best = net.clone()
			stale = 0
			continue
		}
		stale++
		if cfg.Patience > 0 && stale >= cfg.Patience {
			break
		}
	}

	m := Metrics{Epochs: epochs}
	m.Loss, m.Accuracy, m.AUC = best.evaluate(train)
	if val.Len() > 0 {
		m.ValLoss, m.ValAccuracy, m.ValAUC = best.evaluate(val)
	}
	return best, m, nil
}

func newTrainer(net *Network, cfg TrainConfig, rng *rand.Rand) *trainer {
	t := &trainer{net: net, cfg: cfg, rng: rng}
	for _, l := range net.layers {
		r, c := l.w.Dims()
		t.adam = append(t.adam, adamState{
			mw: mat.NewDense(r, c, nil),
			vw: mat.NewDense(r, c, nil),
			mb: mat.NewVecDense(r, nil),
			vb: mat.NewVecDense(r, nil),
		})
		t.gradW = append(t.gradW, mat.NewDense(r, c, nil))
		t.gradB = append(t.gradB, mat.NewVecDense(r, nil))
	}
	return t
}

// batch accumulates binary cross-entropy gradients over idx and applies one
// Adam step.
func (t *trainer) batch(d Dataset, idx []int) {
	for i := range t.gradW {
		t.gradW[i].Zero()
		t.gradB[i].Zero()
	}

	last := len(t.net.layers) - 1
	for _, k := range idx {
		masks := t.net.dropoutMasks(t.rng)
		acts, zs := t.net.forward(t.net.scaler.Transform(d.X[k]), masks)

		// Sigmoid output with cross-entropy loss: dL/dz = a - y.
		delta := mat.NewVecDense(1, []float64{acts[last+1].AtVec(0) - d.Y[k]})
		for l := last; l >= 0; l-- {
			t.gradW[l].RankOne(t.gradW[l], 1, delta, acts[l])
			t.gradB[l].AddVec(t.gradB[l], delta)
			if l == 0 {
				break
			}
			prev := mat.NewVecDense(t.net.sizes[l], nil)
			prev.MulVec(t.net.layers[l].w.T(), delta)
			for j := 0; j < prev.Len(); j++ {
				if zs[l-1].AtVec(j) <= 0 {
					prev.SetVec(j, 0)
				}
			}
			if masks[l-1] != nil {
				prev.MulElemVec(prev, masks[l-1])
			}
			delta = prev
		}
	}

	scale := 1 / float64(len(idx))
	t.step++
	lr := t.cfg.LearningRate * math.Sqrt(1-math.Pow(adamBeta2, float64(t.step))) /
		(1 - math.Pow(adamBeta1, float64(t.step)))

	for l, layer := range t.net.layers {
		s := t.adam[l]
		adamUpdate(layer.w.RawMatrix().Data, t.gradW[l].RawMatrix().Data,
			s.mw.RawMatrix().Data, s.vw.RawMatrix().Data, scale, lr)
		adamUpdate(layer.b.RawVector().Data, t.gradB[l].RawVector().Data,
			s.mb.RawVector().Data, s.vb.RawVector().Data, scale, lr)
	}
}

func adamUpdate(params, grads, m, v []float64, scale, lr float64) {
	for i := range params {
		g := grads[i] * scale
		m[i] = adamBeta1*m[i] + (1-adamBeta1)*g
		v[i] = adamBeta2*v[i] + (1-adamBeta2)*g*g
		params[i] -= lr * m[i] / (math.Sqrt(v[i]) + adamEpsilon)
	}
}

const lossEpsilon = 1e-7

func (n *Network) loss(d Dataset) float64 {
	loss, _, _ := n.evaluate(d)
	return loss
}

// evaluate returns mean binary cross-entropy, accuracy at 0.5 and ROC AUC.
func (n *Network) evaluate(d Dataset) (loss, accuracy, auc float64) {
	if d.Len() == 0 {
		return 0, 0, 0
	}
	scores := make([]float64, d.Len())
	correct := 0
	for i, x := range d.X {
		p, _ := n.Predict(x)
		scores[i] = p
		pc := math.Min(math.Max(p, lossEpsilon), 1-lossEpsilon)
		loss -= d.Y[i]*math.Log(pc) + (1-d.Y[i])*math.Log(1-pc)
		if (p >= 0.5) == (d.Y[i] == 1) {
			correct++
		}
	}
	loss /= float64(d.Len())
	accuracy = float64(correct) / float64(d.Len())
	return loss, accuracy, AUC(scores, d.Y)
}

// AUC is the area under the ROC curve of scores against 0/1 labels. It is 0
// when only one class is present.
func AUC(scores, labels []float64) float64 {
	if len(scores) == 0 || len(scores) != len(labels) {
		return 0
	}
	y := append([]float64(nil), scores...)
	inds := make([]int, len(y))
	floats.Argsort(y, inds)

	classes := make([]bool, len(y))
	positives := 0
	for i, idx := range inds {
		classes[i] = labels[idx] == 1
		if classes[i] {
			positives++
		}
	}
	if positives == 0 || positives == len(classes) {
		return 0
	}

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

package training

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Parameter is one trainable weight vector with its accumulated gradient.
type Parameter struct {
	Value []float32
	Grad  []float32
}

// ZeroGrad clears the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// Optimizer updates a fixed set of parameters from their gradients.
type Optimizer interface {
	Step()
	ZeroGrad()
	LearningRate() float64
	SetLearningRate(lr float64)
}

type optimizerConstructor func(params []*Parameter, lr float64) Optimizer

var optimizerKinds = map[string]optimizerConstructor{
	"sgd": func(p []*Parameter, lr float64) Optimizer {
		return &sgd{params: p, lr: lr}
	},
	"momentum": func(p []*Parameter, lr float64) Optimizer {
		return &sgd{params: p, lr: lr, momentum: 0.9}
	},
	"adam": func(p []*Parameter, lr float64) Optimizer {
		return newAdam(p, lr, 0)
	},
	"adamw": func(p []*Parameter, lr float64) Optimizer {
		return newAdam(p, lr, 0.01)
	},
}

// NewOptimizer returns the optimizer registered under name, owning params.
func NewOptimizer(name string, params []*Parameter, lr float64) (Optimizer, error) {
	ctor, ok := optimizerKinds[name]
	if !ok {
		return nil, errors.Errorf("unknown optimizer %q", name)
	}
	if lr <= 0 {
		return nil, errors.Errorf("learning rate must be positive, got %v", lr)
	}
	return ctor(params, lr), nil
}

// IsOptimizer reports whether name is a registered optimizer kind.
func IsOptimizer(name string) bool {
	_, ok := optimizerKinds[name]
	return ok
}

// OptimizerNames returns the registered optimizer names, sorted.
func OptimizerNames() []string {
	names := make([]string, 0, len(optimizerKinds))
	for name := range optimizerKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sgd is plain gradient descent, with optional classical momentum.
type sgd struct {
	params   []*Parameter
	lr       float64
	momentum float64
	velocity [][]float32
}

func (o *sgd) Step() {
	if o.momentum > 0 && o.velocity == nil {
		o.velocity = make([][]float32, len(o.params))
		for i, p := range o.params {
			o.velocity[i] = make([]float32, len(p.Value))
		}
	}
	for i, p := range o.params {
		for j := range p.Value {
			update := float64(p.Grad[j])
			if o.momentum > 0 {
				v := o.momentum*float64(o.velocity[i][j]) + update
				o.velocity[i][j] = float32(v)
				update = v
			}
			p.Value[j] -= float32(o.lr * update)
		}
	}
}

func (o *sgd) ZeroGrad() {
	for _, p := range o.params {
		p.ZeroGrad()
	}
}

func (o *sgd) LearningRate() float64      { return o.lr }
func (o *sgd) SetLearningRate(lr float64) { o.lr = lr }

// adam implements Adam, and AdamW when weightDecay is non-zero (decoupled
// decay applied directly to the weights).
type adam struct {
	params      []*Parameter
	lr          float64
	beta1       float64
	beta2       float64
	epsilon     float64
	weightDecay float64
	t           int
	m           [][]float32
	v           [][]float32
}

func newAdam(params []*Parameter, lr, weightDecay float64) *adam {
	o := &adam{
		params:      params,
		lr:          lr,
		beta1:       0.9,
		beta2:       0.999,
		epsilon:     1e-8,
		weightDecay: weightDecay,
		m:           make([][]float32, len(params)),
		v:           make([][]float32, len(params)),
	}
	for i, p := range params {
		o.m[i] = make([]float32, len(p.Value))
		o.v[i] = make([]float32, len(p.Value))
	}
	return o
}

func (o *adam) Step() {
	o.t++
	biasCorr1 := 1 - math.Pow(o.beta1, float64(o.t))
	biasCorr2 := 1 - math.Pow(o.beta2, float64(o.t))
	for i, p := range o.params {
		for j := range p.Value {
			g := float64(p.Grad[j])
			m := o.beta1*float64(o.m[i][j]) + (1-o.beta1)*g
			v := o.beta2*float64(o.v[i][j]) + (1-o.beta2)*g*g
			o.m[i][j] = float32(m)
			o.v[i][j] = float32(v)

			mHat := m / biasCorr1
			vHat := v / biasCorr2
			update := o.lr * mHat / (math.Sqrt(vHat) + o.epsilon)
			if o.weightDecay > 0 {
				update += o.lr * o.weightDecay * float64(p.Value[j])
			}
			p.Value[j] -= float32(update)
		}
	}
}

func (o *adam) ZeroGrad() {
	for _, p := range o.params {
		p.ZeroGrad()
	}
}

func (o *adam) LearningRate() float64      { return o.lr }
func (o *adam) SetLearningRate(lr float64) { o.lr = lr }

// StepLR decays the learning rate by gamma every stepSize epochs, the
// schedule the pipeline has always trained with.
type StepLR struct {
	initial  float64
	stepSize int
	gamma    float64
}

// NewStepLR builds the default schedule: decay by 0.7 every 10 epochs.
func NewStepLR(initial float64) *StepLR {
	return &StepLR{initial: initial, stepSize: 10, gamma: 0.7}
}

// At returns the learning rate for a 0-indexed epoch.
func (s *StepLR) At(epoch int) float64 {
	return s.initial * math.Pow(s.gamma, float64(epoch/s.stepSize))
}

// Apply sets the optimizer's learning rate for the given epoch.
func (s *StepLR) Apply(opt Optimizer, epoch int) {
	opt.SetLearningRate(s.At(epoch))
}

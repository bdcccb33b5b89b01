package tsne

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/logging"
)

type Options struct {
	Components        int
	Perplexity        float64
	Iterations        int
	LearningRate      float64 // 0 selects max(n/EarlyExaggeration/4, 50)
	EarlyExaggeration float64
	ExaggerationIters int // 0 selects the default, negative disables
	Seed              uint64
	// MaxPoints bounds the input size; the exact method holds several n*n
	// matrices. 0 selects the default, negative removes the bound.
	MaxPoints int
}

// ErrTooManyPoints is returned for inputs larger than Options.MaxPoints.
var ErrTooManyPoints = errors.New("tsne: too many points")

func DefaultOptions() Options {
	return Options{
		Components:        3,
		Perplexity:        30,
		Iterations:        1000,
		EarlyExaggeration: 12,
		ExaggerationIters: 250,
		Seed:              42,
		MaxPoints:         DefaultMaxPoints,
	}
}

// DefaultMaxPoints keeps the pairwise matrices near 500 MB.
const DefaultMaxPoints = 4000

const (
	initialMomentum = 0.5
	finalMomentum   = 0.8
	minGain         = 0.01
	perplexityTol   = 1e-5
	perplexitySteps = 100
	minProbability  = 1e-12
)

type TSNE struct {
	opts Options
	log  *logging.Logger
}

// New fills zero fields of opts from DefaultOptions.
func New(opts Options, log *logging.Logger) *TSNE {
	def := DefaultOptions()
	if opts.Components <= 0 {
		opts.Components = def.Components
	}
	if opts.Perplexity <= 0 {
		opts.Perplexity = def.Perplexity
	}
	if opts.Iterations <= 0 {
		opts.Iterations = def.Iterations
	}
	if opts.EarlyExaggeration <= 0 {
		opts.EarlyExaggeration = def.EarlyExaggeration
	}
	switch {
	case opts.ExaggerationIters == 0:
		opts.ExaggerationIters = def.ExaggerationIters
	case opts.ExaggerationIters < 0:
		opts.ExaggerationIters = 0
	}
	if opts.MaxPoints == 0 {
		opts.MaxPoints = def.MaxPoints
	}
	return &TSNE{opts: opts, log: logging.OrNop(log)}
}

// Reduce embeds points into three dimensions.
func (t *TSNE) Reduce(ctx context.Context, points [][]float64) ([][3]float64, error) {
	opts := t.opts
	opts.Components = 3
	y, err := (&TSNE{opts: opts, log: t.log}).Embed(ctx, points)
	if err != nil {
		return nil, err
	}
	out := make([][3]float64, len(y))
	for i, row := range y {
		copy(out[i][:], row)
	}
	return out, nil
}

// Embed returns one row of Components coordinates per input point.
func (t *TSNE) Embed(ctx context.Context, points [][]float64) ([][]float64, error) {
	n := len(points)
	if n < 2 {
		return nil, errs.InsufficientData("tsne.Embed", fmt.Errorf("need at least 2 points, got %d", n))
	}
	if t.opts.MaxPoints > 0 && n > t.opts.MaxPoints {
		return nil, fmt.Errorf("%w: %d, limit %d", ErrTooManyPoints, n, t.opts.MaxPoints)
	}
	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim || dim == 0 {
			return nil, fmt.Errorf("tsne: point %d has dimension %d, want %d", i, len(p), dim)
		}
	}
	perplexity := EffectivePerplexity(t.opts.Perplexity, n)
	lr := t.opts.LearningRate
	if lr <= 0 {
		lr = math.Max(float64(n)/t.opts.EarlyExaggeration/4, 50)
	}
	t.log.Debug("tsne start", "points", n, "dims", dim, "perplexity", perplexity, "learning_rate", lr)

	p := jointProbabilities(squaredDistances(points), perplexity)
	return t.optimise(ctx, p, n, lr)
}

// EffectivePerplexity clamps perplexity to (n-1)/3 for small inputs, and to
// at least 1.
func EffectivePerplexity(perplexity float64, n int) float64 {
	limit := float64(n-1) / 3
	if perplexity > limit {
		perplexity = limit
	}
	if perplexity < 1 {
		perplexity = 1
	}
	return perplexity
}

func squaredDistances(points [][]float64) []float64 {
	n := len(points)
	d := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var s float64
			for k := range points[i] {
				diff := points[i][k] - points[j][k]
				s += diff * diff
			}
			d[i*n+j], d[j*n+i] = s, s
		}
	}
	return d
}

// jointProbabilities finds a Gaussian bandwidth per point matching the
// perplexity, then symmetrises the conditionals into P.
func jointProbabilities(d []float64, perplexity float64) []float64 {
	n := int(math.Sqrt(float64(len(d))))
	cond := make([]float64, n*n)
	target := math.Log(perplexity)
	row := make([]float64, n)
	for i := 0; i < n; i++ {
		beta, lo, hi := 1.0, math.Inf(-1), math.Inf(1)
		for step := 0; step < perplexitySteps; step++ {
			h := conditionalRow(d[i*n:(i+1)*n], i, beta, row)
			diff := h - target
			if math.Abs(diff) < perplexityTol {
				break
			}
			if diff > 0 {
				lo = beta
				if math.IsInf(hi, 1) {
					beta *= 2
				} else {
					beta = (beta + hi) / 2
				}
			} else {
				hi = beta
				if math.IsInf(lo, -1) {
					beta /= 2
				} else {
					beta = (beta + lo) / 2
				}
			}
		}
		conditionalRow(d[i*n:(i+1)*n], i, beta, row)
		copy(cond[i*n:(i+1)*n], row)
	}
	p := make([]float64, n*n)
	norm := 2 * float64(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			p[i*n+j] = math.Max((cond[i*n+j]+cond[j*n+i])/norm, minProbability)
		}
	}
	return p
}

// conditionalRow writes P(j|i) for bandwidth beta into row and returns the
// entropy of the distribution.
func conditionalRow(dist []float64, i int, beta float64, row []float64) float64 {
	minD := math.Inf(1)
	for j, v := range dist {
		if j != i && v < minD {
			minD = v
		}
	}
	var sum float64
	for j, v := range dist {
		if j == i {
			row[j] = 0
			continue
		}
		// shifting by the nearest distance keeps exp from underflowing
		row[j] = math.Exp(-(v - minD) * beta)
		sum += row[j]
	}
	var h float64
	for j := range row {
		if j == i {
			continue
		}
		row[j] /= sum
		if row[j] > 0 {
			h -= row[j] * math.Log(row[j])
		}
	}
	return h
}

func (t *TSNE) optimise(ctx context.Context, p []float64, n int, lr float64) ([][]float64, error) {
	c := t.opts.Components
	rng := rand.New(rand.NewPCG(t.opts.Seed, t.opts.Seed^0x9e3779b97f4a7c15))
	y := make([]float64, n*c)
	for i := range y {
		y[i] = rng.NormFloat64() * 1e-4
	}
	update := make([]float64, n*c)
	gains := make([]float64, n*c)
	for i := range gains {
		gains[i] = 1
	}
	grad := make([]float64, n*c)
	num := make([]float64, n*n)

	for iter := 0; iter < t.opts.Iterations; iter++ {
		if iter%50 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		exaggeration, momentum := 1.0, finalMomentum
		if iter < t.opts.ExaggerationIters {
			exaggeration, momentum = t.opts.EarlyExaggeration, initialMomentum
		}

		var z float64
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				var s float64
				for k := 0; k < c; k++ {
					diff := y[i*c+k] - y[j*c+k]
					s += diff * diff
				}
				q := 1 / (1 + s)
				num[i*n+j], num[j*n+i] = q, q
				z += 2 * q
			}
		}
		for i := range grad {
			grad[i] = 0
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				q := num[i*n+j]
				mult := 4 * (exaggeration*p[i*n+j] - q/z) * q
				for k := 0; k < c; k++ {
					grad[i*c+k] += mult * (y[i*c+k] - y[j*c+k])
				}
			}
		}
		for i := range y {
			if (grad[i] > 0) != (update[i] > 0) {
				gains[i] += 0.2
			} else {
				gains[i] *= 0.8
			}
			if gains[i] < minGain {
				gains[i] = minGain
			}
			update[i] = momentum*update[i] - lr*gains[i]*grad[i]
			y[i] += update[i]
		}
		center(y, n, c)
	}

	out := make([][]float64, n)
	for i := range out {
		out[i] = append([]float64(nil), y[i*c:(i+1)*c]...)
	}
	return out, nil
}

func center(y []float64, n, c int) {
	for k := 0; k < c; k++ {
		var mean float64
		for i := 0; i < n; i++ {
			mean += y[i*c+k]
		}
		mean /= float64(n)
		for i := 0; i < n; i++ {
			y[i*c+k] -= mean
		}
	}
}

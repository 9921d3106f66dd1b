package agent

import (
	"fmt"
	"math/rand"

	"nklandscape/internal/genotype"
	"nklandscape/internal/scape"
)

type Option func(*Agent)

// WithNormalizedPerception makes the agent compare normalized fitness values
// instead of raw ones. Noise is then expressed relative to the global
// maximum.
func WithNormalizedPerception(normalized bool) Option {
	return func(a *Agent) {
		a.normalized = normalized
	}
}

// Agent performs a greedy local search on a landscape. It knows the fitness
// of its own position exactly but perceives a candidate move with additive
// Gaussian error. An Agent and its random source belong to one goroutine.
type Agent struct {
	id         string
	rng        *rand.Rand
	dims       scape.Dimensions
	position   genotype.Genome
	errorMean  float64
	errorStd   float64
	normalized bool
}

// New creates an agent for landscapes built on m and places it at a random
// position.
func New(id string, rng *rand.Rand, m *scape.Matrix, errorMean, errorStd float64, opts ...Option) (*Agent, error) {
	if id == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if m == nil {
		return nil, fmt.Errorf("%w: matrix is nil", scape.ErrInvalidInterdependency)
	}
	if errorStd < 0 {
		return nil, fmt.Errorf("error std must be non-negative, got %v", errorStd)
	}
	if m.N() > scape.MaxGenes {
		return nil, fmt.Errorf("%w: %d genes exceed %d", scape.ErrInvalidParameters, m.N(), scape.MaxGenes)
	}

	a := &Agent{
		id:        id,
		rng:       rng,
		dims:      scape.DimensionsOf(m.Dense()),
		errorMean: errorMean,
		errorStd:  errorStd,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.position = a.RandomPosition()
	return a, nil
}

func (a *Agent) ID() string { return a.id }

func (a *Agent) N() int { return a.dims.N }

func (a *Agent) K() int { return a.dims.K }

func (a *Agent) ErrorMean() float64 { return a.errorMean }

func (a *Agent) ErrorStd() float64 { return a.errorStd }

// Position returns a copy of the current genome.
func (a *Agent) Position() genotype.Genome { return a.position.Clone() }

// SetPosition moves the agent to genome after validation.
func (a *Agent) SetPosition(genome genotype.Genome) error {
	if err := genome.Validate(a.dims.N); err != nil {
		return err
	}
	a.position = genome.Clone()
	return nil
}

func (a *Agent) String() string {
	return fmt.Sprintf(
		"Agent, operates on landscape with N = %d genes and K = %d interdependencies, makes errors with mean %v and std %v",
		a.dims.N, a.dims.K, a.errorMean, a.errorStd,
	)
}

// RandomPosition draws uniformly from the integers 0 .. 2^N-2. The all-ones
// genome is never drawn.
func (a *Agent) RandomPosition() genotype.Genome {
	upper := scape.CandidateCount(a.dims.N)
	var value uint64
	if upper > 1 {
		value = uint64(a.rng.Int63n(int64(upper)))
	}
	return genotype.Decode(value, a.dims.N)
}

// AlternativePositions returns count single-gene neighbours of the current
// position. Gene indices are drawn with replacement.
func (a *Agent) AlternativePositions(count int) ([]genotype.Genome, error) {
	if count < 1 {
		return nil, fmt.Errorf("alternative count must be positive, got %d", count)
	}
	options := make([]genotype.Genome, 0, count)
	for i := 0; i < count; i++ {
		option, err := a.position.Flip(a.rng.Intn(a.dims.N))
		if err != nil {
			return nil, err
		}
		options = append(options, option)
	}
	return options, nil
}

// Evolve takes one noisy hill-climbing step on sc and reports whether the
// agent moved. The current fitness is read without noise; the neighbour's
// fitness is perturbed by one sample from N(errorMean, errorStd).
func (a *Agent) Evolve(sc scape.Scape) (bool, error) {
	if sc == nil {
		return false, fmt.Errorf("scape is required")
	}
	if sc.N() != a.dims.N {
		return false, fmt.Errorf("%w: agent has %d genes, scape has %d", scape.ErrDimensionMismatch, a.dims.N, sc.N())
	}
	options, err := a.AlternativePositions(1)
	if err != nil {
		return false, err
	}
	current, err := sc.FitnessOfGenome(a.position, a.normalized)
	if err != nil {
		return false, fmt.Errorf("current position: %w", err)
	}
	candidate, err := sc.FitnessOfGenome(options[0], a.normalized)
	if err != nil {
		return false, fmt.Errorf("candidate position: %w", err)
	}
	if current < candidate+a.noise() {
		a.position = options[0]
		return true, nil
	}
	return false, nil
}

func (a *Agent) noise() float64 {
	return a.rng.NormFloat64()*a.errorStd + a.errorMean
}

package scape

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"nklandscape/internal/genotype"
)

const (
	// DefaultAlleles is the number of options per gene.
	DefaultAlleles = 2
	// MaxGenes bounds N so that every genome fits the enumeration integer.
	MaxGenes = 62
	// maxContributions bounds the contribution table size.
	maxContributions = 1 << 28
)

type landscapeOptions struct {
	ctx     context.Context
	alleles int
	workers int
}

type LandscapeOption func(*landscapeOptions)

// WithAlleles sets the options per gene used to size the contribution table.
// The fitness encoding stays binary regardless of this value.
func WithAlleles(alleles int) LandscapeOption {
	return func(o *landscapeOptions) {
		o.alleles = alleles
	}
}

// WithWorkers sets the parallelism of the global maximum search.
func WithWorkers(workers int) LandscapeOption {
	return func(o *landscapeOptions) {
		o.workers = workers
	}
}

// WithContext lets the caller abandon the exhaustive global maximum search.
func WithContext(ctx context.Context) LandscapeOption {
	return func(o *landscapeOptions) {
		o.ctx = ctx
	}
}

// Landscape is an NK fitness landscape. All state is fixed at construction,
// so a Landscape may be shared by concurrent readers.
type Landscape struct {
	matrix        *Matrix
	dims          Dimensions
	alleles       int
	contributions []float64
	lookup        [][]int

	globalMaxPosition genotype.Genome
	globalMaxFitness  float64
}

// NewLandscape validates m, samples a contribution table from rng and
// computes the global maximum by exhaustive search.
func NewLandscape(rng *rand.Rand, m *Matrix, opts ...LandscapeOption) (*Landscape, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrInvalidParameters)
	}
	l, cfg, err := newLandscape(m, opts)
	if err != nil {
		return nil, err
	}
	size, err := RequiredContributions(l.dims, l.alleles)
	if err != nil {
		return nil, err
	}
	l.contributions = make([]float64, size)
	for i := range l.contributions {
		l.contributions[i] = rng.Float64()
	}
	if err := l.computeGlobalMax(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// FromContributions builds a landscape over a fixed contribution table
// instead of a sampled one.
func FromContributions(m *Matrix, contributions []float64, opts ...LandscapeOption) (*Landscape, error) {
	l, cfg, err := newLandscape(m, opts)
	if err != nil {
		return nil, err
	}
	size, err := RequiredContributions(l.dims, l.alleles)
	if err != nil {
		return nil, err
	}
	if len(contributions) != size {
		return nil, fmt.Errorf("%w: got %d contributions, want %d", ErrInvalidParameters, len(contributions), size)
	}
	for i, c := range contributions {
		if c < 0 || c >= 1 {
			return nil, fmt.Errorf("%w: contribution %d is %v, want [0,1)", ErrInvalidParameters, i, c)
		}
	}
	l.contributions = append([]float64(nil), contributions...)
	if err := l.computeGlobalMax(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

func newLandscape(m *Matrix, opts []LandscapeOption) (*Landscape, landscapeOptions, error) {
	cfg := landscapeOptions{
		ctx:     context.Background(),
		alleles: DefaultAlleles,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if m == nil || m.dense == nil {
		return nil, cfg, fmt.Errorf("%w: matrix is nil", ErrInvalidInterdependency)
	}
	if err := ValidateMatrix(m.dense); err != nil {
		return nil, cfg, err
	}
	if cfg.alleles < 2 {
		return nil, cfg, fmt.Errorf("%w: %d", ErrInvalidAlleles, cfg.alleles)
	}
	if cfg.workers <= 0 {
		cfg.workers = 1
	}

	dims := m.Dimensions()
	if dims.N > MaxGenes {
		return nil, cfg, fmt.Errorf("%w: %d genes exceed the exhaustive search limit of %d", ErrInvalidParameters, dims.N, MaxGenes)
	}
	return &Landscape{
		matrix:  m,
		dims:    dims,
		alleles: cfg.alleles,
		lookup:  buildLookup(m),
	}, cfg, nil
}

// RequiredContributions returns N * alleles^(K+1).
func RequiredContributions(dims Dimensions, alleles int) (int, error) {
	size := dims.N
	for i := 0; i <= dims.K; i++ {
		size *= alleles
		if size > maxContributions {
			return 0, fmt.Errorf("%w: contribution table exceeds %d entries", ErrInvalidParameters, maxContributions)
		}
	}
	return size, nil
}

// buildLookup lists, per gene, the columns that influence it in ascending
// order.
func buildLookup(m *Matrix) [][]int {
	lookup := make([][]int, m.N())
	for i := range lookup {
		lookup[i] = make([]int, 0, m.K()+1)
		for j := 0; j < m.N(); j++ {
			if m.At(i, j) == 1 {
				lookup[i] = append(lookup[i], j)
			}
		}
	}
	return lookup
}

func (l *Landscape) Name() string { return "nk" }

func (l *Landscape) N() int { return l.dims.N }

func (l *Landscape) K() int { return l.dims.K }

func (l *Landscape) Dimensions() Dimensions { return l.dims }

func (l *Landscape) Alleles() int { return l.alleles }

func (l *Landscape) Matrix() *Matrix { return l.matrix }

func (l *Landscape) ContributionCount() int { return len(l.contributions) }

// Lookup returns a copy of the per-gene influence lists.
func (l *Landscape) Lookup() [][]int {
	out := make([][]int, len(l.lookup))
	for i, row := range l.lookup {
		out[i] = append([]int(nil), row...)
	}
	return out
}

func (l *Landscape) GlobalMaxPosition() genotype.Genome { return l.globalMaxPosition.Clone() }

func (l *Landscape) GlobalMaxFitness() float64 { return l.globalMaxFitness }

func (l *Landscape) String() string {
	return fmt.Sprintf("NK landscape with N = %d genes and K = %d interdependencies.", l.dims.N, l.dims.K)
}

// FitnessOfGene returns the contribution of gene idx under genome.
func (l *Landscape) FitnessOfGene(idx int, genome genotype.Genome, normalized bool) (float64, error) {
	if err := genome.Validate(l.dims.N); err != nil {
		return 0, err
	}
	if idx < 0 || idx >= l.dims.N {
		return 0, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidGene, idx, l.dims.N)
	}
	c := l.contribution(idx, genome)
	if normalized {
		return l.normalize(c), nil
	}
	return c, nil
}

// FitnessOfGenome returns the mean gene contribution of genome. Normalized
// fitness is divided by the global maximum fitness, so the cached maximizer
// scores exactly 1.
func (l *Landscape) FitnessOfGenome(genome genotype.Genome, normalized bool) (float64, error) {
	if err := genome.Validate(l.dims.N); err != nil {
		return 0, err
	}
	raw := l.rawFitness(genome)
	if normalized {
		return l.normalize(raw), nil
	}
	return raw, nil
}

// contribution treats each influencing allele as one bit of the pattern code.
func (l *Landscape) contribution(idx int, genome genotype.Genome) float64 {
	code := 0
	for _, j := range l.lookup[idx] {
		bit := 0
		if genome[j] == 1 {
			bit = 1
		}
		code = 2*code + bit
	}
	return l.contributions[l.dims.N*code+idx]
}

func (l *Landscape) rawFitness(genome genotype.Genome) float64 {
	sum := 0.0
	for i := 0; i < l.dims.N; i++ {
		sum += l.contribution(i, genome)
	}
	return sum / float64(l.dims.N)
}

// normalize leaves values untouched when no positive maximum was found.
func (l *Landscape) normalize(value float64) float64 {
	if l.globalMaxFitness <= 0 {
		return value
	}
	return value / l.globalMaxFitness
}

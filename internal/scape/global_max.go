package scape

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"nklandscape/internal/genotype"
)

// cancelCheckInterval is how many candidates a worker evaluates between
// context checks.
const cancelCheckInterval = 1 << 12

// Optimum is the best genome found by an exhaustive search.
type Optimum struct {
	Position genotype.Genome
	Fitness  float64
	Value    uint64
	Found    bool
}

// better applies the strict greater-than rule; on ties the earlier
// candidate is kept.
func (o Optimum) better(candidate Optimum) bool {
	return candidate.Found && candidate.Fitness > o.Fitness
}

// CandidateCount returns how many genomes the exhaustive search visits:
// the integers 0 .. 2^n-2. The all-ones genome 2^n-1 is not a candidate.
func CandidateCount(n int) uint64 {
	return genotype.MaxEncodable(n)
}

// SearchGlobalMax enumerates candidate genomes 0 .. 2^n-2 (MSB-first
// decoding) and returns the first genome whose fitness is strictly greater
// than every earlier one, starting from a best fitness of 0.
//
// The candidate range is split into contiguous chunks reduced by up to
// workers goroutines; chunk results are merged in ascending order with the
// same strict rule, so the result matches a sequential scan.
func SearchGlobalMax(ctx context.Context, n, workers int, fitness func(genotype.Genome) float64) (Optimum, error) {
	if n <= 0 || n > MaxGenes {
		return Optimum{}, fmt.Errorf("%w: gene count %d not in [1,%d]", ErrInvalidParameters, n, MaxGenes)
	}
	if workers <= 0 {
		workers = 1
	}
	total := CandidateCount(n)
	if total == 0 {
		return Optimum{Position: genotype.Genome{}}, nil
	}

	chunks := uint64(workers) * 4
	if chunks > total {
		chunks = total
	}
	chunkSize := (total + chunks - 1) / chunks
	chunks = (total + chunkSize - 1) / chunkSize

	results := make([]Optimum, chunks)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := uint64(0); c < chunks; c++ {
		c := c
		start := c * chunkSize
		end := start + chunkSize
		if end > total {
			end = total
		}
		g.Go(func() error {
			best, err := scanRange(gctx, n, start, end, fitness)
			if err != nil {
				return err
			}
			results[c] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Optimum{}, err
	}

	best := Optimum{Position: genotype.Genome{}}
	for _, candidate := range results {
		if best.better(candidate) {
			best = candidate
		}
	}
	return best, nil
}

func scanRange(ctx context.Context, n int, start, end uint64, fitness func(genotype.Genome) float64) (Optimum, error) {
	best := Optimum{}
	buf := make(genotype.Genome, n)
	for v := start; v < end; v++ {
		if (v-start)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Optimum{}, err
			}
		}
		genotype.DecodeInto(buf, v)
		if f := fitness(buf); f > best.Fitness {
			best = Optimum{Position: buf.Clone(), Fitness: f, Value: v, Found: true}
		}
	}
	return best, nil
}

// GlobalMax returns the cached maximizer and its raw fitness.
func (l *Landscape) GlobalMax() (genotype.Genome, float64) {
	return l.GlobalMaxPosition(), l.globalMaxFitness
}

func (l *Landscape) computeGlobalMax(cfg landscapeOptions) error {
	best, err := SearchGlobalMax(cfg.ctx, l.dims.N, cfg.workers, l.rawFitness)
	if err != nil {
		return fmt.Errorf("global maximum search: %w", err)
	}
	l.globalMaxPosition = best.Position
	l.globalMaxFitness = best.Fitness
	return nil
}

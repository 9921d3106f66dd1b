package genotype

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGenome = errors.New("invalid genome")
	ErrInvalidBit    = errors.New("bit must be one or zero")
)

// Genome is an ordered sequence of allele values, one per gene.
type Genome []int

// Clone returns an independent copy of the genome.
func (g Genome) Clone() Genome {
	if g == nil {
		return nil
	}
	return append(Genome(nil), g...)
}

func (g Genome) String() string {
	var b strings.Builder
	b.Grow(len(g))
	for _, allele := range g {
		fmt.Fprintf(&b, "%d", allele)
	}
	return b.String()
}

// Validate reports ErrInvalidGenome unless the genome has n genes and every
// allele is 0 or 1.
func (g Genome) Validate(n int) error {
	if len(g) != n {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidGenome, len(g), n)
	}
	for i, allele := range g {
		if allele != 0 && allele != 1 {
			return fmt.Errorf("%w: gene %d has allele %d", ErrInvalidGenome, i, allele)
		}
	}
	return nil
}

// FlipBit maps 0 to 1 and 1 to 0.
func FlipBit(bit int) (int, error) {
	switch bit {
	case 0:
		return 1, nil
	case 1:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: got %d", ErrInvalidBit, bit)
	}
}

// Flip returns a copy of the genome with gene idx flipped.
func (g Genome) Flip(idx int) (Genome, error) {
	if idx < 0 || idx >= len(g) {
		return nil, fmt.Errorf("%w: gene index %d out of range [0,%d)", ErrInvalidGenome, idx, len(g))
	}
	flipped, err := FlipBit(g[idx])
	if err != nil {
		return nil, fmt.Errorf("flip gene %d: %w", idx, err)
	}
	out := g.Clone()
	out[idx] = flipped
	return out, nil
}

// MaxEncodable returns 2^n - 1, the value of the all-ones genome of width n.
func MaxEncodable(n int) uint64 {
	return uint64(1)<<uint(n) - 1
}

// Decode writes value as an n-bit genome, most significant bit first and
// zero-padded to width n.
func Decode(value uint64, n int) Genome {
	g := make(Genome, n)
	DecodeInto(g, value)
	return g
}

// DecodeInto overwrites dst with the len(dst)-bit encoding of value.
func DecodeInto(dst Genome, value uint64) {
	n := len(dst)
	for i := 0; i < n; i++ {
		dst[i] = int((value >> uint(n-1-i)) & 1)
	}
}

// Encode is the inverse of Decode.
func Encode(g Genome) (uint64, error) {
	if len(g) > 63 {
		return 0, fmt.Errorf("%w: %d genes exceed encodable width", ErrInvalidGenome, len(g))
	}
	if err := g.Validate(len(g)); err != nil {
		return 0, err
	}
	var value uint64
	for _, allele := range g {
		value = value<<1 | uint64(allele)
	}
	return value, nil
}

package scape

import "nklandscape/internal/genotype"

// Scape is a fixed fitness function over binary genomes. Implementations are
// read-only after construction and safe for concurrent evaluation.
type Scape interface {
	Name() string
	N() int
	FitnessOfGenome(genome genotype.Genome, normalized bool) (float64, error)
}

// Dimensions holds the gene count N and the interdependency count K of an
// interdependency structure.
type Dimensions struct {
	N int `json:"n"`
	K int `json:"k"`
}

package scape

import "errors"

var (
	ErrInvalidInterdependency = errors.New("invalid interdependency structure")
	ErrInvalidParameters      = errors.New("invalid parameters")
	ErrRepairExhausted        = errors.New("no valid repair found")
	ErrInvalidGene            = errors.New("invalid gene index")
	ErrInvalidAlleles         = errors.New("invalid allele count")
	ErrDimensionMismatch      = errors.New("dimension mismatch")
)

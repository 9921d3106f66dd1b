package genotype

import (
	"fmt"
	"math/rand"
)

// RandomElement picks one value uniformly with the supplied RNG.
func RandomElement[T any](rng *rand.Rand, values []T) (T, error) {
	var zero T
	if len(values) == 0 {
		return zero, fmt.Errorf("values are required")
	}
	if rng == nil {
		return zero, fmt.Errorf("random source is required")
	}
	return values[rng.Intn(len(values))], nil
}

// SampleWithoutReplacement draws count distinct values from pool.
func SampleWithoutReplacement[T any](rng *rand.Rand, pool []T, count int) ([]T, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if count < 0 || count > len(pool) {
		return nil, fmt.Errorf("cannot sample %d values from %d", count, len(pool))
	}
	shuffled := append([]T(nil), pool...)
	for i := 0; i < count; i++ {
		j := i + rng.Intn(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:count], nil
}

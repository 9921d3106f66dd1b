package scape

import (
	"fmt"
	"sort"

	"nklandscape/internal/scapeid"
)

var presets = map[string]func() [][]int{
	// Each gene depends on exactly one partner.
	"pairwise-6": func() [][]int {
		return [][]int{
			{1, 0, 0, 0, 1, 0},
			{0, 1, 0, 0, 0, 1},
			{1, 0, 1, 0, 0, 0},
			{0, 1, 0, 1, 0, 0},
			{0, 0, 1, 0, 1, 0},
			{0, 0, 0, 1, 0, 1},
		}
	},
	"ring-5-2":   func() [][]int { return circulantRows(5, 2) },
	"block-8":    func() [][]int { return blockRows(8, 2) },
	"full-4":     func() [][]int { return circulantRows(4, 3) },
	"identity-4": func() [][]int { return circulantRows(4, 0) },
}

// Preset returns the predefined interdependency matrix registered under name.
// Names are normalized with scapeid.Normalize.
func Preset(name string) (*Matrix, error) {
	build, ok := presets[scapeid.Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown matrix preset %q", ErrInvalidParameters, name)
	}
	return NewMatrix(build())
}

// PresetNames lists registered preset names in lexical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// circulantRows links gene i to genes i+1..i+k (mod n).
func circulantRows(n, k int) [][]int {
	rows := make([][]int, n)
	for i := range rows {
		rows[i] = make([]int, n)
		for d := 0; d <= k; d++ {
			rows[i][(i+d)%n] = 1
		}
	}
	return rows
}

// blockRows builds independent fully connected blocks of the given size.
func blockRows(n, size int) [][]int {
	rows := make([][]int, n)
	for i := range rows {
		rows[i] = make([]int, n)
		start := (i / size) * size
		for j := start; j < start+size && j < n; j++ {
			rows[i][j] = 1
		}
	}
	return rows
}

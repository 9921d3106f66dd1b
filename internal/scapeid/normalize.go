package scapeid

import "strings"

// Random is the canonical name that requests a generated matrix instead of a
// predefined one.
const Random = "random"

// Normalize canonicalizes matrix preset names and their short aliases.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	if canonical, ok := normalizeKnownAlias(normalized); ok {
		return canonical
	}
	return normalized
}

func normalizeKnownAlias(normalized string) (string, bool) {
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalPresetName(candidate); ok {
			return canonical, true
		}
	}
	return "", false
}

func aliasCandidates(normalized string) []string {
	candidate := strings.TrimPrefix(normalized, "matrix-")
	if candidate == normalized {
		candidate = strings.TrimPrefix(candidate, "matrix")
	}
	candidate = strings.Trim(candidate, "-")

	candidates := []string{normalized}
	if candidate != "" && candidate != normalized {
		candidates = append(candidates, candidate)
	}
	return candidates
}

func canonicalPresetName(alias string) (string, bool) {
	switch alias {
	case Random, "pairwise-6", "ring-5-2", "block-8", "full-4", "identity-4":
		return alias, true
	}

	compact := strings.ReplaceAll(alias, "-", "")
	switch compact {
	case "random", "rand", "generated":
		return Random, true
	case "pairwise6", "pairwise":
		return "pairwise-6", true
	case "ring52", "ring", "circulant":
		return "ring-5-2", true
	case "block8", "block", "blockdiagonal":
		return "block-8", true
	case "full4", "full", "dense":
		return "full-4", true
	case "identity4", "identity", "independent":
		return "identity-4", true
	default:
		return "", false
	}
}

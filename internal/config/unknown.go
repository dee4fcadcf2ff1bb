package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys are the valid top-level keys in the config file. They
// correspond to fields in the embedded sub-config structs.
var knownKeys = map[string]bool{
	// Server
	"api_url": true, "request_timeout": true, "user_agent": true,
	// Credentials
	"credential_store": true, "credential_path": true,
	// Logging
	"log_level": true, "log_format": true,
	// Display
	"language": true, "currency": true,
}

// knownKeysList is the sorted slice form of knownKeys for Levenshtein
// matching, so ties resolve deterministically.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	seen := make(map[string]bool)

	for _, key := range md.Undecoded() {
		// A table such as [server] reports both "server" and "server.x";
		// one error per top-level name is enough.
		name, _, _ := strings.Cut(key.String(), ".")
		if seen[name] {
			continue
		}

		seen[name] = true
		errs = append(errs, unknownKeyError(name))
	}

	return errors.Join(errs...)
}

// unknownKeyError describes an unknown key, suggesting the closest known
// key when one is near enough.
func unknownKeyError(name string) error {
	if suggestion := closestMatch(name, knownKeysList); suggestion != "" {
		return fmt.Errorf("config: unknown key %q, did you mean %q?", name, suggestion)
	}

	return fmt.Errorf("config: unknown key %q", name)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"clutchtime/utils"
)

// SaveGameIDs writes the deduplicated, sorted identifier array to a single
// flat binary file, creating parent directories as needed. Sorting keeps the
// encoded bytes deterministic for a given identifier set.
func SaveGameIDs(path string, ids []string) error {
	deduped := Dedupe(ids)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return utils.ErrorWithTrace(err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(deduped); err != nil {
		return utils.ErrorWithTrace(err)
	}
	return nil
}

// LoadGameIDs reads a previously saved identifier array back verbatim.
// Identifiers are never validated or refreshed once written.
func LoadGameIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	defer f.Close()
	ids := []string{}
	if err := gob.NewDecoder(f).Decode(&ids); err != nil {
		return nil, utils.ErrorWithTrace(fmt.Errorf("decoding identifier cache %s: %w", path, err))
	}
	return ids, nil
}

// Dedupe returns the sorted set of ids. Unioning a slice with itself yields
// the same output.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	deduped := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	sort.Strings(deduped)
	return deduped
}

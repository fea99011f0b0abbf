package tests

import (
	"encoding/json"
	"fmt"
	"os"
)

// testEntry is the on-disk shape of one test descriptor.
type testEntry struct {
	Package string   `json:"package"`
	Name    string   `json:"name"`
	Tags    []string `json:"tags,omitempty"`
}

// LoadList reads a test list from a JSON file.
//
// The file holds an array of objects with required "package" and "name"
// fields and an optional "tags" array. Order is preserved: the position of a
// test in the file is its discovery order. Duplicate package/name pairs are
// rejected because every downstream component keys state by test identity.
func LoadList(path string) ([]TestID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test list: %w", err)
	}

	list, err := ParseList(data)
	if err != nil {
		return nil, fmt.Errorf("test list %s: %w", path, err)
	}
	return list, nil
}

// ParseList parses a JSON test-list document.
func ParseList(data []byte) ([]TestID, error) {
	var entries []testEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	ids := make([]TestID, 0, len(entries))
	for i, e := range entries {
		if e.Package == "" {
			return nil, fmt.Errorf("entry %d: missing required field \"package\"", i)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("entry %d: missing required field \"name\"", i)
		}

		id := TestID{Package: e.Package, Name: e.Name, Tags: e.Tags}
		if seen[id.Key()] {
			return nil, fmt.Errorf("entry %d: duplicate test %s", i, id)
		}
		seen[id.Key()] = true
		ids = append(ids, id)
	}

	return ids, nil
}

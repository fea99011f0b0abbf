// Package tests provides test identities and the test-list loader.
//
// Testyl does not discover or compile tests. An external discovery component
// produces a test list (a JSON array of test descriptors); this package loads
// that list and preserves its order, which is the discovery order the
// scheduler uses for admission tie-breaking.
package tests

import "fmt"

// TestID is the immutable identity of a single test. Created at load time,
// never mutated, lives for the duration of a run.
type TestID struct {
	Package string   // Owning package or suite name
	Name    string   // Test name within the package
	Tags    []string // Declared tags, may be empty
}

// String returns the canonical "package::name" form used in all reporting.
func (id TestID) String() string {
	return fmt.Sprintf("%s::%s", id.Package, id.Name)
}

// Key returns a stable map key for the test. Two tests with the same package
// and name are the same test; tags do not contribute to identity.
func (id TestID) Key() string {
	return id.String()
}

// HasTag reports whether the test declares the given tag (exact match).
func (id TestID) HasTag(tag string) bool {
	for _, t := range id.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Package filter implements the override filter expression language.
//
// A filter expression selects tests by their metadata:
//
//	test(substr)    matches when the test name contains substr
//	package(name)   matches when the test's package equals name exactly
//	tag(name)       matches when the test declares the tag name exactly
//	all()           matches every test
//
// Expressions compose with "and", "or", "not" and parentheses:
//
//	package(estimator) and not test(test_slow)
//
// The empty expression matches all tests. Expressions are parsed once at
// profile load time into a typed AST; matching never re-parses and never
// fails. Whether test() uses substring or exact matching is a fixed,
// documented contract: it is substring containment, covered by the test
// suite.
package filter

import (
	"strings"

	"github.com/AndreyAkinshin/testyl/internal/tests"
)

// Expr is a parsed filter expression node. Matching is pure: no side
// effects, no failure modes.
type Expr interface {
	Matches(id tests.TestID) bool
	// String renders the node back into expression syntax.
	String() string
}

// All matches every test. The empty expression parses to All.
type All struct{}

func (All) Matches(tests.TestID) bool { return true }
func (All) String() string            { return "all()" }

// TestName matches tests whose name contains the given substring.
type TestName struct {
	Substr string
}

func (e TestName) Matches(id tests.TestID) bool {
	return strings.Contains(id.Name, e.Substr)
}

func (e TestName) String() string { return "test(" + e.Substr + ")" }

// Package matches tests whose package name equals the given name exactly.
type Package struct {
	Name string
}

func (e Package) Matches(id tests.TestID) bool {
	return id.Package == e.Name
}

func (e Package) String() string { return "package(" + e.Name + ")" }

// Tag matches tests that declare the given tag exactly.
type Tag struct {
	Name string
}

func (e Tag) Matches(id tests.TestID) bool {
	return id.HasTag(e.Name)
}

func (e Tag) String() string { return "tag(" + e.Name + ")" }

// And matches when both operands match.
type And struct {
	Left, Right Expr
}

func (e And) Matches(id tests.TestID) bool {
	return e.Left.Matches(id) && e.Right.Matches(id)
}

func (e And) String() string {
	return "(" + e.Left.String() + " and " + e.Right.String() + ")"
}

// Or matches when either operand matches.
type Or struct {
	Left, Right Expr
}

func (e Or) Matches(id tests.TestID) bool {
	return e.Left.Matches(id) || e.Right.Matches(id)
}

func (e Or) String() string {
	return "(" + e.Left.String() + " or " + e.Right.String() + ")"
}

// Not matches when the operand does not match.
type Not struct {
	Expr Expr
}

func (e Not) Matches(id tests.TestID) bool {
	return !e.Expr.Matches(id)
}

func (e Not) String() string { return "not " + e.Expr.String() }

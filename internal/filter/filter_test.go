package filter

import (
	"errors"
	"strings"
	"testing"

	"github.com/AndreyAkinshin/testyl/internal/tests"
)

var (
	estimatorTest = tests.TestID{Package: "estimator", Name: "test_full_estimator", Tags: []string{"slow"}}
	chainTest     = tests.TestID{Package: "chain", Name: "test_sync"}
)

func TestParse_Matching(t *testing.T) {
	t.Parallel()
	cases := []struct {
		expr string
		id   tests.TestID
		want bool
	}{
		// test() is substring containment, a fixed contract.
		{"test(test_full_estimator)", estimatorTest, true},
		{"test(full_estimator)", estimatorTest, true},
		{"test(estimator)", chainTest, false},
		{"test(sync)", chainTest, true},

		// package() is exact.
		{"package(estimator)", estimatorTest, true},
		{"package(estim)", estimatorTest, false},
		{"package(chain)", chainTest, true},

		// tag() is exact against the declared tag set.
		{"tag(slow)", estimatorTest, true},
		{"tag(slow)", chainTest, false},
		{"tag(slo)", estimatorTest, false},

		// all() and the empty expression match everything.
		{"all()", chainTest, true},
		{"", chainTest, true},
		{"   ", estimatorTest, true},

		// Combinators.
		{"package(estimator) and test(full)", estimatorTest, true},
		{"package(estimator) and test(sync)", estimatorTest, false},
		{"package(estimator) or package(chain)", chainTest, true},
		{"not package(chain)", estimatorTest, true},
		{"not package(chain)", chainTest, false},
		{"not not package(chain)", chainTest, true},

		// Precedence: and binds tighter than or.
		{"package(chain) or package(estimator) and tag(slow)", chainTest, true},
		{"package(chain) or package(estimator) and tag(missing)", estimatorTest, false},

		// Parentheses override precedence.
		{"(package(chain) or package(estimator)) and tag(slow)", chainTest, false},
		{"(package(chain) or package(estimator)) and tag(slow)", estimatorTest, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.expr+"/"+tc.id.Name, func(t *testing.T) {
			t.Parallel()
			expr, err := Parse(tc.expr)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tc.expr, err)
			}
			if got := expr.Matches(tc.id); got != tc.want {
				t.Errorf("Parse(%q).Matches(%s) = %v, want %v", tc.expr, tc.id, got, tc.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		expr    string
		wantErr string
	}{
		{"bogus(x)", `unknown filter function "bogus"`},
		{"test()", "test() requires an argument"},
		{"package()", "package() requires an argument"},
		{"tag()", "tag() requires an argument"},
		{"all(x)", "all() takes no argument"},
		{"test(abc", "unterminated argument"},
		{"(test(a)", "missing closing parenthesis"},
		{"test(a) and", "unexpected end of expression"},
		{"not", "unexpected end of expression"},
		{"test(a) test(b)", "unexpected trailing input"},
		{"and test(a)", "expected '(' after \"and\""},
		{"test", "expected '(' after \"test\""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.expr, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tc.expr)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tc.expr)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse(%q) error type = %T, want *ParseError", tc.expr, err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Parse(%q) error = %q, want it to contain %q", tc.expr, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestMatches_Pure(t *testing.T) {
	t.Parallel()
	expr, err := Parse("package(estimator) and not tag(skip)")
	if err != nil {
		t.Fatal(err)
	}

	// Repeated matching with unchanged inputs yields identical results.
	first := expr.Matches(estimatorTest)
	for i := 0; i < 100; i++ {
		if got := expr.Matches(estimatorTest); got != first {
			t.Fatalf("iteration %d: Matches() = %v, want %v", i, got, first)
		}
	}
}

func TestExpr_String(t *testing.T) {
	t.Parallel()
	cases := []struct {
		expr string
		want string
	}{
		{"test(a)", "test(a)"},
		{"test(a) and package(b)", "(test(a) and package(b))"},
		{"not tag(x)", "not tag(x)"},
		{"", "all()"},
	}

	for _, tc := range cases {
		expr, err := Parse(tc.expr)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tc.expr, err)
		}
		if got := expr.String(); got != tc.want {
			t.Errorf("Parse(%q).String() = %q, want %q", tc.expr, got, tc.want)
		}
	}
}

package markov

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func TestBuildCountsSuccessors(t *testing.T) {
	clause := Clause{"the", "cat", "sat", "on", "the", "mat", "."}
	b, err := BuildSlice([]Clause{clause}, 2)
	if err != nil {
		t.Fatalf("BuildSlice() error = %v", err)
	}

	testCases := []struct {
		prefix    Prefix
		want      []Successor
		wantTotal int
	}{
		{Prefix{"the"}, []Successor{{"cat", 1}, {"mat", 1}}, 2},
		{Prefix{"cat"}, []Successor{{"sat", 1}}, 1},
		{Prefix{"sat"}, []Successor{{"on", 1}}, 1},
		{Prefix{"on"}, []Successor{{"the", 1}}, 1},
		{Prefix{"mat"}, []Successor{{".", 1}}, 1},
		{Prefix{"dog"}, nil, 0},
	}
	for _, tc := range testCases {
		got, total := b.Successors(tc.prefix)
		if !reflect.DeepEqual(got, tc.want) || total != tc.wantTotal {
			t.Errorf("Successors(%s) = %v, %d; want %v, %d", tc.prefix, got, total, tc.want, tc.wantTotal)
		}
	}
	if b.Len() != 5 {
		t.Errorf("Len() = %d, want 5", b.Len())
	}
	if len(b.Starters()) != 0 {
		t.Errorf("expected no sentence starters, got %v", b.Starters())
	}
}

func TestBuildFrequencies(t *testing.T) {
	clauses := []Clause{
		{".", "a", "b", "c", "."},
		{".", "a", "b", "d", "."},
		{".", "a", "b", "c", "."},
	}
	b, err := BuildSlice(clauses, 3)
	if err != nil {
		t.Fatalf("BuildSlice() error = %v", err)
	}
	got, total := b.Successors(Prefix{"a", "b"})
	want := []Successor{{"c", 2}, {"d", 1}}
	if !reflect.DeepEqual(got, want) || total != 3 {
		t.Errorf("Successors(a b) = %v, %d; want %v, 3", got, total, want)
	}
	if starters := b.Starters(); len(starters) != 1 || !slices.Equal(starters[0], Prefix{".", "a"}) {
		t.Errorf("Starters() = %v, want [(. a)]", starters)
	}
}

func TestBuildPrefixLength(t *testing.T) {
	clauses := readTestClauses(t, "the quick brown fox jumps over the lazy dog.\nthe dog sleeps.\nfoxes run.\n")
	for n := 2; n <= 5; n++ {
		t.Run(fmt.Sprintf("Order%d", n), func(t *testing.T) {
			b, err := BuildSlice(clauses, n)
			if err != nil {
				t.Fatalf("BuildSlice() error = %v", err)
			}
			if b.N() != n {
				t.Errorf("N() = %d, want %d", b.N(), n)
			}
			for _, p := range b.Prefixes() {
				if len(p) != n-1 {
					t.Errorf("prefix %s has length %d, want %d", p, len(p), n-1)
				}
			}
			// Every window of n tokens is a (prefix, successor) pair.
			for _, clause := range clauses {
				for i := 0; i+n <= len(clause); i++ {
					prefix := Prefix(clause[i : i+n-1])
					next := clause[i+n-1]
					succ, _ := b.Successors(prefix)
					if !slices.ContainsFunc(succ, func(s Successor) bool { return s.Token == next }) {
						t.Errorf("window %q -> %q missing from bank", prefix, next)
					}
				}
			}
		})
	}
}

func TestBuildOrderIndependent(t *testing.T) {
	clauses := readTestClauses(t, "a b c.\nb c a.\nc a b.\na b d.\n")
	reversed := slices.Clone(clauses)
	slices.Reverse(reversed)

	b1, err := BuildSlice(clauses, 2)
	if err != nil {
		t.Fatalf("BuildSlice() error = %v", err)
	}
	b2, err := BuildSlice(reversed, 2)
	if err != nil {
		t.Fatalf("BuildSlice() error = %v", err)
	}
	if !reflect.DeepEqual(b1.Exported(), b2.Exported()) {
		t.Error("banks built from the same clauses in different order differ")
	}
}

func TestBuildErrors(t *testing.T) {
	testCases := []struct {
		name    string
		clauses []Clause
		n       int
		wantErr error
	}{
		{"Empty corpus", nil, 2, ErrEmptyModel},
		{"Clauses shorter than n", []Clause{{".", "hi"}, {"."}}, 3, ErrEmptyModel},
		{"Order too small", []Clause{{".", "a", "b", "."}}, 1, ErrInvalidOrder},
		{"Token with a space", []Clause{{".", "a b", "c", "."}, {".", "a", "b c", "."}}, 3, ErrInvalidToken},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := BuildSlice(tc.clauses, tc.n)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
			if b != nil {
				t.Error("expected a nil bank on error")
			}
		})
	}
}

func TestBankLookupRejectsMismatchedPrefixes(t *testing.T) {
	b, err := BuildSlice([]Clause{{".", "a", "b", "c", "."}}, 3)
	if err != nil {
		t.Fatalf("BuildSlice() error = %v", err)
	}
	testCases := []struct {
		name   string
		prefix Prefix
		want   bool
	}{
		{"Known prefix", Prefix{"a", "b"}, true},
		{"Joined tokens", Prefix{"a b"}, false},
		{"Space inside a token", Prefix{"a", "b c"}, false},
		{"Too long", Prefix{".", "a", "b"}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.Contains(tc.prefix); got != tc.want {
				t.Errorf("Contains(%s) = %v, want %v", tc.prefix, got, tc.want)
			}
			if succ, _ := b.Successors(tc.prefix); (succ != nil) != tc.want {
				t.Errorf("Successors(%s) = %v", tc.prefix, succ)
			}
		})
	}
}

func TestBuildSkipsShortClauses(t *testing.T) {
	b, err := BuildSlice([]Clause{{".", "x"}, {".", "a", "b", "."}}, 3)
	if err != nil {
		t.Fatalf("BuildSlice() error = %v", err)
	}
	if b.Contains(Prefix{".", "x"}) {
		t.Error("clause shorter than n contributed a prefix")
	}
	if !b.Contains(Prefix{".", "a"}) {
		t.Error("expected prefix (. a)")
	}
}

func TestStats(t *testing.T) {
	b := newTestBank(t, fishCorpus, 3)
	got := b.Stats()
	want := Stats{
		Order:          3,
		Prefixes:       8,
		Chains:         8,
		TotalFrequency: 8,
		Starters:       2,
		Vocabulary:     6, // . one fish two red blue
	}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestPrune(t *testing.T) {
	clauses := readTestClauses(t, "a b c.\na b d.\n")
	b, err := BuildSlice(clauses, 2)
	if err != nil {
		t.Fatalf("BuildSlice() error = %v", err)
	}
	// (.)->a and (a)->b have freq 2, every other link freq 1.
	pruned, err := b.Prune(1)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned.Len() != 2 {
		t.Errorf("pruned Len() = %d, want 2", pruned.Len())
	}
	if got, _ := pruned.Successors(Prefix{"b"}); got != nil {
		t.Errorf("expected (b) to be pruned, got %v", got)
	}
	if len(pruned.Starters()) != 1 {
		t.Errorf("expected the (.) starter to survive, got %v", pruned.Starters())
	}
	if b.Len() != 5 {
		t.Errorf("Prune modified the original bank: Len() = %d, want 5", b.Len())
	}

	if _, err := b.Prune(2); !errors.Is(err, ErrEmptyModel) {
		t.Errorf("expected ErrEmptyModel when pruning everything, got %v", err)
	}
}

func TestExport(t *testing.T) {
	b := newTestBank(t, "a b.\n", 2)
	var sb strings.Builder
	if err := b.Export(&sb); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := sb.String()
	for _, want := range []string{`"n": 2`, `"prefix": [`, `"token": "b"`, `"freq": 1`} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %s:\n%s", want, out)
		}
	}

	exported := b.Exported()
	if len(exported.Chains) != 3 {
		t.Fatalf("expected 3 chains, got %d", len(exported.Chains))
	}
	if !slices.Equal(exported.Chains[0].Prefix, []Token{"."}) {
		t.Errorf("chains not sorted by prefix: first is %q", exported.Chains[0].Prefix)
	}
}

func BenchmarkBuild(b *testing.B) {
	corpus := createBenchmarkCorpus()
	clauses, err := NewTokenizer(WithMode(ModeLine)).ReadClauses(strings.NewReader(corpus))
	if err != nil {
		b.Fatalf("ReadClauses() setup for benchmark failed: %v", err)
	}

	for _, n := range []int{2, 3, 4, 5} {
		b.Run(fmt.Sprintf("Order%d", n), func(b *testing.B) {
			b.SetBytes(int64(len(corpus)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := BuildSlice(clauses, n); err != nil {
					b.Fatalf("BuildSlice() failed: %v", err)
				}
			}
		})
	}
}

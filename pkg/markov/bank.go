package markov

import (
	"fmt"
	"iter"
	"slices"
	"sort"
)

// Successor is one observed continuation of a prefix and how often it was seen.
type Successor struct {
	Token Token
	Freq  int
}

// chain holds the successors of one prefix, sorted by token.
type chain struct {
	prefix Prefix
	next   []Successor
	total  int
}

// Bank maps every (n-1)-token prefix seen in a corpus to the weighted set of
// tokens that followed it. A Bank is read-only once built and safe for
// concurrent use.
type Bank struct {
	n        int
	chains   map[string]*chain
	prefixes []Prefix // sorted
	starters []Prefix // sorted, prefixes beginning with the Delimiter
}

// BuildSlice is Build over a slice of clauses.
func BuildSlice(clauses []Clause, n int) (*Bank, error) {
	return Build(slices.Values(clauses), n)
}

// Build creates an order-n Bank from clauses. Each clause seeds a window with
// its first n-1 tokens; every following token is recorded as a successor of
// the window, which then slides forward by one. Clauses shorter than n add
// nothing. Build returns ErrInvalidOrder for n < 2, ErrInvalidToken for a
// token containing a space and ErrEmptyModel when no clause was long enough.
//
// The result depends only on how often each n-gram occurs, not on the order
// of the clauses.
func Build(clauses iter.Seq[Clause], n int) (*Bank, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, n)
	}
	k := n - 1

	counts := make(map[string]map[Token]int)
	prefixes := make(map[string]Prefix)

	window := make(Prefix, 0, k)
	for clause := range clauses {
		for _, tok := range clause {
			if tok.hasSpace() {
				return nil, fmt.Errorf("%w: %q", ErrInvalidToken, tok)
			}
		}
		if len(clause) < n {
			continue
		}
		window = append(window[:0], clause[:k]...)
		for _, next := range clause[k:] {
			key := window.key()
			succ, ok := counts[key]
			if !ok {
				succ = make(map[Token]int)
				counts[key] = succ
				prefixes[key] = slices.Clone(window)
			}
			succ[next]++

			copy(window, window[1:])
			window[k-1] = next
		}
	}

	if len(counts) == 0 {
		return nil, ErrEmptyModel
	}

	b := &Bank{n: n, chains: make(map[string]*chain, len(counts))}
	for key, succ := range counts {
		c := &chain{prefix: prefixes[key], next: make([]Successor, 0, len(succ))}
		for tok, freq := range succ {
			c.next = append(c.next, Successor{Token: tok, Freq: freq})
			c.total += freq
		}
		sort.Slice(c.next, func(i, j int) bool { return c.next[i].Token < c.next[j].Token })
		b.chains[key] = c
	}
	b.index()
	return b, nil
}

// index rebuilds the sorted prefix and starter lists from the chains.
func (b *Bank) index() {
	keys := make([]string, 0, len(b.chains))
	for key := range b.chains {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	b.prefixes = make([]Prefix, 0, len(keys))
	b.starters = b.starters[:0]
	for _, key := range keys {
		p := b.chains[key].prefix
		b.prefixes = append(b.prefixes, p)
		if p[0].IsDelimiter() {
			b.starters = append(b.starters, p)
		}
	}
}

// N returns the model order.
func (b *Bank) N() int { return b.n }

// Len returns the number of distinct prefixes.
func (b *Bank) Len() int { return len(b.chains) }

// Prefixes returns every prefix in the Bank in sorted order. The returned
// prefixes must not be modified.
func (b *Bank) Prefixes() []Prefix { return slices.Clone(b.prefixes) }

// Starters returns the prefixes that begin with the Delimiter, i.e. valid
// sentence starts. The returned prefixes must not be modified.
func (b *Bank) Starters() []Prefix { return slices.Clone(b.starters) }

// Contains reports whether p is a prefix of the Bank.
func (b *Bank) Contains(p Prefix) bool {
	_, ok := b.lookup(p)
	return ok
}

func (b *Bank) lookup(p Prefix) (*chain, bool) {
	if len(p) != b.n-1 || slices.ContainsFunc(p, Token.hasSpace) {
		return nil, false
	}
	c, ok := b.chains[p.key()]
	return c, ok
}

// Successors returns the successors of p sorted by token and the sum of their
// frequencies. An unseen prefix returns a nil slice and 0. The returned slice
// must not be modified.
func (b *Bank) Successors(p Prefix) ([]Successor, int) {
	c, ok := b.lookup(p)
	if !ok {
		return nil, 0
	}
	return c.next, c.total
}

/*
Package markov provides the n-gram language model behind colloquy: text
normalization, clause tokenization, the prefix->successor Bank, the stochastic
generation walk, and rendering of generated tokens back into prose.

A Bank is immutable once built and may be shared between goroutines. Each
generation call owns its walk state, and its own random source unless one is
shared through WithRand or WithSeed, so concurrent generation from one Bank
needs no locking.

The topic filter selects clauses sharing salient vocabulary with a set of
words, which lets a caller build a Bank restricted to a subject.
*/
package markov

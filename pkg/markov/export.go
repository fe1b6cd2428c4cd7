package markov

import (
	"io"

	"github.com/goccy/go-json"
)

// ExportedBank is the serializable representation of a Bank, used to inspect
// what a corpus taught the model.
type ExportedBank struct {
	N      int             `json:"n"`
	Stats  Stats           `json:"stats"`
	Chains []ExportedChain `json:"chains"`
}

// ExportedChain is one prefix and its successors within an ExportedBank.
type ExportedChain struct {
	Prefix []Token             `json:"prefix"`
	Next   []ExportedSuccessor `json:"next"`
}

// ExportedSuccessor is one weighted successor within an ExportedChain.
type ExportedSuccessor struct {
	Token Token `json:"token"`
	Freq  int   `json:"freq"`
}

// Exported converts the Bank to its serializable form. Chains are ordered by
// prefix and successors by token, so two equal Banks export identically.
func (b *Bank) Exported() ExportedBank {
	exported := ExportedBank{
		N:      b.n,
		Stats:  b.Stats(),
		Chains: make([]ExportedChain, 0, len(b.prefixes)),
	}
	for _, p := range b.prefixes {
		c := b.chains[p.key()]
		ec := ExportedChain{
			Prefix: append([]Token(nil), p...),
			Next:   make([]ExportedSuccessor, 0, len(c.next)),
		}
		for _, succ := range c.next {
			ec.Next = append(ec.Next, ExportedSuccessor{Token: succ.Token, Freq: succ.Freq})
		}
		exported.Chains = append(exported.Chains, ec)
	}
	return exported
}

// Export writes the Bank to w as indented JSON.
func (b *Bank) Export(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(b.Exported())
}

package markov

// Stats holds aggregated statistics for a Bank.
type Stats struct {
	Order          int `json:"order"`           // The model order n.
	Prefixes       int `json:"prefixes"`        // The number of distinct prefixes.
	Chains         int `json:"chains"`          // The number of unique prefix->successor links.
	TotalFrequency int `json:"total_frequency"` // The sum of all link frequencies; the number of trained transitions.
	Starters       int `json:"starters"`        // The number of prefixes that can start a sentence.
	Vocabulary     int `json:"vocabulary"`      // The number of distinct tokens appearing in prefixes or successors.
}

// Stats returns a snapshot of statistics for the Bank.
func (b *Bank) Stats() Stats {
	vocab := make(map[Token]struct{})
	s := Stats{
		Order:    b.n,
		Prefixes: len(b.chains),
		Starters: len(b.starters),
	}
	for _, c := range b.chains {
		s.Chains += len(c.next)
		s.TotalFrequency += c.total
		for _, t := range c.prefix {
			vocab[t] = struct{}{}
		}
		for _, succ := range c.next {
			vocab[succ.Token] = struct{}{}
		}
	}
	s.Vocabulary = len(vocab)
	return s
}

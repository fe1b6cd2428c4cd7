package markov

import "slices"

// Prune returns a new Bank without the links whose frequency is less than or
// equal to minFreq. Prefixes left without successors are dropped. This removes
// rare, and often noisy, transitions. The receiver is not modified. Prune
// returns ErrEmptyModel if no link survives.
func (b *Bank) Prune(minFreq int) (*Bank, error) {
	pruned := &Bank{n: b.n, chains: make(map[string]*chain, len(b.chains))}
	for key, c := range b.chains {
		kept := &chain{prefix: c.prefix}
		for _, succ := range c.next {
			if succ.Freq > minFreq {
				kept.next = append(kept.next, succ)
				kept.total += succ.Freq
			}
		}
		if len(kept.next) > 0 {
			kept.next = slices.Clip(kept.next)
			pruned.chains[key] = kept
		}
	}
	if len(pruned.chains) == 0 {
		return nil, ErrEmptyModel
	}
	pruned.index()
	return pruned, nil
}

// Package dialogue turns corpora into speakers that talk past each other.
//
// A Speaker owns a tokenized corpus and generation parameters. Given a topic,
// it builds a Bank from the clauses of its corpus that share enough salient
// words with that topic and walks it; if no clause is on topic, it falls back
// to its whole corpus, whose Bank is built once and reused.
//
// A Session alternates between speakers. Each utterance is rendered, optionally
// recorded, and its salient words become the topic of the next speaker, which
// gives the appearance of a conversation without any understanding behind it.
package dialogue

/*
Package markov provides a small, in-memory toolkit for building first-order
Markov chains from word sequences and composing new text by a weighted random
walk over them.

A Graph is an arena of nodes, one per distinct token, with outgoing edges
weighted by how often each bigram was observed. After all edges are inserted,
Finalize freezes a sampling table on every node; from then on the graph can be
sampled from any number of goroutines as long as each one brings its own
*rand.Rand. A Composer walks a finalized graph from a random seed token and
applies an explicit DeadEndPolicy when the walk reaches a token with no
successors.

The DefaultTokenizer turns raw text into the lowercase, punctuation-free token
sequence the graph is built from.
*/
package markov

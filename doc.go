// Package ragloop is a feedback-driven retrieval augmentation engine.
// It combines a semantic response cache, LLM query expansion, hybrid
// reranking and chain-of-thought synthesis with a bounded ReAct-style
// reasoning loop, all persisted in a single embedded Badger store.
//
// The Engine type wires the pieces together; the subpackages can also
// be used on their own against the storage and ai interfaces.
package ragloop

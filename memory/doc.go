// Package memory implements the agent memory engine: importance
// scoring, type classification, lexical similarity, relation building,
// capacity eviction, retrieval ranking and the orchestrating use case.
//
// All operations are synchronous with respect to their caller and spawn
// no background work. The engine serializes read-modify-write sequences
// per agent internally; the underlying Store is the only shared mutable
// resource.
package memory

// Package dom provides the document model the protocol engine operates on.
//
// It wraps golang.org/x/net/html parse trees with the small set of
// operations the engine needs: a compiled CSS selector subset, extended
// target resolution (this / closest / find / document), stable selector
// paths for outgoing headers, form value extraction, and the subtree
// mutation primitives used by the swap engine.
//
// Element identity is node pointer identity. The swap engine is the sole
// writer of document subtrees; every other package only reads.
package dom

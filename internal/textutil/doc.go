// Package textutil provides the text canonicalization used by every parity
// comparison, plus small helpers for similarity scoring and token sanitizing.
//
// Normalize is the single source of truth for "equal after normalization":
// it lowercases and drops the punctuation set {. , ; ™ ©} and all whitespace.
// Similarity is diagnostic only and never changes a verdict.
package textutil

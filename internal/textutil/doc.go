// Package textutil provides tokenization, stop-word filtering, and
// rune-safe truncation used by enrichment and retrieval.
package textutil

// Package retrieval turns free-form questions into ranked, budget-bounded
// sets of processed items.
package retrieval

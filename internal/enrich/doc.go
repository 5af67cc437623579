// Package enrich drives items through link fetching and LLM summarization,
// moving each one to its final lifecycle state.
package enrich

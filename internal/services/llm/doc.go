// Package llm provides the OpenRouter chat-completions client used for item
// enrichment, query analysis, and conversational answers.
package llm

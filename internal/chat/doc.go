// Package chat answers free-form questions using retrieved items as grounding
// context and a bounded per-recipient conversation history.
package chat

// Package telegram wraps the bot API send surface and classifies delivery
// failures into permanent and transient categories.
package telegram

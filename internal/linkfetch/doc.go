// Package linkfetch downloads externally linked pages and reduces them to
// plain text suitable for prompt assembly.
package linkfetch

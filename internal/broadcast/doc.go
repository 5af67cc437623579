// Package broadcast fans digests and high-engagement alerts out to active
// recipients with pacing and failure classification.
package broadcast

// Package digest composes the daily digest message from qualifying processed
// items and records one digest per date.
package digest

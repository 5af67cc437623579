// Package ingest decodes raw item JSON lines and upserts them idempotently.
package ingest

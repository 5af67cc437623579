// Package store persists items, recipients, conversations, and digest records
// in SQLite and owns every lifecycle transition an item can make.
package store

// Package mapping provides MappingStore implementations: a whole-document
// file store with a pluggable codec (JSON or YAML), a SQLite store, and an
// in-memory store for tests.
//
// Every store treats an unreadable document as empty and reports
// types.ErrMappingCorrupt so callers can log it and carry on. Saves replace
// the whole document; there is no incremental persistence and no
// cross-process locking.
package mapping

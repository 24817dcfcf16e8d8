// Package store holds the pieces shared by the persistence adapters: the
// DBTX abstraction over *sql.DB and *sql.Tx, and the common store errors
// the adapters map their driver errors onto.
package store

// Package postgres provides PostgreSQL implementations of the store
// interfaces defined in the store package. All implementations accept a
// store.DBTX so they run identically over a connection pool or inside a
// transaction, and report failures through the store package's sentinel
// errors.
package postgres

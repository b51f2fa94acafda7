// Package storage provides the verified key-value store the lock package
// coordinates through, with in-memory, file, Redis, NATS and GORM backends.
// Every write is read back and compared structurally before it counts, so
// callers can detect when another writer raced them on a medium that has no
// compare-and-set.
package storage

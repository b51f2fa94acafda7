// Package lock implements a cooperative, identity-based advisory lock over
// shared key/value storage that has no compare-and-swap. Ownership of a
// named, indexed slot is established optimistically: whoever observes the
// slot empty writes their identity there, and later callers hold the slot
// only while their identity matches the stored one. An optional expiry lets
// a caller displace a record that has gone stale. There is no true mutual
// exclusion, only identity agreement; callers must treat a lost acquisition
// as a normal outcome.
package lock

// Package store holds the dataset the server is currently serving.
//
// A Store publishes one immutable Snapshot at a time. Replace swaps in a
// fully built dataset under a write lock, so readers see either the previous
// snapshot or the new one, never a partial load. Each snapshot gets a fresh
// UUID so clients can tell loads apart.
package store

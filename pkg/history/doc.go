// Package history implements linear undo/redo over snapshots of a store's
// tracked fields.
//
// A Record holds an ordered list of snapshots and a cursor. Saving after an
// undo discards the redo branch; saving past MaxLength evicts the oldest
// snapshot. The record is kept in a Repository, either in process memory or
// serialized under a single key of a storage.Backend:
//
//	{"position":1,"states":[{"theme":"light"},{"theme":"dark"}]}
//
// Undo and Redo at a boundary change nothing and write nothing.
package history

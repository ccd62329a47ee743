// Package storage defines the durable key/value backend used to persist store
// fields and history, together with the codecs that turn values into stored
// strings.
//
// Backends in this package and its sub-packages:
//
//	Memory       in-process map (default)
//	filestore    one file per key in a directory
//	sqlstore     database/sql table (PostgreSQL, MySQL, SQLite)
//	badgerstore  embedded BadgerDB
//	s3store      AWS S3 objects
//	natskv       NATS JetStream KeyValue bucket
//
// All backends are safe for concurrent use. A missing key is reported as
// ("", false, nil), never as an error.
package storage

// Package spool stores outbound publishes until the upstream broker accepts them.
//
// Three backends share the Spool interface:
//   - memory: a mutex-guarded slice, lost on restart
//   - sqlite: the outbound_messages table, created by the embedded migrations
//   - bolt: a bbolt bucket keyed by sequence number, cgo-free
//
// The outbound queue in package mqtt owns a Spool and is its only writer.
package spool

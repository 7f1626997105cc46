// Package storage defines persistence contracts for the tariff catalog and
// user accounts.
//
// Services depend on these interfaces rather than on the SQLite schema.
package storage

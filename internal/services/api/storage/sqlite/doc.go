// Package sqlite implements the API storage contracts over SQLite.
package sqlite

// Package history keeps a persistent log of finished downloads in a bbolt
// database.
package history

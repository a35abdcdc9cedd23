// Package types defines the schema descriptor, the storage gateway interfaces,
// configuration, and the standard errors shared by the record mapper and the
// gateway implementations.
package types

// Package repositories provides the persistence layer for provider credentials.
//
// The store holds exactly one durable record: the current access/refresh
// token pair. Every mutation rewrites the record wholesale; last-writer-wins
// is acceptable because a single process owns the pair.
package repositories

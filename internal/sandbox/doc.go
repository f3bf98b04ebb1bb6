// Package sandbox emulates the subset of the remote REST API the connector
// uses, backed by SQLite.
//
// It issues password-grant tokens, answers queries over a User table,
// creates and updates records, sets passwords and describes the object.
// ExpireSessions revokes every issued token so that 401 recovery can be
// exercised end to end. It is intended for tests and local development.
package sandbox

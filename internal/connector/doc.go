// Package connector implements user provisioning against the remote REST
// API: create, update, soft delete, search and schema discovery.
//
// Every remote call goes through a gateway.Gateway, so an expired access
// token is refreshed once and the call replayed transparently. Searches
// compile the caller's filter to a SOQL WHERE clause; the part of a filter
// that cannot be pushed down is applied to the returned records instead.
package connector

// Package auth acquires and holds the bearer token used for remote calls.
//
// A Source performs the OAuth2 password-grant exchange. A Session is the
// single owner of the current token: requests read it with Current, and a
// request that sees 401 asks for Refresh with the generation it used, so
// concurrent stale requests trigger at most one refresh.
//
// A failed refresh is fatal. The session stays broken, and every caller
// receives the RefreshError, until Reconnect succeeds.
package auth

// Package auth provides authentication functionality for the application.
//
// It supports three authentication sources:
//   - Local database authentication with Argon2id password hashing
//   - LDAP/Active Directory authentication with automatic account provisioning
//   - OpenID Connect (OIDC) authentication with external identity providers
//
// # Directory authentication
//
// DirectoryProvider implements the full directory login sequence: connect
// (TLS options applied per connection), bind for search (anonymous, service
// account, or user-template depending on configuration), search for the
// matching entry, then re-bind as the found entry's DN with the claimed
// password. That second bind is the actual credential check. On success a
// local account is provisioned (directory-managed, non-admin) or reused,
// a session is opened through the SessionRefresher collaborator, and an
// event is dispatched on the event bus.
//
// Local accounts are never shadowed: a same-named account whose source is
// not the directory refuses directory authentication outright.
//
// The provider depends on the DirectoryClient, UserStore and
// EventDispatcher interfaces, so tests substitute fakes for the directory
// server, the user store and the dispatcher alike.
//
// # Identity lookup
//
// LookupIdentity resolves a directory identity by username and/or email
// without a password, for administrative flows. It only ever binds
// anonymously or as the service account.
//
// # Middleware
//
// Fiber middleware functions are provided for route protection:
//   - RequireUser: protect routes requiring a logged-in user
//   - RequireAdmin: protect routes requiring an administrator
//
// Example usage:
//
//	client, err := auth.NewDirectoryClient(cfg)
//	provider, err := auth.NewDirectoryProvider(cfg, client, auth.NewGormUserStore(db), bus)
//	user, err := provider.Authenticate(username, password, sessionRefresher)
package auth

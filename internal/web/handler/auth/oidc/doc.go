// Package oidc provides handlers for the OpenID Connect authentication flow.
//
// The flow covers login initiation with CSRF protection via state tokens,
// the authorization callback with ID token verification, automatic user
// provisioning from the returned claims and session creation.
//
// Example usage:
//
//	// Initialize OIDC handler
//	_ = oidc.Handler.Init(app, cfg, db)
//
//	// Users can then access:
//	// GET  /auth/oidc/login    - Initiate OIDC login flow
//	// GET  /auth/oidc/callback - Handle provider callback
package oidc

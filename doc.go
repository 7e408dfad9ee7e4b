// Package main provides the entry point for dirgate, a directory-backed
// authentication gateway. It runs a web server using the Fiber framework
// that authenticates users against an LDAP directory, a local database or
// an OIDC provider, provisions local user records for directory accounts
// on first login, and maintains browser sessions. The application uses
// gorm for data persistence.
package main

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/dirgate/dirgate/internal/db/models"
	"github.com/dirgate/dirgate/internal/events"
)

// Backend names carried in dispatched authentication events.
const (
	BackendLocal     = "local"
	BackendDirectory = "directory"
	BackendOIDC      = "oidc"
)

// UserStore is the external collaborator owning local user records.
// The directory provider reads and conditionally creates users through it
// but does not own their lifecycle.
type UserStore interface {
	// GetByUsername returns the user or ErrUserNotFound.
	GetByUsername(username string) (*models.User, error)
	// Create stores a new user record.
	Create(user *models.User) error
}

// SessionRefresher establishes or refreshes the caller's session for a user.
// The web layer supplies a per-request implementation.
type SessionRefresher interface {
	Refresh(user *models.User) error
}

// EventDispatcher delivers fire-and-forget notifications about
// authentication activity. *events.Bus satisfies it.
type EventDispatcher interface {
	Dispatch(e events.Event)
}

// DirectoryEntry is the normalized result of a directory search,
// constructed per request from raw directory attributes. Absent attributes
// fall back to the empty string.
type DirectoryEntry struct {
	Username string
	Name     string
	Email    string
	DN       string
}

// DirectoryProvider authenticates users against an LDAP directory and
// provisions local accounts for them. It depends only on the
// DirectoryClient, UserStore and EventDispatcher interfaces so tests can
// substitute fakes for all of them.
type DirectoryProvider struct {
	config *DirectoryConfig
	client DirectoryClient
	users  UserStore
	events EventDispatcher
}

// NewDirectoryProvider creates a new directory authentication provider.
// The events dispatcher may be nil, in which case no events are emitted.
func NewDirectoryProvider(
	config *DirectoryConfig,
	client DirectoryClient,
	users UserStore,
	dispatcher EventDispatcher,
) (*DirectoryProvider, error) {
	if config == nil || !config.Enabled {
		return nil, ErrDirectoryDisabled
	}

	config.applyDefaults()

	return &DirectoryProvider{
		config: config,
		client: client,
		users:  users,
		events: dispatcher,
	}, nil
}

// NormalizeUsername applies the configured username casing. When the
// directory is configured case-insensitive, "Alice" and "alice" refer to the
// same account.
func (p *DirectoryProvider) NormalizeUsername(username string) string {
	if p.config.CaseSensitive {
		return username
	}

	return strings.ToLower(username)
}

// Authenticate verifies the supplied credentials against the directory,
// provisions or reuses the matching local account and opens a session for
// it. The outcome is binary: a user with an open session, or an error with
// no side effects beyond logging. The session refresher may be nil when no
// session should be opened (administrative verification).
func (p *DirectoryProvider) Authenticate(username, password string, session SessionRefresher) (*models.User, error) {
	// An empty password would turn the re-bind into an unauthenticated
	// simple bind, which many servers report as success.
	if password == "" {
		return nil, ErrInvalidPassword
	}

	username = p.NormalizeUsername(username)

	entry, errVerify := p.verifyCredentials(username, password)
	if errVerify != nil {
		return nil, errVerify
	}

	user, errGet := p.users.GetByUsername(username)

	switch {
	case errors.Is(errGet, ErrUserNotFound):
		var errProvision error

		user, errProvision = p.provision(username, entry)
		if errProvision != nil {
			return nil, errProvision
		}
	case errGet != nil:
		return nil, fmt.Errorf("failed to query user: %w", errGet)
	default:
		// A same-named local or OIDC account is never shadowed by a
		// directory account.
		if !user.DirectoryManaged() {
			return nil, ErrLocalAccountConflict
		}

		if !user.Active {
			return nil, ErrUserAccountDisabled
		}
	}

	if session != nil {
		if errRefresh := session.Refresh(user); errRefresh != nil {
			return nil, fmt.Errorf("failed to open session: %w", errRefresh)
		}
	}

	if p.events != nil {
		p.events.Dispatch(events.Event{
			Name:    events.LoginSucceeded,
			Backend: BackendDirectory,
			UserID:  user.ID,
		})
	}

	return user, nil
}

// provision creates a local account for a verified directory user.
// Provisioned accounts are directory-managed and never administrators.
func (p *DirectoryProvider) provision(username string, entry *DirectoryEntry) (*models.User, error) {
	if !p.config.CreateMissing {
		return nil, ErrProvisioningDisabled
	}

	now := time.Now()

	create := &models.User{
		Active:      true,
		Username:    username,
		Email:       entry.Email,
		DisplayName: entry.Name,
		Admin:       false,
		Source:      models.SourceDirectory,
		ExternalID:  entry.DN,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if errCreate := p.users.Create(create); errCreate != nil {
		return nil, fmt.Errorf("failed to create user: %w", errCreate)
	}

	// Read the record back so store-populated fields (ID, timestamps) are present.
	user, errGet := p.users.GetByUsername(username)
	if errGet != nil {
		return nil, fmt.Errorf("failed to re-fetch created user: %w", errGet)
	}

	if p.events != nil {
		p.events.Dispatch(events.Event{
			Name:    events.UserProvisioned,
			Backend: BackendDirectory,
			UserID:  user.ID,
		})
	}

	return user, nil
}

// verifyCredentials runs the connect/bind/search/re-bind sequence and
// returns the normalized entry on success.
func (p *DirectoryProvider) verifyCredentials(username, password string) (*DirectoryEntry, error) {
	conn, errConnect := p.client.Connect()
	if errConnect != nil {
		return nil, errConnect
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close directory connection")
		}
	}()

	if errBind := p.bindForSearch(conn, username, password); errBind != nil {
		return nil, errBind
	}

	entry, errSearch := p.searchEntry(conn, p.userFilter(username))
	if errSearch != nil {
		return nil, errSearch
	}

	// The first bind only grants permission to search. Binding as the found
	// entry's exact DN with the claimed password is the actual credential check.
	if errRebind := conn.Bind(entry.DN, password); errRebind != nil {
		log.Debug().Err(errRebind).Msg("directory re-bind as user entry failed")

		return nil, ErrInvalidPassword
	}

	return &DirectoryEntry{
		Username: username,
		Name:     entry.GetAttributeValue(p.config.NameAttr),
		Email:    entry.GetAttributeValue(p.config.EmailAttr),
		DN:       entry.DN,
	}, nil
}

// bindForSearch authenticates the connection itself according to the
// configured bind mode. Any unrecognized mode falls back to an anonymous bind.
func (p *DirectoryProvider) bindForSearch(conn DirectoryConn, username, password string) error {
	switch p.config.BindMode {
	case BindModeUser:
		dn := strings.ReplaceAll(p.config.UserDNTemplate, "{username}", ldap.EscapeDN(username))
		if err := conn.Bind(dn, password); err != nil {
			log.Debug().Err(err).Msg("directory user-template bind failed")

			return ErrInvalidPassword
		}
	case BindModeService:
		if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
			return fmt.Errorf("failed to bind with service account: %w", err)
		}
	default:
		if err := conn.UnauthenticatedBind(""); err != nil {
			return fmt.Errorf("failed to bind anonymously: %w", err)
		}
	}

	return nil
}

// bindForLookup binds for the administrative lookup path, which never uses
// end-user credentials: service account when configured, anonymous otherwise.
func (p *DirectoryProvider) bindForLookup(conn DirectoryConn) error {
	if p.config.BindDN != "" {
		if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
			return fmt.Errorf("failed to bind with service account: %w", err)
		}

		return nil
	}

	if err := conn.UnauthenticatedBind(""); err != nil {
		return fmt.Errorf("failed to bind anonymously: %w", err)
	}

	return nil
}

// userFilter substitutes the username into the configured filter template.
// The value is filter-escaped, so attacker-controlled usernames cannot
// change the query structure.
func (p *DirectoryProvider) userFilter(username string) string {
	return strings.ReplaceAll(p.config.UserFilter, "{username}", ldap.EscapeFilter(username))
}

// searchEntry searches the directory for a single entry matching the filter.
func (p *DirectoryProvider) searchEntry(conn DirectoryConn, filter string) (*ldap.Entry, error) {
	searchRequest := ldap.NewSearchRequest(
		p.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		p.config.Timeout,
		false,
		filter,
		[]string{
			p.config.NameAttr,
			p.config.EmailAttr,
			p.config.IdentityAttr,
			"dn",
		},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, ErrMultipleUsersFound
	}
}

// LookupIdentity resolves a directory identity by username and/or email
// without verifying a password. It is an administrative path and binds with
// the service account or anonymously, never with end-user credentials.
//
// The returned username is the configured identity attribute when present;
// when absent it falls back to the supplied username, and the lookup fails
// outright for email-only queries since the stable identifier cannot be
// determined.
func (p *DirectoryProvider) LookupIdentity(username, email string) (*DirectoryEntry, error) {
	if username == "" && email == "" {
		return nil, ErrNoLookupTerms
	}

	username = p.NormalizeUsername(username)

	conn, errConnect := p.client.Connect()
	if errConnect != nil {
		return nil, errConnect
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close directory connection")
		}
	}()

	if errBind := p.bindForLookup(conn); errBind != nil {
		return nil, errBind
	}

	entry, errSearch := p.searchEntry(conn, p.lookupFilter(username, email))
	if errSearch != nil {
		return nil, errSearch
	}

	identity := entry.GetAttributeValue(p.config.IdentityAttr)

	out := &DirectoryEntry{
		Username: identity,
		Name:     entry.GetAttributeValue(p.config.NameAttr),
		Email:    entry.GetAttributeValue(p.config.EmailAttr),
		DN:       entry.DN,
	}

	if identity == "" {
		if username == "" {
			return nil, ErrIdentityAttributeMissing
		}

		out.Username = username
	}

	return out, nil
}

// lookupFilter combines the username filter and an email equality filter.
// At least one of the terms is non-empty (checked by the caller).
func (p *DirectoryProvider) lookupFilter(username, email string) string {
	emailFilter := fmt.Sprintf("(%s=%s)", p.config.EmailAttr, ldap.EscapeFilter(email))

	switch {
	case username != "" && email != "":
		return "(&" + p.userFilter(username) + emailFilter + ")"
	case username != "":
		return p.userFilter(username)
	default:
		return emailFilter
	}
}

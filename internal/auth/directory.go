package auth

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
)

// ErrDirectoryDisabled is returned when directory authentication is disabled via configuration.
var ErrDirectoryDisabled = errors.New("directory authentication is disabled")

// BindMode selects the identity used for the initial directory bind that
// grants permission to search.
type BindMode string

const (
	// BindModeAnonymous binds without credentials. This is the default and the
	// fallback for any unrecognized mode.
	BindModeAnonymous BindMode = "anonymous"
	// BindModeService binds with a fixed configured DN and password, ignoring
	// the end-user's credentials.
	BindModeService BindMode = "service"
	// BindModeUser substitutes the end-user's username into a DN template and
	// binds with the supplied password.
	BindModeUser BindMode = "user"
)

// defaultDirectoryTimeout bounds network dials and search operations so a
// hung or unreachable server fails fast rather than blocking the caller.
const defaultDirectoryTimeout = 2

// DirectoryConfig holds LDAP/Active Directory configuration for authentication.
type DirectoryConfig struct {
	// Enabled indicates if directory authentication is enabled.
	Enabled bool
	// Host is the directory server hostname or IP address.
	Host string
	// Port is the directory server port (typically 389 for LDAP, 636 for LDAPS).
	Port int
	// UseSSL enables LDAPS (LDAP over SSL/TLS) on port 636.
	UseSSL bool
	// UseTLS enables StartTLS to upgrade a plaintext connection to TLS.
	// A StartTLS failure aborts the connection, there is no plaintext fallback.
	UseTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// BindMode selects the identity for the initial search bind
	// (anonymous, service, or user).
	BindMode BindMode
	// UserDNTemplate is the DN template for BindModeUser
	// (e.g., "uid={username},ou=people,dc=example,dc=org").
	// The {username} placeholder is replaced with the DN-escaped username.
	UserDNTemplate string
	// BindDN is the distinguished name to bind with for BindModeService.
	BindDN string
	// BindPassword is the password for the service bind DN.
	BindPassword string
	// BaseDN is the base distinguished name for user searches.
	BaseDN string
	// UserFilter is the directory filter for finding users (e.g., "(uid={username})").
	// The {username} placeholder is replaced with the filter-escaped username.
	UserFilter string
	// IdentityAttr is the attribute holding the stable external identifier
	// (e.g., "entryUUID", "objectGUID").
	IdentityAttr string
	// NameAttr is the attribute containing the user's full name (e.g., "cn", "displayName").
	NameAttr string
	// EmailAttr is the attribute containing the email address (e.g., "mail").
	EmailAttr string
	// CaseSensitive controls username comparison. When false, usernames are
	// lower-cased before search and local lookup.
	CaseSensitive bool
	// CreateMissing enables automatic creation of local accounts for
	// directory users on first successful login.
	CreateMissing bool
	// Timeout is the connection and search timeout in seconds.
	Timeout int
}

// applyDefaults fills in fallback attribute names, filter, bind mode and timeout.
func (c *DirectoryConfig) applyDefaults() {
	if c.NameAttr == "" {
		c.NameAttr = "cn"
	}

	if c.EmailAttr == "" {
		c.EmailAttr = "mail"
	}

	if c.IdentityAttr == "" {
		c.IdentityAttr = "entryUUID"
	}

	if c.UserFilter == "" {
		c.UserFilter = "(uid={username})"
	}

	if c.BindMode == "" {
		c.BindMode = BindModeAnonymous
	}

	if c.Timeout == 0 {
		c.Timeout = defaultDirectoryTimeout
	}
}

// DirectoryConn is the subset of a live directory connection the
// authentication code uses. *ldap.Conn satisfies it.
type DirectoryConn interface {
	Bind(username, password string) error
	UnauthenticatedBind(username string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

// DirectoryClient opens connections to the directory server. The production
// implementation dials with go-ldap; tests substitute a fake.
type DirectoryClient interface {
	Connect() (DirectoryConn, error)
}

// ldapClient implements DirectoryClient against a real LDAP server.
type ldapClient struct {
	config *DirectoryConfig
}

// NewDirectoryClient creates a directory client for the given configuration.
func NewDirectoryClient(config *DirectoryConfig) (DirectoryClient, error) {
	if config == nil || !config.Enabled {
		return nil, ErrDirectoryDisabled
	}

	config.applyDefaults()

	return &ldapClient{config: config}, nil
}

// Connect establishes a connection to the directory server. TLS options are
// applied per connection; certificate verification is controlled through the
// connection's own tls.Config rather than any process-wide toggle.
func (c *ldapClient) Connect() (DirectoryConn, error) {
	hostPort := net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))

	var directoryURL string
	if c.config.UseSSL {
		directoryURL = "ldaps://" + hostPort
	} else {
		directoryURL = "ldap://" + hostPort
	}

	var tlsConfig *tls.Config
	if c.config.UseSSL || c.config.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: c.config.SkipVerify, //nolint:gosec // skipping verifying tls is ok
			ServerName:         c.config.Host,
		}
	}

	timeout := time.Duration(c.config.Timeout) * time.Second

	conn, err := ldap.DialURL(
		directoryURL,
		ldap.DialWithTLSConfig(tlsConfig),
		ldap.DialWithDialer(&net.Dialer{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to directory server: %w", err)
	}

	// Upgrade to TLS if requested (for non-SSL connections)
	if !c.config.UseSSL && c.config.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close directory connection")
			}

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	conn.SetTimeout(timeout)

	return conn, nil
}

// CheckConnection tests the directory server connection and bind credentials.
// It establishes a connection and, when a service bind DN is configured,
// attempts to bind with it. Returns nil if the probe succeeds.
func CheckConnection(client DirectoryClient, config *DirectoryConfig) error {
	conn, err := client.Connect()
	if err != nil {
		return err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close directory connection")
		}
	}()

	if config.BindDN != "" {
		if err := conn.Bind(config.BindDN, config.BindPassword); err != nil {
			return fmt.Errorf("bind failed: %w", err)
		}
	}

	return nil
}

package config

import (
	"time"

	"github.com/dirgate/dirgate/internal/auth"
	"github.com/dirgate/dirgate/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
}

// Webserver implement webserver settings.
type Webserver struct {
	Domain       string  // domain name for the webserver
	Port         int     // listening port for the webserver
	ShutDownTime int     // wait time for shutdown
	URL          string  // base url for the webserver
	Session      Session // session settings
}

// Auth groups the configuration of the authentication backends.
type Auth struct {
	LocalDB   LocalDBAuth
	Directory DirectoryAuth
	OIDC      OIDCAuth
}

// LocalDBAuth configures local username/password authentication.
type LocalDBAuth struct {
	Enabled bool
}

// DirectoryAuth configures LDAP/Active Directory authentication.
// Field semantics match auth.DirectoryConfig.
type DirectoryAuth struct {
	Enabled        bool
	Host           string `validate:"required"`
	Port           int    `validate:"required,min=1,max=65535"`
	UseSSL         bool
	UseTLS         bool
	SkipVerify     bool
	BindMode       string `validate:"omitempty,oneof=anonymous service user"`
	UserDNTemplate string
	BindDN         string
	BindPassword   string
	BaseDN         string `validate:"required"`
	UserFilter     string
	IdentityAttr   string
	NameAttr       string
	EmailAttr      string
	CaseSensitive  bool
	CreateMissing  bool
	Timeout        int `validate:"min=0,max=60"`
}

// DirectoryConfig converts the configuration section into the provider config.
func (d DirectoryAuth) DirectoryConfig() *auth.DirectoryConfig {
	return &auth.DirectoryConfig{
		Enabled:        d.Enabled,
		Host:           d.Host,
		Port:           d.Port,
		UseSSL:         d.UseSSL,
		UseTLS:         d.UseTLS,
		SkipVerify:     d.SkipVerify,
		BindMode:       auth.BindMode(d.BindMode),
		UserDNTemplate: d.UserDNTemplate,
		BindDN:         d.BindDN,
		BindPassword:   d.BindPassword,
		BaseDN:         d.BaseDN,
		UserFilter:     d.UserFilter,
		IdentityAttr:   d.IdentityAttr,
		NameAttr:       d.NameAttr,
		EmailAttr:      d.EmailAttr,
		CaseSensitive:  d.CaseSensitive,
		CreateMissing:  d.CreateMissing,
		Timeout:        d.Timeout,
	}
}

// OIDCAuth configures OpenID Connect authentication.
type OIDCAuth struct {
	Enabled      bool
	ProviderURL  string `validate:"omitempty,url"`
	ClientID     string
	ClientSecret string
	RedirectURL  string `validate:"omitempty,url"`
	Scopes       []string
}

// OIDCConfig converts the configuration section into the provider config.
func (o OIDCAuth) OIDCConfig() *auth.OIDCConfig {
	return &auth.OIDCConfig{
		Enabled:      o.Enabled,
		ProviderURL:  o.ProviderURL,
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURL:  o.RedirectURL,
		Scopes:       o.Scopes,
	}
}

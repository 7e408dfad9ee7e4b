package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const minimalTOML = `
Title = "dirgate"

[Webserver]
Port = 8080
URL = "http://localhost:8080"

[Auth.LocalDB]
Enabled = true
`

const directoryTOML = `
Title = "dirgate"

[Webserver]
Port = 8080
URL = "http://localhost:8080"

[Auth.Directory]
Enabled = true
Host = "ldap.example.org"
Port = 636
UseSSL = true
BindMode = "service"
BindDN = "cn=svc,dc=example,dc=org"
BindPassword = "svcpw"
BaseDN = "dc=example,dc=org"
`

const noBackendTOML = `
Title = "dirgate"

[Webserver]
Port = 8080
URL = "http://localhost:8080"
`

const invalidDirectoryTOML = `
Title = "dirgate"

[Webserver]
Port = 8080
URL = "http://localhost:8080"

[Auth.Directory]
Enabled = true
Host = "ldap.example.org"
Port = 99999
BaseDN = "dc=example,dc=org"
`

// writeConfigDir writes the given TOML into a temp etc directory and returns
// its path (including trailing separator, as ReadConfig expects).
func writeConfigDir(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.toml"), []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	return dir + string(os.PathSeparator)
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(writeConfigDir(t, minimalTOML))
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	if cfg.Title != "dirgate" {
		t.Errorf("expected title dirgate, got %q", cfg.Title)
	}

	if cfg.Webserver.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Webserver.Port)
	}

	if !cfg.Auth.LocalDB.Enabled {
		t.Error("expected local auth to be enabled")
	}
}

func TestReadConfig_MissingFile(t *testing.T) {
	if _, err := ReadConfig(t.TempDir() + string(os.PathSeparator)); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestReadConfig_EnvOverride(t *testing.T) {
	t.Setenv("DIRGATE_CONFIG_JSON", `{"Title":"overridden"}`)

	cfg, err := ReadConfig(writeConfigDir(t, minimalTOML))
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	if cfg.Title != "overridden" {
		t.Errorf("expected env override to win, got %q", cfg.Title)
	}

	// values absent from the JSON keep their TOML values
	if cfg.Webserver.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Webserver.Port)
	}
}

func TestReadConfig_DirectorySection(t *testing.T) {
	cfg, err := ReadConfig(writeConfigDir(t, directoryTOML))
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	dirCfg := cfg.Auth.Directory.DirectoryConfig()

	if !dirCfg.Enabled || dirCfg.Host != "ldap.example.org" || dirCfg.Port != 636 {
		t.Errorf("directory section not mapped: %+v", dirCfg)
	}

	if !dirCfg.UseSSL || dirCfg.BindDN != "cn=svc,dc=example,dc=org" {
		t.Errorf("directory section not mapped: %+v", dirCfg)
	}
}

func TestValidate(t *testing.T) {
	t.Run("no backend enabled", func(t *testing.T) {
		_, err := ReadConfig(writeConfigDir(t, noBackendTOML))
		if !errors.Is(err, ErrNoAuthBackendEnabled) {
			t.Fatalf("expected ErrNoAuthBackendEnabled, got %v", err)
		}
	})

	t.Run("invalid directory port", func(t *testing.T) {
		if _, err := ReadConfig(writeConfigDir(t, invalidDirectoryTOML)); err == nil {
			t.Fatal("expected a validation error for the directory section")
		}
	})

	t.Run("port zero", func(t *testing.T) {
		cfg := Config{
			Webserver: Webserver{URL: "http://localhost"},
			Auth:      Auth{LocalDB: LocalDBAuth{Enabled: true}},
		}
		if err := validate(cfg); !errors.Is(err, ErrWebServerPortCanNotBeZero) {
			t.Fatalf("expected ErrWebServerPortCanNotBeZero, got %v", err)
		}
	})

	t.Run("empty url", func(t *testing.T) {
		cfg := Config{
			Webserver: Webserver{Port: 8080},
			Auth:      Auth{LocalDB: LocalDBAuth{Enabled: true}},
		}
		if err := validate(cfg); !errors.Is(err, ErrEmptyURL) {
			t.Fatalf("expected ErrEmptyURL, got %v", err)
		}
	})
}

func TestDumpConfig(t *testing.T) {
	cfg := Config{Title: "dirgate"}

	out, err := DumpConfig(cfg)
	if err != nil {
		t.Fatalf("DumpConfig failed: %v", err)
	}

	if out == "" {
		t.Error("expected TOML output")
	}

	jsonOut, err := DumpConfigJSON(cfg)
	if err != nil {
		t.Fatalf("DumpConfigJSON failed: %v", err)
	}

	if jsonOut == "" {
		t.Error("expected JSON output")
	}
}

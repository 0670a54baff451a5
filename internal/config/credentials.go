// File: internal/config/credentials.go
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/ini.v1"
)

// Credentials is a login pair.
type Credentials struct {
	Username string
	Password string
}

// ErrNoCredentials is returned when neither the environment nor the
// credentials file supplies a username.
var ErrNoCredentials = errors.New("no credentials configured")

// LoadCredentials resolves the login pair. The file is an INI document whose
// section (ISE by default) carries USERNAME and PASSWORD keys. The file is
// optional; configured values override whatever it holds.
func LoadCredentials(c CredentialsConfig) (Credentials, error) {
	var out Credentials
	if c.File != "" {
		path, err := homedir.Expand(c.File)
		if err != nil {
			return out, fmt.Errorf("expanding credentials path %q: %w", c.File, err)
		}
		if _, err := os.Stat(path); err == nil {
			f, err := ini.Load(path)
			if err != nil {
				return out, fmt.Errorf("reading credentials file %s: %w", path, err)
			}
			section := c.Section
			if section == "" {
				section = "ISE"
			}
			s := f.Section(section)
			out.Username = s.Key("USERNAME").String()
			out.Password = s.Key("PASSWORD").String()
		} else if !errors.Is(err, os.ErrNotExist) {
			return out, fmt.Errorf("reading credentials file %s: %w", path, err)
		}
	}
	if c.Username != "" {
		out.Username = c.Username
	}
	if c.Password != "" {
		out.Password = c.Password
	}
	if out.Username == "" {
		return out, ErrNoCredentials
	}
	return out, nil
}

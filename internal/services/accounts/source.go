// Package accounts turns the supported account syntaxes into one list of
// credentials and watches the config file for changes.
package accounts

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
)

// Environment variables read by Load.
const (
	EnvUser        = "TELECOM_USER"
	EnvFluxPackage = "TELECOM_FLUX_PACKAGE"
)

const (
	accountSep   = "@"
	fieldSep     = ","
	legacyPhones = 11
)

// ErrNoAccounts is returned when no source yields a usable credential.
var ErrNoAccounts = errors.New("no accounts configured")

// Getenv looks up an environment variable.
type Getenv func(key string) string

// FileUser is one account entry of the config file.
type FileUser struct {
	FluxPackage *bool  `mapstructure:"flux_package" json:"flux_package,omitempty" yaml:"flux_package,omitempty"`
	Phonenum    string `mapstructure:"phonenum" json:"phonenum" yaml:"phonenum"`
	Password    string `mapstructure:"password" json:"password" yaml:"password"`
}

// FileConfig is the account part of the config file.
type FileConfig struct {
	User     FileUser   `mapstructure:"user" json:"user" yaml:"user"`
	Accounts []FileUser `mapstructure:"accounts" json:"accounts,omitempty" yaml:"accounts,omitempty"`
}

// LoadFile reads the account section of a JSON or YAML config file.
// A missing file yields nil and no error.
func LoadFile(path string) (*FileConfig, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &fc, nil
}

// Load builds the credential list. The first source that yields accounts
// wins, in this order: the multi-account TELECOM_USER syntax, the legacy
// single-account TELECOM_USER syntax, then the config file.
func Load(getenv Getenv, file *FileConfig) ([]models.Credential, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	raw := strings.TrimSpace(getenv(EnvUser))

	if creds := parseMulti(raw); len(creds) > 0 {
		return creds, nil
	}

	defaultFlux := fluxDefault(getenv(EnvFluxPackage))

	if cred, ok := parseLegacy(raw, defaultFlux); ok {
		return []models.Credential{cred}, nil
	}

	if creds := fromFile(file, defaultFlux); len(creds) > 0 {
		return creds, nil
	}

	return nil, ErrNoAccounts
}

// parseMulti parses "phone,password[,flux]@phone,password...". The flux flag
// defaults to true; any value other than "true" disables it.
func parseMulti(raw string) []models.Credential {
	var creds []models.Credential
	for _, entry := range strings.Split(raw, accountSep) {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		parts := strings.Split(entry, fieldSep)
		if len(parts) < 2 {
			continue
		}

		cred := models.Credential{
			Phone:       strings.TrimSpace(parts[0]),
			Password:    strings.TrimSpace(parts[1]),
			FluxPackage: true,
		}
		if len(parts) >= 3 {
			cred.FluxPackage = strings.EqualFold(strings.TrimSpace(parts[2]), "true")
		}
		if cred.Valid() {
			creds = append(creds, cred)
		}
	}
	return creds
}

// parseLegacy parses the single-account form: 11 phone digits immediately
// followed by the password.
func parseLegacy(raw string, flux bool) (models.Credential, bool) {
	if raw == "" || strings.Contains(raw, fieldSep) || strings.Contains(raw, accountSep) {
		return models.Credential{}, false
	}
	if len(raw) <= legacyPhones {
		return models.Credential{}, false
	}

	cred := models.Credential{
		Phone:       raw[:legacyPhones],
		Password:    raw[legacyPhones:],
		FluxPackage: flux,
	}
	return cred, cred.Valid()
}

func fromFile(file *FileConfig, flux bool) []models.Credential {
	if file == nil {
		return nil
	}

	var creds []models.Credential
	seen := make(map[string]bool)
	add := func(u FileUser) {
		cred := models.Credential{
			Phone:       strings.TrimSpace(u.Phonenum),
			Password:    u.Password,
			FluxPackage: flux,
		}
		if u.FluxPackage != nil {
			cred.FluxPackage = *u.FluxPackage
		}
		if !cred.Valid() || seen[cred.Phone] {
			return
		}
		seen[cred.Phone] = true
		creds = append(creds, cred)
	}

	add(file.User)
	for _, u := range file.Accounts {
		add(u)
	}
	return creds
}

func fluxDefault(v string) bool {
	return !strings.EqualFold(strings.TrimSpace(v), "false")
}

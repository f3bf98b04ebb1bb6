// Package config loads connector settings from YAML and validates them
// against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sfconnect/internal/auth"
	"github.com/roach88/sfconnect/internal/mapping"
)

//go:embed schema.cue
var schemaSource string

// Defaults for optional settings.
const (
	DefaultServicePath = "services/data/v27.0"
	DefaultObjectType  = "User"
)

// Config holds the settings of one connection.
type Config struct {
	ClientID      string `yaml:"client_id" json:"client_id"`
	ClientSecret  string `yaml:"client_secret" json:"client_secret"`
	Username      string `yaml:"username" json:"username"`
	Password      string `yaml:"password" json:"password"`
	SecurityToken string `yaml:"security_token" json:"security_token"`

	LoginURL    string `yaml:"login_url" json:"login_url"`
	ServicePath string `yaml:"service_path" json:"service_path"`
	ObjectType  string `yaml:"object_type" json:"object_type"`

	UniqueAttribute   string `yaml:"unique_attribute" json:"unique_attribute"`
	NameAttribute     string `yaml:"name_attribute" json:"name_attribute"`
	PasswordAttribute string `yaml:"password_attribute" json:"password_attribute"`
	ActiveAttribute   string `yaml:"active_attribute" json:"active_attribute"`

	// TrustStore is an optional PEM bundle of CAs trusted for all calls.
	TrustStore string `yaml:"trust_store" json:"trust_store"`

	// IgnorePasswordError swallows failures of the separate set-password
	// call made after create and update.
	IgnorePasswordError bool `yaml:"ignore_password_error" json:"ignore_password_error"`
}

// Default returns a Config with every optional setting at its default.
func Default() Config {
	return Config{
		LoginURL:            auth.DefaultLoginURL,
		ServicePath:         DefaultServicePath,
		ObjectType:          DefaultObjectType,
		UniqueAttribute:     mapping.DefaultLayout.Unique,
		NameAttribute:       mapping.DefaultLayout.Name,
		PasswordAttribute:   mapping.DefaultLayout.Password,
		ActiveAttribute:     mapping.DefaultLayout.Active,
		IgnorePasswordError: true,
	}
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
// ${NAME} references in string settings are replaced from the environment
// after decoding, so substituted values are never read as YAML; unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.expandEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${NAME} in every string setting. A bare $ (common in
// passwords) is kept.
func (c *Config) expandEnv() {
	fields := []*string{
		&c.ClientID, &c.ClientSecret, &c.Username, &c.Password, &c.SecurityToken,
		&c.LoginURL, &c.ServicePath, &c.ObjectType,
		&c.UniqueAttribute, &c.NameAttribute, &c.PasswordAttribute, &c.ActiveAttribute,
		&c.TrustStore,
	}
	for _, field := range fields {
		*field = envRef.ReplaceAllStringFunc(*field, func(ref string) string {
			return os.Getenv(envRef.FindStringSubmatch(ref)[1])
		})
	}
}

// Validate checks cfg against the schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// Credentials returns the token exchange credentials.
func (c Config) Credentials() auth.Credentials {
	return auth.Credentials{
		ClientID:      c.ClientID,
		ClientSecret:  c.ClientSecret,
		Username:      c.Username,
		Password:      c.Password,
		SecurityToken: c.SecurityToken,
		LoginURL:      c.LoginURL,
	}
}

// Layout returns the column layout of the object type.
func (c Config) Layout() mapping.Layout {
	return mapping.Layout{
		Unique:   c.UniqueAttribute,
		Name:     c.NameAttribute,
		Password: c.PasswordAttribute,
		Active:   c.ActiveAttribute,
	}
}

// ObjectServicePath is the collection path of the object type, with a
// trailing slash: <service_path>/sobjects/<object_type>/.
func (c Config) ObjectServicePath() string {
	return c.ServicePath + "/sobjects/" + c.ObjectType + "/"
}

// QueryServicePath is the query endpoint prefix: <service_path>/query/?q=.
func (c Config) QueryServicePath() string {
	return c.ServicePath + "/query/?q="
}

// Package config loads node configuration from YAML and validates it
// against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/txprop/internal/token"
)

//go:embed schema.cue
var schemaSource string

// Config is a node's configuration.
type Config struct {
	Ledger      LedgerConfig      `yaml:"ledger" json:"ledger"`
	Coordinator CoordinatorConfig `yaml:"coordinator" json:"coordinator"`
	Admin       AdminConfig       `yaml:"admin" json:"admin"`
	Propagation PropagationConfig `yaml:"propagation" json:"propagation"`
	Log         LogConfig         `yaml:"log" json:"log"`
}

// LedgerConfig locates the coordinator ledger.
type LedgerConfig struct {
	Path string `yaml:"path" json:"path"`
}

// CoordinatorConfig names the coordinator and where it is reachable.
type CoordinatorConfig struct {
	Name string `yaml:"name" json:"name"`

	// Address is advertised in whereabouts. Defaults to Listen.
	Address string `yaml:"address" json:"address"`

	// Listen is the gRPC listen address. Empty disables serving.
	Listen string `yaml:"listen" json:"listen"`

	// Remote, when set, dials a coordinator instead of opening the ledger.
	Remote string `yaml:"remote" json:"remote"`
}

// AdminConfig configures the admin HTTP server. Empty Listen disables it.
type AdminConfig struct {
	Listen string `yaml:"listen" json:"listen"`
}

// PropagationConfig sets the wire constants written by this node.
type PropagationConfig struct {
	TokenVersion    string `yaml:"token_version" json:"token_version"`
	CookieSignature string `yaml:"cookie_signature" json:"cookie_signature"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Ledger: LedgerConfig{Path: "txprop.db"},
		Coordinator: CoordinatorConfig{
			Name:   "txprop",
			Listen: "127.0.0.1:7400",
		},
		Admin: AdminConfig{Listen: "127.0.0.1:7401"},
		Propagation: PropagationConfig{
			TokenVersion:    token.DefaultVersion.String(),
			CookieSignature: token.DefaultCookieSignature.String(),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
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
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
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

// AdvertisedAddress is the address carried in whereabouts.
func (c Config) AdvertisedAddress() string {
	if c.Coordinator.Address != "" {
		return c.Coordinator.Address
	}
	return c.Coordinator.Listen
}

// TokenVersion parses the configured propagation token version.
func (c Config) TokenVersion() (token.Version, error) {
	return token.ParseVersion(c.Propagation.TokenVersion)
}

// CookieSignature parses the configured export cookie signature.
func (c Config) CookieSignature() (token.Signature, error) {
	return token.ParseSignature(c.Propagation.CookieSignature)
}

// NewLogger builds a slog.Logger writing to w per the log settings.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

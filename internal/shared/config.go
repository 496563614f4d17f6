package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed termsync.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Registry    RegistryConfig    `toml:"registry"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// RegistryConfig selects which registry edition sync runs target.
type RegistryConfig struct {
	Target string `toml:"target"` // "desktop" or "online"
}

// CredentialsConfig contains per-registry connection settings.
type CredentialsConfig struct {
	Desktop DesktopConfig `toml:"desktop"`
	Online  OnlineConfig  `toml:"online"`
}

// DesktopConfig contains settings for the QuickBooks Desktop bridge.
type DesktopConfig struct {
	BridgeURL   string  `toml:"bridge_url"`
	CompanyFile string  `toml:"company_file"`
	AppName     string  `toml:"app_name"`
	RateLimit   float64 `toml:"rate_limit"`
}

// Map flattens the bridge settings for service constructors.
func (c *DesktopConfig) Map() map[string]string {
	return map[string]string{
		"bridge_url":   c.BridgeURL,
		"company_file": c.CompanyFile,
		"app_name":     c.AppName,
	}
}

// OnlineConfig contains OAuth2 credentials for the QuickBooks Online API.
type OnlineConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	BaseURL      string `toml:"base_url"`
	RealmID      string `toml:"realm_id"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
}

// Map flattens the credentials for service constructors.
func (c *OnlineConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
		"base_url":      c.BaseURL,
		"realm_id":      c.RealmID,
		"access_token":  c.AccessToken,
		"refresh_token": c.RefreshToken,
	}
}

// Token rebuilds an [oauth2.Token] from the stored credentials.
func (c *OnlineConfig) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
	}
}

// Update copies token material from an OAuth2 exchange into the config.
// The refresh token is kept when the exchange did not rotate it.
func (c *OnlineConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}
	c.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.RefreshToken = token.RefreshToken
	}
	return nil
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings for the OAuth callback listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// SaveConfig writes the configuration to path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a termsync.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultRepo is used when GITHUB_REPO is not set.
const DefaultRepo = "pdawson1983/dawson-pkb"

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	GitHub GitHubConfig      `yaml:"github"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.GitHub.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the optional health listener configuration.
// Port 0 disables the listener; the MCP transport is stdio either way.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Enabled reports whether the health listener should start.
func (c *HTTPConfig) Enabled() bool { return c.Port > 0 }

// Address returns the listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
	)
}

// GitHubConfig holds the connection settings for the knowledge-base
// repository. Token is required: the process refuses to start without it.
type GitHubConfig struct {
	Token          string `yaml:"token"`
	Repo           string `yaml:"repo"`
	Branch         string `yaml:"branch"`
	APIBaseURL     string `yaml:"api_base_url"`
	HTMLBaseURL    string `yaml:"html_base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Validate validates the GitHub configuration.
func (c *GitHubConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.Repo, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
	); err != nil {
		return err
	}
	if !strings.Contains(c.Repo, "/") {
		return fmt.Errorf("github: repo must be \"owner/name\", got %q", c.Repo)
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *GitHubConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NewDefaultConfig returns a Config with defaults drawn from the
// environment, so the server can run without a config file at all.
func NewDefaultConfig() *Config {
	repo := os.Getenv("GITHUB_REPO")
	if repo == "" {
		repo = DefaultRepo
	}
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 0,
			},
		},
		GitHub: GitHubConfig{
			Token:          os.Getenv("GITHUB_TOKEN"),
			Repo:           repo,
			Branch:         "main",
			TimeoutSeconds: 30,
		},
	}
}

// Package site describes the host installation to connecting agents.
package site

import "time"

type Config struct {
	URL             string   `mapstructure:"url"`
	AdminEmail      string   `mapstructure:"admin_email"`
	PlatformVersion string   `mapstructure:"platform_version"`
	Timezone        string   `mapstructure:"timezone"`
	Locale          string   `mapstructure:"locale"`
	Plugins         []Plugin `mapstructure:"plugins"`
	Themes          []Theme  `mapstructure:"themes"`
}

type Plugin struct {
	Name    string `mapstructure:"name" json:"name"`
	Version string `mapstructure:"version" json:"version"`
	Active  bool   `mapstructure:"active" json:"active"`
}

type Theme struct {
	Name    string `mapstructure:"name" json:"name"`
	Version string `mapstructure:"version" json:"version"`
	Active  bool   `mapstructure:"active" json:"active"`
}

// Info is the site descriptor returned to agents on registration and
// connection so they can bootstrap against the installation.
type Info struct {
	SiteURL          string `json:"site_url"`
	AdminEmail       string `json:"admin_email"`
	PlatformVersion  string `json:"platform_version"`
	ConnectorVersion string `json:"connector_version"`
	Timezone         string `json:"timezone"`
	Locale           string `json:"locale"`
}

type Service struct {
	cfg     Config
	version string
}

func NewService(cfg Config, connectorVersion string) *Service {
	return &Service{cfg: cfg, version: connectorVersion}
}

func (s *Service) URL() string {
	return s.cfg.URL
}

func (s *Service) Info() Info {
	return Info{
		SiteURL:          s.cfg.URL,
		AdminEmail:       s.cfg.AdminEmail,
		PlatformVersion:  s.cfg.PlatformVersion,
		ConnectorVersion: s.version,
		Timezone:         s.cfg.Timezone,
		Locale:           s.cfg.Locale,
	}
}

func (s *Service) Plugins() []Plugin {
	return s.cfg.Plugins
}

func (s *Service) Themes() []Theme {
	return s.cfg.Themes
}

// WebhookURL is the inbound callback endpoint agents POST signed events to.
func (s *Service) WebhookURL() string {
	return s.cfg.URL + "/api/v2/webhook"
}

// Now returns the site-local timestamp string used in API responses.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

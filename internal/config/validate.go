package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks cross-field constraints that tags cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	if c.Eschol.Configured() {
		if _, err := url.ParseRequestURI(c.Eschol.APIURL); err != nil {
			return fmt.Errorf("eschol.api_url: %w", err)
		}
		if c.Eschol.AccessToken == "" {
			return fmt.Errorf("eschol.access_token required when eschol.api_url is set")
		}
	}

	if !strings.HasSuffix(c.Eschol.BaseURL, "/") {
		c.Eschol.BaseURL += "/"
	}

	if _, err := url.ParseRequestURI(c.Render.PublicBaseURL); err != nil {
		return fmt.Errorf("render.public_base_url: %w", err)
	}
	c.Render.PublicBaseURL = strings.TrimRight(c.Render.PublicBaseURL, "/")

	if c.EZID.Configured() && (c.EZID.Username == "" || c.EZID.Password == "") {
		return fmt.Errorf("ezid.username and ezid.password required when ezid.endpoint is set")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}

	return nil
}

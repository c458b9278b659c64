package bosmon

import (
	"net"
	"net/url"
	"strings"

	"alarm-relay/internal/adapters/base"
	"alarm-relay/internal/common/errors"
	"alarm-relay/internal/common/validation"
)

// Config is the resolved bosmon settings section
type Config struct {
	Server   string
	Port     string
	Channel  string
	User     string
	Password string
}

func loadConfig(a *base.Adapter) (*Config, error) {
	values, err := a.Lookup("bosmon_server", "bosmon_port", "bosmon_channel")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:  strings.TrimSpace(values["bosmon_server"]),
		Port:    strings.TrimSpace(values["bosmon_port"]),
		Channel: strings.TrimSpace(values["bosmon_channel"]),
		User:    a.Settings().GetOptional(a.Section(), "bosmon_user"),
	}
	if cfg.User != "" {
		if cfg.Password, err = a.Get("bosmon_password"); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	return cfg, nil
}

// Validate checks the settings are usable for a request
func (c *Config) Validate() error {
	v := validation.NewValidatorWithPrefix("bosmon")
	v.RequireString(c.Server, "bosmon_server")
	v.RequireString(c.Channel, "bosmon_channel")
	if c.Port != "" {
		v.RequirePort(c.Port, "bosmon_port")
	}
	return v.Error()
}

// BaseURL returns scheme://host:port for the configured server. A server
// without scheme defaults to http.
func (c *Config) BaseURL() string {
	server := c.Server
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return server
	}
	host := u.Host
	if c.Port != "" && u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), c.Port)
	}
	return u.Scheme + "://" + host
}

// InputURL returns the telegram input endpoint for the configured channel
func (c *Config) InputURL() string {
	return c.BaseURL() + "/telegramin/" + url.PathEscape(c.Channel) + "/input.xml"
}

package backend

import (
	"flag"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

var Config ServerConfig

func init() {
	flag.StringVar(&Config.HTTP.Listen, "http", ":8080", "")
	flag.DurationVar(&Config.Session.KeepAlive, "keepalive", 20*time.Second, "")
}

type ServerConfig struct {
	HTTP    HTTPConfig    `yaml:"http" envPrefix:"HTTP_"`
	Session SessionConfig `yaml:"session,omitempty" envPrefix:"SESSION_"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen" env:"LISTEN"`
}

type SessionConfig struct {
	KeepAlive time.Duration `yaml:"keepalive,omitempty" env:"KEEPALIVE"`
}

func (c *SessionConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		KeepAlive string `yaml:"keepalive,omitempty"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if raw.KeepAlive != "" {
		d, err := time.ParseDuration(raw.KeepAlive)
		if err != nil {
			return err
		}
		c.KeepAlive = d
	}
	return nil
}

// LoadFromFile overlays settings from a yaml config file.
func (c *ServerConfig) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// LoadFromEnv overlays settings from NETWROK_-prefixed environment
// variables.
func (c *ServerConfig) LoadFromEnv() error {
	return env.ParseWithOptions(c, env.Options{Prefix: "NETWROK_"})
}

// Apply pushes config into the session layer.
func (c *ServerConfig) Apply() {
	if c.Session.KeepAlive > 0 {
		KeepAlive = c.Session.KeepAlive
	}
}

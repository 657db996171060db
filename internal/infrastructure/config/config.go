package config

import "github.com/kelseyhightower/envconfig"

// Database holds the libsql/Turso connection configuration. URL accepts a
// remote libsql:// URL or a local file: path.
type Database struct {
	URL       string `envconfig:"VARIANT_DATABASE_URL" required:"true"`
	AuthToken string `envconfig:"VARIANT_AUTH_TOKEN"`
}

// Server holds configuration for the HTTP API server.
type Server struct {
	Database Database
	Port     int `envconfig:"VARIANT_PORT" default:"8080"`
}

// Load loads database configuration from environment variables.
func Load() (*Database, error) {
	var cfg Database
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadServer loads server configuration from environment variables.
func LoadServer() (*Server, error) {
	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package config

import (
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from a .env file in the working directory, if
// present. Existing environment variables win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment variables")
	}
}

// SetupLogging installs the apex/log handler and level described by c
func (c *Config) SetupLogging(w io.Writer) error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	switch c.Log.Format {
	case "json":
		log.SetHandler(json.New(w))
	case "cli":
		log.SetHandler(cli.New(w))
	case "text", "":
		log.SetHandler(text.New(w))
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	log.SetLevel(level)
	return nil
}

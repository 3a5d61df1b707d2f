package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
)

// An extension starts with '.' followed by 1 to 6 word characters.
var extensionPattern = regexp.MustCompile(`^\.\w{1,6}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateApp(); err != nil {
		return err
	}
	if err := c.validateSSH(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateApp() error {
	if c.App.BaseTargetDir == "" {
		return errors.New("app.base_target_dir must be set")
	}
	if !path.IsAbs(c.App.BaseTargetDir) {
		return fmt.Errorf("app.base_target_dir must be absolute (start with /), got %q", c.App.BaseTargetDir)
	}
	if c.App.BaseSourceDir == "" {
		return errors.New("app.base_source_dir must be set")
	}
	info, err := os.Stat(c.App.BaseSourceDir)
	if err != nil {
		return fmt.Errorf("app.base_source_dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("app.base_source_dir %q is not a directory", c.App.BaseSourceDir)
	}
	if len(c.App.FileExtensions) == 0 {
		return errors.New("app.file_extensions must list at least one extension")
	}
	for _, ext := range c.App.FileExtensions {
		if !extensionPattern.MatchString(ext) {
			return fmt.Errorf("app.file_extensions: invalid extension %q (expected '.' followed by 1-6 letters or digits)", ext)
		}
	}
	return nil
}

func (c *Config) validateSSH() error {
	if c.SSH.Host == "" {
		return errors.New("ssh.host must be set")
	}
	if c.SSH.Port <= 0 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port must be between 1 and 65535, got %d", c.SSH.Port)
	}
	if c.SSH.Username == "" {
		return errors.New("ssh.username must be set")
	}
	if c.SSH.Password == "" && c.SSH.PrivateKey == "" {
		return errors.New("ssh.password or ssh.private_key must be set")
	}
	if c.SSH.PrivateKey != "" {
		info, err := os.Stat(c.SSH.PrivateKey)
		if err != nil {
			return fmt.Errorf("ssh.private_key: %w", err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("ssh.private_key %q is not a file", c.SSH.PrivateKey)
		}
	}
	if c.SSH.KnownHosts != "" {
		if _, err := os.Stat(c.SSH.KnownHosts); err != nil {
			return fmt.Errorf("ssh.known_hosts: %w", err)
		}
	}
	switch c.SSH.Protocol {
	case ProtocolSFTP, ProtocolSCP:
	default:
		return fmt.Errorf("ssh.protocol must be %q or %q, got %q", ProtocolSFTP, ProtocolSCP, c.SSH.Protocol)
	}
	if c.SSH.ConnectTimeout < 0 {
		return errors.New("ssh.connect_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("logging.format must be text, json or logfmt, got %q", c.Logging.Format)
	}
	return nil
}

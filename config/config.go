package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"recmover/moverr"
)

//go:embed sample_config.toml
var sampleConfig string

// App describes where recordings come from and where they go.
type App struct {
	// Base directory on the target machine. Files are organized by date below it,
	// e.g. ${base_target_dir}/2025/06/30/2025-06-30 15-32-04.mp4
	BaseTargetDir string `toml:"base_target_dir"`
	// Local directory searched recursively for recordings.
	BaseSourceDir  string   `toml:"base_source_dir"`
	FileExtensions []string `toml:"file_extensions"`
	// Optional run history database. Empty disables the journal.
	Journal string `toml:"journal"`
}

// SSH holds everything needed to open the transfer channel.
type SSH struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	PrivateKey     string `toml:"private_key"`
	KnownHosts     string `toml:"known_hosts"`
	Protocol       string `toml:"protocol"`
	ConnectTimeout int    `toml:"connect_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the validated configuration of a run.
type Config struct {
	App     App     `toml:"app"`
	SSH     SSH     `toml:"ssh"`
	Logging Logging `toml:"logging"`
}

const (
	ProtocolSFTP = "sftp"
	ProtocolSCP  = "scp"
)

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		SSH: SSH{
			Port:           22,
			Protocol:       ProtocolSFTP,
			ConnectTimeout: 15,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Address returns host:port of the remote machine.
func (s SSH) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Timeout returns the connect timeout as a duration.
func (s SSH) Timeout() time.Duration {
	return time.Duration(s.ConnectTimeout) * time.Second
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/recmover/config.toml")
}

// Load locates, parses and validates a configuration file. Every failure is
// tagged with moverr.ErrConfig. The resolved path is returned alongside.
func Load(path string) (*Config, string, error) {
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", moverr.Wrap(moverr.ErrConfig, "resolve config", path, err)
	}

	cfg, err := Read(resolved)
	if err != nil {
		return nil, resolved, err
	}
	return cfg, resolved, nil
}

// Read parses and validates the configuration file at path.
func Read(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, moverr.Wrap(moverr.ErrConfig, "config not found", path, nil)
		}
		return nil, moverr.Wrap(moverr.ErrConfig, "open config", path, err)
	}
	defer file.Close()

	cfg := Default()
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, moverr.Wrap(moverr.ErrConfig, "unknown fields in", path, errors.New(strings.TrimSpace(strict.String())))
		}
		return nil, moverr.Wrap(moverr.ErrConfig, "parse config", path, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, moverr.Wrap(moverr.ErrConfig, "normalize config", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, moverr.Wrap(moverr.ErrConfig, "validate config", path, err)
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return expandPath(path)
	}

	projectPath, err := filepath.Abs("recmover.toml")
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, nil
	}
	return DefaultConfigPath()
}

func (c *Config) normalize() error {
	var err error
	c.App.BaseTargetDir = strings.TrimSpace(c.App.BaseTargetDir)
	if c.App.BaseSourceDir, err = expandPath(strings.TrimSpace(c.App.BaseSourceDir)); err != nil {
		return err
	}
	if c.App.Journal, err = expandPath(strings.TrimSpace(c.App.Journal)); err != nil {
		return err
	}
	if c.SSH.PrivateKey, err = expandPath(strings.TrimSpace(c.SSH.PrivateKey)); err != nil {
		return err
	}
	if c.SSH.KnownHosts, err = expandPath(strings.TrimSpace(c.SSH.KnownHosts)); err != nil {
		return err
	}
	c.SSH.Host = strings.TrimSpace(c.SSH.Host)
	c.SSH.Username = strings.TrimSpace(c.SSH.Username)
	c.SSH.Protocol = strings.ToLower(strings.TrimSpace(c.SSH.Protocol))
	if c.SSH.Protocol == "" {
		c.SSH.Protocol = ProtocolSFTP
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

package transfer

import (
	"errors"
	"fmt"

	"github.com/bramvdbogaerde/go-scp/auth"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"recmover/config"
)

// ClientConfig builds the ssh client configuration for cfg. A private key is
// preferred; the password is offered as well when both are set, and doubles as
// the key passphrase for encrypted keys.
func ClientConfig(cfg config.SSH) (*ssh.ClientConfig, error) {
	hostKey, err := hostKeyCallback(cfg.KnownHosts)
	if err != nil {
		return nil, err
	}

	var clientConfig ssh.ClientConfig
	switch {
	case cfg.PrivateKey != "":
		clientConfig, err = auth.PrivateKey(cfg.Username, cfg.PrivateKey, hostKey)
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) && cfg.Password != "" {
			clientConfig, err = auth.PrivateKeyWithPassphrase(cfg.Username, []byte(cfg.Password), cfg.PrivateKey, hostKey)
		}
		if err != nil {
			return nil, fmt.Errorf("load private key %s: %w", cfg.PrivateKey, err)
		}
		if cfg.Password != "" {
			clientConfig.Auth = append(clientConfig.Auth, ssh.Password(cfg.Password))
		}
	case cfg.Password != "":
		clientConfig, err = auth.PasswordKey(cfg.Username, cfg.Password, hostKey)
		if err != nil {
			return nil, fmt.Errorf("password auth: %w", err)
		}
	default:
		return nil, errors.New("no password or private key configured")
	}

	clientConfig.Timeout = cfg.Timeout()
	return &clientConfig, nil
}

func hostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		// Unknown hosts are accepted, like an auto-add policy without the write.
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", knownHostsPath, err)
	}
	return cb, nil
}

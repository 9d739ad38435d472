package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

var ErrNoPassword = errors.New("salesforce password is not set")

// ResolvePassword возвращает пароль из SALESFORCE_PASSWORD, а если он пуст -
// из системного keyring (service = KeyringService, user = Username).
func (sf Salesforce) ResolvePassword() (string, error) {
	if sf.Password != "" {
		return sf.Password, nil
	}
	if sf.KeyringService == "" || sf.Username == "" {
		return "", ErrNoPassword
	}

	password, err := keyring.Get(sf.KeyringService, sf.Username)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w (keyring service %q has no entry for %q)", ErrNoPassword, sf.KeyringService, sf.Username)
	}
	if err != nil {
		return "", fmt.Errorf("keyring lookup failed: %w", err)
	}
	return password, nil
}

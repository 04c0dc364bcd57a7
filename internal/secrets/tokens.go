package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the engine's secrets in the OS keychain.
	KeyringService = "jobmarket"
)

var ErrEmptyAccount = errors.New("keyring account name is empty")

// SourceAccount is the keychain account holding a source's bearer token.
func SourceAccount(source string) string {
	return fmt.Sprintf("jobmarket:source:%s", strings.TrimSpace(source))
}

// GetSourceToken returns the stored token for account. A missing entry is
// not an error: the source is fetched without credentials.
func GetSourceToken(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", ErrEmptyAccount
	}
	tok, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", account, err)
	}
	return strings.TrimSpace(tok), nil
}

func SetSourceToken(account, token string) error {
	if strings.TrimSpace(account) == "" {
		return ErrEmptyAccount
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, account, token)
}

func DeleteSourceToken(account string) error {
	if strings.TrimSpace(account) == "" {
		return ErrEmptyAccount
	}
	err := keyring.Delete(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

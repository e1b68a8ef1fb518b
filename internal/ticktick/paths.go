package ticktick

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultAccount is the account name used when no account is specified.
const DefaultAccount = "default"

// configDirName is the directory under the user config dir that holds
// credential files.
const configDirName = "ticktick-mcp"

// CredentialsPath returns the credential file path for the given account.
// The default account maps to credentials.json; any other account maps to
// credentials-<account>.json in the same directory. An empty account is
// treated as the default account.
func CredentialsPath(account string) (string, error) {
	if account == "" {
		account = DefaultAccount
	}
	if err := ValidateAccountName(account); err != nil {
		return "", err
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}

	name := "credentials.json"
	if account != DefaultAccount {
		name = "credentials-" + account + ".json"
	}
	return filepath.Join(base, configDirName, name), nil
}

// HasCredentials reports whether a credential file exists for the account.
func HasCredentials(account string) bool {
	path, err := CredentialsPath(account)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// ValidateAccountName rejects account names that cannot safely become part
// of a file name. Accounts come from tool arguments or OAuth user emails,
// so anything outside a conservative character set is refused. The name
// must start with a letter or digit, which also rules out dot-file and
// parent-directory shapes.
func ValidateAccountName(account string) error {
	if account == "" {
		return &ValidationError{Field: "account", Reason: "must not be empty"}
	}
	for i, r := range account {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case i == 0:
			return &ValidationError{Field: "account", Reason: fmt.Sprintf("must start with a letter or digit, got %q", r)}
		case r == '-' || r == '_' || r == '.' || r == '@' || r == '+':
		default:
			return &ValidationError{Field: "account", Reason: fmt.Sprintf("invalid character %q", r)}
		}
	}
	return nil
}

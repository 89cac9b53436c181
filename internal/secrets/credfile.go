package secrets

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
)

// Credentials is the fixed identifier/secret pair the target session
// manager re-authenticates with.
type Credentials struct {
	Username string
	Password string
}

type credFile struct {
	Username string `json:"username"`
	Salt     string `json:"salt"`
	Password string `json:"password"` // AEAD-sealed
}

// SaveCredentials writes the pair to path with the password sealed under a
// passphrase-derived key.
func SaveCredentials(path, passphrase string, c Credentials) error {
	salt, err := NewSalt()
	if err != nil {
		return err
	}
	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return err
	}
	aead, err := New(key)
	if err != nil {
		return err
	}
	sealed, err := aead.EncryptToString(c.Password)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(credFile{
		Username: c.Username,
		Salt:     base64.RawStdEncoding.EncodeToString(salt),
		Password: sealed,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadCredentials reads and unseals the pair. A wrong passphrase surfaces
// as a decryption error.
func LoadCredentials(path, passphrase string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, err
	}
	var cf credFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return Credentials{}, fmt.Errorf("credentials file: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(cf.Salt)
	if err != nil {
		return Credentials{}, fmt.Errorf("credentials salt: %w", err)
	}
	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return Credentials{}, err
	}
	aead, err := New(key)
	if err != nil {
		return Credentials{}, err
	}
	pw, err := aead.DecryptString(cf.Password)
	if err != nil {
		return Credentials{}, fmt.Errorf("unseal credentials: %w", err)
	}
	return Credentials{Username: cf.Username, Password: pw}, nil
}

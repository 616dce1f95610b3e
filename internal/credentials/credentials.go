// Package credentials resolves the courier API password from an age-sealed secret.
package credentials

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"filippo.io/age"
)

// Static is a plaintext password, used when no sealed secret is configured.
type Static string

// Password returns the plaintext value.
func (s Static) Password(ctx context.Context) (string, error) {
	return string(s), nil
}

// Sealed decrypts a base64 age ciphertext with an X25519 identity on first use
// and caches the result.
type Sealed struct {
	ciphertext   string
	identity     string
	identityFile string

	mu       sync.Mutex
	password string
	resolved bool
}

// NewSealed creates a Sealed source. identity is an inline AGE-SECRET-KEY-1...
// string; identityFile is read when identity is empty.
func NewSealed(ciphertext, identity, identityFile string) *Sealed {
	return &Sealed{
		ciphertext:   strings.TrimSpace(ciphertext),
		identity:     strings.TrimSpace(identity),
		identityFile: identityFile,
	}
}

// Password decrypts the sealed secret. Failures are not cached so a corrected
// identity file is picked up on the next call.
func (s *Sealed) Password(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved {
		return s.password, nil
	}

	identities, err := s.identities()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(s.ciphertext)
	if err != nil {
		return "", fmt.Errorf("decoding base64 ciphertext: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(raw), identities...)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading decrypted plaintext: %w", err)
	}

	s.password = strings.TrimRight(string(plaintext), "\r\n")
	s.resolved = true
	return s.password, nil
}

func (s *Sealed) identities() ([]age.Identity, error) {
	source := s.identity
	if source == "" {
		if s.identityFile == "" {
			return nil, fmt.Errorf("no age identity configured")
		}
		b, err := os.ReadFile(s.identityFile)
		if err != nil {
			return nil, fmt.Errorf("reading identity file: %w", err)
		}
		source = string(b)
	}

	identities, err := age.ParseIdentities(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	return identities, nil
}

// Seal encrypts plaintext to the given age recipients (age1...) and returns
// base64 ciphertext suitable for the sealed password setting.
func Seal(plaintext string, recipientKeys ...string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return "", fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var buf bytes.Buffer
	writer, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write([]byte(plaintext)); err != nil {
		return "", fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

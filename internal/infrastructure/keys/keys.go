// Package keys owns the RSA keypair that signs and verifies access tokens.
//
// The pair is created lazily on first use when either PEM file is missing,
// written to disk so restarts keep verifying tokens issued before them, and
// cached for the lifetime of the process. A corrupt or unreadable key file is
// returned as an error; callers treat it as fatal at startup.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MinBits is the smallest modulus accepted for generated or loaded keys.
const MinBits = 2048

// Paths locates the PEM files. Relative paths resolve against the working
// directory.
type Paths struct {
	Private string
	Public  string
}

// Manager loads (or creates) the keypair once and serves cached copies.
type Manager struct {
	paths Paths
	bits  int

	pairOnce sync.Once
	priv     *rsa.PrivateKey
	pub      *rsa.PublicKey
	pairErr  error

	pubOnce   sync.Once
	pubOnly   *rsa.PublicKey
	pubOnlyEr error
}

// NewManager returns a Manager for the given paths.
func NewManager(paths Paths) *Manager {
	return &Manager{paths: paths, bits: MinBits}
}

// Load returns the keypair, generating and persisting it on the first call if
// either file is absent. Subsequent calls return the cached pair.
func (m *Manager) Load() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	m.pairOnce.Do(func() {
		m.priv, m.pub, m.pairErr = m.loadOrCreate()
	})
	return m.priv, m.pub, m.pairErr
}

// PublicKey returns only the verification key. It never generates a pair: a
// verifier that cannot find the issuer's public key must fail, not mint its
// own.
func (m *Manager) PublicKey() (*rsa.PublicKey, error) {
	m.pubOnce.Do(func() {
		m.pubOnly, m.pubOnlyEr = readPublicKey(m.paths.Public)
	})
	return m.pubOnly, m.pubOnlyEr
}

func (m *Manager) loadOrCreate() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	hasPriv, err := exists(m.paths.Private)
	if err != nil {
		return nil, nil, err
	}
	hasPub, err := exists(m.paths.Public)
	if err != nil {
		return nil, nil, err
	}

	if !hasPriv || !hasPub {
		if err := m.generate(); err != nil {
			return nil, nil, err
		}
	}

	priv, err := readPrivateKey(m.paths.Private)
	if err != nil {
		return nil, nil, err
	}
	pub, err := readPublicKey(m.paths.Public)
	if err != nil {
		return nil, nil, err
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, nil, fmt.Errorf("keys: %s does not match %s", m.paths.Public, m.paths.Private)
	}
	return priv, pub, nil
}

func (m *Manager) generate() error {
	priv, err := rsa.GenerateKey(rand.Reader, m.bits)
	if err != nil {
		return fmt.Errorf("keys: generate: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return fmt.Errorf("keys: marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return fmt.Errorf("keys: marshal public key: %w", err)
	}

	if err := writePEM(m.paths.Private, "PRIVATE KEY", privDER, 0o600); err != nil {
		return err
	}
	return writePEM(m.paths.Public, "PUBLIC KEY", pubDER, 0o644)
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("keys: create dir for %s: %w", path, err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("keys: write %s: %w", path, err)
	}
	return nil
}

func readPrivateKey(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	var key any
	switch block.Type {
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("keys: %s: unexpected PEM block %q", path, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("keys: parse %s: %w", path, err)
	}

	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("keys: %s is not an RSA private key", path)
	}
	if priv.N.BitLen() < MinBits {
		return nil, fmt.Errorf("keys: %s is %d bits, need at least %d", path, priv.N.BitLen(), MinBits)
	}
	return priv, nil
}

func readPublicKey(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	var key any
	switch block.Type {
	case "PUBLIC KEY":
		key, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		key, err = x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("keys: %s: unexpected PEM block %q", path, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("keys: parse %s: %w", path, err)
	}

	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("keys: %s is not an RSA public key", path)
	}
	if pub.N.BitLen() < MinBits {
		return nil, fmt.Errorf("keys: %s is %d bits, need at least %d", path, pub.N.BitLen(), MinBits)
	}
	return pub, nil
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: read %s: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("keys: %s: no PEM data", path)
	}
	return block, nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("keys: stat %s: %w", path, err)
}

package keys

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func tempPaths(t *testing.T) Paths {
	dir := t.TempDir()
	return Paths{
		Private: filepath.Join(dir, "nested", "private.pem"),
		Public:  filepath.Join(dir, "nested", "public.pem"),
	}
}

func TestLoad_GeneratesAndPersists(t *testing.T) {
	paths := tempPaths(t)
	m := NewManager(paths)

	priv, pub, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if priv.N.BitLen() < MinBits {
		t.Fatalf("expected at least %d bits, got %d", MinBits, priv.N.BitLen())
	}
	if !priv.PublicKey.Equal(pub) {
		t.Fatalf("public key does not match private key")
	}

	info, err := os.Stat(paths.Private)
	if err != nil {
		t.Fatalf("private key not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 private key, got %v", info.Mode().Perm())
	}
	if _, err := os.Stat(paths.Public); err != nil {
		t.Fatalf("public key not written: %v", err)
	}
}

func TestLoad_ReusesPairAcrossRestarts(t *testing.T) {
	paths := tempPaths(t)

	first, _, err := NewManager(paths).Load()
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	second, _, err := NewManager(paths).Load()
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("expected the persisted pair to be reused")
	}
}

func TestLoad_RegeneratesWhenOneFileMissing(t *testing.T) {
	paths := tempPaths(t)
	first, _, err := NewManager(paths).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := os.Remove(paths.Public); err != nil {
		t.Fatalf("remove: %v", err)
	}

	second, pub, err := NewManager(paths).Load()
	if err != nil {
		t.Fatalf("Load after removal: %v", err)
	}
	if first.Equal(second) {
		t.Fatalf("expected a fresh pair")
	}
	if !second.PublicKey.Equal(pub) {
		t.Fatalf("fresh pair is inconsistent")
	}
}

func TestLoad_CorruptFileIsFatal(t *testing.T) {
	paths := tempPaths(t)
	if _, _, err := NewManager(paths).Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := os.WriteFile(paths.Private, []byte("not a key"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, _, err := NewManager(paths).Load(); err == nil {
		t.Fatalf("expected error for corrupt private key")
	}
}

func TestLoad_CachedForProcessLifetime(t *testing.T) {
	m := NewManager(tempPaths(t))

	var wg sync.WaitGroup
	results := make([]any, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			priv, _, err := m.Load()
			if err != nil {
				t.Errorf("Load: %v", err)
				return
			}
			results[i] = priv
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatalf("expected every caller to observe the same cached key")
		}
	}
}

func TestPublicKey_NeverGenerates(t *testing.T) {
	paths := tempPaths(t)
	if _, err := NewManager(paths).PublicKey(); err == nil {
		t.Fatalf("expected error when public key is absent")
	}
	if _, err := os.Stat(paths.Private); !os.IsNotExist(err) {
		t.Fatalf("PublicKey must not create a private key")
	}
}

func TestPublicKey_MatchesIssuerPair(t *testing.T) {
	paths := tempPaths(t)
	_, pub, err := NewManager(paths).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, err := NewManager(paths).PublicKey()
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	if !got.Equal(pub) {
		t.Fatalf("verifier key differs from issuer key")
	}
}

package secrets

import (
	"crypto/aes"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"
)

var (
	testKey = strings.Repeat("ab", 32) // 32 bytes hex-encoded
	testIV  = strings.Repeat("cd", aes.BlockSize)
)

func setHandles(t *testing.T) {
	t.Helper()
	t.Setenv(EnvKey, testKey)
	t.Setenv(EnvIV, testIV)
}

func encryptBlob(t *testing.T, plain string) string {
	t.Helper()
	key, _ := hex.DecodeString(testKey)
	iv, _ := hex.DecodeString(testIV)
	raw, err := Encrypt([]byte(plain), key, iv)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestVaultRoundTrip(t *testing.T) {
	setHandles(t)
	v := NewVault(map[string]string{"PYPI_PASSWORD": encryptBlob(t, "hunter2")})

	if !v.Has("PYPI_PASSWORD") {
		t.Fatalf("expected vault to know PYPI_PASSWORD")
	}
	got, err := v.Reveal("PYPI_PASSWORD")
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if got != "hunter2" {
		t.Fatalf("expected hunter2, got %q", got)
	}
}

func TestVaultUnknownName(t *testing.T) {
	setHandles(t)
	v := NewVault(nil)
	if _, err := v.Reveal("NOPE"); err == nil {
		t.Fatalf("expected error for unknown secure variable")
	}
}

func TestVaultMissingHandles(t *testing.T) {
	t.Setenv(EnvKey, "")
	t.Setenv(EnvIV, "")
	v := NewVault(map[string]string{"X": encryptBlobWithFixedKey(t)})
	if _, err := v.Reveal("X"); err == nil {
		t.Fatalf("expected error when key handles are unset")
	}
}

func encryptBlobWithFixedKey(t *testing.T) string {
	t.Helper()
	key, _ := hex.DecodeString(testKey)
	iv, _ := hex.DecodeString(testIV)
	raw, err := Encrypt([]byte("x"), key, iv)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestVaultBadHandleLength(t *testing.T) {
	t.Setenv(EnvKey, "abcd") // far too short
	t.Setenv(EnvIV, testIV)
	v := NewVault(map[string]string{"X": encryptBlobWithFixedKey(t)})
	if _, err := v.Reveal("X"); err == nil || !strings.Contains(err.Error(), "need 32 bytes") {
		t.Fatalf("expected key length error, got %v", err)
	}
}

func TestVaultBadBlob(t *testing.T) {
	setHandles(t)
	v := NewVault(map[string]string{"X": "not base64!!"})
	if _, err := v.Reveal("X"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDecryptRejectsPartialBlock(t *testing.T) {
	key, _ := hex.DecodeString(testKey)
	iv, _ := hex.DecodeString(testIV)
	if _, err := Decrypt([]byte("short"), key, iv); err == nil {
		t.Fatalf("expected error for non-block-aligned ciphertext")
	}
}

func TestEncryptFromEnv(t *testing.T) {
	setHandles(t)
	blob, err := EncryptFromEnv("deploy-token")
	if err != nil {
		t.Fatalf("EncryptFromEnv: %v", err)
	}
	v := NewVault(map[string]string{"TOKEN": blob})
	got, err := v.Reveal("TOKEN")
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if got != "deploy-token" {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

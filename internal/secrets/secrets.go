// Package secrets handles the encrypted values a pipeline definition may
// carry. Blobs are AES-256-CBC encrypted and base64 encoded; the key and IV
// come from two hex-encoded environment handles so the pipeline file itself
// never holds usable credentials.
package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
)

// Environment handles the key material is read from.
const (
	EnvKey = "STAGEHAND_ENCRYPTION_KEY"
	EnvIV  = "STAGEHAND_ENCRYPTION_IV"
)

// Vault lazily decrypts named blobs. Key material is only read from the
// environment on the first Reveal, so runs that never touch a secure
// variable work without the handles set.
type Vault struct {
	blobs  map[string]string
	key    []byte
	iv     []byte
	loaded bool
}

// NewVault wraps the secure section of a pipeline definition.
func NewVault(blobs map[string]string) *Vault {
	return &Vault{blobs: blobs}
}

// Has reports whether a blob exists under name.
func (v *Vault) Has(name string) bool {
	_, ok := v.blobs[name]
	return ok
}

// Reveal decrypts the blob stored under name.
func (v *Vault) Reveal(name string) (string, error) {
	blob, ok := v.blobs[name]
	if !ok {
		return "", fmt.Errorf("no secure variable %q", name)
	}
	if err := v.loadKeyMaterial(); err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("secure variable %q: decode blob: %w", name, err)
	}
	plain, err := Decrypt(raw, v.key, v.iv)
	if err != nil {
		return "", fmt.Errorf("secure variable %q: %w", name, err)
	}
	return string(plain), nil
}

func (v *Vault) loadKeyMaterial() error {
	if v.loaded {
		return nil
	}
	key, err := hexHandle(EnvKey, 32)
	if err != nil {
		return err
	}
	iv, err := hexHandle(EnvIV, aes.BlockSize)
	if err != nil {
		return err
	}
	v.key, v.iv = key, iv
	v.loaded = true
	return nil
}

func hexHandle(env string, size int) ([]byte, error) {
	val := os.Getenv(env)
	if val == "" {
		return nil, fmt.Errorf("environment handle %s is not set", env)
	}
	b, err := hex.DecodeString(val)
	if err != nil {
		return nil, fmt.Errorf("environment handle %s: %w", env, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("environment handle %s: need %d bytes, got %d", env, size, len(b))
	}
	return b, nil
}

// Decrypt reverses Encrypt: AES-CBC then PKCS#7 unpadding.
func Decrypt(blob, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 || len(blob)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(blob))
	}
	out := make([]byte, len(blob))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, blob)
	return unpad(out)
}

// Encrypt produces an AES-CBC blob with PKCS#7 padding. Used by the
// `secret` command to prepare values for the pipeline file.
func Encrypt(plain, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pad(plain)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// EncryptFromEnv encrypts plain with the key material from the environment
// handles and returns the base64 blob for the pipeline file.
func EncryptFromEnv(plain string) (string, error) {
	key, err := hexHandle(EnvKey, 32)
	if err != nil {
		return "", err
	}
	iv, err := hexHandle(EnvIV, aes.BlockSize)
	if err != nil {
		return "", err
	}
	raw, err := Encrypt([]byte(plain), key, iv)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("bad padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("bad padding")
		}
	}
	return b[:len(b)-n], nil
}

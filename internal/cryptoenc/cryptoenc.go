// Package cryptoenc implements C4, the optional command-encryption
// envelope: AES-256-CBC + PKCS#7 padding for the command itself, with the
// one-time AES key/IV wrapped under the Miniserver's RSA public key. Key
// generation and encrypt/decrypt helper shape grounded on
// internal/vault/crypto.go, adapted from that package's AES-256-GCM +
// Argon2id KEK wrapping (a symmetric-only, passphrase-derived scheme) to
// the asymmetric CBC+RSA-PKCS1v15 envelope Loxone's wire protocol requires.
package cryptoenc

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

const (
	aesKeyLen = 32 // AES-256
	aesIVLen  = 16
	saltLen   = 2 // 2 bytes, hex-encoded per spec.md §4.4
)

// Encrypter wraps a Miniserver RSA public key, parsed once from the PEM
// X.509 certificate returned by GET /jdev/sys/getPublicKey. A nil
// *Encrypter (or a failed ParsePublicKey) means encryption stays disabled
// for the session, per spec.md §4.3.
type Encrypter struct {
	pub    *rsa.PublicKey
	logger *zap.Logger
}

// ParsePublicKey extracts the RSA public key from a PEM-encoded X.509
// certificate. On failure, callers should continue without an Encrypter
// (command encryption permanently disabled for the session) and log a
// warning, per spec.md §4.3 step 2.
func ParsePublicKey(pemCert string, logger *zap.Logger) (*Encrypter, error) {
	block, _ := pem.Decode([]byte(pemCert))
	if block == nil {
		return nil, errors.New("no PEM block found in public key response")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("certificate public key is not RSA")
	}
	return &Encrypter{pub: pub, logger: logger}, nil
}

// TryEncrypt wraps an already-authenticated plaintext command path
// (e.g. "jdev/sps/io/UUID/On?autht=...&user=...") into the
// "jdev/sys/enc/{ct}?sk={sk}" form. On any failure it returns (_, false)
// so the caller falls back to sending the plaintext command, per
// spec.md §4.4's "on any encryption failure, fall back" rule.
func (e *Encrypter) TryEncrypt(plaintextCommand string) (string, bool) {
	encoded, err := e.encrypt(plaintextCommand)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("command encryption failed, sending plaintext", zap.Error(err))
		}
		return "", false
	}
	return encoded, true
}

func (e *Encrypter) encrypt(plaintextCommand string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	withSalt := fmt.Sprintf("salt/%s/%s", hex.EncodeToString(salt), plaintextCommand)

	aesKey := make([]byte, aesKeyLen)
	if _, err := rand.Read(aesKey); err != nil {
		return "", fmt.Errorf("generate AES key: %w", err)
	}
	iv := make([]byte, aesIVLen)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate IV: %w", err)
	}

	ciphertext, err := encryptCBC(aesKey, iv, []byte(withSalt))
	if err != nil {
		return "", fmt.Errorf("CBC encrypt: %w", err)
	}
	ctB64 := base64.StdEncoding.EncodeToString(ciphertext)

	sessionKeyPlain := fmt.Sprintf("%s:%s", hex.EncodeToString(aesKey), hex.EncodeToString(iv))
	sessionKeyEnc, err := rsa.EncryptPKCS1v15(rand.Reader, e.pub, []byte(sessionKeyPlain))
	if err != nil {
		return "", fmt.Errorf("RSA wrap session key: %w", err)
	}
	skB64 := base64.StdEncoding.EncodeToString(sessionKeyEnc)

	return fmt.Sprintf("jdev/sys/enc/%s?sk=%s", url.QueryEscape(ctB64), url.QueryEscape(skB64)), nil
}

// encryptCBC PKCS#7-pads plaintext to a multiple of the block size and
// encrypts it under AES-256-CBC.
func encryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	ciphertext := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// decryptCBC is the inverse of encryptCBC; exercised by tests (property 10:
// an encrypted command round-trips through a loopback oracle).
func decryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext)%block.BlockSize() != 0 {
		return nil, errors.New("ciphertext is not a multiple of the block size")
	}
	plain := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plain, ciphertext)
	return pkcs7Unpad(plain)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, errors.New("invalid PKCS#7 padding")
	}
	return data[:len(data)-padLen], nil
}

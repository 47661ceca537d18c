package cryptoenc

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"
)

// loopbackDecrypt acts as the Miniserver-side oracle: given the encoded
// "jdev/sys/enc/{ct}?sk={sk}" path and the matching private key, recover
// the original authenticated command string including its salt prefix.
func loopbackDecrypt(t *testing.T, priv *rsa.PrivateKey, encoded string) string {
	t.Helper()
	const prefix = "jdev/sys/enc/"
	if !strings.HasPrefix(encoded, prefix) {
		t.Fatalf("unexpected encoded form: %s", encoded)
	}
	rest := encoded[len(prefix):]
	parts := strings.SplitN(rest, "?sk=", 2)
	if len(parts) != 2 {
		t.Fatalf("missing sk parameter: %s", encoded)
	}
	ctB64, err := url.QueryUnescape(parts[0])
	if err != nil {
		t.Fatalf("unescape ct: %v", err)
	}
	skB64, err := url.QueryUnescape(parts[1])
	if err != nil {
		t.Fatalf("unescape sk: %v", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		t.Fatalf("decode ct: %v", err)
	}
	sessionKeyEnc, err := base64.StdEncoding.DecodeString(skB64)
	if err != nil {
		t.Fatalf("decode sk: %v", err)
	}

	sessionKeyPlain, err := rsa.DecryptPKCS1v15(rand.Reader, priv, sessionKeyEnc)
	if err != nil {
		t.Fatalf("RSA unwrap session key: %v", err)
	}
	kv := strings.SplitN(string(sessionKeyPlain), ":", 2)
	if len(kv) != 2 {
		t.Fatalf("malformed session key blob: %s", sessionKeyPlain)
	}
	aesKey, err := hex.DecodeString(kv[0])
	if err != nil {
		t.Fatalf("decode aes key: %v", err)
	}
	iv, err := hex.DecodeString(kv[1])
	if err != nil {
		t.Fatalf("decode iv: %v", err)
	}

	plain, err := decryptCBC(aesKey, iv, ciphertext)
	if err != nil {
		t.Fatalf("CBC decrypt: %v", err)
	}
	return string(plain)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	enc := &Encrypter{pub: &priv.PublicKey}

	const command = "jdev/sps/io/abc-123/On?autht=tok&user=admin"
	encoded, ok := enc.TryEncrypt(command)
	if !ok {
		t.Fatalf("expected TryEncrypt to succeed")
	}

	recovered := loopbackDecrypt(t, priv, encoded)
	const saltPrefix = "salt/"
	if !strings.HasPrefix(recovered, saltPrefix) {
		t.Fatalf("expected salt prefix, got %q", recovered)
	}
	rest := recovered[len(saltPrefix):]
	slashIdx := strings.Index(rest, "/")
	if slashIdx == -1 {
		t.Fatalf("malformed salt section: %q", recovered)
	}
	saltHex := rest[:slashIdx]
	if _, err := hex.DecodeString(saltHex); err != nil {
		t.Fatalf("salt is not valid hex: %v", err)
	}
	original := rest[slashIdx+1:]
	if original != command {
		t.Fatalf("round trip mismatch: got %q want %q", original, command)
	}
}

func TestPKCS7PadUnpad(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 31, 32} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		padded := pkcs7Pad(data, 16)
		if len(padded)%16 != 0 {
			t.Fatalf("padded length %d not a multiple of 16 (n=%d)", len(padded), n)
		}
		unpadded, err := pkcs7Unpad(padded)
		if err != nil {
			t.Fatalf("unpad: %v", err)
		}
		if len(unpadded) != n {
			t.Fatalf("unpad length mismatch: got %d want %d", len(unpadded), n)
		}
	}
}

package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureHeader = "X-API-Signature"
	TimestampHeader = "X-API-Timestamp"

	signaturePrefix = "ed25519="

	// DefaultSignatureWindow bounds the clock skew accepted between signer and verifier
	DefaultSignatureWindow = 5 * time.Minute
)

// APIRequestSigner signs outgoing requests with an Ed25519 key
type APIRequestSigner struct {
	privateKey ed25519.PrivateKey
	now        func() time.Time
}

// NewAPIRequestSigner creates a signer from a base64 encoded Ed25519 private key
func NewAPIRequestSigner(privateKeyBase64 string) (*APIRequestSigner, error) {
	privateKeyBytes, err := base64.StdEncoding.DecodeString(privateKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}

	if len(privateKeyBytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size: expected %d, got %d", ed25519.PrivateKeySize, len(privateKeyBytes))
	}

	return &APIRequestSigner{
		privateKey: ed25519.PrivateKey(privateKeyBytes),
		now:        time.Now,
	}, nil
}

// SignRequest returns the headers carrying the signature for method, path and body
func (s *APIRequestSigner) SignRequest(method, path string, body []byte) (map[string]string, error) {
	timestamp := strconv.FormatInt(s.now().Unix(), 10)

	signature := ed25519.Sign(s.privateKey, canonicalRequest(method, path, timestamp, body))

	return map[string]string{
		SignatureHeader: signaturePrefix + base64.StdEncoding.EncodeToString(signature),
		TimestampHeader: timestamp,
	}, nil
}

// APISignatureVerifier verifies request signatures produced by APIRequestSigner
type APISignatureVerifier struct {
	publicKey ed25519.PublicKey
	window    time.Duration
	now       func() time.Time
}

// NewAPISignatureVerifier creates a verifier from a base64 encoded Ed25519 public key
func NewAPISignatureVerifier(publicKeyBase64 string) (*APISignatureVerifier, error) {
	publicKeyBytes, err := base64.StdEncoding.DecodeString(publicKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}

	if len(publicKeyBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key size: expected %d, got %d", ed25519.PublicKeySize, len(publicKeyBytes))
	}

	return &APISignatureVerifier{
		publicKey: ed25519.PublicKey(publicKeyBytes),
		window:    DefaultSignatureWindow,
		now:       time.Now,
	}, nil
}

// VerifyRequest checks the signature header against the request and the timestamp window
func (v *APISignatureVerifier) VerifyRequest(method, path, signatureHeader, timestampHeader string, body []byte) error {
	encoded, ok := strings.CutPrefix(signatureHeader, signaturePrefix)
	if !ok || encoded == "" {
		return fmt.Errorf("invalid signature format")
	}

	signature, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}

	timestamp, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}

	skew := v.now().Sub(time.Unix(timestamp, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.window {
		return fmt.Errorf("timestamp outside allowed window")
	}

	if !ed25519.Verify(v.publicKey, canonicalRequest(method, path, timestampHeader, body), signature) {
		return fmt.Errorf("signature verification failed")
	}

	return nil
}

// GenerateKeyPair returns a new base64 encoded Ed25519 key pair (public, private)
func GenerateKeyPair() (string, string, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate key pair: %w", err)
	}

	return base64.StdEncoding.EncodeToString(publicKey), base64.StdEncoding.EncodeToString(privateKey), nil
}

func canonicalRequest(method, path, timestamp string, body []byte) []byte {
	bodyHash := sha256.Sum256(body)
	return []byte(fmt.Sprintf("%s\n%s\n\n%s\nsha256:%x", method, path, timestamp, bodyHash))
}

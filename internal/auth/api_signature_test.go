package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPair(t *testing.T) (*APIRequestSigner, *APISignatureVerifier) {
	t.Helper()

	publicKey, privateKey, err := GenerateKeyPair()
	require.NoError(t, err)

	signer, err := NewAPIRequestSigner(privateKey)
	require.NoError(t, err)

	verifier, err := NewAPISignatureVerifier(publicKey)
	require.NoError(t, err)

	return signer, verifier
}

func TestSignAndVerify(t *testing.T) {
	signer, verifier := newTestPair(t)
	body := []byte(`{"interval_ms":3000}`)

	headers, err := signer.SignRequest("POST", "/monitor/polling", body)
	require.NoError(t, err)

	err = verifier.VerifyRequest("POST", "/monitor/polling", headers[SignatureHeader], headers[TimestampHeader], body)
	assert.NoError(t, err)
}

func TestVerifyRequest_Rejects(t *testing.T) {
	signer, verifier := newTestPair(t)
	body := []byte(`{}`)

	headers, err := signer.SignRequest("POST", "/monitor/cancel-all", body)
	require.NoError(t, err)

	tests := []struct {
		name      string
		method    string
		path      string
		signature string
		timestamp string
		body      []byte
	}{
		{"tampered body", "POST", "/monitor/cancel-all", headers[SignatureHeader], headers[TimestampHeader], []byte(`{"x":1}`)},
		{"other path", "POST", "/monitor/refresh", headers[SignatureHeader], headers[TimestampHeader], body},
		{"other method", "DELETE", "/monitor/cancel-all", headers[SignatureHeader], headers[TimestampHeader], body},
		{"missing prefix", "POST", "/monitor/cancel-all", "abc", headers[TimestampHeader], body},
		{"bad timestamp", "POST", "/monitor/cancel-all", headers[SignatureHeader], "yesterday", body},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.VerifyRequest(tt.method, tt.path, tt.signature, tt.timestamp, tt.body)
			assert.Error(t, err)
		})
	}
}

func TestVerifyRequest_ExpiredTimestamp(t *testing.T) {
	signer, verifier := newTestPair(t)
	signer.now = func() time.Time { return time.Now().Add(-10 * time.Minute) }

	headers, err := signer.SignRequest("GET", "/monitor", nil)
	require.NoError(t, err)

	err = verifier.VerifyRequest("GET", "/monitor", headers[SignatureHeader], headers[TimestampHeader], nil)
	assert.EqualError(t, err, "timestamp outside allowed window")
}

func TestNewAPIRequestSigner_InvalidKey(t *testing.T) {
	_, err := NewAPIRequestSigner("c2hvcnQ=")
	assert.ErrorContains(t, err, "invalid private key size")

	_, err = NewAPISignatureVerifier("not base64!")
	assert.Error(t, err)
}

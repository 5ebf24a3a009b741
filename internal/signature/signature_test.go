package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
)

func signManifest(secret, dataID, requestID, ts string) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	const (
		secret    = "test-webhook-secret"
		dataID    = "123456789"
		requestID = "req-abc-123"
		ts        = "1704908010"
	)

	validHash := signManifest(secret, dataID, requestID, ts)

	tests := []struct {
		name       string
		secret     string
		xSignature string
		want       bool
	}{
		{
			name:       "valid signature",
			secret:     secret,
			xSignature: fmt.Sprintf("ts=%s,v1=%s", ts, validHash),
			want:       true,
		},
		{
			name:       "valid signature with spaces",
			secret:     secret,
			xSignature: fmt.Sprintf("ts = %s, v1 = %s", ts, validHash),
			want:       true,
		},
		{
			name:       "wrong hash",
			secret:     secret,
			xSignature: fmt.Sprintf("ts=%s,v1=%s", ts, signManifest("other-secret", dataID, requestID, ts)),
			want:       false,
		},
		{
			name:       "tampered timestamp",
			secret:     secret,
			xSignature: fmt.Sprintf("ts=9999999999,v1=%s", validHash),
			want:       false,
		},
		{
			name:       "missing header",
			secret:     secret,
			xSignature: "",
			want:       false,
		},
		{
			name:       "garbled header",
			secret:     secret,
			xSignature: "not-a-signature",
			want:       false,
		},
		{
			name:       "missing v1 part",
			secret:     secret,
			xSignature: fmt.Sprintf("ts=%s", ts),
			want:       false,
		},
		{
			name:       "no secret configured is a no-op",
			secret:     "",
			xSignature: "",
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVerifier(tt.secret)
			got := v.Verify(tt.xSignature, requestID, dataID)
			if got != tt.want {
				t.Fatalf("Verify(%q) = %v, want %v", tt.xSignature, got, tt.want)
			}
		})
	}
}

func TestVerifyDifferentDataID(t *testing.T) {
	const secret = "test-webhook-secret"

	hash := signManifest(secret, "111", "req-1", "1704908010")
	v := NewVerifier(secret)

	if v.Verify("ts=1704908010,v1="+hash, "req-1", "222") {
		t.Fatalf("signature for another data id must not verify")
	}
}

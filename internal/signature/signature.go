// Package signature проверяет подпись webhook-уведомлений MercadoPago.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Verifier проверяет, что webhook действительно отправлен MercadoPago.
// Если секрет не задан, проверка отключена и любое уведомление считается
// подлинным — это явный небезопасный режим для окружений без настроенного
// секрета, а не скрытое поведение.
type Verifier struct {
	secret []byte
}

// NewVerifier создаёт верификатор с указанным общим секретом.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Enabled сообщает, настроена ли проверка подписи.
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify проверяет заголовок x-signature формата "ts=<ts>,v1=<hmac>".
// Подпись считается корректной, если HMAC-SHA256 от канонической строки
// "id:<dataID>;request-id:<requestID>;ts:<ts>;" с ключом-секретом совпадает
// с v1. Сравнение выполняется за константное время.
func (v *Verifier) Verify(xSignature, xRequestID, dataID string) bool {
	if !v.Enabled() {
		return true
	}

	ts, hash, ok := parseSignatureHeader(xSignature)
	if !ok {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, xRequestID, ts)

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(hash))
}

func parseSignatureHeader(header string) (ts, hash string, ok bool) {
	if header == "" {
		return "", "", false
	}

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			hash = strings.TrimSpace(value)
		}
	}

	if ts == "" || hash == "" {
		return "", "", false
	}

	return ts, hash, true
}

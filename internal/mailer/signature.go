// internal/mailer/signature.go
package mailer

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
)

// VerifySignature checks a Mailgun webhook signature: hex(HMAC-SHA256(key,
// timestamp || token)) must equal the signature from the payload. The
// comparison is constant-time.
func VerifySignature(signingKey, timestamp, token, signature string) bool {
    mac := hmac.New(sha256.New, []byte(signingKey))
    mac.Write([]byte(timestamp + token))
    expected := hex.EncodeToString(mac.Sum(nil))
    return hmac.Equal([]byte(expected), []byte(signature))
}

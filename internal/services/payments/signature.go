package payments

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Verifier checks that a notification was produced by the payment provider.
// The provider signs a fixed ordered field subset joined with '&', with the
// shared secret in the eighth position, and ships the SHA-1 hex digest in
// sha1_hash.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify fails closed: a missing secret rejects everything rather than
// letting unverified notifications through.
func (v *Verifier) Verify(n Notification) error {
	if strings.TrimSpace(v.secret) == "" {
		return ErrSignature
	}
	received := strings.ToLower(strings.TrimSpace(n.SHA1Hash))
	if received == "" {
		return ErrSignature
	}

	pieces := []string{
		n.NotificationType,
		n.OperationID,
		n.Amount,
		n.Currency,
		n.Datetime,
		n.Sender,
		n.Codepro,
		v.secret,
		n.Label,
	}
	sum := sha1.Sum([]byte(strings.Join(pieces, "&")))
	calc := hex.EncodeToString(sum[:])

	if !hmac.Equal([]byte(calc), []byte(received)) {
		return ErrSignature
	}
	return nil
}

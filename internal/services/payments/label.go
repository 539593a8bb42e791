package payments

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/AndreyF1/LinguaPulse/internal/pkg/validate"
)

// OrderToken is the opaque identity embedded in the notification label at
// purchase-initiation time and round-tripped through the provider.
type OrderToken struct {
	UserID    string
	ProductID string
	OrderID   string
}

// DecodeLabel parses base64(JSON {"u","pkg","o"}). Any failure is
// ErrMalformedLabel; there is no fallback identity, because a real payment
// must never be attributed to a guessed user.
func DecodeLabel(label string) (OrderToken, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(label))
	if err != nil {
		return OrderToken{}, ErrMalformedLabel
	}

	var payload struct {
		U   string `json:"u"`
		Pkg string `json:"pkg"`
		O   string `json:"o"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return OrderToken{}, ErrMalformedLabel
	}

	token := OrderToken{
		UserID:    strings.TrimSpace(payload.U),
		ProductID: strings.TrimSpace(payload.Pkg),
		OrderID:   strings.TrimSpace(payload.O),
	}
	if !validate.Required(token.UserID) || !validate.Required(token.ProductID) || !validate.Required(token.OrderID) {
		return OrderToken{}, ErrMalformedLabel
	}
	return token, nil
}

package payments

import (
	"encoding/base64"
	"testing"
)

func TestDecodeLabel(t *testing.T) {
	label := base64.StdEncoding.EncodeToString([]byte(`{"u":"user-1","pkg":"month","o":"order-77"}`))

	token, err := DecodeLabel(label)
	if err != nil {
		t.Fatalf("decode label: %v", err)
	}
	if token.UserID != "user-1" || token.ProductID != "month" || token.OrderID != "order-77" {
		t.Fatalf("unexpected token: %+v", token)
	}
}

func TestDecodeLabelRejectsBadBase64(t *testing.T) {
	if _, err := DecodeLabel("%%% not base64 %%%"); err != ErrMalformedLabel {
		t.Fatalf("expected ErrMalformedLabel, got %v", err)
	}
}

func TestDecodeLabelRejectsBadJSON(t *testing.T) {
	label := base64.StdEncoding.EncodeToString([]byte(`{"u": truncated`))
	if _, err := DecodeLabel(label); err != ErrMalformedLabel {
		t.Fatalf("expected ErrMalformedLabel, got %v", err)
	}
}

func TestDecodeLabelRejectsMissingKeys(t *testing.T) {
	cases := map[string]string{
		"missing user":    `{"pkg":"month","o":"order-1"}`,
		"missing product": `{"u":"user-1","o":"order-1"}`,
		"missing order":   `{"u":"user-1","pkg":"month"}`,
		"empty values":    `{"u":"","pkg":"","o":""}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			label := base64.StdEncoding.EncodeToString([]byte(payload))
			if _, err := DecodeLabel(label); err != ErrMalformedLabel {
				t.Fatalf("expected ErrMalformedLabel, got %v", err)
			}
		})
	}
}

func TestDecodeLabelRejectsEmpty(t *testing.T) {
	if _, err := DecodeLabel(""); err != ErrMalformedLabel {
		t.Fatalf("expected ErrMalformedLabel for empty label, got %v", err)
	}
}

package enums

import (
	"errors"
	"strings"
)

var ErrUnknownCapability = errors.New("unknown capability")

// Capability is a gated feature of the product.
type Capability string

const (
	CapabilityAudio Capability = "audio"
	CapabilityText  Capability = "text"
)

func ParseCapability(raw string) (Capability, error) {
	switch Capability(strings.ToLower(strings.TrimSpace(raw))) {
	case CapabilityAudio:
		return CapabilityAudio, nil
	case CapabilityText:
		return CapabilityText, nil
	default:
		return "", ErrUnknownCapability
	}
}

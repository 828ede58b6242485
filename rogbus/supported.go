package rogbus

import (
	"context"
)

// Supported is the capability discovery object.
type Supported struct {
	*Channel
}

func NewSupported(opts ...Option) *Supported {
	return &Supported{Channel: NewChannel(SchemaSupported, "/org/asuslinux/Supported", opts...)}
}

// Functions asks the daemon what it supports. A disconnected channel
// reports nothing supported.
func (s *Supported) Functions(ctx context.Context) (Capabilities, error) {
	body, err := s.Invoke(ctx, "SupportedFunctions")
	if err != nil || body == nil {
		return Capabilities{}, err
	}
	if len(body) >= 5 {
		return DecodeCapabilities(body)
	}
	return DecodeCapabilities(body[0])
}

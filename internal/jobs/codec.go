package jobs

import (
	"encoding/json"
	"fmt"
)

func EncodePayload(t JobType, payload any) (json.RawMessage, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case TypeSignupConfirmation:
		var p SignupConfirmationPayload
		switch v := payload.(type) {
		case SignupConfirmationPayload:
			p = v
		case *SignupConfirmationPayload:
			p = *v
		default:
			return nil, ErrPayloadTypeMismatch
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals a stored payload into its typed struct.
func DecodePayload(t JobType, raw json.RawMessage) (any, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(raw) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch t {
	case TypeSignupConfirmation:
		var p SignupConfirmationPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}

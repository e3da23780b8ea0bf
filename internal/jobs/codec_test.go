package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeDecode_SignupConfirmation(t *testing.T) {
	payload := SignupConfirmationPayload{
		SignupID:    "signup-1",
		EventID:     "event-123",
		UserID:      "user-456",
		RequestedAt: time.Now().UTC(),
	}

	raw, err := EncodePayload(TypeSignupConfirmation, payload)
	if err != nil {
		t.Fatalf("EncodePayload error: %v", err)
	}

	decoded, err := DecodePayload(TypeSignupConfirmation, raw)
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}

	p, ok := decoded.(SignupConfirmationPayload)
	if !ok {
		t.Fatalf("expected SignupConfirmationPayload, got %T", decoded)
	}

	if p.EventID != payload.EventID || p.UserID != payload.UserID {
		t.Fatalf("payload mismatch: %+v", p)
	}
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(TypeSignupConfirmation, struct{ EventID string }{EventID: "e1"})
	if !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestEncodePayload_RequiresIDs(t *testing.T) {
	_, err := EncodePayload(TypeSignupConfirmation, SignupConfirmationPayload{EventID: "e1"})
	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}

func TestDecodePayload_UnknownType(t *testing.T) {
	_, err := DecodePayload(JobType("nope"), []byte(`{}`))
	if !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

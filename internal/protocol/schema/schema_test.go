package schema

import (
	"errors"
	"testing"

	"github.com/danmuck/caseroom/internal/protocol"
	"github.com/danmuck/caseroom/internal/protocol/tlv"
	"github.com/danmuck/caseroom/internal/testutil/testlog"
)

func presenceFields() []tlv.Field {
	return []tlv.Field{
		tlv.String(FieldCaseTitle, "A Study in Scarlet"),
		tlv.String(FieldHostDisplayName, "Holmes"),
		tlv.Bool(FieldIsPublic, true),
		tlv.String(FieldJoinCode, "QK7M"),
		tlv.U16(FieldTCPPort, 52525),
		tlv.String(FieldSessionID, "s-1"),
	}
}

func TestValidatePresenceRequiredFields(t *testing.T) {
	testlog.Start(t)
	if err := Validate(MsgPresence, presenceFields()); err != nil {
		t.Fatalf("validate presence: %v", err)
	}
}

func TestValidateUnknownFieldsIgnored(t *testing.T) {
	testlog.Start(t)
	fields := append(presenceFields(), tlv.Field{ID: 9999, Type: 9, Value: []byte{0x01}})
	if err := Validate(MsgPresence, fields); err != nil {
		t.Fatalf("validate with unknown field: %v", err)
	}
}

func TestValidateMissingRequiredDeterministic(t *testing.T) {
	testlog.Start(t)
	err := Validate(MsgPresence, presenceFields()[:2])
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.FieldID != FieldIsPublic || ve.Reason != "missing required field" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
	if !errors.Is(err, protocol.ErrDeserialization) {
		t.Fatalf("expected deserialization class")
	}
}

func TestValidateOptionalTypeMismatch(t *testing.T) {
	testlog.Start(t)
	fields := append(presenceFields(), tlv.String(FieldPlayerCount, "two"))
	err := Validate(MsgPresence, fields)
	var ve ValidationError
	if !errors.As(err, &ve) || ve.FieldID != FieldPlayerCount || ve.Reason != "type mismatch" {
		t.Fatalf("unexpected result: %v", err)
	}
}

func TestValidateUnknownMessageType(t *testing.T) {
	testlog.Start(t)
	if err := Validate(77, presenceFields()); err == nil {
		t.Fatalf("expected unknown message type failure")
	}
}

package schema

import (
	"fmt"

	"github.com/danmuck/caseroom/internal/protocol"
	"github.com/danmuck/caseroom/internal/protocol/tlv"
	"github.com/rs/zerolog/log"
)

// Packet type IDs carried in the discovery datagram header.
const (
	MsgPresence uint16 = 1
)

// Presence field IDs.
const (
	FieldCaseTitle       uint16 = 1
	FieldHostDisplayName uint16 = 2
	FieldIsPublic        uint16 = 3
	FieldJoinCode        uint16 = 4
	FieldTCPPort         uint16 = 5
	FieldSessionID       uint16 = 6
	FieldPlayerCount     uint16 = 7
	FieldMaxPlayers      uint16 = 8
)

type Requirement struct {
	ID   uint16
	Type uint8
}

type ValidationError struct {
	MessageType uint16
	FieldID     uint16
	Reason      string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("schema: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%d field=%d: %s", e.MessageType, e.FieldID, e.Reason)
}

// Is lets schema failures be classified as deserialization errors.
func (e ValidationError) Is(target error) bool {
	return target == protocol.ErrDeserialization
}

var requirements = map[uint16][]Requirement{
	MsgPresence: {
		{FieldCaseTitle, tlv.TypeString},
		{FieldHostDisplayName, tlv.TypeString},
		{FieldIsPublic, tlv.TypeBool},
		{FieldJoinCode, tlv.TypeString},
		{FieldTCPPort, tlv.TypeU16},
		{FieldSessionID, tlv.TypeString},
	},
}

// optional fields are type-checked only when present.
var optional = map[uint16][]Requirement{
	MsgPresence: {
		{FieldPlayerCount, tlv.TypeU16},
		{FieldMaxPlayers, tlv.TypeU16},
	},
}

// Validate enforces required fields and field types for a message type.
// Unknown fields are ignored.
func Validate(messageType uint16, fields []tlv.Field) error {
	reqs, ok := requirements[messageType]
	if !ok {
		log.Debug().Uint16("message_type", messageType).Msg("schema.Validate unknown message_type")
		return ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
	for _, req := range reqs {
		f, found := tlv.GetField(fields, req.ID)
		if !found {
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	for _, opt := range optional[messageType] {
		if f, found := tlv.GetField(fields, opt.ID); found && f.Type != opt.Type {
			return ValidationError{MessageType: messageType, FieldID: opt.ID, Reason: "type mismatch"}
		}
	}
	return nil
}

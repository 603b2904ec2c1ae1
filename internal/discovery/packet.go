package discovery

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/danmuck/caseroom/internal/protocol"
	"github.com/danmuck/caseroom/internal/protocol/schema"
	"github.com/danmuck/caseroom/internal/protocol/tlv"
)

// MaxPacketBytes bounds one presence datagram.
const MaxPacketBytes = 1400

var packetMagic = [4]byte{'C', 'S', 'R', 'M'}

const packetHeaderLen = len(packetMagic) + 2

// Presence is the advertisement a host broadcasts for one hosted game.
type Presence struct {
	CaseTitle       string
	HostDisplayName string
	IsPublic        bool
	JoinCode        string
	TCPPort         uint16
	SessionID       string
	PlayerCount     int
	MaxPlayers      int
}

func (p Presence) Validate() error {
	if strings.TrimSpace(p.SessionID) == "" {
		return fmt.Errorf("%w: presence missing session id", protocol.ErrValidation)
	}
	if strings.TrimSpace(p.JoinCode) == "" {
		return fmt.Errorf("%w: presence missing join code", protocol.ErrValidation)
	}
	if p.TCPPort == 0 {
		return fmt.Errorf("%w: presence missing tcp port", protocol.ErrValidation)
	}
	return nil
}

func EncodePresence(p Presence) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	fields := []tlv.Field{
		tlv.String(schema.FieldCaseTitle, p.CaseTitle),
		tlv.String(schema.FieldHostDisplayName, p.HostDisplayName),
		tlv.Bool(schema.FieldIsPublic, p.IsPublic),
		tlv.String(schema.FieldJoinCode, p.JoinCode),
		tlv.U16(schema.FieldTCPPort, p.TCPPort),
		tlv.String(schema.FieldSessionID, p.SessionID),
		tlv.U16(schema.FieldPlayerCount, clampU16(p.PlayerCount)),
		tlv.U16(schema.FieldMaxPlayers, clampU16(p.MaxPlayers)),
	}
	var buf bytes.Buffer
	buf.Write(packetMagic[:])
	_ = binary.Write(&buf, binary.BigEndian, schema.MsgPresence)
	buf.Write(tlv.EncodeFields(fields))
	if buf.Len() > MaxPacketBytes {
		return nil, fmt.Errorf("%w: presence packet %d bytes exceeds %d", protocol.ErrProtocol, buf.Len(), MaxPacketBytes)
	}
	return buf.Bytes(), nil
}

func DecodePresence(b []byte) (Presence, error) {
	if len(b) < packetHeaderLen || !bytes.Equal(b[:len(packetMagic)], packetMagic[:]) {
		return Presence{}, fmt.Errorf("%w: not a presence packet", protocol.ErrDeserialization)
	}
	msgType := binary.BigEndian.Uint16(b[len(packetMagic):packetHeaderLen])
	fields, err := tlv.DecodeFields(b[packetHeaderLen:])
	if err != nil {
		return Presence{}, err
	}
	if err := schema.Validate(msgType, fields); err != nil {
		return Presence{}, err
	}

	var p Presence
	var d fieldDecoder
	p.CaseTitle = d.str(fields, schema.FieldCaseTitle)
	p.HostDisplayName = d.str(fields, schema.FieldHostDisplayName)
	p.IsPublic = d.boolean(fields, schema.FieldIsPublic)
	p.JoinCode = d.str(fields, schema.FieldJoinCode)
	p.TCPPort = d.u16(fields, schema.FieldTCPPort)
	p.SessionID = d.str(fields, schema.FieldSessionID)
	p.PlayerCount = int(d.u16(fields, schema.FieldPlayerCount))
	p.MaxPlayers = int(d.u16(fields, schema.FieldMaxPlayers))
	if d.err != nil {
		return Presence{}, d.err
	}
	if err := p.Validate(); err != nil {
		return Presence{}, fmt.Errorf("%w: %v", protocol.ErrDeserialization, err)
	}
	return p, nil
}

// fieldDecoder keeps the first accessor error; absent optional fields decode as zero.
type fieldDecoder struct {
	err error
}

func (d *fieldDecoder) str(fields []tlv.Field, id uint16) string {
	f, ok := tlv.GetField(fields, id)
	if !ok || d.err != nil {
		return ""
	}
	v, err := f.AsString()
	d.err = err
	return v
}

func (d *fieldDecoder) boolean(fields []tlv.Field, id uint16) bool {
	f, ok := tlv.GetField(fields, id)
	if !ok || d.err != nil {
		return false
	}
	v, err := f.AsBool()
	d.err = err
	return v
}

func (d *fieldDecoder) u16(fields []tlv.Field, id uint16) uint16 {
	f, ok := tlv.GetField(fields, id)
	if !ok || d.err != nil {
		return 0
	}
	v, err := f.AsU16()
	d.err = err
	return v
}

func clampU16(n int) uint16 {
	if n < 0 {
		return 0
	}
	if n > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(n)
}

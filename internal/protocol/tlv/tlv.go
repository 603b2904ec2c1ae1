// Package tlv encodes id/type/length/value fields for connectionless packets.
package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/caseroom/internal/protocol"
)

const HeaderLen = 7

var (
	ErrShortFieldHeader = fmt.Errorf("%w: tlv: short field header", protocol.ErrDeserialization)
	ErrShortFieldValue  = fmt.Errorf("%w: tlv: short field value", protocol.ErrDeserialization)
	ErrTypeMismatch     = errors.New("tlv: field type mismatch")
)

// Type IDs.
const (
	TypeU8     uint8 = 1
	TypeU16    uint8 = 2
	TypeU32    uint8 = 3
	TypeBool   uint8 = 5
	TypeString uint8 = 6
)

// Field is one decoded TLV field.
type Field struct {
	ID    uint16
	Type  uint8
	Value []byte
}

func String(id uint16, v string) Field {
	return Field{ID: id, Type: TypeString, Value: []byte(v)}
}

func Bool(id uint16, v bool) Field {
	b := byte(0)
	if v {
		b = 1
	}
	return Field{ID: id, Type: TypeBool, Value: []byte{b}}
}

func U16(id uint16, v uint16) Field {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return Field{ID: id, Type: TypeU16, Value: buf}
}

func EncodeField(f Field) []byte {
	buf := make([]byte, HeaderLen+len(f.Value))
	binary.BigEndian.PutUint16(buf[0:2], f.ID)
	buf[2] = f.Type
	binary.BigEndian.PutUint32(buf[3:7], uint32(len(f.Value)))
	copy(buf[7:], f.Value)
	return buf
}

func EncodeFields(fields []Field) []byte {
	out := make([]byte, 0, 64)
	for _, f := range fields {
		out = append(out, EncodeField(f)...)
	}
	return out
}

func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0, 8)
	i := 0
	for i < len(payload) {
		if len(payload)-i < HeaderLen {
			return nil, ErrShortFieldHeader
		}
		id := binary.BigEndian.Uint16(payload[i : i+2])
		typeID := payload[i+2]
		l := binary.BigEndian.Uint32(payload[i+3 : i+7])
		i += HeaderLen
		if uint32(len(payload)-i) < l {
			return nil, ErrShortFieldValue
		}
		val := make([]byte, l)
		copy(val, payload[i:i+int(l)])
		i += int(l)
		fields = append(fields, Field{ID: id, Type: typeID, Value: val})
	}
	return fields, nil
}

func GetField(fields []Field, id uint16) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

func (f Field) AsString() (string, error) {
	if f.Type != TypeString {
		return "", f.mismatch(TypeString)
	}
	return string(f.Value), nil
}

func (f Field) AsBool() (bool, error) {
	if f.Type != TypeBool || len(f.Value) != 1 {
		return false, f.mismatch(TypeBool)
	}
	switch f.Value[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: tlv: field %d invalid bool %d", protocol.ErrDeserialization, f.ID, f.Value[0])
	}
}

func (f Field) AsU16() (uint16, error) {
	if f.Type != TypeU16 || len(f.Value) != 2 {
		return 0, f.mismatch(TypeU16)
	}
	return binary.BigEndian.Uint16(f.Value), nil
}


func (f Field) mismatch(want uint8) error {
	return fmt.Errorf("%w: %w: field %d got type=%d len=%d want type=%d",
		protocol.ErrDeserialization, ErrTypeMismatch, f.ID, f.Type, len(f.Value), want)
}

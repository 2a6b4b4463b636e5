// Package ipc provides inter-process communication between the expandd
// daemon and client tools over a Unix socket.
//
// Messages are framed with a fixed-size binary header followed by a JSON
// payload. The request ID correlates responses with requests.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Protocol version for compatibility checking
const (
	ProtocolVersion = 1
	ProtocolMagic   = 0x45585044 // "EXPD"
)

// MessageType identifies the type of IPC message
type MessageType uint16

const (
	// Control messages (0x00xx)
	MsgPing     MessageType = 0x0001
	MsgPong     MessageType = 0x0002
	MsgError    MessageType = 0x0003
	MsgShutdown MessageType = 0x0004
	MsgShutdownResp MessageType = 0x0005

	// Status (0x01xx)
	MsgStatusRequest  MessageType = 0x0100
	MsgStatusResponse MessageType = 0x0101

	// Rule management (0x02xx)
	MsgReloadRequest    MessageType = 0x0200
	MsgReloadResponse   MessageType = 0x0201
	MsgTriggersRequest  MessageType = 0x0202
	MsgTriggersResponse MessageType = 0x0203

	// Matching control (0x03xx)
	MsgPauseRequest   MessageType = 0x0300
	MsgPauseResponse  MessageType = 0x0301
	MsgResumeRequest  MessageType = 0x0302
	MsgResumeResponse MessageType = 0x0303

	// History (0x04xx)
	MsgStatsRequest  MessageType = 0x0400
	MsgStatsResponse MessageType = 0x0401
)

// Header is the fixed-size message header (16 bytes)
type Header struct {
	Magic     uint32
	Version   uint8
	Flags     uint8
	Type      MessageType
	RequestID uint32
	Length    uint32 // Payload length, not including header
}

// HeaderSize is the size of the header in bytes
const HeaderSize = 16

// Header flags
const (
	FlagJSON uint8 = 0x01
)

// MaxPayloadSize bounds a single message payload.
const MaxPayloadSize = 16 * 1024 * 1024

// Message wraps a header and payload
type Message struct {
	Header  Header
	Payload []byte
}

// NewMessage creates a new message with the given type and payload
func NewMessage(msgType MessageType, requestID uint32, payload []byte) *Message {
	return &Message{
		Header: Header{
			Magic:     ProtocolMagic,
			Version:   ProtocolVersion,
			Flags:     FlagJSON,
			Type:      msgType,
			RequestID: requestID,
			Length:    uint32(len(payload)),
		},
		Payload: payload,
	}
}

// Write writes the header to a writer
func (h *Header) Write(w io.Writer) error {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.Flags
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Type))
	binary.BigEndian.PutUint32(buf[8:12], h.RequestID)
	binary.BigEndian.PutUint32(buf[12:16], h.Length)
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads a header from a reader
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h := &Header{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		Version:   buf[4],
		Flags:     buf[5],
		Type:      MessageType(binary.BigEndian.Uint16(buf[6:8])),
		RequestID: binary.BigEndian.Uint32(buf[8:12]),
		Length:    binary.BigEndian.Uint32(buf[12:16]),
	}

	if h.Magic != ProtocolMagic {
		return nil, fmt.Errorf("invalid magic number: %x", h.Magic)
	}

	if h.Version > ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", h.Version)
	}

	return h, nil
}

// Write writes the message to a writer
func (m *Message) Write(w io.Writer) error {
	if err := m.Header.Write(w); err != nil {
		return err
	}
	if len(m.Payload) > 0 {
		_, err := w.Write(m.Payload)
		return err
	}
	return nil
}

// ReadMessage reads a complete message from a reader
func ReadMessage(r io.Reader) (*Message, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	m := &Message{Header: *h}
	if h.Length > 0 {
		if h.Length > MaxPayloadSize {
			return nil, fmt.Errorf("payload too large: %d bytes", h.Length)
		}
		m.Payload = make([]byte, h.Length)
		if _, err := io.ReadFull(r, m.Payload); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Request/Response payloads

// ErrorResponse is sent when an operation fails
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrUnknown          = 1
	ErrInvalidRequest   = 2
	ErrInternalError    = 3
	ErrPermissionDenied = 4
)

// StatusResponse contains daemon status
type StatusResponse struct {
	Version    string    `json:"version"`
	StartedAt  time.Time `json:"started_at"`
	UptimeSec  int64     `json:"uptime_sec"`
	Paused     bool      `json:"paused"`
	Triggers   int       `json:"triggers"`
	MatchDirs  []string  `json:"match_dirs"`
	Backend    string    `json:"backend"`
	Keyboards  []string  `json:"keyboards,omitempty"`
	Events     uint64    `json:"events"`
	Expansions uint64    `json:"expansions"`
}

// ReloadResponse acknowledges a rule reload
type ReloadResponse struct {
	Success  bool   `json:"success"`
	Triggers int    `json:"triggers,omitempty"`
	Error    string `json:"error,omitempty"`
}

// TriggerInfo describes a loaded trigger
type TriggerInfo struct {
	Trigger string `json:"trigger"`
	Replace string `json:"replace"`
}

// TriggersResponse lists all loaded triggers
type TriggersResponse struct {
	Triggers []TriggerInfo `json:"triggers"`
}

// PauseResponse acknowledges a pause or resume request
type PauseResponse struct {
	Paused bool `json:"paused"`
}

// TriggerCount is a per-trigger usage aggregate
type TriggerCount struct {
	Trigger string `json:"trigger"`
	Count   int64  `json:"count"`
}

// StatsResponse contains expansion history aggregates
type StatsResponse struct {
	TotalExpansions int64          `json:"total_expansions"`
	TotalFailures   int64          `json:"total_failures"`
	FirstExpansion  time.Time      `json:"first_expansion,omitempty"`
	LastExpansion   time.Time      `json:"last_expansion,omitempty"`
	TopTriggers     []TriggerCount `json:"top_triggers,omitempty"`
}

// Encode encodes a payload to JSON bytes
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode decodes JSON bytes to a payload
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewErrorMessage creates an error message
func NewErrorMessage(requestID uint32, code int, message string) *Message {
	payload, _ := Encode(&ErrorResponse{
		Code:    code,
		Message: message,
	})
	return NewMessage(MsgError, requestID, payload)
}

// NewResponse creates a response message
func NewResponse(msgType MessageType, requestID uint32, v any) (*Message, error) {
	payload, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return NewMessage(msgType, requestID, payload), nil
}

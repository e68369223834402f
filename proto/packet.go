package proto

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync/atomic"
)

type PacketType string

var (
	EventType    = PacketType("ev")
	RequestType  = PacketType("req")
	ResponseType = PacketType("resp")
)

// ErrorName is the packet name used for failure responses.
const ErrorName = "error"

// A Packet is one frame on the wire: a named event, request, or response
// with an 8-hex-char correlation id and an ordered argument list.
type Packet struct {
	Name string        `json:"name"` // the name of the event, request, or response
	Type PacketType    `json:"type"` // "ev", "req", or "resp"
	ID   string        `json:"id"`   // correlation id for associating responses with requests
	Args []interface{} `json:"args"` // ordered payload values
}

func (p *Packet) Encode() ([]byte, error) { return json.Marshal(p) }

// ParsePacket decodes a wire frame. A frame missing name, id, or type, or
// carrying a type outside the recognized set, fails with ErrProtocol.
func ParsePacket(data []byte) (*Packet, error) {
	packet := &Packet{}
	if err := json.Unmarshal(data, packet); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProtocol, err)
	}
	if packet.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrProtocol)
	}
	if packet.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrProtocol)
	}
	switch packet.Type {
	case EventType, RequestType, ResponseType:
	default:
		return nil, fmt.Errorf("%w: invalid packet type: %q", ErrProtocol, packet.Type)
	}
	if packet.Args == nil {
		packet.Args = []interface{}{}
	}
	return packet, nil
}

// NewEvent constructs a push event tagged with a fresh correlation id.
func NewEvent(name string, args ...interface{}) *Packet {
	if args == nil {
		args = []interface{}{}
	}
	return &Packet{Name: name, Type: EventType, ID: CorrelationID(), Args: args}
}

// MakeResponse builds the response to cmd. A non-nil err produces an error
// response carrying the failed command's name and the error text.
func MakeResponse(cmd *Packet, args []interface{}, err error) *Packet {
	if err != nil {
		return &Packet{
			Name: ErrorName,
			Type: ResponseType,
			ID:   cmd.ID,
			Args: []interface{}{cmd.Name, err.Error()},
		}
	}
	if args == nil {
		args = []interface{}{}
	}
	return &Packet{Name: cmd.Name, Type: ResponseType, ID: cmd.ID, Args: args}
}

// CorrelationID returns a random tag drawn from the 32-bit space, rendered
// as 8 hex characters. It is best-effort only; uniqueness is not enforced.
func CorrelationID() string {
	return fmt.Sprintf("%08X", rand.Uint32())
}

var requestSeq uint32

// NextRequestID returns a monotonically increasing correlation id in the
// same 8-hex form, for requests where response pairing actually matters.
func NextRequestID() string {
	return fmt.Sprintf("%08X", atomic.AddUint32(&requestSeq, 1))
}

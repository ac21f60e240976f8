package stream

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
)

// Message types sent to clients.
const (
	TypeSnapshot = "snapshot"
	TypeState    = "state"
	TypeTask     = "task"
	TypeReplan   = "replan"
	TypeError    = "error"
)

// Message is the envelope for everything the hub sends.
type Message struct {
	Type     string        `json:"type"`
	Snapshot *sim.Snapshot `json:"snapshot,omitempty"`
	// state changes
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	// task and replan events
	Agent string `json:"agent,omitempty"`
	Cell  string `json:"cell,omitempty"`
	OK    *bool  `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}

// Command is a control request from a client.
type Command struct {
	Action string  `json:"action"`
	Value  float64 `json:"value,omitempty"`
}

// Codec maps messages and commands to websocket frames.
type Codec interface {
	// FrameType is websocket.TextMessage or websocket.BinaryMessage.
	FrameType() int
	Encode(msg Message) ([]byte, error)
	Decode(data []byte) (Command, error)
}

// NewCodec returns the codec for an encoding name: "json" or "proto".
func NewCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSONCodec{}, nil
	case "proto", "protobuf":
		return ProtoCodec{}, nil
	}
	return nil, fmt.Errorf("unknown stream encoding %q", name)
}

// JSONCodec sends text frames.
type JSONCodec struct{}

func (JSONCodec) FrameType() int { return websocket.TextMessage }

func (JSONCodec) Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Decode(data []byte) (Command, error) {
	var cmd Command
	err := json.Unmarshal(data, &cmd)
	return cmd, err
}

// ProtoCodec sends binary frames holding a google.protobuf.Struct with the
// same fields as the JSON form.
type ProtoCodec struct{}

func (ProtoCodec) FrameType() int { return websocket.BinaryMessage }

func (ProtoCodec) Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

func (ProtoCodec) Decode(data []byte) (Command, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return Command{}, err
	}
	fields := st.GetFields()
	cmd := Command{
		Action: fields["action"].GetStringValue(),
		Value:  fields["value"].GetNumberValue(),
	}
	return cmd, nil
}

// DecodeMessage reads a protobuf frame back into a Message. Clients and
// tests use it; the hub only encodes.
func (ProtoCodec) DecodeMessage(data []byte) (Message, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return Message{}, err
	}
	raw, err := json.Marshal(st.AsMap())
	if err != nil {
		return Message{}, err
	}
	var msg Message
	err = json.Unmarshal(raw, &msg)
	return msg, err
}

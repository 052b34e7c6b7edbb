package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the frame encoding of a connection.
type Format uint8

const (
	FormatJSON Format = iota
	FormatMsgpack
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatMsgpack}

func (f Format) String() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return "json"
}

// ParseFormat maps a ?fmt= query value to a format. Anything unknown is JSON.
func ParseFormat(s string) Format {
	if s == "msgpack" {
		return FormatMsgpack
	}
	return FormatJSON
}

// Envelope wraps every outgoing message with its type.
type Envelope struct {
	T string `json:"t"`
	D any    `json:"d,omitempty"`
}

// Inbound is a decoded incoming envelope whose payload is still raw.
type Inbound struct {
	T      string
	D      []byte
	format Format
}

type jsonInbound struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d"`
}

type msgpackInbound struct {
	T string             `json:"t"`
	D msgpack.RawMessage `json:"d"`
}

// Encode builds a frame for type t in the given format.
func Encode(f Format, t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("encoding envelope with empty type")
	}
	env := Envelope{T: t, D: payload}
	if f == FormatMsgpack {
		return marshalMsgpack(env)
	}
	return json.Marshal(env)
}

// DecodeInbound parses an incoming frame.
func DecodeInbound(f Format, b []byte) (Inbound, error) {
	if len(b) == 0 {
		return Inbound{}, fmt.Errorf("decoding empty frame")
	}
	if f == FormatMsgpack {
		var in msgpackInbound
		if err := unmarshalMsgpack(b, &in); err != nil {
			return Inbound{}, err
		}
		return Inbound{T: in.T, D: in.D, format: f}, nil
	}
	var in jsonInbound
	if err := json.Unmarshal(b, &in); err != nil {
		return Inbound{}, err
	}
	return Inbound{T: in.T, D: in.D, format: f}, nil
}

// DecodePayload unmarshals the payload of in into a T.
func DecodePayload[T any](in Inbound) (T, error) {
	var out T
	if len(in.D) == 0 {
		return out, fmt.Errorf("empty payload for type %q", in.T)
	}
	if in.format == FormatMsgpack {
		return out, unmarshalMsgpack(in.D, &out)
	}
	return out, json.Unmarshal(in.D, &out)
}

// The msgpack codec reuses the json tags so both formats share key names.
func marshalMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalMsgpack(b []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

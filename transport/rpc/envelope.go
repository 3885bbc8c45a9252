package rpc

import (
	"github.com/golang/protobuf/proto"

	"github.com/twitter/dtree/transport"
)

// Envelope is the wire form of a transport.Message. Field numbers are part
// of the protocol between ranks and must not change.
type Envelope struct {
	From    int32     `protobuf:"varint,1,opt,name=from,proto3" json:"from,omitempty"`
	Kind    int32     `protobuf:"varint,2,opt,name=kind,proto3" json:"kind,omitempty"`
	First   int64     `protobuf:"varint,3,opt,name=first,proto3" json:"first,omitempty"`
	Last    int64     `protobuf:"varint,4,opt,name=last,proto3" json:"last,omitempty"`
	Weights []float64 `protobuf:"fixed64,5,rep,packed,name=weights,proto3" json:"weights,omitempty"`
}

func (m *Envelope) Reset()         { *m = Envelope{} }
func (m *Envelope) String() string { return proto.CompactTextString(m) }
func (*Envelope) ProtoMessage()    {}

// Ack is the empty reply to a delivered Envelope.
type Ack struct{}

func (m *Ack) Reset()         { *m = Ack{} }
func (m *Ack) String() string { return proto.CompactTextString(m) }
func (*Ack) ProtoMessage()    {}

func toEnvelope(from int, msg transport.Message) *Envelope {
	return &Envelope{
		From:    int32(from),
		Kind:    int32(msg.Kind),
		First:   msg.First,
		Last:    msg.Last,
		Weights: msg.Weights,
	}
}

func fromEnvelope(env *Envelope) (int, transport.Message) {
	return int(env.From), transport.Message{
		Kind:    transport.Kind(env.Kind),
		First:   env.First,
		Last:    env.Last,
		Weights: env.Weights,
	}
}

package packet

import (
	"github.com/google/uuid"

	"github.com/nwaples/wirelink/wire"
)

// Packet is anything that can be marshalled to and decoded from a frame body.
type Packet interface {
	Marshal(buf []byte) ([]byte, error)
	Unmarshal(data []byte) error
}

var (
	enquirySchema = wire.Schema{
		{Name: "state", Type: wire.Uint},
		{Name: "sesh_type", Type: wire.Uint},
		{Name: "sesh_id", Type: wire.UUID},
	}
	responseSchema = wire.Schema{
		{Name: "state", Type: wire.Uint},
		{Name: "value", Type: wire.BytesVar},
		{Name: "sesh_type", Type: wire.Uint},
		{Name: "sesh_id", Type: wire.UUID},
	}
	tellSchema = wire.Schema{
		{Name: "state", Type: wire.Uint},
		{Name: "value", Type: wire.BytesVar},
		{Name: "sesh_type", Type: wire.Uint},
		{Name: "sesh_id", Type: wire.UUID},
	}
	showSchema = wire.Schema{
		{Name: "state", Type: wire.Uint},
		{Name: "sesh_type", Type: wire.Uint},
		{Name: "sesh_id", Type: wire.UUID},
	}
	confirmSchema = wire.Schema{
		{Name: "proposal", Type: wire.Uint},
		{Name: "answer", Type: wire.Uint, Hi: 2},
		{Name: "sesh_type", Type: wire.Uint},
		{Name: "sesh_id", Type: wire.UUID},
	}
	lifecycleSchema = wire.Schema{
		{Name: "sesh_type", Type: wire.Uint},
		{Name: "sesh_id", Type: wire.UUID},
	}
	unknownSchema = wire.Schema{
		{Name: "type", Type: wire.Uint},
		{Name: "level", Type: wire.Uint},
		{Name: "process", Type: wire.Uint},
	}
	errorSchema = wire.Schema{
		{Name: "type", Type: wire.Uint},
		{Name: "level", Type: wire.Uint},
		{Name: "process", Type: wire.Uint},
		{Name: "error", Type: wire.Uint, Hi: 4},
	}
)

// Enquiry requests the current value of a named state from the peer.
type Enquiry struct {
	State    uint64
	SeshType uint64
	SeshID   uuid.UUID
}

func (p *Enquiry) Marshal(buf []byte) ([]byte, error) {
	return wire.Encode(enquirySchema, []wire.Value{
		wire.UintValue(p.State),
		wire.UintValue(p.SeshType),
		wire.UUIDValue(p.SeshID),
	}, buf)
}

func (p *Enquiry) Unmarshal(data []byte) error {
	v, err := wire.Decode(enquirySchema, data)
	if err != nil {
		return err
	}
	p.State, p.SeshType, p.SeshID = v[0].Uint, v[1].Uint, v[2].UUID
	return nil
}

// Response replies to an Enquiry with the requested value.
type Response struct {
	State    uint64
	Value    []byte
	SeshType uint64
	SeshID   uuid.UUID
}

func (p *Response) Marshal(buf []byte) ([]byte, error) {
	return wire.Encode(responseSchema, []wire.Value{
		wire.UintValue(p.State),
		wire.VarValue(p.Value),
		wire.UintValue(p.SeshType),
		wire.UUIDValue(p.SeshID),
	}, buf)
}

func (p *Response) Unmarshal(data []byte) error {
	v, err := wire.Decode(responseSchema, data)
	if err != nil {
		return err
	}
	p.State, p.Value, p.SeshType, p.SeshID = v[0].Uint, v[1].Bytes, v[2].Uint, v[3].UUID
	return nil
}

// Tell proposes a value for a state, or delivers one in answer to a Show.
type Tell struct {
	State    uint64
	Value    []byte
	SeshType uint64
	SeshID   uuid.UUID
}

func (p *Tell) Marshal(buf []byte) ([]byte, error) {
	return wire.Encode(tellSchema, []wire.Value{
		wire.UintValue(p.State),
		wire.VarValue(p.Value),
		wire.UintValue(p.SeshType),
		wire.UUIDValue(p.SeshID),
	}, buf)
}

func (p *Tell) Unmarshal(data []byte) error {
	v, err := wire.Decode(tellSchema, data)
	if err != nil {
		return err
	}
	p.State, p.Value, p.SeshType, p.SeshID = v[0].Uint, v[1].Bytes, v[2].Uint, v[3].UUID
	return nil
}

// Show asks the peer to push its current value for a state via Tell.
type Show struct {
	State    uint64
	SeshType uint64
	SeshID   uuid.UUID
}

func (p *Show) Marshal(buf []byte) ([]byte, error) {
	return wire.Encode(showSchema, []wire.Value{
		wire.UintValue(p.State),
		wire.UintValue(p.SeshType),
		wire.UUIDValue(p.SeshID),
	}, buf)
}

func (p *Show) Unmarshal(data []byte) error {
	v, err := wire.Decode(showSchema, data)
	if err != nil {
		return err
	}
	p.State, p.SeshType, p.SeshID = v[0].Uint, v[1].Uint, v[2].UUID
	return nil
}

// Confirm accepts or denies a Tell proposal.
type Confirm struct {
	Proposal uint64
	Answer   ConfirmCode
	SeshType uint64
	SeshID   uuid.UUID
}

func (p *Confirm) Marshal(buf []byte) ([]byte, error) {
	return wire.Encode(confirmSchema, []wire.Value{
		wire.UintValue(p.Proposal),
		wire.UintValue(uint64(p.Answer)),
		wire.UintValue(p.SeshType),
		wire.UUIDValue(p.SeshID),
	}, buf)
}

func (p *Confirm) Unmarshal(data []byte) error {
	v, err := wire.Decode(confirmSchema, data)
	if err != nil {
		return err
	}
	p.Proposal, p.Answer, p.SeshType, p.SeshID = v[0].Uint, ConfirmCode(v[1].Uint), v[2].Uint, v[3].UUID
	return nil
}

// lifecycle is the shared (sesh_type, sesh_id) body of every session-lifecycle packet.
type lifecycle struct {
	SeshType uint64
	SeshID   uuid.UUID
}

func (p *lifecycle) marshal(buf []byte) ([]byte, error) {
	return wire.Encode(lifecycleSchema, []wire.Value{
		wire.UintValue(p.SeshType),
		wire.UUIDValue(p.SeshID),
	}, buf)
}

func (p *lifecycle) unmarshal(data []byte) error {
	v, err := wire.Decode(lifecycleSchema, data)
	if err != nil {
		return err
	}
	p.SeshType, p.SeshID = v[0].Uint, v[1].UUID
	return nil
}

// Start opens a session of SeshType with id SeshID.
type Start struct{ lifecycle }

func (p *Start) Marshal(buf []byte) ([]byte, error) { return p.marshal(buf) }
func (p *Start) Unmarshal(data []byte) error         { return p.unmarshal(data) }

// Finish ends a session; only the side that issued Start may send it.
type Finish struct{ lifecycle }

func (p *Finish) Marshal(buf []byte) ([]byte, error) { return p.marshal(buf) }
func (p *Finish) Unmarshal(data []byte) error         { return p.unmarshal(data) }

// Accept tells the session initiator its Start was accepted.
type Accept struct{ lifecycle }

func (p *Accept) Marshal(buf []byte) ([]byte, error) { return p.marshal(buf) }
func (p *Accept) Unmarshal(data []byte) error         { return p.unmarshal(data) }

// Refuse tells the session initiator its Start was refused.
type Refuse struct{ lifecycle }

func (p *Refuse) Marshal(buf []byte) ([]byte, error) { return p.marshal(buf) }
func (p *Refuse) Unmarshal(data []byte) error         { return p.unmarshal(data) }

// Busy tells the session initiator the handler is already at max_sesh.
type Busy struct{ lifecycle }

func (p *Busy) Marshal(buf []byte) ([]byte, error) { return p.marshal(buf) }
func (p *Busy) Unmarshal(data []byte) error         { return p.unmarshal(data) }

// Done tells the session initiator the server has nothing more to do.
type Done struct{ lifecycle }

func (p *Done) Marshal(buf []byte) ([]byte, error) { return p.marshal(buf) }
func (p *Done) Unmarshal(data []byte) error         { return p.unmarshal(data) }

// Unknown is emitted for a packet type that could not be routed or dispatched.
type Unknown struct {
	Type    uint64
	Level   uint64
	Process uint64
}

func (p *Unknown) Marshal(buf []byte) ([]byte, error) {
	return wire.Encode(unknownSchema, []wire.Value{
		wire.UintValue(p.Type),
		wire.UintValue(p.Level),
		wire.UintValue(p.Process),
	}, buf)
}

func (p *Unknown) Unmarshal(data []byte) error {
	v, err := wire.Decode(unknownSchema, data)
	if err != nil {
		return err
	}
	p.Type, p.Level, p.Process = v[0].Uint, v[1].Uint, v[2].Uint
	return nil
}

// Error is emitted when processing a packet fails; Error carries the classification.
type Error struct {
	Type    uint64
	Level   uint64
	Process uint64
	Error   ErrorCode
}

func (p *Error) Marshal(buf []byte) ([]byte, error) {
	return wire.Encode(errorSchema, []wire.Value{
		wire.UintValue(p.Type),
		wire.UintValue(p.Level),
		wire.UintValue(p.Process),
		wire.UintValue(uint64(p.Error)),
	}, buf)
}

func (p *Error) Unmarshal(data []byte) error {
	v, err := wire.Decode(errorSchema, data)
	if err != nil {
		return err
	}
	p.Type, p.Level, p.Process, p.Error = v[0].Uint, v[1].Uint, v[2].Uint, ErrorCode(v[3].Uint)
	return nil
}

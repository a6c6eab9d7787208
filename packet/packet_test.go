package packet

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	seshID := uuid.New()

	tests := []struct {
		name string
		in   Packet
		out  Packet
	}{
		{"Enquiry", &Enquiry{State: 3, SeshType: 1, SeshID: seshID}, &Enquiry{}},
		{"Response", &Response{State: 3, Value: []byte("hello"), SeshType: 1, SeshID: seshID}, &Response{}},
		{"Tell", &Tell{State: 3, Value: []byte("world"), SeshType: 1, SeshID: seshID}, &Tell{}},
		{"Show", &Show{State: 3, SeshType: 1, SeshID: seshID}, &Show{}},
		{"Confirm", &Confirm{Proposal: 3, Answer: Yes, SeshType: 1, SeshID: seshID}, &Confirm{}},
		{"Start", &Start{lifecycle{SeshType: 1, SeshID: seshID}}, &Start{}},
		{"Finish", &Finish{lifecycle{SeshType: 1, SeshID: seshID}}, &Finish{}},
		{"Accept", &Accept{lifecycle{SeshType: 1, SeshID: seshID}}, &Accept{}},
		{"Refuse", &Refuse{lifecycle{SeshType: 1, SeshID: seshID}}, &Refuse{}},
		{"Busy", &Busy{lifecycle{SeshType: 1, SeshID: seshID}}, &Busy{}},
		{"Done", &Done{lifecycle{SeshType: 1, SeshID: seshID}}, &Done{}},
		{"Unknown", &Unknown{Type: 500, Level: 1, Process: 0}, &Unknown{}},
		{"Error", &Error{Type: 500, Level: 1, Process: 0, Error: Busy}, &Error{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := tt.in.Marshal(nil)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if err := tt.out.Unmarshal(buf); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(tt.in, tt.out) {
				t.Errorf("got %+v, want %+v", tt.out, tt.in)
			}
		})
	}
}

func TestConfirmAnswerOutOfRange(t *testing.T) {
	c := &Confirm{Proposal: 1, Answer: ConfirmCode(9), SeshType: 1, SeshID: uuid.New()}
	if _, err := c.Marshal(nil); err == nil {
		t.Fatal("expected range error for out-of-range answer code")
	}
}

func TestErrorCodeOutOfRange(t *testing.T) {
	e := &Error{Type: 1, Level: 1, Process: 0, Error: ErrorCode(9)}
	if _, err := e.Marshal(nil); err == nil {
		t.Fatal("expected range error for out-of-range error code")
	}
}

func TestUnmarshalShortBuffer(t *testing.T) {
	var e Enquiry
	if err := e.Unmarshal([]byte{0x01}); err == nil {
		t.Fatal("expected short buffer error")
	}
}

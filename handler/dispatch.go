package handler

import (
	"github.com/nwaples/wirelink/packet"
	"github.com/nwaples/wirelink/session"
)

type processorEntry struct {
	New     func() packet.Packet
	Process func(h *Handler, p packet.Packet) error
}

// buildDispatch returns the local-type -> processor table for role. Enquiry,
// Response, Tell, Show, and Confirm are symmetric: every named state carries
// both a Client and a Server exchange machine regardless of the handler's
// role, so both sides run the same processors. Start/Finish are server-only
// (only a session responder ever receives them); Accept/Refuse/Busy/Done are
// client-only (only a session initiator ever receives them).
func buildDispatch(role session.Role) map[byte]processorEntry {
	d := map[byte]processorEntry{
		packet.TypeEnquiry: {New: func() packet.Packet { return &packet.Enquiry{} }, Process: processEnquiry},
		packet.TypeResponse: {New: func() packet.Packet { return &packet.Response{} }, Process: processResponse},
		packet.TypeTell:    {New: func() packet.Packet { return &packet.Tell{} }, Process: processTell},
		packet.TypeShow:    {New: func() packet.Packet { return &packet.Show{} }, Process: processShow},
		packet.TypeConfirm: {New: func() packet.Packet { return &packet.Confirm{} }, Process: processConfirm},
		unknownLocal:       {New: func() packet.Packet { return &packet.Unknown{} }, Process: processUnknown},
		errorLocal:         {New: func() packet.Packet { return &packet.Error{} }, Process: processError},
	}

	switch role {
	case session.RoleServer:
		d[packet.TypeStart] = processorEntry{New: func() packet.Packet { return &packet.Start{} }, Process: processStart}
		d[packet.TypeFinish] = processorEntry{New: func() packet.Packet { return &packet.Finish{} }, Process: processFinish}
	case session.RoleClient:
		d[packet.TypeAccept] = processorEntry{New: func() packet.Packet { return &packet.Accept{} }, Process: processAccept}
		d[packet.TypeRefuse] = processorEntry{New: func() packet.Packet { return &packet.Refuse{} }, Process: processRefuse}
		d[packet.TypeBusy] = processorEntry{New: func() packet.Packet { return &packet.Busy{} }, Process: processBusy}
		d[packet.TypeDone] = processorEntry{New: func() packet.Packet { return &packet.Done{} }, Process: processDone}
	}
	return d
}

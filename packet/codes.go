// Package packet defines the fixed packet shapes carried over the wire: the
// state-exchange packets (Enquiry/Response/Tell/Show/Confirm), the
// session-lifecycle packets (Start/Finish/Accept/Refuse/Busy/Done), and the
// two out-of-band reply packets every range reserves (Unknown/Error).
package packet

// Local packet type codes within a handler's 128-wide range. The final two
// codes of every range (126, 127) are reserved for Unknown and Error and are
// not assigned here; see wire.UnknownLocal / wire.ErrorLocal.
const (
	TypeEnquiry byte = iota
	TypeResponse
	TypeTell
	TypeShow
	TypeConfirm
	TypeStart
	TypeFinish
	TypeAccept
	TypeRefuse
	TypeBusy
	TypeDone
)

// ConfirmCode is the answer carried in a ConfirmPacket, replying to a Tell
// proposal. Yes means the value was accepted.
type ConfirmCode uint64

const (
	NoComment ConfirmCode = 0
	Yes       ConfirmCode = 1
	No        ConfirmCode = 2
)

// ErrorCode classifies the failure reported in an ErrorPacket.
type ErrorCode uint64

const (
	Malformed  ErrorCode = 1
	Aborted    ErrorCode = 2
	Busy       ErrorCode = 3
	Unexpected ErrorCode = 4
)

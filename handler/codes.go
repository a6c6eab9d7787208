package handler

import "github.com/nwaples/wirelink/wire"

const (
	unknownLocal = wire.UnknownLocal
	errorLocal   = wire.ErrorLocal
)

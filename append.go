package imap

import (
	"time"
)

// AppendOptions holds options for the APPEND command.
type AppendOptions struct {
	Flags []Flag
	Time  time.Time
}

// AppendData is the data returned by an APPEND command. UID and UIDValidity
// are populated only if the server supports UIDPLUS.
type AppendData struct {
	UID         UID
	UIDValidity uint32
}

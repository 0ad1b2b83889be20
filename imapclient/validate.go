package imapclient

import (
	"github.com/cloudmail/imapengine"
)

// cmdKind names a command for the state validator, independent of whether
// it's UID-prefixed.
type cmdKind int

const (
	cmdAny cmdKind = iota
	cmdNotAuthenticated
	cmdAuthenticated
	cmdSelected
	cmdSelectedWritable // requires Selected AND not read-only
)

// validate reports an error if issuing a command of kind in the given
// connection state (with the given mailbox read-only flag, if selected)
// would violate the state machine (spec.md §4.4).
func validate(kind cmdKind, state imap.ConnState, readOnly bool) error {
	switch kind {
	case cmdAny:
		return nil
	case cmdNotAuthenticated:
		if state != imap.ConnStateNotAuthenticated {
			return imap.NewError(imap.ErrKindInvalidState, "command requires the Not Authenticated state")
		}
	case cmdAuthenticated:
		if state != imap.ConnStateAuthenticated && state != imap.ConnStateSelected {
			return imap.NewError(imap.ErrKindInvalidState, "command requires the Authenticated or Selected state")
		}
	case cmdSelected:
		if state != imap.ConnStateSelected {
			return imap.NewError(imap.ErrKindInvalidState, "command requires the Selected state")
		}
	case cmdSelectedWritable:
		if state != imap.ConnStateSelected {
			return imap.NewError(imap.ErrKindInvalidState, "command requires the Selected state")
		}
		if readOnly {
			return imap.NewError(imap.ErrKindInvalidState, "mailbox was selected read-only")
		}
	}
	return nil
}

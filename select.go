package imap

// SelectOptions holds options for the SELECT or EXAMINE command.
type SelectOptions struct {
	ReadOnly bool
}

// SelectData is the data returned by a SELECT or EXAMINE command.
type SelectData struct {
	// Flags defined for this mailbox.
	Flags []Flag
	// Flags the client may permanently set or clear.
	PermanentFlags []Flag
	// Number of messages in this mailbox (the untagged EXISTS response).
	NumMessages uint32
	// Number of messages with the \Recent flag set (the untagged RECENT
	// response).
	NumRecent   uint32
	UIDNext     UID
	UIDValidity uint32
}

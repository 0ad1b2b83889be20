package imap

// ListOptions holds options for the LIST command.
type ListOptions struct {
	SelectSubscribed     bool
	SelectRecursiveMatch bool // requires SelectSubscribed

	ReturnSubscribed bool
	ReturnChildren   bool
}

// ListData is mailbox data returned by a LIST or LSUB command.
type ListData struct {
	Attrs   []MailboxAttr
	Delim   rune
	Mailbox string
}

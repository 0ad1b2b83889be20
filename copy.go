package imap

// CopyData is the data returned by a COPY or MOVE command. It is populated
// only if the server supports UIDPLUS.
type CopyData struct {
	UIDValidity uint32
	SourceUIDs  UIDSet
	DestUIDs    UIDSet
}

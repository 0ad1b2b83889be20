package imap

import (
	"fmt"
	"strings"
	"time"
)

// FetchOptions selects which data items a FETCH command retrieves.
type FetchOptions struct {
	BodyStructure *FetchItemBodyStructure
	Envelope      bool
	Flags         bool
	InternalDate  bool
	RFC822Size    bool
	UID           bool
	BodySection   []*FetchItemBodySection
}

// FetchItemBodyStructure selects the BODYSTRUCTURE (Extended true) or BODY
// (Extended false) data item.
type FetchItemBodyStructure struct {
	Extended bool
}

// PartSpecifier narrows a FetchItemBodySection to a sub-part of a message.
type PartSpecifier string

const (
	PartSpecifierNone   PartSpecifier = ""
	PartSpecifierHeader PartSpecifier = "HEADER"
	PartSpecifierMIME   PartSpecifier = "MIME"
	PartSpecifierText   PartSpecifier = "TEXT"
)

// SectionPartial describes a byte range within a fetched section, the
// "<origin.size>" part of BODY[...]<...>.
type SectionPartial struct {
	Offset, Size int64
}

// FetchItemBodySection is a BODY[...] (or BODY.PEEK[...]) data item.
//
// The zero value fetches the entire message. Part selects a MIME sub-part
// by its dotted path (e.g. []int{1, 2} for part 1.2). Specifier narrows to
// a part's header, MIME header, or text. HeaderFields/HeaderFieldsNot
// select HEADER.FIELDS/HEADER.FIELDS.NOT.
type FetchItemBodySection struct {
	Specifier       PartSpecifier
	Part            []int
	HeaderFields    []string
	HeaderFieldsNot []string
	Partial         *SectionPartial
	Peek            bool
}

// Envelope holds a message's envelope structure (RFC 3501 §7.4.2).
//
// Subject is decoded to UTF-8 (not RFC 2047 encoded-word form). InReplyTo
// and MessageID hold message identifiers without angle brackets.
type Envelope struct {
	Date      time.Time
	Subject   string
	From      []Address
	Sender    []Address
	ReplyTo   []Address
	To        []Address
	Cc        []Address
	Bcc       []Address
	InReplyTo []string
	MessageID string
}

// Address represents a message sender or recipient, or a group delimiter
// within an address list (RFC 3501 §7.4.2, "group syntax").
type Address struct {
	Name    string
	Mailbox string
	Host    string

	// Raw holds the exact octets the server sent for Name, Mailbox, and
	// Host (in that order), before any UTF-8 decoding, so callers can
	// re-decode non-UTF-8 data themselves.
	Raw [3][]byte
}

// Addr returns the mail address in "mailbox@host" form, or "" if either
// part is absent (e.g. for a group delimiter).
func (addr *Address) Addr() string {
	if addr.Mailbox == "" || addr.Host == "" {
		return ""
	}
	return addr.Mailbox + "@" + addr.Host
}

// IsGroupStart reports whether this address is a group-start delimiter. In
// that case Mailbox holds the group's display name.
func (addr *Address) IsGroupStart() bool {
	return addr.Host == "" && addr.Mailbox != ""
}

// IsGroupEnd reports whether this address is a group-end delimiter.
func (addr *Address) IsGroupEnd() bool {
	return addr.Host == "" && addr.Mailbox == ""
}

// BodyStructure describes a message's MIME structure (RFC 3501 §7.4.2,
// BODYSTRUCTURE). A BodyStructure is either *BodyStructureSinglePart or
// *BodyStructureMultiPart.
type BodyStructure interface {
	// MediaType returns the MIME type, e.g. "text/plain".
	MediaType() string
	// Walk visits bs and every descendant, depth-first, pre-order.
	Walk(f BodyStructureWalkFunc)
	// Disposition returns the part's content-disposition, if known.
	Disposition() *BodyStructureDisposition

	bodyStructure()
}

// BodyStructureSinglePart describes a non-multipart body.
type BodyStructureSinglePart struct {
	Type, Subtype string
	Params        map[string]string
	ID            string
	Description   string
	Encoding      string
	Size          uint32

	MessageRFC822 *BodyStructureMessageRFC822 // set only for "message/rfc822"
	Text          *BodyStructureText          // set only for "text/*"
	Extended      *BodyStructureSinglePartExt
}

func (bs *BodyStructureSinglePart) MediaType() string {
	return strings.ToLower(bs.Type) + "/" + strings.ToLower(bs.Subtype)
}

func (bs *BodyStructureSinglePart) Walk(f BodyStructureWalkFunc) {
	f([]int{1}, bs)
}

func (bs *BodyStructureSinglePart) Disposition() *BodyStructureDisposition {
	if bs.Extended == nil {
		return nil
	}
	return bs.Extended.Disposition
}

// Filename decodes the part's filename, preferring Content-Disposition's
// "filename" parameter over the discouraged Content-Type "name" parameter.
func (bs *BodyStructureSinglePart) Filename() string {
	var filename string
	if bs.Extended != nil && bs.Extended.Disposition != nil {
		filename = bs.Extended.Disposition.Params["filename"]
	}
	if filename == "" {
		filename = bs.Params["name"]
	}
	return filename
}

func (*BodyStructureSinglePart) bodyStructure() {}

// BodyStructureMessageRFC822 holds the message/rfc822 metadata nested
// inside a BodyStructureSinglePart.
type BodyStructureMessageRFC822 struct {
	Envelope      *Envelope
	BodyStructure BodyStructure
	NumLines      int64
}

// BodyStructureText holds the text/* metadata nested inside a
// BodyStructureSinglePart.
type BodyStructureText struct {
	NumLines int64
}

// BodyStructureSinglePartExt holds extension data for a single-part body.
type BodyStructureSinglePartExt struct {
	Disposition *BodyStructureDisposition
	Language    []string
	Location    string
}

// BodyStructureMultiPart describes a multipart/* body.
type BodyStructureMultiPart struct {
	Children []BodyStructure
	Subtype  string

	Extended *BodyStructureMultiPartExt
}

func (bs *BodyStructureMultiPart) MediaType() string {
	return "multipart/" + strings.ToLower(bs.Subtype)
}

func (bs *BodyStructureMultiPart) Walk(f BodyStructureWalkFunc) {
	bs.walk(f, nil)
}

func (bs *BodyStructureMultiPart) walk(f BodyStructureWalkFunc, path []int) {
	if !f(path, bs) {
		return
	}

	for i, part := range bs.Children {
		partPath := append(append([]int{}, path...), i+1)
		switch part := part.(type) {
		case *BodyStructureSinglePart:
			f(partPath, part)
		case *BodyStructureMultiPart:
			part.walk(f, partPath)
		default:
			panic(fmt.Errorf("imap: unsupported body structure type %T", part))
		}
	}
}

func (bs *BodyStructureMultiPart) Disposition() *BodyStructureDisposition {
	if bs.Extended == nil {
		return nil
	}
	return bs.Extended.Disposition
}

func (*BodyStructureMultiPart) bodyStructure() {}

// BodyStructureMultiPartExt holds extension data for a multipart body.
type BodyStructureMultiPartExt struct {
	Params      map[string]string
	Disposition *BodyStructureDisposition
	Language    []string
	Location    string
}

// BodyStructureDisposition describes a part's Content-Disposition.
type BodyStructureDisposition struct {
	Value  string
	Params map[string]string
}

// BodyStructureWalkFunc is called by BodyStructure.Walk for each visited
// part. Returning false skips that part's children.
type BodyStructureWalkFunc func(path []int, part BodyStructure) (walkChildren bool)

// FetchAttribute identifies a single FETCH/UID FETCH data item name without
// its arguments, for callers building a fetch item list from dynamic input.
type FetchAttribute string

const (
	FetchAttrUID           FetchAttribute = "UID"
	FetchAttrFlags         FetchAttribute = "FLAGS"
	FetchAttrInternalDate  FetchAttribute = "INTERNALDATE"
	FetchAttrRFC822Size    FetchAttribute = "RFC822.SIZE"
	FetchAttrEnvelope      FetchAttribute = "ENVELOPE"
	FetchAttrBody          FetchAttribute = "BODY"
	FetchAttrBodyStructure FetchAttribute = "BODYSTRUCTURE"
)

// FetchMessageData holds the decoded data items for a single FETCH
// response. SeqNum is always populated; UID is populated either because
// the caller requested it or because the command was a UID FETCH.
type FetchMessageData struct {
	SeqNum uint32

	UID           UID
	Flags         []Flag
	InternalDate  time.Time
	RFC822Size    int64
	Envelope      *Envelope
	BodyStructure BodyStructure
	BodySection   []FetchBodySectionData
}

// FetchBodySectionData is one BODY[...] data item returned in a FETCH
// response: the section that was requested, paired with its raw octets.
// Data is always the exact bytes the server sent for the literal,
// regardless of their content (property P-LITERAL-OCTET-EXACT).
type FetchBodySectionData struct {
	Section *FetchItemBodySection
	Data    []byte
}

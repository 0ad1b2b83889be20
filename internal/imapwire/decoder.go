// Package imapwire implements the byte-level IMAP wire protocol: an
// incremental response decoder and a command encoder. Neither knows
// anything about connection state or command semantics; imapclient builds
// on top of them.
package imapwire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cloudmail/imapengine"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// IsAtomChar reports whether c can appear in an atom. Exposed for callers
// that need a custom Func predicate derived from the atom grammar (e.g.
// excluding "[" to stop at a section specifier).
func IsAtomChar(c byte) bool { return isAtomChar(c) }

// ConnSide indicates which side of the connection a Decoder/Encoder is
// operating on. Quoting and literal-size rules are the same on both sides,
// but it's recorded for diagnostics and for a couple of asymmetric default
// choices (e.g. a server never waits for a continuation request it sent
// itself).
type ConnSide int

const (
	ConnSideClient ConnSide = iota
	ConnSideServer
)

// NumKind distinguishes message sequence numbers from UIDs when building a
// command name such as "UID FETCH".
type NumKind int

const (
	NumKindSeq NumKind = iota
	NumKindUID
)

// LiteralReader is handed to callers in place of a buffered []byte when a
// literal's size exceeds the decoder's MaxLiteralBuffer. It must be fully
// read (or discarded via io.Copy(io.Discard, r)) before the decoder can make
// progress on the rest of the response.
type LiteralReader struct {
	r    io.Reader
	size int64
}

func (lr *LiteralReader) Read(p []byte) (int, error) { return lr.r.Read(p) }
func (lr *LiteralReader) Size() int64                 { return lr.size }

// Decoder incrementally parses IMAP responses from a buffered reader.
//
// Methods come in two flavors: a bare form (e.g. Atom) that returns false
// without recording an error if the expected token isn't present, useful for
// optional/lookahead parsing; and an Expect-prefixed form that additionally
// records a ParsingError in Err() with a descriptive message, for tokens
// that are grammatically mandatory at that point.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r    *bufio.Reader
	side ConnSide
	err  error

	// MaxLiteralBuffer bounds how large a literal is buffered into memory
	// before the decoder instead hands the caller a LiteralReader. Zero
	// means always buffer.
	MaxLiteralBuffer int64

	// literalReader, if non-nil, must be fully drained by the caller
	// before any other decode method is called.
	literalReader *LiteralReader
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r *bufio.Reader, side ConnSide) *Decoder {
	return &Decoder{r: r, side: side}
}

// Err returns the first error recorded by a failed Expect* call.
func (dec *Decoder) Err() error {
	return dec.err
}

// EOF reports whether the underlying reader has reached end-of-file.
func (dec *Decoder) EOF() bool {
	if dec.err == io.EOF {
		return true
	}
	_, err := dec.r.Peek(1)
	return err == io.EOF
}

func (dec *Decoder) fail(format string, args ...interface{}) bool {
	if dec.err == nil {
		dec.err = &ParsingError{Message: fmt.Sprintf(format, args...)}
	}
	return false
}

// Expect records a ParsingError with msg if ok is false; it's a helper for
// "a OR b" productions where the caller has already tried each alternative.
func (dec *Decoder) Expect(ok bool, msg string) bool {
	if !ok {
		return dec.fail("expected %s", msg)
	}
	return true
}

func (dec *Decoder) peekByte() (byte, bool) {
	b, err := dec.r.Peek(1)
	if err != nil {
		return 0, false
	}
	return b[0], true
}

// Special consumes the single byte c if it is next in the stream.
func (dec *Decoder) Special(c byte) bool {
	b, ok := dec.peekByte()
	if !ok || b != c {
		return false
	}
	dec.r.Discard(1)
	return true
}

// ExpectSpecial is Special, but records a ParsingError on failure.
func (dec *Decoder) ExpectSpecial(c byte) bool {
	if !dec.Special(c) {
		return dec.fail("expected %q", c)
	}
	return true
}

// SP consumes a single space, the most common separator in the grammar.
func (dec *Decoder) SP() bool {
	return dec.Special(' ')
}

// ExpectSP is SP, but records a ParsingError on failure.
func (dec *Decoder) ExpectSP() bool {
	if !dec.SP() {
		return dec.fail("expected SP")
	}
	return true
}

func isAtomChar(c byte) bool {
	switch c {
	case '(', ')', '{', ' ', '%', '*', '"', '\\', ']':
		return false
	}
	return c > 0x20 && c < 0x7f
}

// Atom reads an atom (RFC 3501 §9, "atom") into *v. Returns false, leaving
// *v untouched, if the next byte can't start an atom.
func (dec *Decoder) Atom(v *string) bool {
	b, ok := dec.peekByte()
	if !ok || !isAtomChar(b) {
		return false
	}

	var buf []byte
	for {
		b, ok := dec.peekByte()
		if !ok || !isAtomChar(b) {
			break
		}
		buf = append(buf, b)
		dec.r.Discard(1)
	}
	*v = string(buf)
	return true
}

// ExpectAtom is Atom, but records a ParsingError on failure.
func (dec *Decoder) ExpectAtom(v *string) bool {
	if !dec.Atom(v) {
		return dec.fail("expected atom")
	}
	return true
}

// Number reads a non-negative decimal number.
func (dec *Decoder) Number(v *uint32) bool {
	var s string
	if !dec.digits(&s) {
		return false
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		dec.fail("invalid number %q: %v", s, err)
		return false
	}
	*v = uint32(n)
	return true
}

// ExpectNumber is Number, but records a ParsingError on failure.
func (dec *Decoder) ExpectNumber(v *uint32) bool {
	if !dec.Number(v) {
		return dec.fail("expected number")
	}
	return true
}

// ExpectNumber64 reads a decimal number into an int64 (used for RFC822.SIZE
// and literal octet counts, which can exceed 32 bits in principle).
func (dec *Decoder) ExpectNumber64(v *int64) bool {
	var s string
	if !dec.digits(&s) {
		return dec.fail("expected number")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return dec.fail("invalid number %q: %v", s, err)
	}
	*v = n
	return true
}

// ExpectUID reads a UID into *v.
func (dec *Decoder) ExpectUID(v *uint32) bool {
	return dec.ExpectNumber(v)
}

// ExpectUIDSet reads a uid-set atom into *v.
func (dec *Decoder) ExpectUIDSet(v *imap.UIDSet) bool {
	var s string
	if !dec.ExpectAtom(&s) {
		return false
	}
	set, err := imap.ParseUIDSet(s)
	if err != nil {
		return dec.fail("invalid uid-set %q: %v", s, err)
	}
	*v = set
	return true
}

func (dec *Decoder) digits(v *string) bool {
	b, ok := dec.peekByte()
	if !ok || b < '0' || b > '9' {
		return false
	}
	var buf []byte
	for {
		b, ok := dec.peekByte()
		if !ok || b < '0' || b > '9' {
			break
		}
		buf = append(buf, b)
		dec.r.Discard(1)
	}
	*v = string(buf)
	return true
}

// Quoted reads a quoted string (RFC 3501 §9, "quoted") into *v, without the
// surrounding double quotes.
func (dec *Decoder) Quoted(v *string) bool {
	if !dec.Special('"') {
		return false
	}
	var buf []byte
	for {
		b, err := dec.r.ReadByte()
		if err != nil {
			dec.fail("unterminated quoted string: %v", err)
			return true // '"' was already consumed; this is a hard error
		}
		if b == '"' {
			break
		}
		if b == '\\' {
			b, err = dec.r.ReadByte()
			if err != nil {
				dec.fail("unterminated quoted string escape: %v", err)
				return true
			}
		}
		buf = append(buf, b)
	}
	*v = string(buf)
	return true
}

// Literal reads a literal (RFC 3501 §9, "literal": "{" number ["+"] "}" CRLF
// *OCTET) into the returned data. If size exceeds MaxLiteralBuffer (and
// MaxLiteralBuffer is nonzero), the literal's bytes are left unread on the
// wire and a LiteralReader is returned instead; the caller must drain it.
//
// synchronizing reports whether the server must wait for a "+" continuation
// request before the literal's octets follow — true unless the client sent
// a non-synchronizing literal ("{n+}"), which only a server-side decoder
// will ever see.
func (dec *Decoder) Literal() (data []byte, lit *LiteralReader, synchronizing bool, ok bool) {
	if !dec.Special('{') {
		return nil, nil, false, false
	}
	var sizeStr string
	if !dec.digits(&sizeStr) {
		dec.fail("expected literal size")
		return nil, nil, false, false
	}
	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		dec.fail("invalid literal size %q: %v", sizeStr, err)
		return nil, nil, false, false
	}
	synchronizing = true
	if dec.Special('+') {
		synchronizing = false
	} else if dec.Special('-') {
		synchronizing = false
	}
	if !dec.ExpectSpecial('}') {
		return nil, nil, false, false
	}
	if !dec.ExpectCRLF() {
		return nil, nil, false, false
	}

	if dec.MaxLiteralBuffer > 0 && size > dec.MaxLiteralBuffer {
		return nil, &LiteralReader{r: io.LimitReader(dec.r, size), size: size}, synchronizing, true
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(dec.r, buf); err != nil {
		dec.fail("reading literal: %v", err)
		return nil, nil, false, false
	}
	return buf, nil, synchronizing, true
}

// String reads either a quoted string or a literal into *v.
func (dec *Decoder) String(v *string) bool {
	if dec.Quoted(v) {
		return dec.err == nil
	}
	if b, ok := dec.peekByte(); ok && b == '{' {
		data, _, _, ok := dec.Literal()
		if !ok {
			return false
		}
		*v = string(data)
		return true
	}
	return false
}

// ExpectString is String, but records a ParsingError on failure.
func (dec *Decoder) ExpectString(v *string) bool {
	if !dec.String(v) {
		return dec.fail("expected string")
	}
	return true
}

// NString reads a "nstring": either a string, or the atom "NIL" meaning an
// absent value (*v is left as "" and present is false).
func (dec *Decoder) NString(v *string) (present bool, ok bool) {
	if b, peeked := dec.peekByte(); peeked && (b == '"' || b == '{') {
		return true, dec.String(v)
	}
	var atom string
	if dec.Atom(&atom) {
		if atom == "NIL" {
			return false, true
		}
		*v = atom
		return true, true
	}
	return false, false
}

// ExpectNString is NString, but records a ParsingError if nothing at all
// could be parsed (present may still be false for an explicit NIL).
func (dec *Decoder) ExpectNString(v *string) bool {
	_, ok := dec.NString(v)
	if !ok {
		return dec.fail("expected nstring")
	}
	return true
}

// ExpectNList reads a parenthesized list via f, or NIL for an absent list.
func (dec *Decoder) ExpectNList(f func() error) error {
	if ok, err := dec.List(f); ok {
		return err
	}
	if !dec.ExpectNIL() {
		return dec.Err()
	}
	return nil
}

// ExpectBodyFldOctets reads the octet count in a body-fld-octets production.
func (dec *Decoder) ExpectBodyFldOctets(v *int64) bool {
	var n uint32
	if !dec.ExpectNumber(&n) {
		return false
	}
	*v = int64(n)
	return true
}

// ExpectNStringReader is NString, but for a potentially large value: the
// data is returned as a LiteralReader (buffered in memory for quoted
// strings, possibly streamed for a literal above MaxLiteralBuffer) rather
// than a string. Returns present=false for an explicit NIL.
func (dec *Decoder) ExpectNStringReader() (lit *LiteralReader, present bool, ok bool) {
	b, peeked := dec.peekByte()
	if !peeked {
		return nil, false, dec.fail("expected nstring")
	}
	switch {
	case b == '"':
		var s string
		if !dec.Quoted(&s) {
			return nil, false, false
		}
		return &LiteralReader{r: strings.NewReader(s), size: int64(len(s))}, true, true
	case b == '{':
		data, streamLit, _, litOK := dec.Literal()
		if !litOK {
			return nil, false, false
		}
		if streamLit != nil {
			return streamLit, true, true
		}
		return &LiteralReader{r: bytesReader(data), size: int64(len(data))}, true, true
	default:
		if !dec.ExpectNIL() {
			return nil, false, false
		}
		return nil, false, true
	}
}

// Text reads the remainder of the line as free-form resp-text (RFC 3501
// §9, "text"): any characters except CR/LF.
func (dec *Decoder) Text(v *string) bool {
	var buf []byte
	for {
		b, ok := dec.peekByte()
		if !ok || b == '\r' || b == '\n' {
			break
		}
		buf = append(buf, b)
		dec.r.Discard(1)
	}
	if len(buf) == 0 {
		return false
	}
	*v = string(buf)
	return true
}

// ExpectText is Text, but records a ParsingError on failure.
func (dec *Decoder) ExpectText(v *string) bool {
	if !dec.Text(v) {
		return dec.fail("expected text")
	}
	return true
}

// DiscardUntilByte reads and discards bytes up to but not including the
// next occurrence of c.
func (dec *Decoder) DiscardUntilByte(c byte) {
	for {
		b, ok := dec.peekByte()
		if !ok || b == c {
			return
		}
		dec.r.Discard(1)
	}
}

// CRLF consumes a CRLF line terminator. Lenient about a bare LF, which some
// servers and most test fixtures emit.
func (dec *Decoder) CRLF() bool {
	if dec.Special('\r') {
		return dec.Special('\n')
	}
	return dec.Special('\n')
}

// ExpectCRLF is CRLF, but records a ParsingError on failure.
func (dec *Decoder) ExpectCRLF() bool {
	if !dec.CRLF() {
		return dec.fail("expected CRLF")
	}
	return true
}

// NIL consumes the atom "NIL".
func (dec *Decoder) NIL() bool {
	b, ok := dec.peekByte()
	if !ok || (b != 'N' && b != 'n') {
		return false
	}
	var atom string
	if !dec.Atom(&atom) || !strings.EqualFold(atom, "NIL") {
		return dec.fail("expected NIL")
	}
	return true
}

// ExpectNIL is NIL, but records a ParsingError on failure.
func (dec *Decoder) ExpectNIL() bool {
	if !dec.NIL() {
		return dec.fail("expected NIL")
	}
	return true
}

// AString reads an "astring": an atom, a quoted string, or a literal.
func (dec *Decoder) AString(v *string) bool {
	if dec.String(v) {
		return true
	}
	return dec.Atom(v)
}

// ExpectAString is AString, but records a ParsingError on failure.
func (dec *Decoder) ExpectAString(v *string) bool {
	if !dec.AString(v) {
		return dec.fail("expected astring")
	}
	return true
}

// Mailbox reads a mailbox name, decoding it from modified UTF-7 and folding
// the case-insensitive "INBOX" to its canonical spelling.
func (dec *Decoder) Mailbox(v *string) bool {
	var raw string
	if !dec.AString(&raw) {
		return false
	}
	if strings.EqualFold(raw, "INBOX") {
		*v = "INBOX"
	} else {
		*v = imap.DecodeMailboxName(raw)
	}
	return true
}

// ExpectMailbox is Mailbox, but records a ParsingError on failure.
func (dec *Decoder) ExpectMailbox(v *string) bool {
	if !dec.Mailbox(v) {
		return dec.fail("expected mailbox")
	}
	return true
}

// List reads a parenthesized list, invoking f once per element with the
// decoder positioned just before it; List itself consumes the separating
// SP between elements, so f does not. Returns false (without
// error) if the next token isn't "(".
func (dec *Decoder) List(f func() error) (bool, error) {
	if !dec.Special('(') {
		return false, nil
	}
	first := true
	for {
		if dec.Special(')') {
			return true, nil
		}
		if !first {
			if !dec.ExpectSP() {
				return true, dec.Err()
			}
		}
		first = false
		if err := f(); err != nil {
			return true, err
		}
	}
}

// ExpectList is List, but records a ParsingError if "(" isn't next.
func (dec *Decoder) ExpectList(f func() error) error {
	ok, err := dec.List(f)
	if err != nil {
		return err
	}
	if !ok {
		dec.fail("expected list")
		return dec.Err()
	}
	return nil
}

// DiscardValue skips over a single unparsed value: a list, a string, a
// literal, or an atom. Used to ignore tagged-ext-val productions for
// extensions this decoder doesn't implement.
func (dec *Decoder) DiscardValue() bool {
	if ok, err := dec.List(func() error {
		dec.DiscardValue()
		return nil
	}); ok {
		return err == nil
	}
	var s string
	if dec.String(&s) {
		return true
	}
	var atom string
	return dec.Atom(&atom)
}

// Func consumes a run of bytes satisfying pred into *v. Returns false,
// leaving *v untouched, if the next byte doesn't satisfy pred.
func (dec *Decoder) Func(v *string, pred func(byte) bool) bool {
	b, ok := dec.peekByte()
	if !ok || !pred(b) {
		return false
	}
	var buf []byte
	for {
		b, ok := dec.peekByte()
		if !ok || !pred(b) {
			break
		}
		buf = append(buf, b)
		dec.r.Discard(1)
	}
	*v = string(buf)
	return true
}

// ParsingError is returned by Err() after any Expect* method fails.
type ParsingError struct {
	Message string
}

func (e *ParsingError) Error() string {
	return "imapwire: parsing error: " + e.Message
}

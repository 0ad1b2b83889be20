package imapwire

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/cloudmail/imapengine"
)

// Encoder incrementally writes an IMAP command line to a buffered writer.
// Each method returns the Encoder itself, so calls chain:
//
//	enc.Atom(tag).SP().Atom("LOGIN").SP().String(user).SP().String(pass)
//
// An Encoder is single-use: callers build one command, call CRLF (or have
// it called for them), and discard it.
type Encoder struct {
	w    *bufio.Writer
	side ConnSide
	err  error

	// QuotedUTF8 allows raw UTF-8 bytes inside a quoted string instead of
	// forcing a literal, matching servers/clients that enabled UTF8=ACCEPT.
	QuotedUTF8 bool
	// LiteralMinus allows non-synchronizing literals ("{n+}") only for
	// literals of at most 4096 octets (RFC 7888 LITERAL-).
	LiteralMinus bool
	// LiteralPlus allows non-synchronizing literals unconditionally
	// (RFC 2088's original, unbounded LITERAL+).
	LiteralPlus bool

	// NewContinuationRequest is called whenever a literal requires the
	// caller to wait for a "+" continuation response before its octets can
	// be written.
	NewContinuationRequest func() *ContinuationRequest
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w *bufio.Writer, side ConnSide) *Encoder {
	return &Encoder{w: w, side: side}
}

func (enc *Encoder) writeString(s string) {
	if enc.err != nil {
		return
	}
	if _, err := enc.w.WriteString(s); err != nil {
		enc.err = err
	}
}

func (enc *Encoder) writeByte(b byte) {
	if enc.err != nil {
		return
	}
	if err := enc.w.WriteByte(b); err != nil {
		enc.err = err
	}
}

// Err returns the first write error encountered, if any.
func (enc *Encoder) Err() error {
	return enc.err
}

// SP writes a single space.
func (enc *Encoder) SP() *Encoder {
	enc.writeByte(' ')
	return enc
}

// CRLF terminates the command.
func (enc *Encoder) CRLF() error {
	enc.writeString("\r\n")
	if enc.err != nil {
		return enc.err
	}
	return enc.w.Flush()
}

// Special writes a single non-atom byte verbatim, such as '(' or ')'.
func (enc *Encoder) Special(b byte) *Encoder {
	enc.writeByte(b)
	return enc
}

// Atom writes s verbatim. The caller must ensure s is a valid atom.
func (enc *Encoder) Atom(s string) *Encoder {
	enc.writeString(s)
	return enc
}

// Number writes a decimal number.
func (enc *Encoder) Number(v uint32) *Encoder {
	enc.writeString(strconv.FormatUint(uint64(v), 10))
	return enc
}

// Number64 writes a 64-bit decimal number.
func (enc *Encoder) Number64(v int64) *Encoder {
	enc.writeString(strconv.FormatInt(v, 10))
	return enc
}

// canBeAtom reports whether s can be sent as a bare atom, i.e. contains
// only atom-chars and isn't empty.
func canBeAtom(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAtomChar(s[i]) {
			return false
		}
	}
	return true
}

// needsLiteral reports whether s contains bytes that can never appear in a
// quoted string (CR, LF, NUL, or non-ASCII unless QuotedUTF8 is set).
func needsLiteral(s string, quotedUTF8 bool) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\r', '\n', 0:
			return true
		}
		if c >= 0x80 && !quotedUTF8 {
			return true
		}
	}
	return false
}

// String writes s as the most compact form the grammar allows: a bare atom
// when possible, else a quoted string, else (if the bytes can't be quoted)
// a literal.
func (enc *Encoder) String(s string) *Encoder {
	switch {
	case canBeAtom(s):
		enc.writeString(s)
	case !needsLiteral(s, enc.QuotedUTF8):
		enc.writeQuoted(s)
	default:
		w := enc.Literal(int64(len(s)), nil)
		io.WriteString(w, s)
		w.Close()
	}
	return enc
}

func (enc *Encoder) writeQuoted(s string) {
	enc.writeByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			enc.writeByte('\\')
		}
		enc.writeByte(c)
	}
	enc.writeByte('"')
}

// Mailbox writes a mailbox name, encoding it as modified UTF-7 first unless
// QuotedUTF8 is set (UTF8=ACCEPT enabled), mirroring String's quoting
// choice on the encoded form.
func (enc *Encoder) Mailbox(name string) *Encoder {
	if name == "INBOX" {
		return enc.Atom("INBOX")
	}
	if enc.QuotedUTF8 {
		return enc.String(name)
	}
	return enc.String(imap.EncodeMailboxName(name))
}

// NumSet writes a sequence-set: a message sequence number set or UID set.
func (enc *Encoder) NumSet(set imap.NumSet) *Encoder {
	return enc.Atom(set.String())
}

// Flag writes a message flag, which is always a valid atom.
func (enc *Encoder) Flag(flag imap.Flag) *Encoder {
	return enc.Atom(string(flag))
}

// List writes a parenthesized, space-separated list of n elements, calling
// f(i) to write each one.
func (enc *Encoder) List(n int, f func(i int)) *Encoder {
	enc.writeByte('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			enc.SP()
		}
		f(i)
	}
	enc.writeByte(')')
	return enc
}

// NString writes an nstring: NIL if s is absent, else a quoted string or
// literal via String.
func (enc *Encoder) NString(s *string) *Encoder {
	if s == nil {
		return enc.Atom("NIL")
	}
	return enc.String(*s)
}

// Literal writes a literal header ("{size}" or "{size+}" CRLF) and returns
// a writer for the literal's octets. If contReq is non-nil the caller must
// have already arranged for the continuation response to be awaited before
// writing to the returned writer; Literal blocks on it internally when a
// synchronizing literal is required.
func (enc *Encoder) Literal(size int64, contReq *ContinuationRequest) io.WriteCloser {
	nonSync := enc.LiteralPlus || (enc.LiteralMinus && size <= 4096)

	enc.writeByte('{')
	enc.writeString(strconv.FormatInt(size, 10))
	if nonSync {
		enc.writeByte('+')
	}
	enc.writeByte('}')
	enc.writeString("\r\n")

	if !nonSync {
		if contReq == nil && enc.NewContinuationRequest != nil {
			contReq = enc.NewContinuationRequest()
		}
		if enc.err == nil {
			if err := enc.w.Flush(); err != nil {
				enc.err = err
			}
		}
		if contReq != nil {
			if _, err := contReq.Wait(); err != nil {
				enc.err = err
			}
		}
	}

	return &literalWriter{enc: enc, remaining: size}
}

type literalWriter struct {
	enc       *Encoder
	remaining int64
}

func (lw *literalWriter) Write(p []byte) (int, error) {
	if lw.enc.err != nil {
		return 0, lw.enc.err
	}
	if int64(len(p)) > lw.remaining {
		return 0, fmt.Errorf("imapwire: literal write exceeds declared size")
	}
	n, err := lw.enc.w.Write(p)
	lw.remaining -= int64(n)
	if err != nil {
		lw.enc.err = err
	}
	return n, err
}

func (lw *literalWriter) Close() error {
	if lw.remaining != 0 && lw.enc.err == nil {
		return fmt.Errorf("imapwire: literal closed with %d bytes unwritten", lw.remaining)
	}
	return lw.enc.err
}

// ContinuationRequest represents a pending server "+" continuation
// response that a command's literal (or SASL exchange) is waiting on.
type ContinuationRequest struct {
	mu     sync.Mutex
	done   bool
	text   string
	err    error
	readyC chan struct{}
}

// NewContinuationRequest creates an unresolved continuation request.
func NewContinuationRequest() *ContinuationRequest {
	return &ContinuationRequest{readyC: make(chan struct{})}
}

// Wait blocks until the server sends the "+" response (returning its text)
// or the request is cancelled.
func (cr *ContinuationRequest) Wait() (string, error) {
	<-cr.readyC
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.text, cr.err
}

// Done resolves the request successfully with the continuation's text.
func (cr *ContinuationRequest) Done(text string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if cr.done {
		return
	}
	cr.done = true
	cr.text = text
	close(cr.readyC)
}

// Cancel resolves the request with an error, e.g. because the command it
// belongs to failed or the connection closed before a "+" arrived.
func (cr *ContinuationRequest) Cancel(err error) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if cr.done {
		return
	}
	cr.done = true
	cr.err = err
	close(cr.readyC)
}

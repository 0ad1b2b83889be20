// Package imapclient implements an IMAP4rev1 client: a single-connection,
// single-in-flight-command session actor built on internal/imapwire.
//
// # Charset decoding
//
// By default only basic charset decoding is performed. To decode non-UTF-8
// subject lines and address names, set Options.WordDecoder, for example
// using go-message's charset collection:
//
//	import (
//		"mime"
//
//		"github.com/emersion/go-message/charset"
//	)
//
//	options := &imapclient.Options{
//		WordDecoder: &mime.WordDecoder{CharsetReader: charset.Reader},
//	}
//	client, err := imapclient.DialTLS("imap.example.org:993", options)
package imapclient

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cloudmail/imapengine"
	"github.com/cloudmail/imapengine/internal/ilog"
	"github.com/cloudmail/imapengine/internal/imapwire"
)

const (
	idleReadTimeout    = time.Duration(0)
	respReadTimeout    = 30 * time.Second
	literalReadTimeout = 5 * time.Minute

	cmdWriteTimeout     = 30 * time.Second
	literalWriteTimeout = 5 * time.Minute
)

var dialer = &net.Dialer{Timeout: 30 * time.Second}

// SelectedMailbox holds metadata for the currently selected mailbox.
type SelectedMailbox struct {
	Name           string
	NumMessages    uint32
	Flags          []imap.Flag
	PermanentFlags []imap.Flag
	ReadOnly       bool
}

func (mbox *SelectedMailbox) copy() *SelectedMailbox {
	c := *mbox
	return &c
}

// Options holds Client configuration.
type Options struct {
	// TLSConfig is used by DialTLS and DialStartTLS. A nil value uses a
	// default configuration.
	TLSConfig *tls.Config
	// DebugWriter, if set, receives a copy of all raw bytes read from and
	// written to the connection. This can include credentials sent during
	// authentication.
	DebugWriter io.Writer
	// UnilateralDataHandler handles server data not tied to any pending
	// command.
	UnilateralDataHandler *UnilateralDataHandler
	// WordDecoder decodes RFC 2047 encoded words in header text.
	WordDecoder *mime.WordDecoder
	// Logger receives structured session events. A nil Logger makes the
	// client write JSON records to os.Stderr at the level LogLevel sets.
	Logger *slog.Logger
	// LogLevel controls the verbosity of the os.Stderr logger used when
	// Logger is nil; a nil value fixes it at Info. It has no effect on a
	// caller-supplied Logger.
	LogLevel *slog.LevelVar
	// MaxLiteralBuffer bounds how large a FETCH literal is buffered before
	// the decoder instead streams it via imap.LiteralReader. Zero means
	// always buffer. Fetch still reads a streamed literal in full into
	// FetchBodySectionData.Data.
	MaxLiteralBuffer int64
	// CommandTimeout bounds how long a single command may stay pending
	// without a tagged response. On expiry the caller's Wait fails with
	// an ErrKindTimeout error and the command slot is released, so later
	// commands can be sent; the connection itself is left open. A tagged
	// response that arrives after the timeout carries a tag no pending
	// command owns, which the read loop treats as a protocol error that
	// ends the connection. Zero disables the timeout.
	CommandTimeout time.Duration
}

func (options *Options) wrapReadWriter(rw io.ReadWriter) io.ReadWriter {
	if options.DebugWriter == nil {
		return rw
	}
	return struct {
		io.Reader
		io.Writer
	}{
		Reader: io.TeeReader(rw, options.DebugWriter),
		Writer: io.MultiWriter(rw, options.DebugWriter),
	}
}

func (options *Options) decodeText(s string) (string, error) {
	wordDecoder := options.WordDecoder
	if wordDecoder == nil {
		wordDecoder = &mime.WordDecoder{}
	}
	out, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s, err
	}
	return out, nil
}

func (options *Options) unilateralDataHandler() *UnilateralDataHandler {
	if options.UnilateralDataHandler == nil {
		return &UnilateralDataHandler{}
	}
	return options.UnilateralDataHandler
}

func (options *Options) tlsConfig() *tls.Config {
	if options != nil && options.TLSConfig != nil {
		return options.TLSConfig.Clone()
	}
	return new(tls.Config)
}

func (options *Options) logger() *ilog.Logger {
	if options.Logger != nil {
		return ilog.FromSlog(options.Logger)
	}
	return ilog.New(nil, options.LogLevel)
}

// Client is an IMAP4rev1 client.
//
// Commands are exposed as methods. Unlike pipelined IMAP clients, Client
// allows only one command in flight at a time: each command method blocks
// until the previous command's tagged response has been received before
// sending its own (RFC 3501 §5.5 note on command ambiguity is sidestepped
// entirely rather than managed). Command methods return a command struct
// usable to wait for the server's response.
//
// A Client is safe for concurrent use; concurrent callers are simply
// serialized onto the connection's single in-flight slot.
type Client struct {
	conn     net.Conn
	options  Options
	br       *bufio.Reader
	bw       *bufio.Writer
	dec      *imapwire.Decoder
	encMutex sync.Mutex

	cmdSlot chan struct{} // buffered(1) token enforcing one in-flight command

	log *ilog.Logger

	greetingCh   chan struct{}
	greetingRecv bool
	greetingErr  error

	decCh  chan struct{}
	decErr error

	mutex      sync.Mutex
	state      imap.ConnState
	caps       imap.CapSet
	capGroup   singleflight.Group
	mailbox    *SelectedMailbox
	cmdTag     uint64
	pending    command // nil when no command is in flight
	contReq    *continuationRequest
	closed     bool
}

// New creates a new Client. It performs no I/O.
//
// A nil options pointer is equivalent to the zero Options value.
func New(conn net.Conn, options *Options) *Client {
	if options == nil {
		options = &Options{}
	}

	rw := options.wrapReadWriter(conn)
	br := bufio.NewReader(rw)
	bw := bufio.NewWriter(rw)

	dec := imapwire.NewDecoder(br, imapwire.ConnSideClient)
	dec.MaxLiteralBuffer = options.MaxLiteralBuffer

	client := &Client{
		conn:       conn,
		options:    *options,
		br:         br,
		bw:         bw,
		dec:        dec,
		cmdSlot:    make(chan struct{}, 1),
		log:        options.logger(),
		greetingCh: make(chan struct{}),
		decCh:      make(chan struct{}),
		state:      imap.ConnStateConnecting,
	}
	client.cmdSlot <- struct{}{}
	go client.read()
	return client
}

// NewStartTLS creates a new Client, upgrading the connection with STARTTLS.
func NewStartTLS(conn net.Conn, options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}

	client := New(conn, options)
	if err := client.startTLS(options.TLSConfig); err != nil {
		conn.Close()
		return nil, err
	}

	if client.State() != imap.ConnStateNotAuthenticated {
		client.Close()
		return nil, imap.NewError(imap.ErrKindProtocol, "server sent PREAUTH on an unencrypted connection")
	}

	return client, nil
}

// DialInsecure connects to an unencrypted IMAP server.
func DialInsecure(address string, options *Options) (*Client, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, imap.WrapError(imap.ErrKindConnectionFailed, "dial failed", err)
	}
	return New(conn, options), nil
}

// DialTLS connects to an IMAP server using implicit TLS.
func DialTLS(address string, options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	tlsConfig := options.tlsConfig()
	if tlsConfig.NextProtos == nil {
		tlsConfig.NextProtos = []string{"imap"}
	}

	conn, err := tls.DialWithDialer(dialer, "tcp", address, tlsConfig)
	if err != nil {
		return nil, imap.WrapError(imap.ErrKindTLS, "tls dial failed", err)
	}
	return New(conn, options), nil
}

// DialStartTLS connects to an IMAP server that uses STARTTLS.
func DialStartTLS(address string, options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, imap.WrapError(imap.ErrKindConnectionFailed, "dial failed", err)
	}

	tlsConfig := options.tlsConfig()
	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = host
	}
	newOptions := *options
	newOptions.TLSConfig = tlsConfig
	return NewStartTLS(conn, &newOptions)
}

func (c *Client) setReadTimeout(dur time.Duration) {
	if dur > 0 {
		c.conn.SetReadDeadline(time.Now().Add(dur))
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}
}

func (c *Client) setWriteTimeout(dur time.Duration) {
	if dur > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(dur))
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}
}

// State returns the client's current connection state.
func (c *Client) State() imap.ConnState {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}

func (c *Client) setState(state imap.ConnState) {
	c.mutex.Lock()
	prev := c.state
	c.state = state
	if c.state != imap.ConnStateSelected {
		c.mailbox = nil
	}
	c.mutex.Unlock()
	if prev != state {
		c.log.Debug("connection state changed", "from", prev, "to", state)
	}
}

// Caps returns the capabilities the server has advertised, issuing a
// CAPABILITY command (coalescing concurrent callers into a single round
// trip) if they aren't already known.
func (c *Client) Caps() imap.CapSet {
	if err := c.WaitGreeting(); err != nil {
		return nil
	}

	c.mutex.Lock()
	caps := c.caps
	c.mutex.Unlock()
	if caps != nil {
		return caps
	}

	v, _, _ := c.capGroup.Do("caps", func() (interface{}, error) {
		c.Capability().Wait()
		c.mutex.Lock()
		defer c.mutex.Unlock()
		return c.caps, nil
	})
	caps, _ = v.(imap.CapSet)
	return caps
}

// cachedCaps returns whatever capabilities the client already knows about,
// without issuing a CAPABILITY round trip. Callers that only want to act on
// already-known capabilities (rather than force a fetch) use this instead of
// Caps.
func (c *Client) cachedCaps() imap.CapSet {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.caps
}

func (c *Client) setCaps(caps imap.CapSet) {
	c.mutex.Lock()
	c.caps = caps
	c.mutex.Unlock()
	if caps == nil {
		go c.Capability().Wait()
	}
}

// Mailbox returns the state of the currently selected mailbox, or nil if no
// mailbox is selected. The returned struct must not be modified.
func (c *Client) Mailbox() *SelectedMailbox {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.mailbox
}

// uidCmdName prefixes name with "UID " when kind is imapwire.NumKindUID.
func uidCmdName(name string, kind imapwire.NumKind) string {
	switch kind {
	case imapwire.NumKindSeq:
		return name
	case imapwire.NumKindUID:
		return "UID " + name
	default:
		panic("imapclient: invalid imapwire.NumKind")
	}
}

// numSetKind reports whether set is a sequence-number set or a UID set.
func numSetKind(set imap.NumSet) imapwire.NumKind {
	if _, ok := set.(imap.UIDSet); ok {
		return imapwire.NumKindUID
	}
	return imapwire.NumKindSeq
}

// readOnly reports whether the currently selected mailbox was selected via
// EXAMINE (or SELECT with SelectOptions.ReadOnly). Used by the state
// validator for commands that modify the selected mailbox.
func (c *Client) readOnly() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.mailbox == nil {
		return false
	}
	return c.mailbox.ReadOnly
}

// Close immediately closes the connection.
func (c *Client) Close() error {
	c.mutex.Lock()
	alreadyClosed := c.closed
	c.closed = true
	c.mutex.Unlock()

	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}

	<-c.decCh
	if err := c.decErr; err != nil {
		return err
	}

	if alreadyClosed {
		return net.ErrClosed
	}
	return nil
}

// beginCommand acquires the single command slot, then writes the command
// tag and name. The caller must call commandEncoder.end.
func (c *Client) beginCommand(name string, cmd command) *commandEncoder {
	<-c.cmdSlot // released in completeCommand

	c.encMutex.Lock()

	c.mutex.Lock()
	c.cmdTag++
	tag := fmt.Sprintf("T%v", c.cmdTag)

	baseCmd := cmd.base()
	*baseCmd = commandBase{tag: tag, name: name, done: make(chan error, 1)}
	c.pending = cmd

	if d := c.options.CommandTimeout; d > 0 {
		baseCmd.timer = time.AfterFunc(d, func() {
			c.completeCommand(cmd, imap.NewError(imap.ErrKindTimeout, fmt.Sprintf("command %v timed out", tag)))
		})
	}

	literalMinus := c.caps.Has(imap.CapLiteralPlus) // LITERAL+ subsumes LITERAL-
	literalPlus := c.caps.Has(imap.CapLiteralPlus)
	c.mutex.Unlock()

	c.log.Debug("sending command", "tag", tag, "name", name)
	c.setWriteTimeout(cmdWriteTimeout)

	wireEnc := imapwire.NewEncoder(c.bw, imapwire.ConnSideClient)
	wireEnc.LiteralMinus = literalMinus
	wireEnc.LiteralPlus = literalPlus
	wireEnc.NewContinuationRequest = func() *imapwire.ContinuationRequest {
		return c.registerContReq(cmd)
	}

	enc := &commandEncoder{Encoder: wireEnc, client: c, cmd: baseCmd}
	enc.Atom(tag).SP().Atom(name)
	return enc
}

func (c *Client) findPendingCmdByType(match func(cmd command) bool) command {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.pending != nil && match(c.pending) {
		return c.pending
	}
	return nil
}

func findPendingCmdByType[T command](c *Client) T {
	var zero T
	cmd := c.findPendingCmdByType(func(cmd command) bool {
		_, ok := cmd.(T)
		return ok
	})
	if cmd == nil {
		return zero
	}
	return cmd.(T)
}

// completeCommand marks cmd finished, frees the command slot, and updates
// connection state based on the command's outcome.
func (c *Client) completeCommand(cmd command, err error) {
	baseCmd := cmd.base()
	if !baseCmd.completed.CompareAndSwap(false, true) {
		return
	}
	if baseCmd.timer != nil {
		baseCmd.timer.Stop()
	}

	done := baseCmd.done
	done <- err
	close(done)

	c.mutex.Lock()
	if c.contReq != nil && c.contReq.cmd == cmd.base() {
		c.contReq.Cancel(err)
		c.contReq = nil
	}
	if c.pending == cmd {
		c.pending = nil
	}
	c.mutex.Unlock()

	switch cmd := cmd.(type) {
	case *authenticateCommand, *loginCommand:
		if err == nil {
			c.setState(imap.ConnStateAuthenticated)
		}
	case *SelectCommand:
		if err == nil {
			c.mutex.Lock()
			c.state = imap.ConnStateSelected
			c.mailbox = &SelectedMailbox{
				Name:           cmd.mailbox,
				NumMessages:    cmd.data.NumMessages,
				Flags:          cmd.data.Flags,
				PermanentFlags: cmd.data.PermanentFlags,
				ReadOnly:       cmd.readOnly,
			}
			c.mutex.Unlock()
		}
	case *closeCommand:
		if err == nil {
			c.setState(imap.ConnStateAuthenticated)
		}
	case *logoutCommand:
		if err == nil {
			c.setState(imap.ConnStateLogout)
		}
	case *ListCommand:
		close(cmd.mailboxes)
	case *FetchCommand:
		close(cmd.msgs)
	case *ExpungeCommand:
		close(cmd.seqNums)
	case *SearchCommand:
		// nothing extra
	}

	c.cmdSlot <- struct{}{} // release the slot for the next command
}

func (c *Client) registerContReq(cmd command) *imapwire.ContinuationRequest {
	contReq := imapwire.NewContinuationRequest()
	c.mutex.Lock()
	c.contReq = &continuationRequest{ContinuationRequest: contReq, cmd: cmd.base()}
	c.mutex.Unlock()
	return contReq
}

func (c *Client) closeWithError(err error) {
	c.conn.Close()

	c.mutex.Lock()
	c.state = imap.ConnStateLogout
	pending := c.pending
	c.pending = nil
	c.mutex.Unlock()

	if pending != nil {
		c.completeCommand(pending, err)
	}
}

// read continuously decodes responses from the server in its own goroutine,
// dispatching them to pending commands or to UnilateralDataHandler.
func (c *Client) read() {
	defer close(c.decCh)
	defer func() {
		if v := recover(); v != nil {
			c.decErr = fmt.Errorf("imapclient: panic while reading response: %v\n%s", v, debug.Stack())
		}

		cmdErr := c.decErr
		if cmdErr == nil {
			cmdErr = io.ErrUnexpectedEOF
		}
		c.closeWithError(cmdErr)
	}()

	c.setReadTimeout(respReadTimeout)
	for {
		if c.dec.EOF() || errors.Is(c.dec.Err(), net.ErrClosed) || errors.Is(c.dec.Err(), io.ErrClosedPipe) {
			break
		}
		if err := c.readResponse(); err != nil {
			c.decErr = err
			break
		}
		if c.greetingErr != nil {
			break
		}
	}
}

func (c *Client) readResponse() error {
	c.setReadTimeout(respReadTimeout)
	defer c.setReadTimeout(idleReadTimeout)

	if c.dec.Special('+') {
		if err := c.readContinueReq(); err != nil {
			return fmt.Errorf("in continue-req: %v", err)
		}
		return nil
	}

	var tag, typ string
	if !c.dec.Expect(c.dec.Special('*') || c.dec.Atom(&tag), "'*' or atom") {
		return fmt.Errorf("in response: cannot read tag: %v", c.dec.Err())
	}
	if !c.dec.ExpectSP() {
		return fmt.Errorf("in response: %v", c.dec.Err())
	}
	if !c.dec.ExpectAtom(&typ) {
		return fmt.Errorf("in response: cannot read type: %v", c.dec.Err())
	}

	var (
		token    string
		err      error
		startTLS *startTLSCommand
	)
	if tag != "" {
		token = "tagged response"
		startTLS, err = c.readResponseTagged(tag, typ)
	} else {
		token = "data response"
		err = c.readResponseData(typ)
	}
	if err != nil {
		return fmt.Errorf("in %v: %v", token, err)
	}

	if !c.dec.ExpectCRLF() {
		return fmt.Errorf("in response: %v", c.dec.Err())
	}

	if startTLS != nil {
		c.upgradeStartTLS(startTLS)
	}

	return nil
}

func (c *Client) readContinueReq() error {
	var text string
	if c.dec.SP() {
		c.dec.Text(&text)
	}
	if !c.dec.ExpectCRLF() {
		return c.dec.Err()
	}

	c.mutex.Lock()
	contReq := c.contReq
	c.contReq = nil
	c.mutex.Unlock()

	if contReq == nil {
		return fmt.Errorf("received unmatched continuation request")
	}

	contReq.Done(text)
	return nil
}

func (c *Client) readResponseTagged(tag, typ string) (startTLS *startTLSCommand, err error) {
	c.mutex.Lock()
	var cmd command
	if c.pending != nil && c.pending.base().tag == tag {
		cmd = c.pending
	}
	c.mutex.Unlock()
	if cmd == nil {
		return nil, fmt.Errorf("received tagged response with unknown tag %q", tag)
	}

	defer func() {
		if err != nil {
			c.completeCommand(cmd, err)
		}
	}()

	hasSP := c.dec.SP()

	var code string
	if hasSP && c.dec.Special('[') {
		if !c.dec.ExpectAtom(&code) {
			return nil, fmt.Errorf("in resp-text-code: %v", c.dec.Err())
		}
		switch code {
		case "CAPABILITY":
			caps, err := readCapabilities(c.dec)
			if err != nil {
				return nil, fmt.Errorf("in capability-data: %v", err)
			}
			c.setCaps(caps)
		case "APPENDUID":
			var uidValidity uint32
			var uid uint32
			if !c.dec.ExpectSP() || !c.dec.ExpectNumber(&uidValidity) || !c.dec.ExpectSP() || !c.dec.ExpectUID(&uid) {
				return nil, fmt.Errorf("in resp-code-apnd: %v", c.dec.Err())
			}
			if cmd, ok := cmd.(*AppendCommand); ok {
				cmd.data.UID = imap.UID(uid)
				cmd.data.UIDValidity = uidValidity
			}
		case "COPYUID":
			if !c.dec.ExpectSP() {
				return nil, c.dec.Err()
			}
			uidValidity, srcUIDs, dstUIDs, err := readRespCodeCopyUID(c.dec)
			if err != nil {
				return nil, fmt.Errorf("in resp-code-copy: %v", err)
			}
			switch cmd := cmd.(type) {
			case *CopyCommand:
				cmd.data.UIDValidity = uidValidity
				cmd.data.SourceUIDs = srcUIDs
				cmd.data.DestUIDs = dstUIDs
			case *MoveCommand:
				cmd.data.UIDValidity = uidValidity
				cmd.data.SourceUIDs = srcUIDs
				cmd.data.DestUIDs = dstUIDs
			}
		default:
			if c.dec.SP() {
				c.dec.DiscardUntilByte(']')
			}
		}
		if !c.dec.ExpectSpecial(']') {
			return nil, fmt.Errorf("in resp-text: %v", c.dec.Err())
		}
		hasSP = c.dec.SP()
	}

	var text string
	if hasSP && !c.dec.ExpectText(&text) {
		return nil, fmt.Errorf("in resp-text: %v", c.dec.Err())
	}

	var cmdErr error
	switch typ {
	case "OK":
	case "NO", "BAD":
		cmdErr = &imap.Error{
			Kind:    imap.ErrKindCommandFailed,
			Message: text,
			Command: cmd.base().name,
			Status:  &imap.StatusResponse{Type: imap.StatusResponseType(typ), Code: imap.ResponseCode(code), Text: text},
		}
	default:
		return nil, fmt.Errorf("in resp-cond-state: expected OK, NO or BAD, got %v", typ)
	}

	c.completeCommand(cmd, cmdErr)

	if cmd, ok := cmd.(*startTLSCommand); ok && cmdErr == nil {
		startTLS = cmd
	}

	if cmdErr == nil && code != "CAPABILITY" {
		switch cmd.(type) {
		case *startTLSCommand, *loginCommand, *authenticateCommand:
			c.setCaps(nil)
		}
	}

	return startTLS, nil
}

func (c *Client) readResponseData(typ string) error {
	var num uint32
	if typ[0] >= '0' && typ[0] <= '9' {
		v, err := strconv.ParseUint(typ, 10, 32)
		if err != nil {
			return err
		}
		num = uint32(v)
		if !c.dec.ExpectSP() || !c.dec.ExpectAtom(&typ) {
			return c.dec.Err()
		}
	}

	switch typ {
	case "OK", "PREAUTH", "NO", "BAD", "BYE":
		return c.readStatusResponseData(typ)
	case "CAPABILITY":
		return c.handleCapability()
	case "FLAGS":
		if !c.dec.ExpectSP() {
			return c.dec.Err()
		}
		return c.handleFlags()
	case "EXISTS":
		return c.handleExists(num)
	case "RECENT":
		return c.handleRecent(num)
	case "LIST":
		if !c.dec.ExpectSP() {
			return c.dec.Err()
		}
		return c.handleList()
	case "LSUB":
		if !c.dec.ExpectSP() {
			return c.dec.Err()
		}
		return c.handleList()
	case "STATUS":
		if !c.dec.ExpectSP() {
			return c.dec.Err()
		}
		return c.handleStatus()
	case "FETCH":
		if !c.dec.ExpectSP() {
			return c.dec.Err()
		}
		return c.handleFetch(num)
	case "EXPUNGE":
		return c.handleExpunge(num)
	case "SEARCH":
		return c.handleSearch()
	default:
		return fmt.Errorf("unsupported response type %q", typ)
	}
}

func (c *Client) readStatusResponseData(typ string) error {
	hasSP := c.dec.SP()

	var code string
	if hasSP && c.dec.Special('[') {
		if !c.dec.ExpectAtom(&code) {
			return fmt.Errorf("in resp-text-code: %v", c.dec.Err())
		}
		switch code {
		case "CAPABILITY":
			caps, err := readCapabilities(c.dec)
			if err != nil {
				return fmt.Errorf("in capability-data: %v", err)
			}
			c.setCaps(caps)
		case "PERMANENTFLAGS":
			if !c.dec.ExpectSP() {
				return c.dec.Err()
			}
			flags, err := readFlagList(c.dec)
			if err != nil {
				return err
			}
			c.mutex.Lock()
			if c.state == imap.ConnStateSelected && c.mailbox != nil {
				c.mailbox = c.mailbox.copy()
				c.mailbox.PermanentFlags = flags
			}
			c.mutex.Unlock()
			if cmd := findPendingCmdByType[*SelectCommand](c); cmd != nil {
				cmd.data.PermanentFlags = flags
			} else if handler := c.options.unilateralDataHandler().Mailbox; handler != nil {
				handler(&UnilateralDataMailbox{PermanentFlags: flags})
			}
		case "UIDNEXT":
			var uidNext uint32
			if !c.dec.ExpectSP() || !c.dec.ExpectUID(&uidNext) {
				return c.dec.Err()
			}
			if cmd := findPendingCmdByType[*SelectCommand](c); cmd != nil {
				cmd.data.UIDNext = imap.UID(uidNext)
			}
		case "UIDVALIDITY":
			var uidValidity uint32
			if !c.dec.ExpectSP() || !c.dec.ExpectNumber(&uidValidity) {
				return c.dec.Err()
			}
			if cmd := findPendingCmdByType[*SelectCommand](c); cmd != nil {
				cmd.data.UIDValidity = uidValidity
			}
		case "UNSEEN":
			var num uint32
			if !c.dec.ExpectSP() || !c.dec.ExpectNumber(&num) {
				return c.dec.Err()
			}
		default:
			if c.dec.SP() {
				c.dec.DiscardUntilByte(']')
			}
		}
		if !c.dec.ExpectSpecial(']') {
			return fmt.Errorf("in resp-text: %v", c.dec.Err())
		}
		hasSP = c.dec.SP()
	}

	var text string
	if hasSP && !c.dec.ExpectText(&text) {
		return fmt.Errorf("in resp-text: %v", c.dec.Err())
	}

	if code == "CLOSED" {
		c.setState(imap.ConnStateAuthenticated)
	}

	if !c.greetingRecv {
		switch typ {
		case "OK":
			c.setState(imap.ConnStateNotAuthenticated)
		case "PREAUTH":
			c.setState(imap.ConnStateAuthenticated)
		default:
			c.setState(imap.ConnStateLogout)
			c.greetingErr = &imap.Error{
				Kind:    imap.ErrKindConnectionFailed,
				Message: text,
				Status:  &imap.StatusResponse{Type: imap.StatusResponseType(typ), Code: imap.ResponseCode(code), Text: text},
			}
		}
		c.greetingRecv = true
		if c.greetingErr == nil && code != "CAPABILITY" {
			c.setCaps(nil)
		}
		close(c.greetingCh)
	} else if typ == "BYE" {
		c.log.Info("server sent BYE", "text", text)
	}

	return nil
}

// WaitGreeting waits for the server's initial greeting.
func (c *Client) WaitGreeting() error {
	select {
	case <-c.greetingCh:
		return c.greetingErr
	case <-c.decCh:
		if c.decErr != nil {
			return fmt.Errorf("error before greeting: %v", c.decErr)
		}
		return fmt.Errorf("connection closed before greeting")
	}
}

// commandEncoder encodes one IMAP command.
type commandEncoder struct {
	*imapwire.Encoder
	client *Client
	cmd    *commandBase
}

func (ce *commandEncoder) end() {
	if ce.Encoder != nil {
		ce.flush()
	}
	ce.client.setWriteTimeout(0)
	ce.client.encMutex.Unlock()
}

func (ce *commandEncoder) flush() {
	if err := ce.Encoder.CRLF(); err != nil {
		ce.client.closeWithError(err)
	}
	ce.Encoder = nil
}

// Literal encodes a literal argument, returning a writer for its octets.
func (ce *commandEncoder) Literal(size int64) io.WriteCloser {
	var contReq *imapwire.ContinuationRequest
	ce.client.mutex.Lock()
	hasLiteralMinus := ce.client.caps.Has(imap.CapLiteralPlus)
	ce.client.mutex.Unlock()
	if size > 4096 || !hasLiteralMinus {
		contReq = ce.client.registerContReq(ce.cmd)
	}
	ce.client.setWriteTimeout(literalWriteTimeout)
	return literalWriter{WriteCloser: ce.Encoder.Literal(size, contReq), client: ce.client}
}

type literalWriter struct {
	io.WriteCloser
	client *Client
}

func (lw literalWriter) Close() error {
	lw.client.setWriteTimeout(cmdWriteTimeout)
	return lw.WriteCloser.Close()
}

// continuationRequest is a pending server "+" continuation tied to the
// command that is waiting on it.
type continuationRequest struct {
	*imapwire.ContinuationRequest
	cmd *commandBase
}

// UnilateralDataMailbox describes a mailbox state update not tied to any
// pending command.
type UnilateralDataMailbox struct {
	NumMessages    *uint32
	Flags          []imap.Flag
	PermanentFlags []imap.Flag
}

// UnilateralDataHandler handles server data not tied to any pending
// command, delivered from the read goroutine.
type UnilateralDataHandler struct {
	Expunge func(seqNum uint32)
	Mailbox func(data *UnilateralDataMailbox)
	Fetch   func(msg *imap.FetchMessageData)
}

// command is the interface every IMAP command implements.
type command interface {
	base() *commandBase
}

// commandBase holds the bookkeeping shared by every command.
type commandBase struct {
	tag       string
	name      string
	done      chan error
	err       error
	completed atomic.Bool
	timer     *time.Timer
}

func (cmd *commandBase) base() *commandBase { return cmd }

func (cmd *commandBase) wait() error {
	if cmd.err == nil {
		cmd.err = <-cmd.done
	}
	return cmd.err
}

// Command is a generic IMAP command with no extra result data.
type Command struct {
	commandBase
}

// Wait blocks until the command completes.
func (cmd *Command) Wait() error {
	return cmd.wait()
}

type loginCommand struct{ Command }
type logoutCommand struct{ Command }
type closeCommand struct{ Command }

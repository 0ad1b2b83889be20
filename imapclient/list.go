package imapclient

import (
	"fmt"
	"unicode/utf8"

	"github.com/cloudmail/imapengine"
	"github.com/cloudmail/imapengine/internal/imapwire"
)

// ListOptions holds options for List.
type ListOptions = imap.ListOptions

func selectOpts(options *ListOptions) []string {
	if options == nil {
		return nil
	}
	var l []string
	if options.SelectSubscribed {
		l = append(l, "SUBSCRIBED")
	}
	if options.SelectRecursiveMatch {
		l = append(l, "RECURSIVEMATCH")
	}
	return l
}

func returnOpts(options *ListOptions) []string {
	if options == nil {
		return nil
	}
	var l []string
	if options.ReturnSubscribed {
		l = append(l, "SUBSCRIBED")
	}
	if options.ReturnChildren {
		l = append(l, "CHILDREN")
	}
	return l
}

// ListCommand is a LIST command.
//
// The caller must fully consume a ListCommand, either via Collect or by
// draining Next until it returns nil.
type ListCommand struct {
	Command
	mailboxes chan *imap.ListData
}

// Next advances to the next mailbox. Returns nil once the command has been
// fully consumed (check Close's error for failure).
func (cmd *ListCommand) Next() *imap.ListData {
	return <-cmd.mailboxes
}

// Close drains any remaining mailboxes and waits for the command to
// complete.
func (cmd *ListCommand) Close() error {
	for cmd.Next() != nil {
	}
	return cmd.wait()
}

// Collect accumulates every mailbox returned by the command into a slice.
func (cmd *ListCommand) Collect() ([]*imap.ListData, error) {
	var l []*imap.ListData
	for {
		data := cmd.Next()
		if data == nil {
			break
		}
		l = append(l, data)
	}
	return l, cmd.wait()
}

// List sends a LIST command.
//
// The caller must fully consume the ListCommand, e.g. with
// ListCommand.Collect.
func (c *Client) List(ref, pattern string, options *ListOptions) *ListCommand {
	cmd := &ListCommand{mailboxes: make(chan *imap.ListData, 64)}
	if err := validate(cmdAuthenticated, c.State(), false); err != nil {
		c.failImmediately(&cmd.Command, err)
		close(cmd.mailboxes)
		return cmd
	}

	enc := c.beginCommand("LIST", cmd)
	if opts := selectOpts(options); len(opts) > 0 {
		enc.SP().List(len(opts), func(i int) { enc.Atom(opts[i]) })
	}
	enc.SP().Mailbox(ref).SP().Mailbox(pattern)
	if opts := returnOpts(options); len(opts) > 0 {
		enc.SP().Atom("RETURN").SP().List(len(opts), func(i int) { enc.Atom(opts[i]) })
	}
	enc.end()
	return cmd
}

// Lsub sends an LSUB command, listing subscribed mailboxes.
func (c *Client) Lsub(ref, pattern string) *ListCommand {
	cmd := &ListCommand{mailboxes: make(chan *imap.ListData, 64)}
	if err := validate(cmdAuthenticated, c.State(), false); err != nil {
		c.failImmediately(&cmd.Command, err)
		close(cmd.mailboxes)
		return cmd
	}
	enc := c.beginCommand("LSUB", cmd)
	enc.SP().Mailbox(ref).SP().Mailbox(pattern)
	enc.end()
	return cmd
}

func (c *Client) handleList() error {
	data, err := readList(c.dec)
	if err != nil {
		return fmt.Errorf("in mailbox-list: %v", err)
	}
	if cmd := findPendingCmdByType[*ListCommand](c); cmd != nil {
		cmd.mailboxes <- data
	}
	return nil
}

func readList(dec *imapwire.Decoder) (*imap.ListData, error) {
	var data imap.ListData

	hasAttrs, err := dec.List(func() error {
		if !dec.ExpectSpecial('\\') {
			return dec.Err()
		}
		var attr string
		if !dec.ExpectAtom(&attr) {
			return dec.Err()
		}
		data.Attrs = append(data.Attrs, imap.MailboxAttr("\\"+attr))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("in mbx-list-flags: %w", err)
	}
	if !hasAttrs {
		return nil, fmt.Errorf("in mbx-list-flags: %v", dec.Err())
	}

	if !dec.ExpectSP() {
		return nil, dec.Err()
	}

	data.Delim, err = readDelim(dec)
	if err != nil {
		return nil, err
	}

	if !dec.ExpectSP() || !dec.ExpectMailbox(&data.Mailbox) {
		return nil, dec.Err()
	}

	if dec.SP() {
		err := dec.ExpectList(func() error {
			dec.DiscardValue()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("in mbox-list-extended: %v", err)
		}
	}

	return &data, nil
}

func readDelim(dec *imapwire.Decoder) (rune, error) {
	var delimStr string
	if dec.Quoted(&delimStr) {
		delim, size := utf8.DecodeRuneInString(delimStr)
		if delim == utf8.RuneError || size != len(delimStr) {
			return 0, fmt.Errorf("mailbox delimiter must be a single rune")
		}
		return delim, nil
	}
	if !dec.ExpectNIL() {
		return 0, dec.Err()
	}
	return 0, nil
}

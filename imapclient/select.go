package imapclient

import (
	"github.com/cloudmail/imapengine"
	"github.com/cloudmail/imapengine/internal/imapwire"
)

// SelectOptions holds options for Select.
type SelectOptions = imap.SelectOptions

// SelectCommand is a SELECT or EXAMINE command.
type SelectCommand struct {
	Command
	mailbox  string
	readOnly bool
	data     imap.SelectData
}

// Wait blocks until the command completes and returns the mailbox's
// post-selection state.
func (cmd *SelectCommand) Wait() (*imap.SelectData, error) {
	return &cmd.data, cmd.wait()
}

// Select sends a SELECT command, or an EXAMINE command if options.ReadOnly
// is set.
func (c *Client) Select(mailbox string, options *SelectOptions) *SelectCommand {
	cmd := &SelectCommand{mailbox: mailbox}
	if err := validate(cmdAuthenticated, c.State(), false); err != nil {
		c.failImmediately(&cmd.Command, err)
		return cmd
	}

	name := "SELECT"
	cmd.readOnly = options != nil && options.ReadOnly
	if cmd.readOnly {
		name = "EXAMINE"
	}

	enc := c.beginCommand(name, cmd)
	enc.SP().Mailbox(mailbox)
	enc.end()

	return cmd
}

func (c *Client) handleFlags() error {
	flags, err := readFlagList(c.dec)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	if c.state == imap.ConnStateSelected && c.mailbox != nil {
		c.mailbox = c.mailbox.copy()
		c.mailbox.Flags = flags
	}
	c.mutex.Unlock()

	if cmd := findPendingCmdByType[*SelectCommand](c); cmd != nil {
		cmd.data.Flags = flags
	} else if handler := c.options.unilateralDataHandler().Mailbox; handler != nil {
		handler(&UnilateralDataMailbox{Flags: flags})
	}

	return nil
}

func (c *Client) handleExists(num uint32) error {
	if cmd := findPendingCmdByType[*SelectCommand](c); cmd != nil {
		cmd.data.NumMessages = num
		return nil
	}

	c.mutex.Lock()
	if c.state == imap.ConnStateSelected && c.mailbox != nil {
		c.mailbox = c.mailbox.copy()
		c.mailbox.NumMessages = num
	}
	c.mutex.Unlock()

	if handler := c.options.unilateralDataHandler().Mailbox; handler != nil {
		handler(&UnilateralDataMailbox{NumMessages: &num})
	}
	return nil
}

func (c *Client) handleRecent(num uint32) error {
	if cmd := findPendingCmdByType[*SelectCommand](c); cmd != nil {
		cmd.data.NumRecent = num
	}
	return nil
}

// readFlagList reads a flag-list production: a parenthesized,
// space-separated list of flags, each either a system flag (prefixed with
// a backslash) or a keyword atom.
func readFlagList(dec *imapwire.Decoder) ([]imap.Flag, error) {
	if !dec.ExpectSpecial('(') {
		return nil, dec.Err()
	}

	var flags []imap.Flag
	for {
		if dec.Special(')') {
			break
		}
		if len(flags) > 0 && !dec.ExpectSP() {
			return nil, dec.Err()
		}

		var flag string
		if dec.Special('\\') {
			flag = "\\"
		}
		var atom string
		if !dec.ExpectAtom(&atom) {
			return nil, dec.Err()
		}
		flags = append(flags, imap.Flag(flag+atom))
	}

	return flags, nil
}

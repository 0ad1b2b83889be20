package imapclient

import (
	"fmt"
	"strings"

	"github.com/cloudmail/imapengine"
	"github.com/cloudmail/imapengine/internal/imapwire"
)

// StatusOptions holds options for Status.
type StatusOptions = imap.StatusOptions

func statusItems(options *StatusOptions) []string {
	var l []string
	if options.NumMessages {
		l = append(l, "MESSAGES")
	}
	if options.UIDNext {
		l = append(l, "UIDNEXT")
	}
	if options.UIDValidity {
		l = append(l, "UIDVALIDITY")
	}
	if options.NumUnseen {
		l = append(l, "UNSEEN")
	}
	return l
}

// StatusCommand is a STATUS command.
type StatusCommand struct {
	Command
	mailbox string
	data    imap.StatusData
}

// Wait blocks until the command completes and returns the requested status.
func (cmd *StatusCommand) Wait() (*imap.StatusData, error) {
	return &cmd.data, cmd.wait()
}

// Status sends a STATUS command.
//
// A nil options pointer is equivalent to a zero StatusOptions.
func (c *Client) Status(mailbox string, options *StatusOptions) *StatusCommand {
	if options == nil {
		options = new(StatusOptions)
	}

	cmd := &StatusCommand{mailbox: mailbox}
	if err := validate(cmdAuthenticated, c.State(), false); err != nil {
		c.failImmediately(&cmd.Command, err)
		return cmd
	}

	enc := c.beginCommand("STATUS", cmd)
	enc.SP().Mailbox(mailbox).SP()
	items := statusItems(options)
	enc.List(len(items), func(i int) { enc.Atom(items[i]) })
	enc.end()
	return cmd
}

func (c *Client) handleStatus() error {
	data, err := readStatus(c.dec)
	if err != nil {
		return fmt.Errorf("in mailbox-data status: %v", err)
	}
	if cmd := findPendingCmdByType[*StatusCommand](c); cmd != nil && cmd.mailbox == data.Mailbox {
		cmd.data = *data
	}
	return nil
}

func readStatus(dec *imapwire.Decoder) (*imap.StatusData, error) {
	var data imap.StatusData
	if !dec.ExpectMailbox(&data.Mailbox) || !dec.ExpectSP() {
		return nil, dec.Err()
	}
	err := dec.ExpectList(func() error {
		return readStatusAttVal(dec, &data)
	})
	return &data, err
}

func readStatusAttVal(dec *imapwire.Decoder, data *imap.StatusData) error {
	var name string
	if !dec.ExpectAtom(&name) || !dec.ExpectSP() {
		return dec.Err()
	}

	var ok bool
	switch strings.ToUpper(name) {
	case "MESSAGES":
		var num uint32
		ok = dec.ExpectNumber(&num)
		data.NumMessages = &num
	case "UIDNEXT":
		var uidNext uint32
		ok = dec.ExpectUID(&uidNext)
		data.UIDNext = imap.UID(uidNext)
	case "UIDVALIDITY":
		ok = dec.ExpectNumber(&data.UIDValidity)
	case "UNSEEN":
		var num uint32
		ok = dec.ExpectNumber(&num)
		data.NumUnseen = &num
	default:
		ok = dec.DiscardValue()
	}
	if !ok {
		return dec.Err()
	}
	return nil
}

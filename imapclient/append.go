package imapclient

import (
	"io"

	"github.com/cloudmail/imapengine"
)

// appendDateTimeLayout is the IMAP date-time format used by APPEND's
// optional date-time argument (RFC 3501 §9, "date-time").
const appendDateTimeLayout = "2-Jan-2006 15:04:05 -0700"

// Append sends an APPEND command.
//
// The caller must write the message body to the returned AppendCommand and
// then call its Close method.
//
// A nil options is equivalent to a zero imap.AppendOptions.
func (c *Client) Append(mailbox string, size int64, options *imap.AppendOptions) *AppendCommand {
	cmd := &AppendCommand{}
	if err := validate(cmdAuthenticated, c.State(), false); err != nil {
		c.failImmediately(&cmd.Command, err)
		return cmd
	}

	cmd.enc = c.beginCommand("APPEND", cmd)
	cmd.enc.SP().Mailbox(mailbox).SP()
	if options != nil && len(options.Flags) > 0 {
		cmd.enc.List(len(options.Flags), func(i int) {
			cmd.enc.Flag(options.Flags[i])
		}).SP()
	}
	if options != nil && !options.Time.IsZero() {
		cmd.enc.String(options.Time.Format(appendDateTimeLayout)).SP()
	}
	cmd.wc = cmd.enc.Literal(size)
	return cmd
}

// AppendCommand is an APPEND command.
//
// The caller must write the message body and then call Close.
type AppendCommand struct {
	Command
	enc  *commandEncoder
	wc   io.WriteCloser
	data imap.AppendData
}

// Write writes part of the message body.
func (cmd *AppendCommand) Write(b []byte) (int, error) {
	if cmd.wc == nil {
		return 0, cmd.err
	}
	return cmd.wc.Write(b)
}

// Close finishes writing the message body and ends the command line; it does
// not wait for the server's response. The caller must still call Wait to
// retrieve the command's result.
func (cmd *AppendCommand) Close() error {
	if cmd.wc == nil {
		return cmd.err
	}
	err := cmd.wc.Close()
	if cmd.enc != nil {
		cmd.enc.end()
		cmd.enc = nil
	}
	return err
}

// Wait waits for the command to complete and returns its data. Data is
// only populated if the server supports UIDPLUS.
func (cmd *AppendCommand) Wait() (*imap.AppendData, error) {
	return &cmd.data, cmd.wait()
}

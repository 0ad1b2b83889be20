package imapclient

import (
	"github.com/cloudmail/imapengine"
)

// ExpungeCommand is an EXPUNGE or UID EXPUNGE command.
//
// The caller must fully consume an ExpungeCommand, either via Collect or by
// draining Next until it returns 0.
type ExpungeCommand struct {
	Command
	seqNums chan uint32
}

// Next advances to the next expunged message's sequence number. Returns 0
// once the command has been fully consumed.
func (cmd *ExpungeCommand) Next() uint32 {
	return <-cmd.seqNums
}

// Close drains any remaining sequence numbers and waits for the command to
// complete.
func (cmd *ExpungeCommand) Close() error {
	for cmd.Next() != 0 {
	}
	return cmd.wait()
}

// Collect accumulates every expunged sequence number into a slice.
func (cmd *ExpungeCommand) Collect() ([]uint32, error) {
	var l []uint32
	for {
		seqNum := cmd.Next()
		if seqNum == 0 {
			break
		}
		l = append(l, seqNum)
	}
	return l, cmd.wait()
}

// Expunge sends an EXPUNGE command: it permanently removes every message
// with \Deleted set in the selected mailbox.
func (c *Client) Expunge() *ExpungeCommand {
	cmd := &ExpungeCommand{seqNums: make(chan uint32, 128)}
	if err := validate(cmdSelectedWritable, c.State(), c.readOnly()); err != nil {
		c.failImmediately(&cmd.Command, err)
		close(cmd.seqNums)
		return cmd
	}
	c.beginCommand("EXPUNGE", cmd).end()
	return cmd
}

// UIDExpunge sends a UID EXPUNGE command, expunging only the \Deleted
// messages in uids (RFC 4315, UIDPLUS).
func (c *Client) UIDExpunge(uids imap.UIDSet) *ExpungeCommand {
	cmd := &ExpungeCommand{seqNums: make(chan uint32, 128)}
	if err := validate(cmdSelectedWritable, c.State(), c.readOnly()); err != nil {
		c.failImmediately(&cmd.Command, err)
		close(cmd.seqNums)
		return cmd
	}
	enc := c.beginCommand("UID EXPUNGE", cmd)
	enc.SP().NumSet(uids)
	enc.end()
	return cmd
}

func (c *Client) handleExpunge(seqNum uint32) error {
	c.mutex.Lock()
	if c.state == imap.ConnStateSelected && c.mailbox != nil && c.mailbox.NumMessages > 0 {
		c.mailbox = c.mailbox.copy()
		c.mailbox.NumMessages--
	}
	c.mutex.Unlock()

	if cmd := findPendingCmdByType[*ExpungeCommand](c); cmd != nil {
		cmd.seqNums <- seqNum
	} else if handler := c.options.unilateralDataHandler().Expunge; handler != nil {
		handler(seqNum)
	}
	return nil
}

package imapclient

import (
	"github.com/cloudmail/imapengine"
)

// Move sends a MOVE command, or a UID MOVE command if numSet is a UIDSet,
// moving each message in numSet into mailbox.
//
// If the server doesn't advertise the MOVE capability, Move falls back to
// [UID] COPY followed by [UID] STORE +FLAGS.SILENT \Deleted and
// [UID] EXPUNGE.
func (c *Client) Move(numSet imap.NumSet, mailbox string) *MoveCommand {
	if err := validate(cmdSelectedWritable, c.State(), c.readOnly()); err != nil {
		cmd := &MoveCommand{}
		c.failImmediately(&cmd.Command, err)
		return cmd
	}

	if !c.Caps().Has(imap.CapMove) {
		return c.moveFallback(numSet, mailbox)
	}

	cmd := &MoveCommand{}
	enc := c.beginCommand(uidCmdName("MOVE", numSetKind(numSet)), cmd)
	enc.SP().NumSet(numSet).SP().Mailbox(mailbox)
	enc.end()
	return cmd
}

func (c *Client) moveFallback(numSet imap.NumSet, mailbox string) *MoveCommand {
	cmd := &MoveCommand{}
	cmd.copy = c.Copy(numSet, mailbox)
	cmd.store = c.Store(numSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}, nil)
	if uidSet, ok := numSet.(imap.UIDSet); ok && c.Caps().Has(imap.CapUIDPlus) {
		cmd.expunge = c.UIDExpunge(uidSet)
	} else {
		cmd.expunge = c.Expunge()
	}
	return cmd
}

// MoveCommand is a MOVE or UID MOVE command.
type MoveCommand struct {
	Command
	data imap.CopyData

	// Set only when falling back to COPY + STORE + EXPUNGE.
	copy    *CopyCommand
	store   *FetchCommand
	expunge *ExpungeCommand
}

// Wait waits for the command to complete and returns its data. Data is
// only populated by a native MOVE if the server supports UIDPLUS; the
// COPY fallback populates it whenever COPY does.
func (cmd *MoveCommand) Wait() (*imap.CopyData, error) {
	if cmd.copy != nil {
		data, err := cmd.copy.Wait()
		if err != nil {
			return nil, err
		}
		cmd.data = *data
	} else if err := cmd.wait(); err != nil {
		return nil, err
	}
	if cmd.store != nil {
		if err := cmd.store.Close(); err != nil {
			return nil, err
		}
	}
	if cmd.expunge != nil {
		if err := cmd.expunge.Close(); err != nil {
			return nil, err
		}
	}
	return &cmd.data, nil
}

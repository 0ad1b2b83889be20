package imapclient

import (
	"fmt"

	"github.com/cloudmail/imapengine"
	"github.com/cloudmail/imapengine/internal/imapwire"
)

// Copy sends a COPY command, or a UID COPY command if numSet is a UIDSet,
// copying each message in numSet into mailbox.
func (c *Client) Copy(numSet imap.NumSet, mailbox string) *CopyCommand {
	cmd := &CopyCommand{}
	if err := validate(cmdSelected, c.State(), false); err != nil {
		c.failImmediately(&cmd.Command, err)
		return cmd
	}
	enc := c.beginCommand(uidCmdName("COPY", numSetKind(numSet)), cmd)
	enc.SP().NumSet(numSet).SP().Mailbox(mailbox)
	enc.end()
	return cmd
}

// CopyCommand is a COPY or UID COPY command.
type CopyCommand struct {
	Command
	data imap.CopyData
}

// Wait waits for the command to complete and returns its data. Data is
// only populated if the server supports UIDPLUS.
func (cmd *CopyCommand) Wait() (*imap.CopyData, error) {
	return &cmd.data, cmd.wait()
}

func readRespCodeCopyUID(dec *imapwire.Decoder) (uidValidity uint32, srcUIDs, dstUIDs imap.UIDSet, err error) {
	if !dec.ExpectNumber(&uidValidity) || !dec.ExpectSP() || !dec.ExpectUIDSet(&srcUIDs) || !dec.ExpectSP() || !dec.ExpectUIDSet(&dstUIDs) {
		return 0, nil, nil, dec.Err()
	}
	if srcUIDs.Dynamic() || dstUIDs.Dynamic() {
		return 0, nil, nil, fmt.Errorf("imapclient: server returned a dynamic number set in a COPYUID response")
	}
	return uidValidity, srcUIDs, dstUIDs, nil
}

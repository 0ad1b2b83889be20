package imapclient

import (
	"fmt"

	"github.com/cloudmail/imapengine"
)

// Store sends a STORE command, or a UID STORE command if numSet is a
// UIDSet, changing the flags of each message in numSet. Unless
// store.Silent is set, the server replies with the updated flags as if a
// FETCH FLAGS had been sent, materialized on the returned FetchCommand.
//
// A nil options is equivalent to a zero imap.StoreOptions.
func (c *Client) Store(numSet imap.NumSet, store *imap.StoreFlags, options *imap.StoreOptions) *FetchCommand {
	numKind := numSetKind(numSet)
	cmd := &FetchCommand{numSet: numSet, msgs: make(chan *imap.FetchMessageData, 128)}
	if err := validate(cmdSelectedWritable, c.State(), c.readOnly()); err != nil {
		c.failImmediately(&cmd.Command, err)
		close(cmd.msgs)
		return cmd
	}

	enc := c.beginCommand(uidCmdName("STORE", numKind), cmd)
	enc.SP().NumSet(numSet).SP()

	switch store.Op {
	case imap.StoreFlagsSet:
	case imap.StoreFlagsAdd:
		enc.Special('+')
	case imap.StoreFlagsDel:
		enc.Special('-')
	default:
		panic(fmt.Errorf("imapclient: unknown store flags op %v", store.Op))
	}

	enc.Atom("FLAGS")
	if store.Silent {
		enc.Atom(".SILENT")
	}
	enc.SP().List(len(store.Flags), func(i int) {
		enc.Flag(store.Flags[i])
	})

	enc.end()
	return cmd
}

package imapclient

import (
	"fmt"

	"github.com/cloudmail/imapengine"
	"github.com/cloudmail/imapengine/internal/imapwire"
)

// CapabilityCommand is a CAPABILITY command.
type CapabilityCommand struct {
	Command
	caps imap.CapSet
}

// Wait blocks until the command completes and returns the advertised
// capability set.
func (cmd *CapabilityCommand) Wait() (imap.CapSet, error) {
	err := cmd.wait()
	return cmd.caps, err
}

// Capability sends a CAPABILITY command.
func (c *Client) Capability() *CapabilityCommand {
	cmd := &CapabilityCommand{}
	c.beginCommand("CAPABILITY", cmd).end()
	return cmd
}

func (c *Client) handleCapability() error {
	caps, err := readCapabilities(c.dec)
	if err != nil {
		return fmt.Errorf("in capability-data: %v", err)
	}
	c.setCaps(caps)
	if cmd := findPendingCmdByType[*CapabilityCommand](c); cmd != nil {
		cmd.caps = caps
	}
	return nil
}

// readCapabilities reads a capability-data production: a space-separated
// list of capability atoms.
func readCapabilities(dec *imapwire.Decoder) (imap.CapSet, error) {
	caps := make(imap.CapSet)
	for dec.SP() {
		var name string
		if !dec.ExpectAtom(&name) {
			return nil, dec.Err()
		}
		caps[imap.Cap(name)] = struct{}{}
	}
	return caps, nil
}

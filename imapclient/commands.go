package imapclient

import "github.com/cloudmail/imapengine"

// Noop sends a NOOP command.
func (c *Client) Noop() *Command {
	cmd := &Command{}
	c.beginCommand("NOOP", cmd).end()
	return cmd
}

// Logout sends a LOGOUT command, telling the server the client is done.
func (c *Client) Logout() *Command {
	cmd := &logoutCommand{}
	c.beginCommand("LOGOUT", cmd).end()
	return &cmd.Command
}

// Login sends a LOGIN command.
func (c *Client) Login(username, password string) *Command {
	cmd := &loginCommand{}
	if err := c.WaitGreeting(); err != nil {
		c.failImmediately(&cmd.Command, err)
		return &cmd.Command
	}
	if err := validate(cmdNotAuthenticated, c.State(), false); err != nil {
		c.failImmediately(&cmd.Command, err)
		return &cmd.Command
	}
	if c.cachedCaps().Has(imap.CapLoginDisabled) {
		err := &imap.Error{
			Kind:    imap.ErrKindUnsupportedCapability,
			Message: "server advertises LOGINDISABLED",
			Cap:     imap.CapLoginDisabled,
		}
		c.failImmediately(&cmd.Command, err)
		return &cmd.Command
	}
	enc := c.beginCommand("LOGIN", cmd)
	enc.SP().String(username).SP().String(password)
	enc.end()
	return &cmd.Command
}

// Create sends a CREATE command.
func (c *Client) Create(mailbox string) *Command {
	cmd := &Command{}
	if err := validate(cmdAuthenticated, c.State(), false); err != nil {
		c.failImmediately(cmd, err)
		return cmd
	}
	enc := c.beginCommand("CREATE", cmd)
	enc.SP().Mailbox(mailbox)
	enc.end()
	return cmd
}

// Delete sends a DELETE command.
func (c *Client) Delete(mailbox string) *Command {
	cmd := &Command{}
	if err := validate(cmdAuthenticated, c.State(), false); err != nil {
		c.failImmediately(cmd, err)
		return cmd
	}
	enc := c.beginCommand("DELETE", cmd)
	enc.SP().Mailbox(mailbox)
	enc.end()
	return cmd
}

// Rename sends a RENAME command.
func (c *Client) Rename(mailbox, newName string) *Command {
	cmd := &Command{}
	if err := validate(cmdAuthenticated, c.State(), false); err != nil {
		c.failImmediately(cmd, err)
		return cmd
	}
	enc := c.beginCommand("RENAME", cmd)
	enc.SP().Mailbox(mailbox).SP().Mailbox(newName)
	enc.end()
	return cmd
}

// Subscribe sends a SUBSCRIBE command.
func (c *Client) Subscribe(mailbox string) *Command {
	cmd := &Command{}
	if err := validate(cmdAuthenticated, c.State(), false); err != nil {
		c.failImmediately(cmd, err)
		return cmd
	}
	enc := c.beginCommand("SUBSCRIBE", cmd)
	enc.SP().Mailbox(mailbox)
	enc.end()
	return cmd
}

// Unsubscribe sends an UNSUBSCRIBE command.
func (c *Client) Unsubscribe(mailbox string) *Command {
	cmd := &Command{}
	if err := validate(cmdAuthenticated, c.State(), false); err != nil {
		c.failImmediately(cmd, err)
		return cmd
	}
	enc := c.beginCommand("UNSUBSCRIBE", cmd)
	enc.SP().Mailbox(mailbox)
	enc.end()
	return cmd
}

// Check sends a CHECK command. Legal only in the Selected state.
func (c *Client) Check() *Command {
	cmd := &Command{}
	if err := validate(cmdSelected, c.State(), false); err != nil {
		c.failImmediately(cmd, err)
		return cmd
	}
	c.beginCommand("CHECK", cmd).end()
	return cmd
}

// UnselectAndExpunge sends a CLOSE command: it expunges all messages with
// \Deleted set in the selected mailbox, then deselects it.
func (c *Client) UnselectAndExpunge() *Command {
	cmd := &closeCommand{}
	if err := validate(cmdSelected, c.State(), false); err != nil {
		c.failImmediately(&cmd.Command, err)
		return &cmd.Command
	}
	c.beginCommand("CLOSE", cmd).end()
	return &cmd.Command
}

// failImmediately short-circuits a command that fails local state
// validation before any bytes are written to the wire, without ever
// acquiring the command slot.
func (c *Client) failImmediately(cmd *Command, err error) {
	cmd.commandBase = commandBase{done: make(chan error), err: err}
}

package imapclient

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"io"
	"net"
)

// startTLS sends a STARTTLS command.
//
// Unlike other commands, this method blocks until the command completes
// and the TLS handshake is done.
func (c *Client) startTLS(config *tls.Config) error {
	upgradeDone := make(chan struct{})
	cmd := &startTLSCommand{tlsConfig: config, upgradeDone: upgradeDone}
	if err := c.WaitGreeting(); err != nil {
		return err
	}
	if err := validate(cmdNotAuthenticated, c.State(), false); err != nil {
		return err
	}

	enc := c.beginCommand("STARTTLS", cmd)
	enc.flush()
	defer enc.end()

	// Once STARTTLS is issued, no other command may be sent until the
	// server responds and the TLS handshake completes.
	if err := cmd.wait(); err != nil {
		return err
	}

	// The decoder goroutine calls Client.upgradeStartTLS once it sees the
	// tagged OK.
	<-upgradeDone

	return cmd.tlsConn.Handshake()
}

// upgradeStartTLS completes the STARTTLS upgrade after the server's OK. It
// runs on the decoder goroutine.
func (c *Client) upgradeStartTLS(startTLS *startTLSCommand) {
	defer close(startTLS.upgradeDone)

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, c.br, int64(c.br.Buffered())); err != nil {
		panic(err) // unreachable: reading from an in-memory buffer
	}

	var cleartextConn net.Conn
	if buf.Len() > 0 {
		r := io.MultiReader(&buf, c.conn)
		cleartextConn = startTLSConn{c.conn, r}
	} else {
		cleartextConn = c.conn
	}

	tlsConn := tls.Client(cleartextConn, startTLS.tlsConfig)
	rw := c.options.wrapReadWriter(tlsConn)

	c.br.Reset(rw)
	// The bufio.Writer can't be reused here: it races with whatever
	// called Client.startTLS.
	c.bw = bufio.NewWriter(rw)

	startTLS.tlsConn = tlsConn
}

type startTLSCommand struct {
	commandBase
	tlsConfig *tls.Config

	upgradeDone chan<- struct{}
	tlsConn     *tls.Conn
}

type startTLSConn struct {
	net.Conn
	r io.Reader
}

func (conn startTLSConn) Read(b []byte) (int, error) {
	return conn.r.Read(b)
}

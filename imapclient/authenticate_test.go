package imapclient_test

import (
	"testing"

	"github.com/emersion/go-sasl"

	"github.com/cloudmail/imapengine"
)

func TestAuthenticate_plain(t *testing.T) {
	client, server := newClientServerPair(t, imap.ConnStateNotAuthenticated, func(srv *fakeServer) {
		tag := srv.readCommand() // CAPABILITY, queried to check for SASL-IR support
		srv.writeLine("* CAPABILITY IMAP4rev1")
		srv.writeLine("%s OK CAPABILITY completed", tag)

		tag = srv.readCommand() // AUTHENTICATE PLAIN
		srv.writeLine("+ ")
		srv.r.ReadString('\n') // base64 initial response
		srv.writeLine("%s OK AUTHENTICATE completed", tag)
	})
	defer client.Close()
	defer server.Close()

	saslClient := sasl.NewPlainClient("", testUsername, testPassword)
	if err := client.Authenticate(saslClient); err != nil {
		t.Fatalf("Authenticate() = %v", err)
	}
	if client.State() != imap.ConnStateAuthenticated {
		t.Errorf("State() = %v, want ConnStateAuthenticated", client.State())
	}
}

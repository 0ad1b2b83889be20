package imapclient_test

import (
	"testing"

	"github.com/cloudmail/imapengine"
)

func TestMove_fallback(t *testing.T) {
	// The server's CAPABILITY response lacks MOVE, so the client falls back to
	// COPY + STORE +FLAGS.SILENT \Deleted + EXPUNGE.
	client, server := newClientServerPair(t, imap.ConnStateSelected, func(srv *fakeServer) {
		tag := srv.readCommand() // CAPABILITY, queried by Move to check for MOVE support
		srv.writeLine("* CAPABILITY IMAP4rev1")
		srv.writeLine("%s OK CAPABILITY completed", tag)

		tag = srv.readCommand() // COPY 1 Archive
		srv.writeLine("%s OK [COPYUID 1 1 10] COPY completed", tag)

		tag = srv.readCommand() // STORE 1 +FLAGS.SILENT (\Deleted)
		srv.writeLine("%s OK STORE completed", tag)

		tag = srv.readCommand() // EXPUNGE
		srv.writeLine("* 1 EXPUNGE")
		srv.writeLine("%s OK EXPUNGE completed", tag)
	})
	defer client.Close()
	defer server.Close()

	data, err := client.Move(imap.SeqSetNum(1), "Archive").Wait()
	if err != nil {
		t.Fatalf("Move().Wait() = %v", err)
	}
	if data.UIDValidity != 1 {
		t.Errorf("UIDValidity = %v, want 1", data.UIDValidity)
	}
}

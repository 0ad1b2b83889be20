package imapclient_test

import (
	"testing"

	"github.com/cloudmail/imapengine"
)

func TestSelect(t *testing.T) {
	client, server := newClientServerPair(t, imap.ConnStateAuthenticated, func(srv *fakeServer) {
		tag := srv.readCommand() // SELECT INBOX
		srv.writeLine("* 1 EXISTS")
		srv.writeLine("* 0 RECENT")
		srv.writeLine("* OK [UIDVALIDITY 1] UIDs valid")
		srv.writeLine(`* FLAGS (\Answered \Flagged \Deleted \Seen \Draft)`)
		srv.writeLine("%s OK [READ-WRITE] SELECT completed", tag)
	})
	defer client.Close()
	defer server.Close()

	data, err := client.Select("INBOX", nil).Wait()
	if err != nil {
		t.Fatalf("Select() = %v", err)
	} else if data.NumMessages != 1 {
		t.Errorf("SelectData.NumMessages = %v, want %v", data.NumMessages, 1)
	}
}

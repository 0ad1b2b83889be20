package imapclient_test

import (
	"testing"

	"github.com/cloudmail/imapengine"
)

func TestAppend(t *testing.T) {
	body := "hello test message"

	client, server := newClientServerPair(t, imap.ConnStateSelected, func(srv *fakeServer) {
		tag := srv.readCommand() // APPEND INBOX {N}
		srv.writeLine("+ OK")
		srv.r.ReadString('\n') // literal body, plus the rest of the command line
		srv.writeLine("%s OK APPEND completed", tag)
	})
	defer client.Close()
	defer server.Close()

	appendCmd := client.Append("INBOX", int64(len(body)), nil)
	if _, err := appendCmd.Write([]byte(body)); err != nil {
		t.Fatalf("AppendCommand.Write() = %v", err)
	}
	if err := appendCmd.Close(); err != nil {
		t.Fatalf("AppendCommand.Close() = %v", err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		t.Fatalf("AppendCommand.Wait() = %v", err)
	}
}

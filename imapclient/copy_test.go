package imapclient_test

import (
	"testing"

	"github.com/cloudmail/imapengine"
)

func TestCopy(t *testing.T) {
	client, server := newClientServerPair(t, imap.ConnStateSelected, func(srv *fakeServer) {
		tag := srv.readCommand() // COPY 1 Archive
		srv.writeLine("%s OK [COPYUID 1 1 10] COPY completed", tag)
	})
	defer client.Close()
	defer server.Close()

	data, err := client.Copy(imap.SeqSetNum(1), "Archive").Wait()
	if err != nil {
		t.Fatalf("Copy().Wait() = %v", err)
	}
	if data.UIDValidity != 1 {
		t.Errorf("UIDValidity = %v, want 1", data.UIDValidity)
	}
	if !data.DestUIDs.Contains(10) {
		t.Errorf("DestUIDs = %v, want to contain UID 10", data.DestUIDs)
	}
}

package imapclient_test

import (
	"testing"

	"github.com/cloudmail/imapengine"
)

func TestFetch(t *testing.T) {
	client, server := newClientServerPair(t, imap.ConnStateSelected, func(srv *fakeServer) {
		tag := srv.readCommand() // FETCH 1 (UID FLAGS RFC822.SIZE)
		srv.writeLine(`* 1 FETCH (FLAGS (\Seen) RFC822.SIZE 42 UID 1)`)
		srv.writeLine("%s OK FETCH completed", tag)
	})
	defer client.Close()
	defer server.Close()

	msgs, err := client.Fetch(imap.SeqSetNum(1), &imap.FetchOptions{
		Flags:      true,
		RFC822Size: true,
		UID:        true,
	}).Collect()
	if err != nil {
		t.Fatalf("Fetch().Collect() = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len(msgs) = %v, want 1", len(msgs))
	}

	msg := msgs[0]
	if msg.SeqNum != 1 {
		t.Errorf("msg.SeqNum = %v, want 1", msg.SeqNum)
	}
	if msg.UID != 1 {
		t.Errorf("msg.UID = %v, want 1", msg.UID)
	}
	if msg.RFC822Size != 42 {
		t.Errorf("msg.RFC822Size = %v, want 42", msg.RFC822Size)
	}
	if len(msg.Flags) != 1 || msg.Flags[0] != imap.FlagSeen {
		t.Errorf("msg.Flags = %v, want [%v]", msg.Flags, imap.FlagSeen)
	}
}

func TestFetch_invalid(t *testing.T) {
	client, server := newClientServerPair(t, imap.ConnStateSelected, func(srv *fakeServer) {
		tag := srv.readCommand()
		srv.writeLine("%s BAD invalid uid-set", tag)
	})
	defer client.Close()
	defer server.Close()

	_, err := client.Fetch(imap.UIDSet(nil), nil).Collect()
	if err == nil {
		t.Fatalf("Fetch().Collect() = nil, want an error")
	}
}

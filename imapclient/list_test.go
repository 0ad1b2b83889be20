package imapclient_test

import (
	"reflect"
	"testing"

	"github.com/cloudmail/imapengine"
)

func TestList(t *testing.T) {
	client, server := newClientServerPair(t, imap.ConnStateAuthenticated, func(srv *fakeServer) {
		tag := srv.readCommand() // LIST "" "%"
		srv.writeLine(`* LIST (\Unmarked) "/" INBOX`)
		srv.writeLine("%s OK LIST completed", tag)
	})
	defer client.Close()
	defer server.Close()

	mailboxes, err := client.List("", "%", nil).Collect()
	if err != nil {
		t.Fatalf("List() = %v", err)
	}

	if len(mailboxes) != 1 {
		t.Fatalf("List() returned %v mailboxes, want 1", len(mailboxes))
	}
	mbox := mailboxes[0]

	want := &imap.ListData{
		Delim:   '/',
		Mailbox: "INBOX",
		Attrs:   []imap.MailboxAttr{imap.MailboxAttrUnmarked},
	}
	if !reflect.DeepEqual(mbox, want) {
		t.Errorf("got %#v but want %#v", mbox, want)
	}
}

package imapclient_test

import (
	"testing"

	"github.com/cloudmail/imapengine"
)

func TestIdle(t *testing.T) {
	client, server := newClientServerPair(t, imap.ConnStateSelected, func(srv *fakeServer) {
		tag := srv.readCommand() // IDLE
		srv.writeLine("+ idling")
		srv.r.ReadString('\n') // DONE
		srv.writeLine("%s OK IDLE completed", tag)
	})
	defer client.Close()
	defer server.Close()

	idleCmd, err := client.Idle()
	if err != nil {
		t.Fatalf("Idle() = %v", err)
	}
	if err := idleCmd.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := idleCmd.Wait(); err != nil {
		t.Errorf("Wait() = %v", err)
	}
}

func TestIdle_closedConn(t *testing.T) {
	client, server := newClientServerPair(t, imap.ConnStateSelected, func(srv *fakeServer) {
		srv.readCommand() // IDLE
		srv.writeLine("+ idling")
	})
	defer server.Close()

	idleCmd, err := client.Idle()
	if err != nil {
		t.Fatalf("Idle() = %v", err)
	}
	defer idleCmd.Close()

	if err := client.Close(); err != nil {
		t.Fatalf("client.Close() = %v", err)
	}

	if err := idleCmd.Wait(); err == nil {
		t.Errorf("IdleCommand.Wait() = nil, want an error")
	}
}

package imapclient_test

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/cloudmail/imapengine"
	"github.com/cloudmail/imapengine/imapclient"
)

const (
	testUsername = "test-user"
	testPassword = "test-password"
)

// fakeServer is a minimal scripted IMAP peer: it owns the server side of a
// net.Pipe and lets a test drive the exact untagged/tagged response text
// for the scenario under test, one command at a time.
type fakeServer struct {
	conn net.Conn
	r    *bufio.Reader
}

func newFakeServer(conn net.Conn) *fakeServer {
	return &fakeServer{conn: conn, r: bufio.NewReader(conn)}
}

// readCommand reads one client command line and returns its tag.
func (s *fakeServer) readCommand() string {
	line, err := s.r.ReadString('\n')
	if err != nil {
		return ""
	}
	line = strings.TrimRight(line, "\r\n")
	tag, _, _ := strings.Cut(line, " ")
	return tag
}

func (s *fakeServer) writeLine(format string, args ...any) {
	fmt.Fprintf(s.conn, format+"\r\n", args...)
}

func (s *fakeServer) Close() error {
	return s.conn.Close()
}

// newClientServerPair dials a Client against a fakeServer, driving the
// connection up to state via LOGIN/SELECT before handing control to
// handle, which services whatever command the test issues next.
func newClientServerPair(t *testing.T, state imap.ConnState, handle func(srv *fakeServer)) (*imapclient.Client, *fakeServer) {
	t.Helper()

	clientConn, serverConn := net.Pipe()
	srv := newFakeServer(serverConn)

	ready := make(chan struct{})
	go func() {
		srv.writeLine("* OK fake IMAP server ready")
		if state >= imap.ConnStateAuthenticated {
			tag := srv.readCommand()
			srv.writeLine("%s OK LOGIN completed", tag)
		}
		if state >= imap.ConnStateSelected {
			tag := srv.readCommand()
			srv.writeLine("* 1 EXISTS")
			srv.writeLine("* 0 RECENT")
			srv.writeLine("* OK [UIDVALIDITY 1] UIDs valid")
			srv.writeLine(`* FLAGS (\Answered \Flagged \Deleted \Seen \Draft)`)
			srv.writeLine("%s OK [READ-WRITE] SELECT completed", tag)
		}
		close(ready)
		if handle != nil {
			handle(srv)
		}
	}()

	client := imapclient.New(clientConn, nil)
	if state >= imap.ConnStateAuthenticated {
		if err := client.Login(testUsername, testPassword).Wait(); err != nil {
			t.Fatalf("Login().Wait() = %v", err)
		}
	}
	if state >= imap.ConnStateSelected {
		if _, err := client.Select("INBOX", nil).Wait(); err != nil {
			t.Fatalf("Select().Wait() = %v", err)
		}
	}
	<-ready

	return client, srv
}

func TestLogin(t *testing.T) {
	client, server := newClientServerPair(t, imap.ConnStateNotAuthenticated, nil)
	defer client.Close()
	defer server.Close()

	if err := client.Login(testUsername, testPassword).Wait(); err != nil {
		t.Errorf("Login().Wait() = %v", err)
	}
}

func TestLogout(t *testing.T) {
	client, server := newClientServerPair(t, imap.ConnStateAuthenticated, func(srv *fakeServer) {
		tag := srv.readCommand()
		srv.writeLine("* BYE logging out")
		srv.writeLine("%s OK LOGOUT completed", tag)
	})
	defer server.Close()

	if err := client.Logout().Wait(); err != nil {
		t.Errorf("Logout().Wait() = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestWaitGreeting_eof(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	client := imapclient.New(clientConn, nil)
	defer client.Close()

	if err := serverConn.Close(); err != nil {
		t.Fatalf("serverConn.Close() = %v", err)
	}

	if err := client.WaitGreeting(); err == nil {
		t.Fatalf("WaitGreeting() should have failed")
	}
}

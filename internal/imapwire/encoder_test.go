package imapwire

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

var errTest = errors.New("continuation cancelled")

func newTestEncoder(buf *bytes.Buffer) *Encoder {
	return NewEncoder(bufio.NewWriter(buf), ConnSideClient)
}

func TestEncoderStringAtom(t *testing.T) {
	var buf bytes.Buffer
	enc := newTestEncoder(&buf)
	enc.String("INBOX")
	enc.CRLF()
	if got := buf.String(); got != "INBOX\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestEncoderStringQuoting(t *testing.T) {
	var buf bytes.Buffer
	enc := newTestEncoder(&buf)
	enc.String(`hello "world"`)
	enc.CRLF()
	want := `"hello \"world\""` + "\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEncoderStringEmpty(t *testing.T) {
	var buf bytes.Buffer
	enc := newTestEncoder(&buf)
	enc.String("")
	enc.CRLF()
	if got := buf.String(); got != "\"\"\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestEncoderLiteralNonSync(t *testing.T) {
	var buf bytes.Buffer
	enc := newTestEncoder(&buf)
	enc.LiteralPlus = true
	w := enc.Literal(5, nil)
	w.Write([]byte("hello"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	enc.CRLF()
	if got := buf.String(); got != "{5+}\r\nhello\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestEncoderCommandLine(t *testing.T) {
	var buf bytes.Buffer
	enc := newTestEncoder(&buf)
	enc.Atom("T1").SP().Atom("LOGIN").SP().String("user").SP().String("pass")
	enc.CRLF()
	want := "T1 LOGIN user pass\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEncoderMailboxInbox(t *testing.T) {
	var buf bytes.Buffer
	enc := newTestEncoder(&buf)
	enc.Mailbox("INBOX")
	enc.CRLF()
	if got := buf.String(); got != "INBOX\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestCanBeAtom(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"INBOX", true},
		{"", false},
		{"has space", false},
		{`has"quote`, false},
	}
	for _, tc := range tests {
		if got := canBeAtom(tc.s); got != tc.want {
			t.Errorf("canBeAtom(%q) = %v, want %v", tc.s, got, tc.want)
		}
	}
}

func TestContinuationRequestDone(t *testing.T) {
	cr := NewContinuationRequest()
	go cr.Done("ready")
	text, err := cr.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if text != "ready" {
		t.Fatalf("got %q", text)
	}
}

func TestContinuationRequestCancel(t *testing.T) {
	cr := NewContinuationRequest()
	go cr.Cancel(errTest)
	_, err := cr.Wait()
	if err != errTest {
		t.Fatalf("got %v, want %v", err, errTest)
	}
}

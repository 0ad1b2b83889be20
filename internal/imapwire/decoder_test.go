package imapwire

import (
	"bufio"
	"strings"
	"testing"
)

func newTestDecoder(s string) *Decoder {
	return NewDecoder(bufio.NewReader(strings.NewReader(s)), ConnSideClient)
}

func TestDecoderAtom(t *testing.T) {
	dec := newTestDecoder("OK ")
	var v string
	if !dec.Atom(&v) {
		t.Fatalf("Atom failed: %v", dec.Err())
	}
	if v != "OK" {
		t.Fatalf("got %q, want %q", v, "OK")
	}
	if !dec.SP() {
		t.Fatalf("expected trailing SP")
	}
}

func TestDecoderQuoted(t *testing.T) {
	dec := newTestDecoder(`"hello \"world\""`)
	var v string
	if !dec.Quoted(&v) {
		t.Fatalf("Quoted failed: %v", dec.Err())
	}
	want := `hello "world"`
	if v != want {
		t.Fatalf("got %q, want %q", v, want)
	}
}

func TestDecoderLiteral(t *testing.T) {
	dec := newTestDecoder("{5}\r\nhello")
	data, lit, sync, ok := dec.Literal()
	if !ok {
		t.Fatalf("Literal failed: %v", dec.Err())
	}
	if lit != nil {
		t.Fatalf("expected buffered literal, got streaming reader")
	}
	if !sync {
		t.Fatalf("expected synchronizing literal")
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want %q", data, "hello")
	}
}

func TestDecoderLiteralNonSynchronizing(t *testing.T) {
	dec := newTestDecoder("{3+}\r\nabc")
	data, _, sync, ok := dec.Literal()
	if !ok {
		t.Fatalf("Literal failed: %v", dec.Err())
	}
	if sync {
		t.Fatalf("expected non-synchronizing literal")
	}
	if string(data) != "abc" {
		t.Fatalf("got %q, want %q", data, "abc")
	}
}

func TestDecoderLiteralStreaming(t *testing.T) {
	dec := newTestDecoder("{10}\r\n0123456789")
	dec.MaxLiteralBuffer = 4
	data, lit, _, ok := dec.Literal()
	if !ok {
		t.Fatalf("Literal failed: %v", dec.Err())
	}
	if data != nil {
		t.Fatalf("expected nil buffer when streaming")
	}
	if lit == nil || lit.Size() != 10 {
		t.Fatalf("expected a 10-byte LiteralReader, got %v", lit)
	}
	buf := make([]byte, 10)
	n, _ := lit.Read(buf)
	if string(buf[:n]) != "0123456789"[:n] {
		t.Fatalf("unexpected literal stream content %q", buf[:n])
	}
}

func TestDecoderNStringNil(t *testing.T) {
	dec := newTestDecoder("NIL")
	var v string
	present, ok := dec.NString(&v)
	if !ok {
		t.Fatalf("NString failed: %v", dec.Err())
	}
	if present {
		t.Fatalf("expected absent nstring")
	}
}

func TestDecoderCRLF(t *testing.T) {
	dec := newTestDecoder("\r\n")
	if !dec.ExpectCRLF() {
		t.Fatalf("ExpectCRLF failed: %v", dec.Err())
	}
}

func TestDecoderExpectFailureSetsErr(t *testing.T) {
	dec := newTestDecoder("")
	var v string
	if dec.ExpectAtom(&v) {
		t.Fatalf("expected failure on empty input")
	}
	if dec.Err() == nil {
		t.Fatalf("expected Err() to be set")
	}
}

package imap

import "testing"

func TestEncodeMailboxNameAmpersand(t *testing.T) {
	if got, want := EncodeMailboxName("A&B"), "A&-B"; got != want {
		t.Errorf("EncodeMailboxName(%q) = %q, want %q", "A&B", got, want)
	}
}

func TestDecodeMailboxNameAmpersand(t *testing.T) {
	if got, want := DecodeMailboxName("A&-B"), "A&B"; got != want {
		t.Errorf("DecodeMailboxName(%q) = %q, want %q", "A&-B", got, want)
	}
}

func TestEncodeMailboxNameNonASCII(t *testing.T) {
	if got, want := EncodeMailboxName("Envoyé"), "Envoy&AOk-"; got != want {
		t.Errorf("EncodeMailboxName(%q) = %q, want %q", "Envoyé", got, want)
	}
}

func TestDecodeMailboxNameNonASCII(t *testing.T) {
	if got, want := DecodeMailboxName("Envoy&AOk-"), "Envoyé"; got != want {
		t.Errorf("DecodeMailboxName(%q) = %q, want %q", "Envoy&AOk-", got, want)
	}
}

// TestMailboxNameRoundTrip covers P-CODEC: encoding then decoding a
// mailbox name, including one with a hierarchy separator and non-BMP-
// adjacent CJK text, returns the original name.
func TestMailboxNameRoundTrip(t *testing.T) {
	names := []string{
		"INBOX",
		"A&B",
		"Envoyé",
		"Projects/日本語",
		"100% Done",
	}
	for _, name := range names {
		wire := EncodeMailboxName(name)
		got := DecodeMailboxName(wire)
		if got != name {
			t.Errorf("round trip of %q via %q = %q", name, wire, got)
		}
	}
}

func TestDecodeMailboxNameMalformedShift(t *testing.T) {
	// An unterminated shift sequence passes through literally rather than
	// panicking or dropping data.
	if got, want := DecodeMailboxName("foo&bar"), "foo&bar"; got != want {
		t.Errorf("DecodeMailboxName(%q) = %q, want %q", "foo&bar", got, want)
	}
}

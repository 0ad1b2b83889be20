package imap

import "testing"

func TestParseSeqSetForms(t *testing.T) {
	tests := []struct {
		in   string
		want SeqSet
	}{
		{"1", SeqSet{{Start: 1, Stop: 1}}},
		{"1:5", SeqSet{{Start: 1, Stop: 5}}},
		{"1:*", SeqSet{{Start: 1, Stop: star}}},
		{"*:5", SeqSet{{Start: star, Stop: 5}}},
		{"*", SeqSet{{Start: star, Stop: star}}},
		{"1:5,8,10:*", SeqSet{{Start: 1, Stop: 5}, {Start: 8, Stop: 8}, {Start: 10, Stop: star}}},
	}
	for _, tt := range tests {
		got, err := ParseSeqSet(tt.in)
		if err != nil {
			t.Errorf("ParseSeqSet(%q) = %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseSeqSet(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseSeqSet(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestParseSeqSetInvalid(t *testing.T) {
	invalid := []string{"", "0", "1:", ":5", "1,,2", "abc"}
	for _, in := range invalid {
		if _, err := ParseSeqSet(in); err == nil {
			t.Errorf("ParseSeqSet(%q) = nil error, want an error", in)
		}
	}
}

// TestSeqSetRoundTrip covers P-SEQSET: parsing a wire sequence-set and
// rendering it back with String() reproduces the original text, for the
// list, range, and "*" forms.
func TestSeqSetRoundTrip(t *testing.T) {
	wires := []string{"1", "1:5", "1:*", "*:5", "*", "1:5,8,10:*", "1,2,3"}
	for _, wire := range wires {
		set, err := ParseSeqSet(wire)
		if err != nil {
			t.Fatalf("ParseSeqSet(%q) = %v", wire, err)
		}
		if got := set.String(); got != wire {
			t.Errorf("round trip of %q = %q", wire, got)
		}
	}
}

func TestSeqSetDynamic(t *testing.T) {
	static := SeqSet{{Start: 1, Stop: 5}}
	if static.Dynamic() {
		t.Errorf("static range reported Dynamic")
	}

	dynamic := SeqSet{{Start: 10, Stop: star}}
	if !dynamic.Dynamic() {
		t.Errorf("n:* range should report Dynamic")
	}

	starSet := SeqSet{{Start: 0, Stop: 0}}
	if !starSet.Dynamic() {
		t.Errorf("* should report Dynamic")
	}
}

func TestSeqSetContains(t *testing.T) {
	set := SeqSet{{Start: 1, Stop: 5}, {Start: 10, Stop: 10}, {Start: 20, Stop: star}}
	for _, n := range []uint32{1, 3, 5, 10} {
		if !set.Contains(n) {
			t.Errorf("Contains(%d) = false, want true", n)
		}
	}
	for _, n := range []uint32{0, 6, 9, 11, 20, 25} {
		if set.Contains(n) {
			t.Errorf("Contains(%d) = true, want false", n)
		}
	}
}

func TestUIDSetRoundTripAndContains(t *testing.T) {
	set, err := ParseUIDSet("100:200,250")
	if err != nil {
		t.Fatalf("ParseUIDSet: %v", err)
	}
	if got, want := set.String(), "100:200,250"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if !set.Contains(150) || !set.Contains(250) {
		t.Errorf("Contains should match 150 and 250")
	}
	if set.Contains(201) || set.Contains(249) {
		t.Errorf("Contains should not match 201 or 249")
	}

	dynamic := UIDSetNum(0)
	if !dynamic.Dynamic() {
		t.Errorf("UID 0 (\"*\") should report Dynamic")
	}
}

package imap

import "strings"

// Cap is an IMAP capability token, including SASL mechanism tokens such as
// "AUTH=PLAIN".
//
// See https://www.iana.org/assignments/imap-capabilities/
type Cap string

// Capabilities this engine understands and opportunistically uses. This
// list is deliberately narrow: it names the extensions listed in
// SPEC_FULL.md, "Non-goals", plus IDLE.
const (
	CapIMAP4rev1 Cap = "IMAP4rev1"

	CapStartTLS      Cap = "STARTTLS"
	CapLoginDisabled Cap = "LOGINDISABLED"

	CapSASLIR      Cap = "SASL-IR"  // RFC 4959
	CapLiteralPlus Cap = "LITERAL+" // RFC 2088
	CapMove        Cap = "MOVE"     // RFC 6851
	CapUIDPlus     Cap = "UIDPLUS"  // RFC 4315
	CapIdle        Cap = "IDLE"     // RFC 2177
)

// AuthCap returns the capability token advertising support for a SASL
// mechanism, e.g. AuthCap("PLAIN") == "AUTH=PLAIN".
func AuthCap(mechanism string) Cap {
	return Cap("AUTH=" + mechanism)
}

// CapSet is a set of capability tokens.
type CapSet map[Cap]struct{}

// NewCapSet builds a CapSet from a list of tokens.
func NewCapSet(caps ...Cap) CapSet {
	set := make(CapSet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

func (set CapSet) has(c Cap) bool {
	_, ok := set[c]
	return ok
}

// Has reports whether the capability set supports c.
func (set CapSet) Has(c Cap) bool {
	return set.has(c)
}

// AuthMechanisms returns the SASL mechanisms advertised via AUTH= tokens.
func (set CapSet) AuthMechanisms() []string {
	var l []string
	for c := range set {
		if mech, ok := strings.CutPrefix(string(c), "AUTH="); ok {
			l = append(l, mech)
		}
	}
	return l
}

// Clone returns a copy of the set, safe to hand to a reader while the
// original is mutated.
func (set CapSet) Clone() CapSet {
	out := make(CapSet, len(set))
	for c := range set {
		out[c] = struct{}{}
	}
	return out
}

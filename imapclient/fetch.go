package imapclient

import (
	"fmt"
	"io"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/cloudmail/imapengine"
	"github.com/cloudmail/imapengine/internal/imapwire"
)

// FetchOptions holds options for Fetch.
type FetchOptions = imap.FetchOptions

// FetchCommand is a FETCH or UID FETCH command.
//
// The caller must fully consume a FetchCommand, either via Collect or by
// draining Next until it returns nil.
type FetchCommand struct {
	Command
	numSet     imap.NumSet
	recvSeqSet imap.SeqSet
	recvUIDSet imap.UIDSet
	msgs       chan *imap.FetchMessageData
}

// Next advances to the next message's FETCH data. Returns nil once the
// command has been fully consumed.
func (cmd *FetchCommand) Next() *imap.FetchMessageData {
	return <-cmd.msgs
}

// Close drains any remaining messages and waits for the command to
// complete.
func (cmd *FetchCommand) Close() error {
	for cmd.Next() != nil {
	}
	return cmd.wait()
}

// Collect accumulates every message's FETCH data into a slice.
func (cmd *FetchCommand) Collect() ([]*imap.FetchMessageData, error) {
	var l []*imap.FetchMessageData
	for {
		msg := cmd.Next()
		if msg == nil {
			break
		}
		l = append(l, msg)
	}
	return l, cmd.wait()
}

func (cmd *FetchCommand) recvSeqNum(seqNum uint32) bool {
	set, ok := cmd.numSet.(imap.SeqSet)
	if !ok || !set.Contains(seqNum) || cmd.recvSeqSet.Contains(seqNum) {
		return false
	}
	cmd.recvSeqSet.AddNum(seqNum)
	return true
}

func (cmd *FetchCommand) recvUID(uid imap.UID) bool {
	set, ok := cmd.numSet.(imap.UIDSet)
	if !ok || !set.Contains(uid) || cmd.recvUIDSet.Contains(uid) {
		return false
	}
	cmd.recvUIDSet.AddNum(uid)
	return true
}

// Fetch sends a FETCH command, or a UID FETCH command if numSet is a
// UIDSet.
//
// The caller must fully consume the FetchCommand, e.g. with
// FetchCommand.Collect.
func (c *Client) Fetch(numSet imap.NumSet, options *FetchOptions) *FetchCommand {
	if options == nil {
		options = new(FetchOptions)
	}
	numKind := numSetKind(numSet)

	cmd := &FetchCommand{numSet: numSet, msgs: make(chan *imap.FetchMessageData, 128)}
	if err := validate(cmdSelected, c.State(), false); err != nil {
		c.failImmediately(&cmd.Command, err)
		close(cmd.msgs)
		return cmd
	}

	enc := c.beginCommand(uidCmdName("FETCH", numKind), cmd)
	enc.SP().NumSet(numSet).SP()
	writeFetchItems(enc.Encoder, numKind, options)
	enc.end()
	return cmd
}

func writeFetchItems(enc *imapwire.Encoder, numKind imapwire.NumKind, options *FetchOptions) {
	var items []string
	if options.UID || numKind == imapwire.NumKindUID {
		items = append(items, "UID")
	}
	if options.Flags {
		items = append(items, "FLAGS")
	}
	if options.Envelope {
		items = append(items, "ENVELOPE")
	}
	if options.InternalDate {
		items = append(items, "INTERNALDATE")
	}
	if options.RFC822Size {
		items = append(items, "RFC822.SIZE")
	}
	if options.BodyStructure != nil {
		if options.BodyStructure.Extended {
			items = append(items, "BODYSTRUCTURE")
		} else {
			items = append(items, "BODY")
		}
	}

	n := len(items) + len(options.BodySection)
	i := 0
	enc.List(n, func(_ int) {
		if i < len(items) {
			enc.Atom(items[i])
			i++
			return
		}
		writeFetchItemBodySection(enc, options.BodySection[i-len(items)])
		i++
	})
}

func writeFetchItemBodySection(enc *imapwire.Encoder, item *imap.FetchItemBodySection) {
	enc.Atom("BODY")
	if item.Peek {
		enc.Atom(".PEEK")
	}
	enc.Special('[')
	writeSectionPart(enc, item.Part)
	if len(item.Part) > 0 && item.Specifier != imap.PartSpecifierNone {
		enc.Special('.')
	}
	if item.Specifier != imap.PartSpecifierNone {
		enc.Atom(string(item.Specifier))

		var headerList []string
		switch {
		case len(item.HeaderFields) > 0:
			headerList = item.HeaderFields
			enc.Atom(".FIELDS")
		case len(item.HeaderFieldsNot) > 0:
			headerList = item.HeaderFieldsNot
			enc.Atom(".FIELDS.NOT")
		}
		if len(headerList) > 0 {
			enc.SP().List(len(headerList), func(i int) { enc.String(headerList[i]) })
		}
	}
	enc.Special(']')
	if item.Partial != nil {
		enc.Special('<').Number64(item.Partial.Offset).Special('.').Number64(item.Partial.Size).Special('>')
	}
}

func writeSectionPart(enc *imapwire.Encoder, part []int) {
	if len(part) == 0 {
		return
	}
	var l []string
	for _, num := range part {
		l = append(l, fmt.Sprintf("%v", num))
	}
	enc.Atom(strings.Join(l, "."))
}

func isMsgAttNameChar(c byte) bool {
	return c != '[' && imapwire.IsAtomChar(c)
}

func (c *Client) handleFetch(seqNum uint32) error {
	dec := c.dec
	msg := &imap.FetchMessageData{SeqNum: seqNum}

	err := dec.ExpectList(func() error {
		var attName string
		if !dec.Expect(dec.Func(&attName, isMsgAttNameChar), "msg-att name") {
			return dec.Err()
		}
		attName = strings.ToUpper(attName)

		switch attName {
		case "FLAGS":
			if !dec.ExpectSP() {
				return dec.Err()
			}
			flags, err := readFlagList(dec)
			if err != nil {
				return err
			}
			msg.Flags = flags
		case "ENVELOPE":
			if !dec.ExpectSP() {
				return dec.Err()
			}
			envelope, err := readEnvelope(dec, &c.options)
			if err != nil {
				return fmt.Errorf("in envelope: %v", err)
			}
			msg.Envelope = envelope
		case "INTERNALDATE":
			if !dec.ExpectSP() {
				return dec.Err()
			}
			t, err := readDateTime(dec)
			if err != nil {
				return err
			}
			msg.InternalDate = t
		case "RFC822.SIZE":
			var size int64
			if !dec.ExpectSP() || !dec.ExpectNumber64(&size) {
				return dec.Err()
			}
			msg.RFC822Size = size
		case "UID":
			var uid uint32
			if !dec.ExpectSP() || !dec.ExpectUID(&uid) {
				return dec.Err()
			}
			msg.UID = imap.UID(uid)
		case "BODY":
			if dec.Special('[') {
				section, err := readSectionSpec(dec)
				if err != nil {
					return fmt.Errorf("in section-spec: %v", err)
				}
				if !dec.ExpectSP() {
					return dec.Err()
				}
				lit, present, ok := dec.ExpectNStringReader()
				if !ok {
					return dec.Err()
				}
				var data []byte
				if present {
					var err error
					data, err = io.ReadAll(lit)
					if err != nil {
						return err
					}
				}
				msg.BodySection = append(msg.BodySection, imap.FetchBodySectionData{Section: section, Data: data})
				return nil
			}
			if !dec.ExpectSP() {
				return dec.Err()
			}
			bs, err := readBody(dec, &c.options)
			if err != nil {
				return err
			}
			msg.BodyStructure = bs
		case "BODYSTRUCTURE":
			if !dec.ExpectSP() {
				return dec.Err()
			}
			bs, err := readBody(dec, &c.options)
			if err != nil {
				return err
			}
			msg.BodyStructure = bs
		default:
			return fmt.Errorf("unsupported msg-att name %q", attName)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("in msg-att: %v", err)
	}

	cmd := c.findPendingCmdByType(func(anyCmd command) bool {
		cmd, ok := anyCmd.(*FetchCommand)
		if !ok {
			return false
		}
		if _, ok := cmd.numSet.(imap.UIDSet); ok {
			return msg.UID != 0 && cmd.recvUID(msg.UID)
		}
		return seqNum != 0 && cmd.recvSeqNum(seqNum)
	})
	if cmd, ok := cmd.(*FetchCommand); ok {
		cmd.msgs <- msg
	} else if handler := c.options.unilateralDataHandler().Fetch; handler != nil {
		handler(msg)
	}
	return nil
}

func readDateTime(dec *imapwire.Decoder) (time.Time, error) {
	var s string
	if !dec.ExpectString(&s) {
		return time.Time{}, dec.Err()
	}
	t, err := time.Parse("02-Jan-2006 15:04:05 -0700", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date-time %q: %v", s, err)
	}
	return t, nil
}

func readEnvelope(dec *imapwire.Decoder, options *Options) (*imap.Envelope, error) {
	var envelope imap.Envelope

	if !dec.ExpectSpecial('(') {
		return nil, dec.Err()
	}

	var date, subject string
	if !dec.ExpectNString(&date) || !dec.ExpectSP() || !dec.ExpectNString(&subject) || !dec.ExpectSP() {
		return nil, dec.Err()
	}
	envelope.Date, _ = netmail.ParseDate(date)
	envelope.Subject, _ = options.decodeText(subject)

	addrLists := []struct {
		name string
		out  *[]imap.Address
	}{
		{"from", &envelope.From},
		{"sender", &envelope.Sender},
		{"reply-to", &envelope.ReplyTo},
		{"to", &envelope.To},
		{"cc", &envelope.Cc},
		{"bcc", &envelope.Bcc},
	}
	for _, addrList := range addrLists {
		l, err := readAddressList(dec, options)
		if err != nil {
			return nil, fmt.Errorf("in %v address list: %v", addrList.name, err)
		}
		if !dec.ExpectSP() {
			return nil, dec.Err()
		}
		*addrList.out = l
	}

	var inReplyTo, messageID string
	if !dec.ExpectNString(&inReplyTo) || !dec.ExpectSP() || !dec.ExpectNString(&messageID) {
		return nil, dec.Err()
	}
	envelope.InReplyTo, _ = parseMsgIDList(inReplyTo)
	envelope.MessageID, _ = parseMsgID(messageID)

	if !dec.ExpectSpecial(')') {
		return nil, dec.Err()
	}
	return &envelope, nil
}

func readAddressList(dec *imapwire.Decoder, options *Options) ([]imap.Address, error) {
	var l []imap.Address
	err := dec.ExpectNList(func() error {
		addr, err := readAddress(dec, options)
		if err != nil {
			return err
		}
		l = append(l, *addr)
		return nil
	})
	return l, err
}

func readAddress(dec *imapwire.Decoder, options *Options) (*imap.Address, error) {
	var addr imap.Address
	var name, sourceRoute string
	ok := dec.ExpectSpecial('(') &&
		dec.ExpectNString(&name) && dec.ExpectSP() &&
		dec.ExpectNString(&sourceRoute) && dec.ExpectSP() &&
		dec.ExpectNString(&addr.Mailbox) && dec.ExpectSP() &&
		dec.ExpectNString(&addr.Host) && dec.ExpectSpecial(')')
	if !ok {
		return nil, fmt.Errorf("in address: %v", dec.Err())
	}
	addr.Raw = [3][]byte{[]byte(name), []byte(addr.Mailbox), []byte(addr.Host)}
	addr.Name, _ = options.decodeText(name)
	return &addr, nil
}

func parseMsgID(s string) (string, error) {
	var h mail.Header
	h.Set("Message-Id", s)
	return h.MessageID()
}

func parseMsgIDList(s string) ([]string, error) {
	var h mail.Header
	h.Set("In-Reply-To", s)
	return h.MsgIDList("In-Reply-To")
}

func readBody(dec *imapwire.Decoder, options *Options) (imap.BodyStructure, error) {
	if !dec.ExpectSpecial('(') {
		return nil, dec.Err()
	}

	var (
		mediaType string
		bs        imap.BodyStructure
		err       error
	)
	if dec.String(&mediaType) {
		bs, err = readBodyType1part(dec, mediaType, options)
	} else {
		bs, err = readBodyTypeMpart(dec, options)
	}
	if err != nil {
		return nil, err
	}

	for dec.SP() {
		if !dec.DiscardValue() {
			return nil, dec.Err()
		}
	}

	if !dec.ExpectSpecial(')') {
		return nil, dec.Err()
	}
	return bs, nil
}

func readBodyType1part(dec *imapwire.Decoder, typ string, options *Options) (*imap.BodyStructureSinglePart, error) {
	bs := imap.BodyStructureSinglePart{Type: typ}

	if !dec.ExpectSP() || !dec.ExpectString(&bs.Subtype) || !dec.ExpectSP() {
		return nil, dec.Err()
	}
	var err error
	bs.Params, err = readBodyFldParam(dec, options)
	if err != nil {
		return nil, err
	}

	var description string
	var size int64
	if !dec.ExpectSP() || !dec.ExpectNString(&bs.ID) || !dec.ExpectSP() || !dec.ExpectNString(&description) ||
		!dec.ExpectSP() || !dec.ExpectNString(&bs.Encoding) || !dec.ExpectSP() || !dec.ExpectBodyFldOctets(&size) {
		return nil, dec.Err()
	}
	bs.Size = uint32(size)
	if bs.Encoding == "" {
		bs.Encoding = "7BIT"
	}
	bs.Description, _ = options.decodeText(description)

	hasSP := dec.SP()
	if !hasSP {
		return &bs, nil
	}

	if strings.EqualFold(bs.Type, "message") && (strings.EqualFold(bs.Subtype, "rfc822") || strings.EqualFold(bs.Subtype, "global")) {
		var msg imap.BodyStructureMessageRFC822
		msg.Envelope, err = readEnvelope(dec, options)
		if err != nil {
			return nil, err
		}
		if !dec.ExpectSP() {
			return nil, dec.Err()
		}
		msg.BodyStructure, err = readBody(dec, options)
		if err != nil {
			return nil, err
		}
		if !dec.ExpectSP() || !dec.ExpectNumber64(&msg.NumLines) {
			return nil, dec.Err()
		}
		bs.MessageRFC822 = &msg
		hasSP = false
	} else if strings.EqualFold(bs.Type, "text") {
		var text imap.BodyStructureText
		if !dec.ExpectNumber64(&text.NumLines) {
			return nil, dec.Err()
		}
		bs.Text = &text
		hasSP = false
	}

	if !hasSP {
		hasSP = dec.SP()
	}
	if hasSP {
		bs.Extended, err = readBodyExt1part(dec, options)
		if err != nil {
			return nil, fmt.Errorf("in body-ext-1part: %v", err)
		}
	}
	return &bs, nil
}

func readBodyExt1part(dec *imapwire.Decoder, options *Options) (*imap.BodyStructureSinglePartExt, error) {
	var ext imap.BodyStructureSinglePartExt
	var md5 string
	if !dec.ExpectNString(&md5) {
		return nil, dec.Err()
	}
	if !dec.SP() {
		return &ext, nil
	}

	var err error
	ext.Disposition, err = readBodyFldDsp(dec, options)
	if err != nil {
		return nil, fmt.Errorf("in body-fld-dsp: %v", err)
	}
	if !dec.SP() {
		return &ext, nil
	}

	ext.Language, err = readBodyFldLang(dec)
	if err != nil {
		return nil, fmt.Errorf("in body-fld-lang: %v", err)
	}
	if !dec.SP() {
		return &ext, nil
	}

	if !dec.ExpectNString(&ext.Location) {
		return nil, dec.Err()
	}
	return &ext, nil
}

func readBodyTypeMpart(dec *imapwire.Decoder, options *Options) (*imap.BodyStructureMultiPart, error) {
	var bs imap.BodyStructureMultiPart
	for {
		child, err := readBody(dec, options)
		if err != nil {
			return nil, err
		}
		bs.Children = append(bs.Children, child)
		if dec.SP() && dec.String(&bs.Subtype) {
			break
		}
	}

	if dec.SP() {
		var err error
		bs.Extended, err = readBodyExtMpart(dec, options)
		if err != nil {
			return nil, fmt.Errorf("in body-ext-mpart: %v", err)
		}
	}
	return &bs, nil
}

func readBodyExtMpart(dec *imapwire.Decoder, options *Options) (*imap.BodyStructureMultiPartExt, error) {
	var ext imap.BodyStructureMultiPartExt
	var err error
	ext.Params, err = readBodyFldParam(dec, options)
	if err != nil {
		return nil, fmt.Errorf("in body-fld-param: %v", err)
	}
	if !dec.SP() {
		return &ext, nil
	}

	ext.Disposition, err = readBodyFldDsp(dec, options)
	if err != nil {
		return nil, fmt.Errorf("in body-fld-dsp: %v", err)
	}
	if !dec.SP() {
		return &ext, nil
	}

	ext.Language, err = readBodyFldLang(dec)
	if err != nil {
		return nil, fmt.Errorf("in body-fld-lang: %v", err)
	}
	if !dec.SP() {
		return &ext, nil
	}

	if !dec.ExpectNString(&ext.Location) {
		return nil, dec.Err()
	}
	return &ext, nil
}

func readBodyFldDsp(dec *imapwire.Decoder, options *Options) (*imap.BodyStructureDisposition, error) {
	if !dec.Special('(') {
		if !dec.ExpectNIL() {
			return nil, dec.Err()
		}
		return nil, nil
	}

	var disp imap.BodyStructureDisposition
	if !dec.ExpectString(&disp.Value) || !dec.ExpectSP() {
		return nil, dec.Err()
	}
	var err error
	disp.Params, err = readBodyFldParam(dec, options)
	if err != nil {
		return nil, err
	}
	if !dec.ExpectSpecial(')') {
		return nil, dec.Err()
	}
	return &disp, nil
}

func readBodyFldParam(dec *imapwire.Decoder, options *Options) (map[string]string, error) {
	var params map[string]string
	var k string
	err := dec.ExpectNList(func() error {
		var s string
		if !dec.ExpectString(&s) {
			return dec.Err()
		}
		if k == "" {
			k = s
			return nil
		}
		if params == nil {
			params = make(map[string]string)
		}
		decoded, _ := options.decodeText(s)
		params[strings.ToLower(k)] = decoded
		k = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	if k != "" {
		return nil, fmt.Errorf("in body-fld-param: key without value")
	}
	return params, nil
}

func readBodyFldLang(dec *imapwire.Decoder) ([]string, error) {
	var l []string
	isList, err := dec.List(func() error {
		var s string
		if !dec.ExpectString(&s) {
			return dec.Err()
		}
		l = append(l, s)
		return nil
	})
	if err != nil || isList {
		return l, err
	}

	var s string
	if !dec.ExpectNString(&s) {
		return nil, dec.Err()
	}
	if s == "" {
		return nil, nil
	}
	return []string{s}, nil
}

func readSectionSpec(dec *imapwire.Decoder) (*imap.FetchItemBodySection, error) {
	var section imap.FetchItemBodySection

	part, dot := readSectionPart(dec)
	section.Part = part
	if dot || len(part) == 0 {
		var specifier string
		if dot {
			if !dec.ExpectAtom(&specifier) {
				return nil, dec.Err()
			}
		} else {
			dec.Atom(&specifier)
		}
		specifier = strings.ToUpper(specifier)
		switch specifier {
		case "HEADER.FIELDS", "HEADER.FIELDS.NOT":
			if !dec.ExpectSP() {
				return nil, dec.Err()
			}
			headerList, err := readHeaderList(dec)
			if err != nil {
				return nil, err
			}
			section.Specifier = imap.PartSpecifierHeader
			if specifier == "HEADER.FIELDS" {
				section.HeaderFields = headerList
			} else {
				section.HeaderFieldsNot = headerList
			}
		case "":
			section.Specifier = imap.PartSpecifierNone
		default:
			section.Specifier = imap.PartSpecifier(specifier)
		}
	}

	if !dec.ExpectSpecial(']') {
		return nil, dec.Err()
	}

	if dec.Special('<') {
		var offset uint32
		if !dec.ExpectNumber(&offset) || !dec.ExpectSpecial('>') {
			return nil, dec.Err()
		}
		section.Partial = &imap.SectionPartial{Offset: int64(offset)}
	}

	return &section, nil
}

func readHeaderList(dec *imapwire.Decoder) ([]string, error) {
	var l []string
	err := dec.ExpectList(func() error {
		var s string
		if !dec.ExpectAString(&s) {
			return dec.Err()
		}
		l = append(l, s)
		return nil
	})
	return l, err
}

func readSectionPart(dec *imapwire.Decoder) (part []int, dot bool) {
	for {
		dot = len(part) > 0
		if dot && !dec.Special('.') {
			return part, false
		}
		var num uint32
		if !dec.Number(&num) {
			return part, dot
		}
		part = append(part, int(num))
	}
}

package fix

import (
	"bytes"
	"fmt"
	"strconv"
)

// SOH is the FIX field delimiter, byte 0x01.
const SOH byte = 0x01

// checksumTrailerLen is len("10=XXX") + the trailing SOH.
const checksumTrailerLen = 7

// Decode reads one message from buf. On success it returns the message and
// the number of bytes consumed. If buf does not yet hold a complete
// message it returns ErrIncomplete with consumed 0; the caller should read
// more bytes and retry with the extended buffer. On ErrBodyLengthMismatch
// or ErrCheckSumMismatch the codec has not advanced; the caller must
// resynchronize by scanning forward to the next "8=" marker.
//
// dict supplies repeating-group templates; it may be nil, in which case
// every message decodes in list form.
func Decode(buf []byte, dict *GroupDict) (msg *Message, consumed int, err error) {
	if len(buf) < 2 {
		return nil, 0, ErrIncomplete
	}
	if buf[0] != '8' || buf[1] != '=' {
		return nil, 0, ErrMalformedFraming
	}

	sohBegin := bytes.IndexByte(buf[2:], SOH)
	if sohBegin < 0 {
		return nil, 0, ErrIncomplete
	}
	sohBegin += 2
	beginString := string(buf[2:sohBegin])

	pos := sohBegin + 1
	if pos+2 > len(buf) {
		return nil, 0, ErrIncomplete
	}
	if buf[pos] != '9' || buf[pos+1] != '=' {
		return nil, 0, ErrMalformedFraming
	}
	pos += 2

	sohLen := bytes.IndexByte(buf[pos:], SOH)
	if sohLen < 0 {
		return nil, 0, ErrIncomplete
	}
	sohLen += pos
	bodyLen, err := strconv.Atoi(string(buf[pos:sohLen]))
	if err != nil || bodyLen < 0 {
		return nil, 0, ErrMalformedFraming
	}

	bodyStart := sohLen + 1
	total := bodyStart + bodyLen + checksumTrailerLen
	if len(buf) < total {
		return nil, 0, ErrIncomplete
	}

	trailer := buf[bodyStart+bodyLen:]
	if trailer[0] != '1' || trailer[1] != '0' || trailer[2] != '=' {
		return nil, 0, ErrBodyLengthMismatch
	}
	if trailer[6] != SOH {
		return nil, 0, ErrMalformedFraming
	}
	wantChecksum, err := strconv.Atoi(string(trailer[3:6]))
	if err != nil {
		return nil, 0, ErrMalformedFraming
	}

	gotChecksum := 0
	for _, b := range buf[:bodyStart+bodyLen] {
		gotChecksum += int(b)
	}
	gotChecksum %= 256
	if gotChecksum != wantChecksum {
		return nil, 0, ErrCheckSumMismatch
	}

	pairs := make([]TagValue, 0, 16)
	pairs = append(pairs, TagValue{Tag: TagBeginString, Value: beginString})

	i := bodyStart
	end := bodyStart + bodyLen
	for i < end {
		eq := bytes.IndexByte(buf[i:end], '=')
		if eq < 0 {
			return nil, 0, ErrMalformedFraming
		}
		eq += i
		tagNum, err := strconv.Atoi(string(buf[i:eq]))
		if err != nil {
			return nil, 0, ErrMalformedFraming
		}
		soh := bytes.IndexByte(buf[eq+1:end+1], SOH)
		if soh < 0 {
			return nil, 0, ErrMalformedFraming
		}
		soh += eq + 1
		pairs = append(pairs, TagValue{Tag: Tag(tagNum), Value: string(buf[eq+1 : soh])})
		i = soh + 1
	}

	msg, err = NewMessage(pairs, dict)
	if err != nil {
		return nil, 0, err
	}
	return msg, total, nil
}

// Encode produces canonical wire bytes for m: 8, 9, 35, the remaining
// header tags, the body (with repeating groups expanded inline), then the
// recomputed 10 trailer.
func Encode(m *Message) ([]byte, error) {
	msgType, ok := m.MsgType()
	if !ok {
		return nil, ErrMissingMsgType
	}

	beginString := BeginStringFIX44
	if f, ok := m.Get(TagBeginString); ok {
		beginString = f.text
	}

	var body bytes.Buffer
	writeField(&body, NewField(TagMsgType, msgType))
	for _, tag := range canonicalHeaderOrder {
		if f, ok := m.Get(tag); ok {
			writeField(&body, f)
		}
	}
	writeBodyFields(&body, m)

	var out bytes.Buffer
	out.WriteString("8=")
	out.WriteString(beginString)
	out.WriteByte(SOH)
	out.WriteString("9=")
	out.WriteString(strconv.Itoa(body.Len()))
	out.WriteByte(SOH)
	out.Write(body.Bytes())

	sum := 0
	for _, b := range out.Bytes() {
		sum += int(b)
	}
	sum %= 256
	out.WriteString("10=")
	out.WriteString(fmt.Sprintf("%03d", sum))
	out.WriteByte(SOH)

	return out.Bytes(), nil
}

// writeBodyFields writes every field not already placed by Encode's header
// section, expanding any repeating groups inline right after their count
// tag.
func writeBodyFields(w *bytes.Buffer, m *Message) {
	dm, isDict := m.fields.(*DictMap)
	for _, f := range m.fields.Fields() {
		if f.Tag == TagBeginString || f.Tag == TagMsgType || headerTags[f.Tag] || trailerTags[f.Tag] {
			continue
		}
		writeField(w, f)
		if isDict {
			if g, ok := dm.Group(f.Tag); ok {
				for _, inst := range g.Instances {
					for _, gf := range inst.Fields() {
						writeField(w, gf)
					}
				}
			}
		}
	}
}

func writeField(w *bytes.Buffer, f Field) {
	w.WriteString(strconv.Itoa(int(f.Tag)))
	w.WriteByte('=')
	w.WriteString(f.text)
	w.WriteByte(SOH)
}

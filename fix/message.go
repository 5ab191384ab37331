package fix

import (
	"strconv"
	"time"
)

// parseGroupCount parses a group's count-tag value.
func parseGroupCount(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, ErrGroupParse
	}
	return n, nil
}

// TagValue is a single (tag, value) pair as accepted by the generic
// factory, mirroring the wire's own shape.
type TagValue struct {
	Tag   Tag
	Value string
}

// Message is a FieldMap plus typed accessors for the common header
// fields. Header tags (8, 9, 35, 34, 49, 52, 56) and the trailer tag
// (10) are managed by the wire codec and the session layer, never by
// user code.
type Message struct {
	fields FieldMap
}

// Fields exposes the underlying FieldMap for read access and for
// processors that need Group traversal (only meaningful when Fields
// returns a *DictMap).
func (m *Message) Fields() FieldMap {
	return m.fields
}

// NewMessage is the generic factory. Count tags are recognised only
// through dict's templates: when dict has at least one template
// registered for the message type, it builds a FieldMap in dict form with
// every templated group materialized; when dict is nil or has no template
// for that type, it builds a flat list form. In a dict-form message, a
// count tag dict has no template for is kept as an ordinary field, and a
// repeated tag outside a templated group keeps only its last value.
// msgType is read from pairs if tag 35 is present among them, defaulting
// to "" otherwise (used before the type is known, e.g. while still
// accumulating header fields).
func NewMessage(pairs []TagValue, dict *GroupDict) (*Message, error) {
	msgType := ""
	for _, p := range pairs {
		if p.Tag == TagMsgType {
			msgType = p.Value
			break
		}
	}

	countTags := countTagsOf(pairs, msgType, dict)
	if dict != nil && len(dict.templates[msgType]) > 0 && dict.HasAllTemplates(msgType, countTags) {
		fm, err := buildDictMap(pairs, msgType, dict)
		if err != nil {
			return nil, err
		}
		return &Message{fields: fm}, nil
	}

	fm := NewListMap()
	for _, p := range pairs {
		fm.Append(NewField(p.Tag, p.Value))
	}
	return &Message{fields: fm}, nil
}

// countTagsOf scans pairs for tags that are registered as a group count
// tag for msgType, used to decide dict-vs-list form up front.
func countTagsOf(pairs []TagValue, msgType string, dict *GroupDict) []Tag {
	if dict == nil {
		return nil
	}
	var tags []Tag
	for _, p := range pairs {
		if _, ok := dict.Lookup(msgType, p.Tag); ok {
			tags = append(tags, p.Tag)
		}
	}
	return tags
}

// buildDictMap assembles a DictMap from a flat pair sequence, materializing
// repeating groups per their templates: the same algorithm Decode uses
// when assembling a message straight off the wire.
func buildDictMap(pairs []TagValue, msgType string, dict *GroupDict) (*DictMap, error) {
	fm := NewDictMap()
	i := 0
	for i < len(pairs) {
		p := pairs[i]
		if tmpl, ok := dict.Lookup(msgType, p.Tag); ok {
			count, err := parseGroupCount(p.Value)
			if err != nil {
				return nil, err
			}
			g, consumed, err := materializeGroup(pairs[i+1:], tmpl, count)
			if err != nil {
				return nil, err
			}
			fm.SetGroup(g)
			i += 1 + consumed
			continue
		}
		fm.Set(NewField(p.Tag, p.Value))
		i++
	}
	return fm, nil
}

// materializeGroup consumes instances of tmpl from pairs, returning the
// Group and the number of TagValue entries consumed.
func materializeGroup(pairs []TagValue, tmpl GroupTemplate, count int) (*Group, int, error) {
	g := &Group{Template: tmpl}
	i := 0
	for len(g.Instances) < count {
		if i >= len(pairs) || pairs[i].Tag != tmpl.Delimiter {
			return nil, i, ErrGroupParse
		}
		inst := NewDictMap()
		for i < len(pairs) && tmpl.isMember(pairs[i].Tag) {
			if pairs[i].Tag == tmpl.Delimiter && inst.Len() > 0 {
				break // next instance begins
			}
			inst.Set(NewField(pairs[i].Tag, pairs[i].Value))
			i++
		}
		g.Instances = append(g.Instances, inst)
	}
	if len(g.Instances) != count {
		return nil, i, ErrGroupParse
	}
	return g, i, nil
}

// MsgType returns tag 35.
func (m *Message) MsgType() (string, bool) {
	f, ok := m.fields.Get(TagMsgType)
	if !ok {
		return "", false
	}
	return f.text, true
}

// SeqNum returns tag 34.
func (m *Message) SeqNum() (int, bool) {
	f, ok := m.fields.Get(TagMsgSeqNum)
	if !ok {
		return 0, false
	}
	n, err := f.Int()
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// SetSeqNum sets tag 34.
func (m *Message) SetSeqNum(n int) {
	f, _ := NewIntField(TagMsgSeqNum, int64(n))
	m.fields.Set(f)
}

// SenderCompID returns tag 49.
func (m *Message) SenderCompID() (string, bool) {
	f, ok := m.fields.Get(TagSenderCompID)
	return f.text, ok
}

// TargetCompID returns tag 56.
func (m *Message) TargetCompID() (string, bool) {
	f, ok := m.fields.Get(TagTargetCompID)
	return f.text, ok
}

// SendingTime returns tag 52.
func (m *Message) SendingTime() (time.Time, bool) {
	f, ok := m.fields.Get(TagSendingTime)
	if !ok {
		return time.Time{}, false
	}
	t, err := f.Time()
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PossDupFlag returns tag 43, defaulting to false when absent.
func (m *Message) PossDupFlag() bool {
	f, ok := m.fields.Get(TagPossDupFlag)
	if !ok {
		return false
	}
	v, err := f.Bool()
	return err == nil && v
}

// Get returns the field for tag.
func (m *Message) Get(tag Tag) (Field, bool) {
	return m.fields.Get(tag)
}

// Set assigns value to tag. Tags outside [1, 9999] are rejected. A tag
// with no dictionary meaning is accepted only inside the user-defined
// [5000, 9999] range.
func (m *Message) Set(tag Tag, value string) error {
	if !validTag(tag) {
		return ErrInvalidTag
	}
	m.fields.Set(NewField(tag, value))
	return nil
}

// SetField assigns a pre-built Field, validating its tag the same way Set
// does.
func (m *Message) SetField(f Field) error {
	if !validTag(f.Tag) {
		return ErrInvalidTag
	}
	m.fields.Set(f)
	return nil
}

// Remove deletes tag, atomically dropping a whole group when tag is a
// count tag.
func (m *Message) Remove(tag Tag) bool {
	return m.fields.Remove(tag)
}

// Clone returns a deep-enough copy safe for a new owner to mutate. A
// message handed to the next pipeline stage must not be mutated by the
// stage that produced it, so processors that need to keep working on a
// message after forwarding it should Clone first.
func (m *Message) Clone() *Message {
	switch fm := m.fields.(type) {
	case *DictMap:
		clone := NewDictMap()
		for _, f := range fm.Fields() {
			clone.Set(f)
		}
		for tag, g := range fm.groups {
			cg := &Group{Template: g.Template}
			for _, inst := range g.Instances {
				ci := NewDictMap()
				for _, f := range inst.Fields() {
					ci.Set(f)
				}
				cg.Instances = append(cg.Instances, ci)
			}
			clone.groups[tag] = cg
		}
		return &Message{fields: clone}
	default:
		clone := NewListMap()
		for _, f := range m.fields.Fields() {
			clone.Append(f)
		}
		return &Message{fields: clone}
	}
}

package fix

// FieldMap is an ordered multi-field container preserving insertion order.
// Two concrete shapes implement it: DictMap, used when every repeating
// group in the message has a known template, and ListMap, a flat
// fallback used otherwise. Callers see one interface regardless of which
// variant backs a given Message.
type FieldMap interface {
	// Get returns the field for tag, and whether it was present.
	Get(tag Tag) (Field, bool)

	// Set inserts or replaces the field for its tag, preserving the
	// position of an existing field or appending a new one.
	Set(f Field)

	// Remove deletes the field for tag. Removing a group's count tag
	// removes the whole group atomically (DictMap only; ListMap has no
	// group structure to clean up beyond the flat fields it already holds).
	Remove(tag Tag) bool

	// Tags returns the top-level tags in insertion order.
	Tags() []Tag

	// Fields returns every top-level field in insertion order.
	Fields() []Field

	// Len returns the number of top-level fields.
	Len() int
}

// DictMap is the FieldMap variant used when a group template is known for
// every repeating group in the message. Top-level lookup is O(1).
type DictMap struct {
	order  []Tag
	fields map[Tag]Field
	groups map[Tag]*Group
}

// NewDictMap returns an empty DictMap.
func NewDictMap() *DictMap {
	return &DictMap{fields: make(map[Tag]Field), groups: make(map[Tag]*Group)}
}

// Get implements FieldMap.
func (m *DictMap) Get(tag Tag) (Field, bool) {
	f, ok := m.fields[tag]
	return f, ok
}

// Set implements FieldMap.
func (m *DictMap) Set(f Field) {
	if _, exists := m.fields[f.Tag]; !exists {
		m.order = append(m.order, f.Tag)
	}
	m.fields[f.Tag] = f
}

// Remove implements FieldMap. Removing a group's count tag drops the group
// along with it.
func (m *DictMap) Remove(tag Tag) bool {
	if _, ok := m.fields[tag]; !ok {
		return false
	}
	delete(m.fields, tag)
	delete(m.groups, tag)
	for i, t := range m.order {
		if t == tag {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Tags implements FieldMap.
func (m *DictMap) Tags() []Tag {
	out := make([]Tag, len(m.order))
	copy(out, m.order)
	return out
}

// Fields implements FieldMap.
func (m *DictMap) Fields() []Field {
	out := make([]Field, 0, len(m.order))
	for _, t := range m.order {
		out = append(out, m.fields[t])
	}
	return out
}

// Len implements FieldMap.
func (m *DictMap) Len() int {
	return len(m.order)
}

// Group returns the repeating group introduced by countTag.
func (m *DictMap) Group(countTag Tag) (*Group, bool) {
	g, ok := m.groups[countTag]
	return g, ok
}

// SetGroup installs g, also recording its count field so Get/Tags see it.
func (m *DictMap) SetGroup(g *Group) {
	m.groups[g.Template.CountTag] = g
	f, ok := NewIntField(g.Template.CountTag, int64(g.Size()))
	if ok {
		m.Set(f)
	}
}

// ListMap is the FieldMap variant used when no group template is known for
// at least one repeating group in the message. Lookup is O(n); group
// members are left flat and consumers are responsible for interpretation.
type ListMap struct {
	fields []Field
}

// NewListMap returns an empty ListMap.
func NewListMap() *ListMap {
	return &ListMap{}
}

// Get implements FieldMap.
func (m *ListMap) Get(tag Tag) (Field, bool) {
	for _, f := range m.fields {
		if f.Tag == tag {
			return f, true
		}
	}
	return Field{}, false
}

// Set implements FieldMap.
func (m *ListMap) Set(f Field) {
	for i, existing := range m.fields {
		if existing.Tag == f.Tag {
			m.fields[i] = f
			return
		}
	}
	m.fields = append(m.fields, f)
}

// Remove implements FieldMap.
func (m *ListMap) Remove(tag Tag) bool {
	for i, f := range m.fields {
		if f.Tag == tag {
			m.fields = append(m.fields[:i], m.fields[i+1:]...)
			return true
		}
	}
	return false
}

// Tags implements FieldMap.
func (m *ListMap) Tags() []Tag {
	out := make([]Tag, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.Tag
	}
	return out
}

// Fields implements FieldMap.
func (m *ListMap) Fields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Len implements FieldMap.
func (m *ListMap) Len() int {
	return len(m.fields)
}

// Append adds f to the end regardless of whether its tag already occurs,
// which list form allows and dict form does not; this is how repeated
// untemplated group members accumulate.
func (m *ListMap) Append(f Field) {
	m.fields = append(m.fields, f)
}

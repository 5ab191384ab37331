package fix

import "testing"

func TestDictMapOrderPreserved(t *testing.T) {
	m := NewDictMap()
	m.Set(NewField(56, "TARGET"))
	m.Set(NewField(49, "SENDER"))
	m.Set(NewField(34, "1"))

	want := []Tag{56, 49, 34}
	got := m.Tags()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got tag %d, want %d", i, got[i], want[i])
		}
	}

	// Overwriting an existing tag must not change its position.
	m.Set(NewField(49, "SENDER2"))
	got = m.Tags()
	if got[1] != 49 {
		t.Errorf("overwrite moved tag 49: position 1 now holds tag %d", got[1])
	}
	f, _ := m.Get(49)
	if f.text != "SENDER2" {
		t.Errorf("overwrite did not update value: %q", f.text)
	}
}

func TestDictMapRemoveDropsGroup(t *testing.T) {
	m := NewDictMap()
	tmpl := GroupTemplate{CountTag: 453, Delimiter: 448, Members: []Tag{448, 447}}
	g := &Group{Template: tmpl, Instances: []*DictMap{NewDictMap()}}
	m.SetGroup(g)

	if _, ok := m.Get(453); !ok {
		t.Fatal("count field not installed by SetGroup")
	}
	if ok := m.Remove(453); !ok {
		t.Fatal("Remove reported no such field")
	}
	if _, ok := m.Group(453); ok {
		t.Error("group survived removal of its count tag")
	}
	if _, ok := m.Get(453); ok {
		t.Error("count field survived removal")
	}
}

func TestListMapAppendAllowsDuplicateTags(t *testing.T) {
	m := NewListMap()
	m.Append(NewField(448, "A"))
	m.Append(NewField(448, "B"))

	if m.Len() != 2 {
		t.Fatalf("got len %d, want 2", m.Len())
	}
	f, ok := m.Get(448)
	if !ok || f.text != "A" {
		t.Errorf("Get should return the first match, got %+v, %v", f, ok)
	}
}

func TestListMapSetReplacesFirstMatch(t *testing.T) {
	m := NewListMap()
	m.Append(NewField(1, "x"))
	m.Set(NewField(1, "y"))
	if m.Len() != 1 {
		t.Fatalf("got len %d, want 1", m.Len())
	}
	f, _ := m.Get(1)
	if f.text != "y" {
		t.Errorf("got %q, want %q", f.text, "y")
	}
}

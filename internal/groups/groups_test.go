package groups

import "testing"

func TestAllowed(t *testing.T) {
	list := NewAllowList([]string{"120363027964709829@g.us", "447970999007-1605100552@g.us"})

	if !list.Allowed("120363027964709829@g.us") {
		t.Error("listed group should be allowed")
	}
	if list.Allowed("120363027964709829") {
		t.Error("membership is exact, not prefix")
	}
	if list.Allowed("unknown@g.us") {
		t.Error("unlisted group should not be allowed")
	}
	if list.Allowed("") {
		t.Error("empty chat ID should not be allowed")
	}
}

func TestEmptyAllowList(t *testing.T) {
	list := NewAllowList(nil)
	if list.Len() != 0 {
		t.Fatalf("expected empty list, got %d entries", list.Len())
	}
	if list.Allowed("anything@g.us") {
		t.Error("empty list allows nothing")
	}
}

func TestEmptyIDsDropped(t *testing.T) {
	list := NewAllowList([]string{"", "a@g.us", ""})
	if list.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", list.Len())
	}
}

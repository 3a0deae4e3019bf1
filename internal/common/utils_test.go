package common

import (
	"reflect"
	"testing"
)

func TestHasAny(t *testing.T) {
	if !HasAny("total attendances", "attend", "within 4") {
		t.Fatal("expected match on attend")
	}
	if HasAny("provider name", "attend") {
		t.Fatal("unexpected match")
	}
	if HasAny("anything") {
		t.Fatal("no substrings should never match")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" Portsmouth, ,University Hospitals Sussex ,")
	want := []string{"Portsmouth", "University Hospitals Sussex"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitList() = %q, want %q", got, want)
	}
	if got := SplitList(""); got != nil {
		t.Fatalf("SplitList(\"\") = %q, want nil", got)
	}
}

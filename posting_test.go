package knowsearch

import (
	"reflect"
	"testing"
)

func TestOffsetListInsertAndContains(t *testing.T) {
	l := newOffsetList()
	for _, v := range []int{5, 1, 3, 1, 9} {
		l.insert(v)
	}
	for _, v := range []int{1, 3, 5, 9} {
		if !l.contains(v) {
			t.Errorf("expected list to contain %d", v)
		}
	}
	if l.contains(2) {
		t.Error("expected list not to contain 2")
	}
}

func TestOffsetListOffsetsAreSortedAndDeduped(t *testing.T) {
	l := newOffsetList()
	for _, v := range []int{7, 2, 2, 4, 0} {
		l.insert(v)
	}
	got := l.offsets()
	want := []int{0, 2, 4, 7}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("offsets() = %v, want %v", got, want)
	}
}

func TestOffsetListFindGreaterThan(t *testing.T) {
	l := newOffsetList()
	for _, v := range []int{1, 4, 9} {
		l.insert(v)
	}

	next, err := l.findGreaterThan(4)
	if err != nil || next != 9 {
		t.Fatalf("findGreaterThan(4) = %d, %v, want 9, nil", next, err)
	}

	next, err = l.findGreaterThan(0)
	if err != nil || next != 1 {
		t.Fatalf("findGreaterThan(0) = %d, %v, want 1, nil", next, err)
	}

	if _, err := l.findGreaterThan(9); err == nil {
		t.Fatal("expected errNoElement past the last offset")
	}
}

func TestFromOffsetsRoundTrip(t *testing.T) {
	values := []int{0, 3, 6, 10}
	l := fromOffsets(values)
	if got := l.offsets(); !reflect.DeepEqual(got, values) {
		t.Fatalf("round trip = %v, want %v", got, values)
	}
}

func TestOffsetListEmpty(t *testing.T) {
	l := newOffsetList()
	if l.contains(0) {
		t.Error("empty list should contain nothing")
	}
	if got := l.offsets(); len(got) != 0 {
		t.Fatalf("offsets() on empty list = %v, want empty", got)
	}
}

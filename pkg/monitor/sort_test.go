package monitor

import (
	"reflect"
	"testing"
)

func sampleRows() []Row {
	return []Row{
		{Side: "home", Away: "NYK", Home: "BOS", PCurrent: fp(0.70)},
		{Side: "away", Away: "LAL", Home: "DEN", PCurrent: nil},
		{Side: "home", Away: "CHI", Home: "MIL", PCurrent: fp(0.58)},
		{Side: "under", Away: "ATL", Home: "MIA", PCurrent: fp(0.64)},
	}
}

func currents(rows []Row) []interface{} {
	out := make([]interface{}, len(rows))
	for i, r := range rows {
		if r.PCurrent == nil {
			out[i] = nil
		} else {
			out[i] = *r.PCurrent
		}
	}
	return out
}

func TestSortNumericAscending(t *testing.T) {
	got := currents(SortRows(sampleRows(), "pCurrent", Ascending))
	want := []interface{}{0.58, 0.64, 0.70, nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("asc order = %v, want %v", got, want)
	}
}

func TestSortNumericDescendingNullsStillLast(t *testing.T) {
	got := currents(SortRows(sampleRows(), "pCurrent", Descending))
	want := []interface{}{0.70, 0.64, 0.58, nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("desc order = %v, want %v", got, want)
	}
}

func TestSortStringKey(t *testing.T) {
	rows := SortRows(sampleRows(), "away", Ascending)
	want := []string{"ATL", "CHI", "LAL", "NYK"}
	for i, r := range rows {
		if r.Away != want[i] {
			t.Errorf("position %d: got %s, want %s", i, r.Away, want[i])
		}
	}
}

func TestSortMatchupIsSynthetic(t *testing.T) {
	rows := SortRows(sampleRows(), "matchup", Ascending)
	// "ATL @ MIA" < "CHI @ MIL" < "LAL @ DEN" < "NYK @ BOS"
	want := []string{"ATL", "CHI", "LAL", "NYK"}
	for i, r := range rows {
		if r.Away != want[i] {
			t.Errorf("position %d: got %s @ %s", i, r.Away, r.Home)
		}
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	rows := sampleRows()
	before := make([]Row, len(rows))
	copy(before, rows)

	SortRows(rows, "pCurrent", Descending)

	if !reflect.DeepEqual(rows, before) {
		t.Error("input slice was reordered")
	}
}

func TestSortStableOnEqualKeys(t *testing.T) {
	rows := []Row{
		{Side: "first", PCurrent: fp(0.6)},
		{Side: "second", PCurrent: fp(0.6)},
		{Side: "third", PCurrent: fp(0.6)},
	}

	for i := 0; i < 3; i++ {
		got := SortRows(rows, "pCurrent", Ascending)
		if got[0].Side != "first" || got[1].Side != "second" || got[2].Side != "third" {
			t.Fatalf("equal keys reordered: %v %v %v", got[0].Side, got[1].Side, got[2].Side)
		}
	}
}

func TestSortUnknownKeyKeepsOrder(t *testing.T) {
	rows := sampleRows()
	got := SortRows(rows, "nope", Descending)
	if !reflect.DeepEqual(got, rows) {
		t.Error("unknown key should leave natural order intact")
	}
}

func TestSortEVOkAsString(t *testing.T) {
	rows := []Row{
		{Side: "a", EVOK: bp(true)},
		{Side: "b", EVOK: nil},
		{Side: "c", EVOK: bp(false)},
	}

	got := SortRows(rows, "evOk", Ascending)
	// "false" < "true", null last.
	if got[0].Side != "c" || got[1].Side != "a" || got[2].Side != "b" {
		t.Errorf("evOk order = %s %s %s", got[0].Side, got[1].Side, got[2].Side)
	}
}

func TestSortStateToggle(t *testing.T) {
	var s SortState

	s.Toggle("pCurrent")
	if s.Key != "pCurrent" || s.Dir != Ascending {
		t.Fatalf("first select: %+v", s)
	}

	s.Toggle("pCurrent")
	if s.Dir != Descending {
		t.Fatalf("same key should flip: %+v", s)
	}

	s.Toggle("pCurrent")
	if s.Dir != Ascending {
		t.Fatalf("same key should flip back: %+v", s)
	}

	s.Toggle("away")
	if s.Key != "away" || s.Dir != Ascending {
		t.Fatalf("new key should reset to ascending: %+v", s)
	}
}

func TestSortStateApplyNoKey(t *testing.T) {
	rows := sampleRows()
	var s SortState

	got := s.Apply(rows)
	if !reflect.DeepEqual(got, rows) {
		t.Error("no key should keep natural order")
	}
	if &got[0] == &rows[0] {
		t.Error("Apply should return a fresh slice")
	}
}

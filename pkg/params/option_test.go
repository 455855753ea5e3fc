package params

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNewSelectOption_RequiresID(t *testing.T) {
	if _, err := NewSelectOption("", "label", false, Restrict{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
	opt, err := NewSelectOption("a", "Alpha", true, Restrict{UserGroups: []string{"g2", "g1", "g1"}})
	if err != nil {
		t.Fatalf("select option: %v", err)
	}
	if len(opt.UserGroups) != 2 || opt.UserGroups[0] != "g1" || opt.UserGroups[1] != "g2" {
		t.Fatalf("groups not sorted and deduplicated: %#v", opt.UserGroups)
	}
}

func TestNewNumberOption_GridInvariants(t *testing.T) {
	cases := []struct {
		name                string
		min, max, inc, def  string
		wantErr             bool
	}{
		{"valid", "0", "10", "2", "6", false},
		{"bounds out of order", "10", "0", "2", "0", true},
		{"zero increment", "0", "10", "0", "0", true},
		{"negative increment", "0", "10", "-1", "0", true},
		{"span off grid", "0", "10", "3", "0", true},
		{"default off grid", "0", "10", "2", "5", true},
		{"default above max", "0", "10", "2", "12", true},
		{"fractional grid", "0.5", "2.5", "0.5", "1.5", false},
	}
	for _, tc := range cases {
		_, err := NewNumberOption(dec(tc.min), dec(tc.max), dec(tc.inc), dec(tc.def), Restrict{})
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if tc.wantErr {
			var cfgErr ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("%s: want ConfigError, got %T", tc.name, err)
			}
		}
	}
}

func TestNewDateOption_Bounds(t *testing.T) {
	min, max := day("2024-01-01"), day("2024-12-31")
	if _, err := NewDateOption(day("2024-06-15"), &min, &max, Restrict{}); err != nil {
		t.Fatalf("valid date option: %v", err)
	}
	if _, err := NewDateOption(day("2025-01-01"), &min, &max, Restrict{}); err == nil {
		t.Fatalf("expected error for default outside bounds")
	}
	if _, err := NewDateOption(day("2024-06-15"), &max, &min, Restrict{}); err == nil {
		t.Fatalf("expected error for inverted bounds")
	}
}

func TestNewDateRangeOption_Order(t *testing.T) {
	if _, err := NewDateRangeOption(day("2024-02-01"), day("2024-01-01"), Restrict{}); err == nil {
		t.Fatalf("expected error for inverted defaults")
	}
}

func TestNewNumberRangeOption_Defaults(t *testing.T) {
	if _, err := NewNumberRangeOption(dec("0"), dec("10"), dec("2"), dec("4"), dec("8"), Restrict{}); err != nil {
		t.Fatalf("valid range option: %v", err)
	}
	if _, err := NewNumberRangeOption(dec("0"), dec("10"), dec("2"), dec("8"), dec("4"), Restrict{}); err == nil {
		t.Fatalf("expected error for inverted defaults")
	}
	if _, err := NewNumberRangeOption(dec("0"), dec("10"), dec("2"), dec("3"), dec("8"), Restrict{}); err == nil {
		t.Fatalf("expected error for lower default off grid")
	}
}

func TestOptionIsValid(t *testing.T) {
	opt, err := NewSelectOption("x", "X", false, Restrict{UserGroups: []string{"org1"}, ParentIDs: []string{"p1", "p2"}})
	if err != nil {
		t.Fatalf("option: %v", err)
	}
	org1, org2 := "org1", "org2"
	cases := []struct {
		name    string
		group   *string
		parents []string
		want    bool
	}{
		{"no restrictions applied", nil, nil, true},
		{"matching group", &org1, nil, true},
		{"wrong group", &org2, nil, false},
		{"matching parent", nil, []string{"p2"}, true},
		{"disjoint parents", nil, []string{"p9"}, false},
		{"empty parent selection hides", nil, []string{}, false},
		{"group and parent both match", &org1, []string{"p1"}, true},
		{"group matches but parents disjoint", &org1, []string{"p9"}, false},
	}
	for _, tc := range cases {
		if got := opt.IsValid(tc.group, tc.parents); got != tc.want {
			t.Fatalf("%s: IsValid = %v, want %v", tc.name, got, tc.want)
		}
	}

	// An unrestricted option ignores the user group but is still subject to
	// parent narrowing: with no parent ids of its own it can never intersect.
	open, err := NewSelectOption("y", "Y", false, Restrict{})
	if err != nil {
		t.Fatalf("option: %v", err)
	}
	if !open.IsValid(&org2, nil) {
		t.Fatalf("unrestricted option should be visible to any group")
	}
	if open.IsValid(nil, []string{"p1"}) {
		t.Fatalf("option without parent ids should be hidden under parent narrowing")
	}
}

func TestNormalizeDate(t *testing.T) {
	loc := time.FixedZone("plus9", 9*3600)
	in := time.Date(2024, 3, 5, 23, 30, 0, 0, loc)
	got := NormalizeDate(in)
	if FormatDate(got) != "2024-03-05" {
		t.Fatalf("normalize: got %s", FormatDate(got))
	}
	if got.Hour() != 0 || got.Location() != time.UTC {
		t.Fatalf("normalize should truncate to UTC midnight: %v", got)
	}
}

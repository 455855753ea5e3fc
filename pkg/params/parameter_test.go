package params

import (
	"errors"
	"testing"
)

func mustSelect(t *testing.T, id, label string, isDefault bool, r Restrict) Option {
	t.Helper()
	opt, err := NewSelectOption(id, label, isDefault, r)
	if err != nil {
		t.Fatalf("select option %s: %v", id, err)
	}
	return opt
}

func singleSelectConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()
	cfg := &Config{Name: "pick", Label: "Pick", Kind: KindSingleSelect, Options: opts}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestNewParameter_SingleSelectDefaults(t *testing.T) {
	cfg := singleSelectConfig(t,
		mustSelect(t, "a", "Alpha", false, Restrict{}),
		mustSelect(t, "b", "Beta", true, Restrict{}),
		mustSelect(t, "c", "Gamma", true, Restrict{}),
	)
	p := NewParameter(cfg, nil, nil)
	if len(p.Selection.IDs) != 1 || p.Selection.IDs[0] != "b" {
		t.Fatalf("first flagged default should win: %#v", p.Selection.IDs)
	}

	// No flagged default: first valid option.
	cfg2 := singleSelectConfig(t,
		mustSelect(t, "a", "Alpha", false, Restrict{}),
		mustSelect(t, "b", "Beta", false, Restrict{}),
	)
	p2 := NewParameter(cfg2, nil, nil)
	if len(p2.Selection.IDs) != 1 || p2.Selection.IDs[0] != "a" {
		t.Fatalf("first valid option should win: %#v", p2.Selection.IDs)
	}

	// Zero current options: empty selection, never an error.
	cfg3 := singleSelectConfig(t, mustSelect(t, "a", "Alpha", true, Restrict{ParentIDs: []string{"p1"}}))
	p3 := NewParameter(cfg3, nil, []string{"other"})
	if !p3.Selection.Empty() {
		t.Fatalf("expected empty selection, got %#v", p3.Selection)
	}
}

func TestNewParameter_UserGroupNarrowing(t *testing.T) {
	cfg := &Config{
		Name: "regions", Label: "Regions", Kind: KindSingleSelect,
		UserAttribute: "organization",
		Options: []Option{
			mustSelect(t, "north", "North", false, Restrict{UserGroups: []string{"org1"}}),
			mustSelect(t, "south", "South", true, Restrict{UserGroups: []string{"org2"}}),
			mustSelect(t, "both", "Both", false, Restrict{}),
		},
	}
	org1 := "org1"
	p := NewParameter(cfg, &org1, nil)
	if len(p.CurrentOptions) != 2 {
		t.Fatalf("org1 should see north and both: %#v", p.CurrentOptions)
	}
	// No flagged default survives the narrowing, so the first valid wins.
	if p.Selection.IDs[0] != "north" {
		t.Fatalf("default: %#v", p.Selection.IDs)
	}
}

func TestMultiSelectDefaults(t *testing.T) {
	base := []Option{
		mustSelect(t, "a", "A", false, Restrict{}),
		mustSelect(t, "b", "B", true, Restrict{}),
		mustSelect(t, "c", "C", true, Restrict{}),
	}
	cfg := &Config{Name: "tags", Label: "Tags", Kind: KindMultiSelect, Options: base}
	p := NewParameter(cfg, nil, nil)
	if len(p.Selection.IDs) != 2 || p.Selection.IDs[0] != "b" || p.Selection.IDs[1] != "c" {
		t.Fatalf("all flagged defaults should be selected: %#v", p.Selection.IDs)
	}

	plain := []Option{
		mustSelect(t, "a", "A", false, Restrict{}),
		mustSelect(t, "b", "B", false, Restrict{}),
	}
	withAll := &Config{Name: "tags", Label: "Tags", Kind: KindMultiSelect, Options: plain, IncludeAllWhenEmpty: true}
	pAll := NewParameter(withAll, nil, nil)
	if !pAll.Selection.Empty() {
		t.Fatalf("include-all multi-select should default to empty: %#v", pAll.Selection)
	}
	ids := pAll.SelectedIDs()
	if len(ids) != 2 {
		t.Fatalf("empty include-all selection should expand to all options for children: %#v", ids)
	}

	without := &Config{Name: "tags", Label: "Tags", Kind: KindMultiSelect, Options: plain}
	pFirst := NewParameter(without, nil, nil)
	if len(pFirst.Selection.IDs) != 1 || pFirst.Selection.IDs[0] != "a" {
		t.Fatalf("non-include-all multi-select should fall back to first option: %#v", pFirst.Selection.IDs)
	}
}

func TestSelectedIDs_Semantics(t *testing.T) {
	cfg := singleSelectConfig(t, mustSelect(t, "a", "A", false, Restrict{ParentIDs: []string{"p1"}}))
	unselected := NewParameter(cfg, nil, []string{"nope"})
	ids := unselected.SelectedIDs()
	if ids == nil || len(ids) != 0 {
		t.Fatalf("selection kind with empty selection must return non-nil empty ids: %#v", ids)
	}

	number := numberParameter(t)
	if number.SelectedIDs() != nil {
		t.Fatalf("non-selection kinds must return nil ids")
	}
}

func numberParameter(t *testing.T) Parameter {
	t.Helper()
	opt, err := NewNumberOption(dec("0"), dec("10"), dec("2"), dec("6"), Restrict{})
	if err != nil {
		t.Fatalf("number option: %v", err)
	}
	cfg := &Config{Name: "limit", Label: "Limit", Kind: KindNumber, Options: []Option{opt}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	return NewParameter(cfg, nil, nil)
}

func TestWithSelection_Number(t *testing.T) {
	p := numberParameter(t)
	if p.Selection.Number == nil || !p.Selection.Number.Equal(dec("6")) {
		t.Fatalf("default should be 6: %#v", p.Selection)
	}

	next, err := p.WithSelection("4")
	if err != nil {
		t.Fatalf("selecting 4: %v", err)
	}
	if !next.Selection.Number.Equal(dec("4")) {
		t.Fatalf("selection: %v", next.Selection.Number)
	}

	// Off-increment input fails and leaves the prior parameter untouched.
	if _, err := p.WithSelection("5"); err == nil {
		t.Fatalf("expected error for off-increment value")
	} else {
		var inputErr InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("want InputError, got %T", err)
		}
	}
	if !p.Selection.Number.Equal(dec("6")) {
		t.Fatalf("failed selection must not mutate the receiver: %v", p.Selection.Number)
	}

	if _, err := p.WithSelection("12"); err == nil {
		t.Fatalf("expected error for value above max")
	}
	if _, err := p.WithSelection("abc"); err == nil {
		t.Fatalf("expected error for unparseable value")
	}
}

func TestWithSelection_NumberRange(t *testing.T) {
	opt, err := NewNumberRangeOption(dec("0"), dec("12"), dec("3"), dec("0"), dec("12"), Restrict{})
	if err != nil {
		t.Fatalf("range option: %v", err)
	}
	cfg := &Config{Name: "window", Label: "Window", Kind: KindNumberRange, Options: []Option{opt}}
	p := NewParameter(cfg, nil, nil)

	next, err := p.WithSelection("3,12")
	if err != nil {
		t.Fatalf("selecting 3,12: %v", err)
	}
	if !next.Selection.NumberLower.Equal(dec("3")) || !next.Selection.NumberUpper.Equal(dec("12")) {
		t.Fatalf("range selection: %#v", next.Selection)
	}

	// The upper bound steps from the selected lower bound, not the config
	// minimum: 10 is not reachable from 3 by increments of 3.
	if _, err := p.WithSelection("3,10"); err == nil {
		t.Fatalf("expected error: 10 not reachable from 3 by increments of 3")
	}
	if _, err := p.WithSelection(`["6","3"]`); err == nil {
		t.Fatalf("expected error for inverted pair")
	}
	if _, err := p.WithSelection("3"); err == nil {
		t.Fatalf("expected error for single value")
	}
}

func TestWithSelection_MultiSelectParsing(t *testing.T) {
	cfg := &Config{Name: "tags", Label: "Tags", Kind: KindMultiSelect, Options: []Option{
		mustSelect(t, "a", "A", false, Restrict{}),
		mustSelect(t, "b", "B", false, Restrict{}),
		mustSelect(t, "c", "C", false, Restrict{}),
	}}
	p := NewParameter(cfg, nil, nil)

	fromJSON, err := p.WithSelection(`["c","a"]`)
	if err != nil {
		t.Fatalf("json list: %v", err)
	}
	if len(fromJSON.Selection.IDs) != 2 || fromJSON.Selection.IDs[0] != "c" || fromJSON.Selection.IDs[1] != "a" {
		t.Fatalf("json list should preserve caller order: %#v", fromJSON.Selection.IDs)
	}

	fromCSV, err := p.WithSelection("b, a, b")
	if err != nil {
		t.Fatalf("comma list: %v", err)
	}
	if len(fromCSV.Selection.IDs) != 2 || fromCSV.Selection.IDs[0] != "b" || fromCSV.Selection.IDs[1] != "a" {
		t.Fatalf("comma list should trim and deduplicate: %#v", fromCSV.Selection.IDs)
	}

	if _, err := p.WithSelection(`["a","zzz"]`); err == nil {
		t.Fatalf("expected error for id outside current options")
	}

	cleared, err := p.WithSelection("")
	if err != nil {
		t.Fatalf("empty input: %v", err)
	}
	if len(cleared.Selection.IDs) != 0 {
		t.Fatalf("empty input clears the selection: %#v", cleared.Selection.IDs)
	}
}

func TestWithSelection_SingleSelectMembership(t *testing.T) {
	cfg := singleSelectConfig(t,
		mustSelect(t, "a", "A", false, Restrict{}),
		mustSelect(t, "b", "B", false, Restrict{UserGroups: []string{"org9"}}),
	)
	p := NewParameter(cfg, nil, nil)
	if _, err := p.WithSelection("a"); err != nil {
		t.Fatalf("valid id: %v", err)
	}
	org1 := "org1"
	narrowed := NewParameter(cfg, &org1, nil)
	if _, err := narrowed.WithSelection("b"); err == nil {
		t.Fatalf("expected error: b is not currently valid for org1")
	}
}

func TestWithSelection_Dates(t *testing.T) {
	min, max := day("2024-01-01"), day("2024-12-31")
	opt, err := NewDateOption(day("2024-06-15"), &min, &max, Restrict{})
	if err != nil {
		t.Fatalf("date option: %v", err)
	}
	cfg := &Config{Name: "asof", Label: "As Of", Kind: KindDate, Options: []Option{opt}}
	p := NewParameter(cfg, nil, nil)
	if FormatDate(*p.Selection.Date) != "2024-06-15" {
		t.Fatalf("default date: %v", p.Selection.Date)
	}

	next, err := p.WithSelection("2024-03-01")
	if err != nil {
		t.Fatalf("selecting date: %v", err)
	}
	if FormatDate(*next.Selection.Date) != "2024-03-01" {
		t.Fatalf("selected date: %v", next.Selection.Date)
	}
	if _, err := p.WithSelection("2025-03-01"); err == nil {
		t.Fatalf("expected error for date above max")
	}
	if _, err := p.WithSelection("03/01/2024"); err == nil {
		t.Fatalf("expected error for non-canonical layout")
	}

	rangeOpt, err := NewDateRangeOption(day("2024-01-01"), day("2024-12-31"), Restrict{})
	if err != nil {
		t.Fatalf("date range option: %v", err)
	}
	rangeCfg := &Config{Name: "span", Label: "Span", Kind: KindDateRange, Options: []Option{rangeOpt}}
	rp := NewParameter(rangeCfg, nil, nil)
	picked, err := rp.WithSelection("2024-02-01,2024-02-29")
	if err != nil {
		t.Fatalf("selecting span: %v", err)
	}
	if FormatDate(*picked.Selection.DateLower) != "2024-02-01" || FormatDate(*picked.Selection.DateUpper) != "2024-02-29" {
		t.Fatalf("span selection: %#v", picked.Selection)
	}
	if _, err := rp.WithSelection("2024-03-01,2024-02-01"); err == nil {
		t.Fatalf("expected error for inverted span")
	}
}

func TestWithSelection_Text(t *testing.T) {
	opt, err := NewTextOption("hello", Restrict{})
	if err != nil {
		t.Fatalf("text option: %v", err)
	}
	cfg := &Config{Name: "note", Label: "Note", Kind: KindText, Options: []Option{opt}}
	p := NewParameter(cfg, nil, nil)
	if p.Selection.Text == nil || *p.Selection.Text != "hello" {
		t.Fatalf("default text: %#v", p.Selection.Text)
	}
	next, err := p.WithSelection("anything goes, even commas")
	if err != nil {
		t.Fatalf("text selection: %v", err)
	}
	if *next.Selection.Text != "anything goes, even commas" {
		t.Fatalf("text: %q", *next.Selection.Text)
	}
}

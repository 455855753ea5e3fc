package graph

import (
	"reflect"
	"testing"

	"paramcore/internal/fetch"
	"paramcore/pkg/params"
)

func TestDataSourceResolve_DuplicateRowsUnion(t *testing.T) {
	ds := DataSource{
		Config:     params.Config{Name: "city", Label: "City", Kind: params.KindSingleSelect, UserAttribute: "organization"},
		Connection: "default",
		Query:      "SELECT id, label, grp FROM cities",
		Columns:    ColumnMap{ID: "id", Label: "label", UserGroup: "grp"},
	}
	rows := []fetch.Row{
		{"id": int64(0), "label": "zero", "grp": "org1"},
		{"id": int64(0), "label": "zero", "grp": "org2"},
	}
	cfg, err := ds.Resolve(rows)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(cfg.Options) != 1 {
		t.Fatalf("duplicate ids must collapse into one option: %#v", cfg.Options)
	}
	opt := cfg.Options[0]
	if opt.ID != "0" || opt.Label != "zero" {
		t.Fatalf("option: %#v", opt)
	}
	if !reflect.DeepEqual(opt.UserGroups, []string{"org1", "org2"}) {
		t.Fatalf("user groups must union across rows: %#v", opt.UserGroups)
	}
}

func TestDataSourceResolve_OrderAndDefaults(t *testing.T) {
	ds := DataSource{
		Config:  params.Config{Name: "region", Label: "Region", Kind: params.KindMultiSelect},
		Columns: ColumnMap{ID: "id", Label: "name", Order: "ordering", Default: "is_default"},
	}
	rows := []fetch.Row{
		{"id": "west", "name": "West", "ordering": int64(2), "is_default": int64(0)},
		{"id": "east", "name": "East", "ordering": int64(1), "is_default": int64(1)},
	}
	cfg, err := ds.Resolve(rows)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Options[0].ID != "east" || cfg.Options[1].ID != "west" {
		t.Fatalf("order column must drive sort: %#v", cfg.Options)
	}
	if !cfg.Options[0].Default || cfg.Options[1].Default {
		t.Fatalf("default flags: %#v", cfg.Options)
	}

	// Without an order column the sort falls back to id.
	ds.Columns.Order = ""
	cfg2, err := ds.Resolve(rows)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg2.Options[0].ID != "east" {
		t.Fatalf("id sort fallback: %#v", cfg2.Options)
	}
}

func TestDataSourceResolve_ParentIDsAcrossRows(t *testing.T) {
	ds := DataSource{
		Config:  params.Config{Name: "city", Label: "City", Kind: params.KindSingleSelect, ParentName: "region"},
		Columns: ColumnMap{ID: "id", Label: "label", ParentID: "region_id"},
	}
	rows := []fetch.Row{
		{"id": "springfield", "label": "Springfield", "region_id": "east"},
		{"id": "springfield", "label": "Springfield", "region_id": "west"},
		{"id": "portland", "label": "Portland", "region_id": "west"},
	}
	cfg, err := ds.Resolve(rows)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(cfg.Options) != 2 {
		t.Fatalf("options: %#v", cfg.Options)
	}
	var springfield params.Option
	for _, opt := range cfg.Options {
		if opt.ID == "springfield" {
			springfield = opt
		}
	}
	if !reflect.DeepEqual(springfield.ParentIDs, []string{"east", "west"}) {
		t.Fatalf("parent ids must union across rows: %#v", springfield.ParentIDs)
	}
}

func TestDataSourceResolve_NumberKind(t *testing.T) {
	ds := DataSource{
		Config:  params.Config{Name: "limit", Label: "Limit", Kind: params.KindNumber},
		Columns: ColumnMap{Min: "lo", Max: "hi", Increment: "step", Value: "def"},
	}
	rows := []fetch.Row{{"lo": int64(0), "hi": "10", "step": float64(2), "def": "6"}}
	cfg, err := ds.Resolve(rows)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	opt := cfg.Options[0]
	if opt.Min.String() != "0" || opt.Max.String() != "10" || opt.Increment.String() != "2" || opt.NumberValue.String() != "6" {
		t.Fatalf("number option: %#v", opt)
	}

	// Constructor invariants still apply to fetched values.
	bad := []fetch.Row{{"lo": int64(0), "hi": "10", "step": "3", "def": "0"}}
	if _, err := ds.Resolve(bad); err == nil {
		t.Fatalf("expected error for span off increment grid")
	}
}

func TestDataSourceResolve_DateKind(t *testing.T) {
	ds := DataSource{
		Config:  params.Config{Name: "asof", Label: "As Of", Kind: params.KindDate},
		Columns: ColumnMap{DateValue: "def", MinDate: "lo", MaxDate: "hi"},
	}
	rows := []fetch.Row{{"def": "2024-06-15", "lo": "2024-01-01", "hi": "2024-12-31"}}
	cfg, err := ds.Resolve(rows)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	opt := cfg.Options[0]
	if params.FormatDate(opt.DateValue) != "2024-06-15" {
		t.Fatalf("date option: %#v", opt)
	}
	if opt.MinDate == nil || params.FormatDate(*opt.MinDate) != "2024-01-01" {
		t.Fatalf("min date: %#v", opt.MinDate)
	}
}

func TestDataSourceResolve_UnknownColumn(t *testing.T) {
	ds := DataSource{
		Config:  params.Config{Name: "city", Label: "City", Kind: params.KindSingleSelect},
		Columns: ColumnMap{ID: "id", Label: "missing"},
	}
	_, err := ds.Resolve([]fetch.Row{{"id": "x"}})
	if err == nil {
		t.Fatalf("expected error for unknown column")
	}
	if _, ok := err.(params.ConfigError); !ok {
		t.Fatalf("want ConfigError, got %T", err)
	}
}

package params

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Selection holds the kind-dependent selected value(s) of a live Parameter.
// The zero value is the unselected state. Values are always drawn from the
// parameter's current options, never arbitrary input.
type Selection struct {
	IDs         []string         // selection kinds; single-select holds at most one id
	Date        *time.Time       // date
	DateLower   *time.Time       // date range
	DateUpper   *time.Time       // date range
	Number      *decimal.Decimal // number
	NumberLower *decimal.Decimal // number range
	NumberUpper *decimal.Decimal // number range
	Text        *string          // text
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return len(s.IDs) == 0 && s.Date == nil && s.DateLower == nil && s.DateUpper == nil &&
		s.Number == nil && s.NumberLower == nil && s.NumberUpper == nil && s.Text == nil
}

// Parameter is the live projection of a Config for one user at one point in
// the cascade: the option universe narrowed to what is currently valid, plus
// the current selection. Parameters are values; a selection change produces a
// new Parameter and never mutates the old one.
type Parameter struct {
	Config         *Config
	UserGroup      *string // resolved user attribute value, nil when not applicable
	CurrentOptions []Option
	Selection      Selection
}

// NewParameter projects cfg for the given user group and parent selection.
// selectedParentIDs must be nil when cfg has no parent. The default selection
// is computed from the narrowed options; an empty result is never an error.
func NewParameter(cfg *Config, userGroup *string, selectedParentIDs []string) Parameter {
	current := make([]Option, 0, len(cfg.Options))
	for _, opt := range cfg.Options {
		if opt.IsValid(userGroup, selectedParentIDs) {
			current = append(current, opt)
		}
	}
	p := Parameter{Config: cfg, UserGroup: userGroup, CurrentOptions: current}
	p.Selection = p.defaultSelection()
	return p
}

// ActiveOption returns the option whose declared values drive a non-selection
// parameter: the first currently valid option in declaration order.
func (p Parameter) ActiveOption() (Option, bool) {
	if len(p.CurrentOptions) == 0 {
		return Option{}, false
	}
	return p.CurrentOptions[0], true
}

func (p Parameter) defaultSelection() Selection {
	switch p.Config.Kind {
	case KindSingleSelect:
		for _, opt := range p.CurrentOptions {
			if opt.Default {
				return Selection{IDs: []string{opt.ID}}
			}
		}
		if len(p.CurrentOptions) > 0 {
			return Selection{IDs: []string{p.CurrentOptions[0].ID}}
		}
		return Selection{}
	case KindMultiSelect:
		var ids []string
		for _, opt := range p.CurrentOptions {
			if opt.Default {
				ids = append(ids, opt.ID)
			}
		}
		if len(ids) > 0 {
			return Selection{IDs: ids}
		}
		if p.Config.IncludeAllWhenEmpty || len(p.CurrentOptions) == 0 {
			return Selection{}
		}
		return Selection{IDs: []string{p.CurrentOptions[0].ID}}
	case KindDate:
		if active, ok := p.ActiveOption(); ok {
			d := active.DateValue
			return Selection{Date: &d}
		}
	case KindDateRange:
		if active, ok := p.ActiveOption(); ok {
			lo, hi := active.DateLower, active.DateUpper
			return Selection{DateLower: &lo, DateUpper: &hi}
		}
	case KindNumber:
		if active, ok := p.ActiveOption(); ok {
			v := active.NumberValue
			return Selection{Number: &v}
		}
	case KindNumberRange:
		if active, ok := p.ActiveOption(); ok {
			lo, hi := active.NumberLower, active.NumberUpper
			return Selection{NumberLower: &lo, NumberUpper: &hi}
		}
	case KindText:
		if active, ok := p.ActiveOption(); ok {
			t := active.Text
			return Selection{Text: &t}
		}
	}
	return Selection{}
}

// SelectedIDs returns the ids children narrow against. For a multi-select
// with an empty selection and the include-all flag, the whole current option
// set counts as selected. Non-selection kinds return nil: they cannot act as
// parents.
func (p Parameter) SelectedIDs() []string {
	if !p.Config.Kind.IsSelection() {
		return nil
	}
	if len(p.Selection.IDs) == 0 && p.Config.Kind == KindMultiSelect && p.Config.IncludeAllWhenEmpty {
		ids := make([]string, 0, len(p.CurrentOptions))
		for _, opt := range p.CurrentOptions {
			ids = append(ids, opt.ID)
		}
		return ids
	}
	// Non-nil even when empty: an empty selection restricts children to
	// nothing, whereas nil means no parent dependency at all.
	out := make([]string, 0, len(p.Selection.IDs))
	return append(out, p.Selection.IDs...)
}

// WithSelection parses and validates raw input for the parameter's kind and
// returns a new Parameter carrying the selection. On failure it returns an
// InputError and the zero Parameter; the receiver is never modified.
func (p Parameter) WithSelection(raw string) (Parameter, error) {
	sel, err := p.parseSelection(raw)
	if err != nil {
		return Parameter{}, err
	}
	next := p
	next.Selection = sel
	return next, nil
}

func (p Parameter) parseSelection(raw string) (Selection, error) {
	name := p.Config.Name
	switch p.Config.Kind {
	case KindSingleSelect:
		id := strings.TrimSpace(raw)
		if !p.hasOptionID(id) {
			return Selection{}, Inputf(name, "id %q is not a currently valid option", id)
		}
		return Selection{IDs: []string{id}}, nil

	case KindMultiSelect:
		ids, err := parseIDList(raw)
		if err != nil {
			return Selection{}, Inputf(name, "cannot parse id list: %v", err)
		}
		seen := make(map[string]struct{}, len(ids))
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if !p.hasOptionID(id) {
				return Selection{}, Inputf(name, "id %q is not a currently valid option", id)
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
		return Selection{IDs: out}, nil

	case KindDate:
		active, ok := p.ActiveOption()
		if !ok {
			return Selection{}, Inputf(name, "no active option accepts a date")
		}
		d, err := ParseDate(strings.TrimSpace(raw))
		if err != nil {
			return Selection{}, Inputf(name, "cannot parse date %q: want %s", raw, DateLayout)
		}
		if !dateWithin(d, active.MinDate, active.MaxDate) {
			return Selection{}, Inputf(name, "date %s outside allowed bounds", FormatDate(d))
		}
		return Selection{Date: &d}, nil

	case KindDateRange:
		lowerRaw, upperRaw, err := parsePair(raw)
		if err != nil {
			return Selection{}, Inputf(name, "cannot parse date pair: %v", err)
		}
		lower, err := ParseDate(strings.TrimSpace(lowerRaw))
		if err != nil {
			return Selection{}, Inputf(name, "cannot parse start date %q: want %s", lowerRaw, DateLayout)
		}
		upper, err := ParseDate(strings.TrimSpace(upperRaw))
		if err != nil {
			return Selection{}, Inputf(name, "cannot parse end date %q: want %s", upperRaw, DateLayout)
		}
		if upper.Before(lower) {
			return Selection{}, Inputf(name, "end date precedes start date")
		}
		return Selection{DateLower: &lower, DateUpper: &upper}, nil

	case KindNumber:
		active, ok := p.ActiveOption()
		if !ok {
			return Selection{}, Inputf(name, "no active option accepts a number")
		}
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return Selection{}, Inputf(name, "cannot parse number %q", raw)
		}
		if !onGrid(v, active.Min, active.Max, active.Increment) {
			return Selection{}, Inputf(name, "value %s violates bounds [%s, %s] or increment %s",
				v, active.Min, active.Max, active.Increment)
		}
		return Selection{Number: &v}, nil

	case KindNumberRange:
		active, ok := p.ActiveOption()
		if !ok {
			return Selection{}, Inputf(name, "no active option accepts a number range")
		}
		lowerRaw, upperRaw, err := parsePair(raw)
		if err != nil {
			return Selection{}, Inputf(name, "cannot parse number pair: %v", err)
		}
		lower, err := decimal.NewFromString(strings.TrimSpace(lowerRaw))
		if err != nil {
			return Selection{}, Inputf(name, "cannot parse lower value %q", lowerRaw)
		}
		upper, err := decimal.NewFromString(strings.TrimSpace(upperRaw))
		if err != nil {
			return Selection{}, Inputf(name, "cannot parse upper value %q", upperRaw)
		}
		if !onGrid(lower, active.Min, active.Max, active.Increment) {
			return Selection{}, Inputf(name, "lower value %s violates bounds [%s, %s] or increment %s",
				lower, active.Min, active.Max, active.Increment)
		}
		// The upper bound steps from the selected lower value, not the
		// config's minimum.
		if upper.LessThan(lower) || upper.GreaterThan(active.Max) || !upper.Sub(lower).Mod(active.Increment).IsZero() {
			return Selection{}, Inputf(name, "upper value %s not reachable from %s by increments of %s within max %s",
				upper, lower, active.Increment, active.Max)
		}
		return Selection{NumberLower: &lower, NumberUpper: &upper}, nil

	case KindText:
		return Selection{Text: &raw}, nil

	default:
		return Selection{}, Inputf(name, "unknown parameter kind %q", p.Config.Kind)
	}
}

func (p Parameter) hasOptionID(id string) bool {
	for _, opt := range p.CurrentOptions {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// parseIDList accepts either a JSON string array or a comma-joined list.
// Both encodings occur in the wild among API callers.
func parseIDList(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(trimmed), &ids); err != nil {
			return nil, err
		}
		return ids, nil
	}
	parts := strings.Split(trimmed, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		ids = append(ids, strings.TrimSpace(part))
	}
	return ids, nil
}

// parsePair accepts a two-element JSON string array or "lower,upper".
func parsePair(raw string) (string, string, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		var parts []string
		if err := json.Unmarshal([]byte(trimmed), &parts); err != nil {
			return "", "", err
		}
		if len(parts) != 2 {
			return "", "", fmt.Errorf("want exactly 2 elements, got %d", len(parts))
		}
		return parts[0], parts[1], nil
	}
	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("want exactly 2 comma-separated values, got %d", len(parts))
	}
	return parts[0], parts[1], nil
}

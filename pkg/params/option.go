package params

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical wire format for dates. Every date entering or
// leaving the engine uses this layout.
const DateLayout = "2006-01-02"

// Restrict captures the visibility restrictions shared by every option kind.
// Empty UserGroups means unrestricted; empty ParentIDs means top-level (no
// parent dependency).
type Restrict struct {
	UserGroups []string
	ParentIDs  []string
}

// Option is one selectable or default-bearing unit of a parameter, tagged by
// variant. Only the fields belonging to the variant are populated; all other
// fields stay zero. Options are immutable once constructed: constructors
// enforce the variant invariants and defensively copy their inputs.
type Option struct {
	Kind       OptionKind
	UserGroups []string // sorted, deduplicated
	ParentIDs  []string // sorted, deduplicated

	// select
	ID      string
	Label   string
	Default bool

	// date / date range
	DateValue time.Time
	DateLower time.Time
	DateUpper time.Time
	MinDate   *time.Time
	MaxDate   *time.Time

	// number / number range
	Min          decimal.Decimal
	Max          decimal.Decimal
	Increment    decimal.Decimal
	NumberValue  decimal.Decimal
	NumberLower  decimal.Decimal
	NumberUpper  decimal.Decimal

	// text
	Text string
}

// NewSelectOption constructs a select option with the given id and label.
// isDefault marks the option as a default candidate for its parameter.
func NewSelectOption(id, label string, isDefault bool, r Restrict) (Option, error) {
	if id == "" {
		return Option{}, ConfigError{Message: "select option id required"}
	}
	return Option{
		Kind:       OptionSelect,
		ID:         id,
		Label:      label,
		Default:    isDefault,
		UserGroups: normalizeSet(r.UserGroups),
		ParentIDs:  normalizeSet(r.ParentIDs),
	}, nil
}

// NewDateOption constructs a date option with a default value and optional
// inclusive bounds. Bounds must be ordered and must contain the value.
func NewDateOption(value time.Time, minDate, maxDate *time.Time, r Restrict) (Option, error) {
	value = NormalizeDate(value)
	opt := Option{
		Kind:       OptionDate,
		DateValue:  value,
		UserGroups: normalizeSet(r.UserGroups),
		ParentIDs:  normalizeSet(r.ParentIDs),
	}
	if minDate != nil {
		d := NormalizeDate(*minDate)
		opt.MinDate = &d
	}
	if maxDate != nil {
		d := NormalizeDate(*maxDate)
		opt.MaxDate = &d
	}
	if opt.MinDate != nil && opt.MaxDate != nil && opt.MaxDate.Before(*opt.MinDate) {
		return Option{}, ConfigError{Message: "date bounds out of order"}
	}
	if !dateWithin(value, opt.MinDate, opt.MaxDate) {
		return Option{}, ConfigError{Message: "default date outside declared bounds"}
	}
	return opt, nil
}

// NewDateRangeOption constructs a date-range option whose default spans
// [lower, upper]. The pair must be ordered.
func NewDateRangeOption(lower, upper time.Time, r Restrict) (Option, error) {
	lower = NormalizeDate(lower)
	upper = NormalizeDate(upper)
	if upper.Before(lower) {
		return Option{}, ConfigError{Message: "date range defaults out of order"}
	}
	return Option{
		Kind:       OptionDateRange,
		DateLower:  lower,
		DateUpper:  upper,
		UserGroups: normalizeSet(r.UserGroups),
		ParentIDs:  normalizeSet(r.ParentIDs),
	}, nil
}

// NewNumberOption constructs a number option. min must not exceed max, the
// span must be a whole multiple of increment, and the default must itself lie
// on the increment grid within bounds.
func NewNumberOption(min, max, increment, def decimal.Decimal, r Restrict) (Option, error) {
	if err := checkNumberGrid(min, max, increment); err != nil {
		return Option{}, err
	}
	if !onGrid(def, min, max, increment) {
		return Option{}, ConfigError{Message: "default value violates bounds or increment"}
	}
	return Option{
		Kind:        OptionNumber,
		Min:         min,
		Max:         max,
		Increment:   increment,
		NumberValue: def,
		UserGroups:  normalizeSet(r.UserGroups),
		ParentIDs:   normalizeSet(r.ParentIDs),
	}, nil
}

// NewNumberRangeOption constructs a number-range option. Both defaults must
// lie on the increment grid, and the lower default must not exceed the upper.
func NewNumberRangeOption(min, max, increment, defLower, defUpper decimal.Decimal, r Restrict) (Option, error) {
	if err := checkNumberGrid(min, max, increment); err != nil {
		return Option{}, err
	}
	if !onGrid(defLower, min, max, increment) || !onGrid(defUpper, min, max, increment) {
		return Option{}, ConfigError{Message: "range default violates bounds or increment"}
	}
	if defUpper.LessThan(defLower) {
		return Option{}, ConfigError{Message: "range defaults out of order"}
	}
	return Option{
		Kind:        OptionNumberRange,
		Min:         min,
		Max:         max,
		Increment:   increment,
		NumberLower: defLower,
		NumberUpper: defUpper,
		UserGroups:  normalizeSet(r.UserGroups),
		ParentIDs:   normalizeSet(r.ParentIDs),
	}, nil
}

// NewTextOption constructs a free-text option carrying a default entry.
func NewTextOption(def string, r Restrict) (Option, error) {
	return Option{
		Kind:       OptionText,
		Text:       def,
		UserGroups: normalizeSet(r.UserGroups),
		ParentIDs:  normalizeSet(r.ParentIDs),
	}, nil
}

// IsValid reports whether the option is visible for the given user group and
// selected parent ids. A nil userGroup or nil selectedParentIDs means the
// corresponding restriction does not apply to the owning parameter and is
// never treated as a restriction. A non-nil but empty selectedParentIDs set
// is disjoint from everything and hides every option.
func (o Option) IsValid(userGroup *string, selectedParentIDs []string) bool {
	if userGroup != nil && len(o.UserGroups) > 0 && !containsString(o.UserGroups, *userGroup) {
		return false
	}
	if selectedParentIDs != nil && disjoint(o.ParentIDs, selectedParentIDs) {
		return false
	}
	return true
}

// NormalizeDate truncates t to midnight UTC so dates compare and serialize
// independently of their source location and clock component.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a canonical YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders t in the canonical YYYY-MM-DD layout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func dateWithin(t time.Time, min, max *time.Time) bool {
	if min != nil && t.Before(*min) {
		return false
	}
	if max != nil && t.After(*max) {
		return false
	}
	return true
}

func checkNumberGrid(min, max, increment decimal.Decimal) error {
	if max.LessThan(min) {
		return ConfigError{Message: "numeric bounds out of order"}
	}
	if !increment.IsPositive() {
		return ConfigError{Message: "numeric increment must be positive"}
	}
	if !max.Sub(min).Mod(increment).IsZero() {
		return ConfigError{Message: "numeric span is not a whole multiple of increment"}
	}
	return nil
}

// onGrid reports whether v lies within [min, max] and is reachable from min
// by whole multiples of increment.
func onGrid(v, min, max, increment decimal.Decimal) bool {
	if v.LessThan(min) || v.GreaterThan(max) {
		return false
	}
	return v.Sub(min).Mod(increment).IsZero()
}

func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, target string) bool {
	for _, candidate := range list {
		if candidate == target {
			return true
		}
	}
	return false
}

func disjoint(a, b []string) bool {
	for _, v := range a {
		if containsString(b, v) {
			return false
		}
	}
	return true
}

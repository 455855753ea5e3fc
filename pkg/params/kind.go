// Package params defines the parameter option variants, declarations, live
// projections, and cascading selection primitives used by paramcore.
package params

// Kind identifies the user-facing behaviour of a parameter.
type Kind string

// Supported parameter kinds. Single- and multi-select share the select option
// variant; every other kind pairs with its own option variant.
const (
	// KindSingleSelect renders a dropdown accepting exactly one option id.
	KindSingleSelect Kind = "single_select"
	// KindMultiSelect renders a list accepting zero or more option ids.
	KindMultiSelect Kind = "multi_select"
	// KindDate accepts one calendar date.
	KindDate Kind = "date"
	// KindDateRange accepts an ordered pair of calendar dates.
	KindDateRange Kind = "date_range"
	// KindNumber accepts one decimal value on a bounded increment grid.
	KindNumber Kind = "number"
	// KindNumberRange accepts an ordered pair of decimal values.
	KindNumberRange Kind = "number_range"
	// KindText accepts free-form text.
	KindText Kind = "text"
)

// Valid reports whether k names a supported parameter kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSingleSelect, KindMultiSelect, KindDate, KindDateRange,
		KindNumber, KindNumberRange, KindText:
		return true
	}
	return false
}

// IsSelection reports whether k is a selection kind. Only selection-kind
// parameters may act as cascade parents.
func (k Kind) IsSelection() bool {
	return k == KindSingleSelect || k == KindMultiSelect
}

// OptionKind identifies the option variant carried by a parameter.
type OptionKind string

// Option variants. The select variant serves both selection parameter kinds.
const (
	OptionSelect      OptionKind = "select"
	OptionDate        OptionKind = "date"
	OptionDateRange   OptionKind = "date_range"
	OptionNumber      OptionKind = "number"
	OptionNumberRange OptionKind = "number_range"
	OptionText        OptionKind = "text"
)

// OptionKind returns the option variant paired with the parameter kind. The
// switch is exhaustive over Kind so a new kind cannot be added without
// declaring its option pairing.
func (k Kind) OptionKind() OptionKind {
	switch k {
	case KindSingleSelect, KindMultiSelect:
		return OptionSelect
	case KindDate:
		return OptionDate
	case KindDateRange:
		return OptionDateRange
	case KindNumber:
		return OptionNumber
	case KindNumberRange:
		return OptionNumberRange
	case KindText:
		return OptionText
	default:
		return ""
	}
}

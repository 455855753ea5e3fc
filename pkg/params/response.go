package params

// ResponseVersion tags response documents for forward compatibility.
const ResponseVersion = 1

// Response is the serializable projection of a Set, suitable for direct JSON
// encoding by serving layers.
type Response struct {
	ResponseVersion int               `json:"response_version"`
	Parameters      []ParameterRecord `json:"parameters"`
}

// OptionRecord is the id+label pair exposed for selection options.
type OptionRecord struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ParameterRecord is one kind-tagged entry of a Response. Only the fields
// belonging to the parameter's kind are populated. Dates serialize as
// YYYY-MM-DD and numbers as exact decimal text.
type ParameterRecord struct {
	Kind           Kind   `json:"kind"`
	Name           string `json:"name"`
	Label          string `json:"label"`
	Description    string `json:"description"`
	TriggerRefresh bool   `json:"trigger_refresh"`

	// selection kinds
	Options             []OptionRecord `json:"options,omitempty"`
	SelectedID          string         `json:"selected_id,omitempty"`
	SelectedIDs         []string       `json:"selected_ids,omitempty"`
	IncludeAllWhenEmpty bool           `json:"include_all_when_empty,omitempty"`
	OrderMatters        bool           `json:"order_matters,omitempty"`

	// date kinds
	MinDate           string `json:"min_date,omitempty"`
	MaxDate           string `json:"max_date,omitempty"`
	SelectedDate      string `json:"selected_date,omitempty"`
	SelectedStartDate string `json:"selected_start_date,omitempty"`
	SelectedEndDate   string `json:"selected_end_date,omitempty"`

	// number kinds
	MinValue           string `json:"min_value,omitempty"`
	MaxValue           string `json:"max_value,omitempty"`
	Increment          string `json:"increment,omitempty"`
	SelectedValue      string `json:"selected_value,omitempty"`
	SelectedLowerValue string `json:"selected_lower_value,omitempty"`
	SelectedUpperValue string `json:"selected_upper_value,omitempty"`

	// text
	EnteredText *string `json:"entered_text,omitempty"`
}

// ToResponse serializes the set. Hidden parameters are omitted unless debug
// is set.
func (s Set) ToResponse(debug bool) Response {
	records := make([]ParameterRecord, 0, len(s.names))
	for _, name := range s.names {
		p := s.byName[name]
		if p.Config.Hidden && !debug {
			continue
		}
		records = append(records, p.Record())
	}
	return Response{ResponseVersion: ResponseVersion, Parameters: records}
}

// Record builds the kind-tagged response entry for the parameter.
func (p Parameter) Record() ParameterRecord {
	cfg := p.Config
	rec := ParameterRecord{
		Kind:           cfg.Kind,
		Name:           cfg.Name,
		Label:          cfg.Label,
		Description:    cfg.Description,
		TriggerRefresh: cfg.TriggerRefresh,
	}
	switch cfg.Kind {
	case KindSingleSelect:
		rec.Options = optionRecords(p.CurrentOptions)
		if len(p.Selection.IDs) > 0 {
			rec.SelectedID = p.Selection.IDs[0]
		}
	case KindMultiSelect:
		rec.Options = optionRecords(p.CurrentOptions)
		rec.SelectedIDs = append([]string(nil), p.Selection.IDs...)
		rec.IncludeAllWhenEmpty = cfg.IncludeAllWhenEmpty
		rec.OrderMatters = cfg.OrderMatters
	case KindDate:
		if active, ok := p.ActiveOption(); ok {
			if active.MinDate != nil {
				rec.MinDate = FormatDate(*active.MinDate)
			}
			if active.MaxDate != nil {
				rec.MaxDate = FormatDate(*active.MaxDate)
			}
		}
		if p.Selection.Date != nil {
			rec.SelectedDate = FormatDate(*p.Selection.Date)
		}
	case KindDateRange:
		if p.Selection.DateLower != nil {
			rec.SelectedStartDate = FormatDate(*p.Selection.DateLower)
		}
		if p.Selection.DateUpper != nil {
			rec.SelectedEndDate = FormatDate(*p.Selection.DateUpper)
		}
	case KindNumber:
		if active, ok := p.ActiveOption(); ok {
			rec.MinValue = active.Min.String()
			rec.MaxValue = active.Max.String()
			rec.Increment = active.Increment.String()
		}
		if p.Selection.Number != nil {
			rec.SelectedValue = p.Selection.Number.String()
		}
	case KindNumberRange:
		if active, ok := p.ActiveOption(); ok {
			rec.MinValue = active.Min.String()
			rec.MaxValue = active.Max.String()
			rec.Increment = active.Increment.String()
		}
		if p.Selection.NumberLower != nil {
			rec.SelectedLowerValue = p.Selection.NumberLower.String()
		}
		if p.Selection.NumberUpper != nil {
			rec.SelectedUpperValue = p.Selection.NumberUpper.String()
		}
	case KindText:
		rec.EnteredText = p.Selection.Text
	}
	return rec
}

func optionRecords(options []Option) []OptionRecord {
	out := make([]OptionRecord, 0, len(options))
	for _, opt := range options {
		out = append(out, OptionRecord{ID: opt.ID, Label: opt.Label})
	}
	return out
}

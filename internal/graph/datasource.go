package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"paramcore/internal/fetch"
	"paramcore/pkg/params"
)

// ColumnMap names the row columns a DataSource reads. Only the columns the
// target kind needs are consulted; the rest may stay empty. An empty column
// name means "not provided" for optional columns and is a configuration error
// for required ones.
type ColumnMap struct {
	ID        string
	Label     string
	Order     string
	Default   string
	UserGroup string
	ParentID  string

	DateValue string
	DateLower string
	DateUpper string
	MinDate   string
	MaxDate   string

	Value      string
	LowerValue string
	UpperValue string
	Min        string
	Max        string
	Increment  string

	Text string
}

// DataSource defers a config's option universe to a query. Config carries the
// identity, kind, and flags of the eventual declaration but no options;
// Resolve fills them in from fetched rows.
type DataSource struct {
	Config     params.Config
	Connection string
	Query      string
	Columns    ColumnMap
}

type rowGroup struct {
	first      fetch.Row
	userGroups []string
	parentIDs  []string
}

func (g *rowGroup) addSets(groups, parents string) {
	if groups != "" && !containsStr(g.userGroups, groups) {
		g.userGroups = append(g.userGroups, groups)
	}
	if parents != "" && !containsStr(g.parentIDs, parents) {
		g.parentIDs = append(g.parentIDs, parents)
	}
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Resolve turns fetched rows into the fully declared config. Rows are grouped
// by the id column; the first row of each group supplies the descriptive
// columns while the user-group and parent-id columns are unioned across the
// whole group, so one logical option can belong to several groups or parents
// via duplicate source rows. Options sort by the order column when mapped,
// else by id.
func (ds DataSource) Resolve(rows []fetch.Row) (params.Config, error) {
	name := ds.Config.Name
	var keys []string
	groups := make(map[string]*rowGroup)
	for i, row := range rows {
		key := strconv.Itoa(i)
		if ds.Columns.ID != "" {
			id, err := ds.cellString(row, ds.Columns.ID)
			if err != nil {
				return params.Config{}, err
			}
			key = id
		}
		grp, ok := groups[key]
		if !ok {
			grp = &rowGroup{first: row}
			groups[key] = grp
			keys = append(keys, key)
		}
		userGroup, parentID, err := ds.restrictCells(row)
		if err != nil {
			return params.Config{}, err
		}
		grp.addSets(userGroup, parentID)
	}

	ordered, err := ds.sortKeys(keys, groups)
	if err != nil {
		return params.Config{}, err
	}

	options := make([]params.Option, 0, len(ordered))
	for _, key := range ordered {
		grp := groups[key]
		opt, err := ds.buildOption(key, grp)
		if err != nil {
			return params.Config{}, err
		}
		options = append(options, opt)
	}

	cfg := ds.Config
	cfg.Options = options
	if err := cfg.Validate(); err != nil {
		return params.Config{}, err
	}
	if name == "" {
		return params.Config{}, params.ConfigError{Message: "data source config name required"}
	}
	return cfg, nil
}

func (ds DataSource) sortKeys(keys []string, groups map[string]*rowGroup) ([]string, error) {
	if ds.Columns.Order == "" {
		sorted := make([]string, len(keys))
		copy(sorted, keys)
		sort.Strings(sorted)
		return sorted, nil
	}
	type keyed struct {
		key   string
		order decimal.Decimal
	}
	ranked := make([]keyed, 0, len(keys))
	for _, key := range keys {
		v, err := ds.cellDecimal(groups[key].first, ds.Columns.Order)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, keyed{key: key, order: v})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].order.LessThan(ranked[j].order)
	})
	out := make([]string, 0, len(ranked))
	for _, k := range ranked {
		out = append(out, k.key)
	}
	return out, nil
}

func (ds DataSource) buildOption(id string, grp *rowGroup) (params.Option, error) {
	row := grp.first
	restrict := params.Restrict{UserGroups: grp.userGroups, ParentIDs: grp.parentIDs}
	switch ds.Config.Kind {
	case params.KindSingleSelect, params.KindMultiSelect:
		label := id
		if ds.Columns.Label != "" {
			v, err := ds.cellString(row, ds.Columns.Label)
			if err != nil {
				return params.Option{}, err
			}
			label = v
		}
		isDefault := false
		if ds.Columns.Default != "" {
			v, err := ds.cellBool(row, ds.Columns.Default)
			if err != nil {
				return params.Option{}, err
			}
			isDefault = v
		}
		return params.NewSelectOption(id, label, isDefault, restrict)

	case params.KindDate:
		value, err := ds.requireDate(row, ds.Columns.DateValue, "date value")
		if err != nil {
			return params.Option{}, err
		}
		minDate, err := ds.optionalDate(row, ds.Columns.MinDate)
		if err != nil {
			return params.Option{}, err
		}
		maxDate, err := ds.optionalDate(row, ds.Columns.MaxDate)
		if err != nil {
			return params.Option{}, err
		}
		return params.NewDateOption(value, minDate, maxDate, restrict)

	case params.KindDateRange:
		lower, err := ds.requireDate(row, ds.Columns.DateLower, "lower date")
		if err != nil {
			return params.Option{}, err
		}
		upper, err := ds.requireDate(row, ds.Columns.DateUpper, "upper date")
		if err != nil {
			return params.Option{}, err
		}
		return params.NewDateRangeOption(lower, upper, restrict)

	case params.KindNumber:
		min, max, inc, err := ds.numberGrid(row)
		if err != nil {
			return params.Option{}, err
		}
		value := min
		if ds.Columns.Value != "" {
			value, err = ds.cellDecimal(row, ds.Columns.Value)
			if err != nil {
				return params.Option{}, err
			}
		}
		return params.NewNumberOption(min, max, inc, value, restrict)

	case params.KindNumberRange:
		min, max, inc, err := ds.numberGrid(row)
		if err != nil {
			return params.Option{}, err
		}
		lower, upper := min, max
		if ds.Columns.LowerValue != "" {
			lower, err = ds.cellDecimal(row, ds.Columns.LowerValue)
			if err != nil {
				return params.Option{}, err
			}
		}
		if ds.Columns.UpperValue != "" {
			upper, err = ds.cellDecimal(row, ds.Columns.UpperValue)
			if err != nil {
				return params.Option{}, err
			}
		}
		return params.NewNumberRangeOption(min, max, inc, lower, upper, restrict)

	case params.KindText:
		text := ""
		if ds.Columns.Text != "" {
			v, err := ds.cellString(row, ds.Columns.Text)
			if err != nil {
				return params.Option{}, err
			}
			text = v
		}
		return params.NewTextOption(text, restrict)

	default:
		return params.Option{}, params.Configf(ds.Config.Name, "unknown target kind %q", ds.Config.Kind)
	}
}

func (ds DataSource) numberGrid(row fetch.Row) (min, max, inc decimal.Decimal, err error) {
	name := ds.Config.Name
	if ds.Columns.Min == "" || ds.Columns.Max == "" {
		return min, max, inc, params.Configf(name, "min and max columns required for %s data source", ds.Config.Kind)
	}
	if min, err = ds.cellDecimal(row, ds.Columns.Min); err != nil {
		return min, max, inc, err
	}
	if max, err = ds.cellDecimal(row, ds.Columns.Max); err != nil {
		return min, max, inc, err
	}
	inc = decimal.NewFromInt(1)
	if ds.Columns.Increment != "" {
		if inc, err = ds.cellDecimal(row, ds.Columns.Increment); err != nil {
			return min, max, inc, err
		}
	}
	return min, max, inc, nil
}

func (ds DataSource) restrictCells(row fetch.Row) (userGroup, parentID string, err error) {
	if ds.Columns.UserGroup != "" {
		if userGroup, err = ds.cellString(row, ds.Columns.UserGroup); err != nil {
			return "", "", err
		}
	}
	if ds.Columns.ParentID != "" {
		if parentID, err = ds.cellString(row, ds.Columns.ParentID); err != nil {
			return "", "", err
		}
	}
	return userGroup, parentID, nil
}

func (ds DataSource) requireDate(row fetch.Row, col, what string) (time.Time, error) {
	if col == "" {
		return time.Time{}, params.Configf(ds.Config.Name, "%s column required for %s data source", what, ds.Config.Kind)
	}
	d, err := ds.optionalDate(row, col)
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return time.Time{}, params.Configf(ds.Config.Name, "column %q holds no %s", col, what)
	}
	return *d, nil
}

func (ds DataSource) optionalDate(row fetch.Row, col string) (*time.Time, error) {
	if col == "" {
		return nil, nil
	}
	v, ok := row[col]
	if !ok {
		return nil, params.Configf(ds.Config.Name, "unknown column %q in fetched rows", col)
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		d := params.NormalizeDate(t)
		return &d, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		d, err := params.ParseDate(strings.TrimSpace(t))
		if err != nil {
			return nil, params.Configf(ds.Config.Name, "column %q: cannot parse date %q", col, t)
		}
		return &d, nil
	default:
		return nil, params.Configf(ds.Config.Name, "column %q: cannot read %T as date", col, v)
	}
}

func (ds DataSource) cellString(row fetch.Row, col string) (string, error) {
	v, ok := row[col]
	if !ok {
		return "", params.Configf(ds.Config.Name, "unknown column %q in fetched rows", col)
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case time.Time:
		return params.FormatDate(t), nil
	default:
		return fmt.Sprint(t), nil
	}
}

func (ds DataSource) cellBool(row fetch.Row, col string) (bool, error) {
	v, ok := row[col]
	if !ok {
		return false, params.Configf(ds.Config.Name, "unknown column %q in fetched rows", col)
	}
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	case float64:
		return t != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, params.Configf(ds.Config.Name, "column %q: cannot read %q as bool", col, t)
		}
		return b, nil
	default:
		return false, params.Configf(ds.Config.Name, "column %q: cannot read %T as bool", col, v)
	}
}

func (ds DataSource) cellDecimal(row fetch.Row, col string) (decimal.Decimal, error) {
	v, ok := row[col]
	if !ok {
		return decimal.Decimal{}, params.Configf(ds.Config.Name, "unknown column %q in fetched rows", col)
	}
	switch t := v.(type) {
	case int64:
		return decimal.NewFromInt(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Decimal{}, params.Configf(ds.Config.Name, "column %q: cannot read %q as number", col, t)
		}
		return d, nil
	case []byte:
		d, err := decimal.NewFromString(strings.TrimSpace(string(t)))
		if err != nil {
			return decimal.Decimal{}, params.Configf(ds.Config.Name, "column %q: cannot read %q as number", col, t)
		}
		return d, nil
	default:
		return decimal.Decimal{}, params.Configf(ds.Config.Name, "column %q: cannot read %T as number", col, v)
	}
}

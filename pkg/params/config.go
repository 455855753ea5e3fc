package params

// Config is the immutable declaration of one parameter: identity, the full
// option universe, and its dependency edges. Configs are built once at
// project load and shared read-only across requests.
type Config struct {
	// Name is the unique registry key.
	Name        string
	Label       string
	Description string
	Kind        Kind

	// Options is the ordered option universe, regardless of the requesting
	// user or any parent selection.
	Options []Option

	// UserAttribute names the user field whose value is matched against each
	// option's UserGroups. Empty means unrestricted.
	UserAttribute string

	// ParentName names the selection-kind config this one cascades from.
	// Empty means top-level.
	ParentName string

	// Hidden parameters are omitted from responses unless debug is requested.
	Hidden bool

	// IncludeAllWhenEmpty treats an empty multi-select selection as "all
	// current options" when children narrow against it.
	IncludeAllWhenEmpty bool

	// OrderMatters marks a multi-select whose selection order is significant
	// to downstream consumers.
	OrderMatters bool

	// TriggerRefresh is set by the registry when another config declares this
	// one as its parent; consumers must re-query after changing it.
	TriggerRefresh bool
}

// Validate checks the structural invariants local to a single declaration.
// Cross-config invariants (parent resolution, sibling parent-id ambiguity)
// belong to the registry.
func (c Config) Validate() error {
	if c.Name == "" {
		return ConfigError{Message: "config name required"}
	}
	if c.Label == "" {
		return Configf(c.Name, "label required")
	}
	if !c.Kind.Valid() {
		return Configf(c.Name, "unknown kind %q", c.Kind)
	}
	want := c.Kind.OptionKind()
	for i, opt := range c.Options {
		if opt.Kind != want {
			return Configf(c.Name, "option %d has kind %s, config kind %s expects %s", i, opt.Kind, c.Kind, want)
		}
	}
	if c.IncludeAllWhenEmpty && c.Kind != KindMultiSelect {
		return Configf(c.Name, "include-all-when-empty applies to multi-select only")
	}
	if c.OrderMatters && c.Kind != KindMultiSelect {
		return Configf(c.Name, "order-matters applies to multi-select only")
	}
	if c.ParentName == c.Name && c.Name != "" {
		return Configf(c.Name, "config cannot be its own parent")
	}
	// A non-selection parameter resolves to exactly one active option; without
	// a parent edge or user attribute to disambiguate, more than one literal
	// option can never be narrowed down.
	if !c.Kind.IsSelection() && c.Kind != KindText && c.ParentName == "" && c.UserAttribute == "" && len(c.Options) > 1 {
		return Configf(c.Name, "%s config without parent or user attribute must declare a single option", c.Kind)
	}
	return nil
}

// CloneOptions returns a defensive copy of the option universe.
func (c Config) CloneOptions() []Option {
	if len(c.Options) == 0 {
		return nil
	}
	out := make([]Option, len(c.Options))
	copy(out, c.Options)
	return out
}

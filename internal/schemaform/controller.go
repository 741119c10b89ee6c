package schemaform

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the lifecycle position of a form instance.
type State int

const (
	// StateLoading means the schema has not arrived yet; no field
	// operations are possible.
	StateLoading State = iota
	// StateReady means the schema is available and the value populated.
	StateReady
	// StateSubmitting means a save or test call is in flight. Field
	// mutations are still accepted; re-entrant save/test calls are not.
	StateSubmitting
	// StateLoadError is terminal until a fresh Initialize: the schema
	// fetch failed.
	StateLoadError
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateLoadError:
		return "load_error"
	default:
		return "loading"
	}
}

var (
	// ErrNotReady is returned when a submission is attempted before the
	// schema loaded or after a load failure.
	ErrNotReady = errors.New("form is not ready")
	// ErrInvalid is returned when a submission is attempted while the
	// validator reports errors. No save or test event fires.
	ErrInvalid = errors.New("configuration has validation errors")
)

// Saver persists a valid configuration. It is an external collaborator:
// the controller only serializes calls to it and forwards its error
// unchanged.
type Saver interface {
	SaveConfig(ctx context.Context, pluginID string, value Value) error
}

// Tester exercises a candidate configuration against the live integration.
type Tester interface {
	TestConfig(ctx context.Context, pluginID string, value Value) (*TestResult, error)
}

// TestResult is the outcome of a configuration test.
type TestResult struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// Controller threads the schema model, synthesizer, codec and validator
// together for one plugin configuration form. It is an explicit value:
// many controllers can exist side by side and none touches global state.
type Controller struct {
	mu sync.Mutex

	pluginID string
	state    State
	loadErr  error

	schema *Schema
	value  Value
	stored Value // configuration loaded at open time, nil if never configured
	fields map[string]*FieldState
	errs   []ValidationError
}

// NewController creates a controller in the Loading state for one plugin.
func NewController(pluginID string) *Controller {
	return &Controller{
		pluginID: pluginID,
		state:    StateLoading,
		fields:   make(map[string]*FieldState),
	}
}

// PluginID returns the plugin this form configures.
func (c *Controller) PluginID() string { return c.pluginID }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LoadError returns the schema fetch failure, if any.
func (c *Controller) LoadError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Initialize installs the schema and seeds the configuration value: the
// existing stored configuration when one is given, else the synthesized
// defaults. All transient field state is cleared.
func (c *Controller) Initialize(s *Schema, existing Value) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.schema = s
	c.loadErr = nil
	c.fields = make(map[string]*FieldState)
	if existing != nil {
		c.stored = existing.Clone()
		c.value = existing.Clone()
	} else {
		c.stored = nil
		c.value = DefaultValue(s)
	}
	c.state = StateReady
	c.revalidate()
}

// FailLoad records a schema fetch failure. The form stays unusable until a
// fresh Initialize.
func (c *Controller) FailLoad(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateLoadError
	c.loadErr = err
}

// Value returns a copy of the current configuration value.
func (c *Controller) Value() Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value.Clone()
}

// Errors returns the ordered validation messages for the current value.
func (c *Controller) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Messages(c.errs)
}

// IsValid reports whether the validator's list is empty.
func (c *Controller) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs) == 0
}

// SetField routes a raw edited value through the codec for the field's
// type, installs a whole new configuration value, revalidates, and returns
// the updated value. Unknown fields and non-editable states are no-ops.
func (c *Controller) SetField(name string, raw any) Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.editableField(name)
	if !ok {
		return c.value.Clone()
	}

	next := c.value.Clone()
	next[name] = CoerceField(p, raw)
	c.value = next
	c.markDirty(name)
	c.revalidate()
	return c.value.Clone()
}

// SetFieldText buffers raw JSON text typed into an object field. The
// canonical value updates only when the text parses; an unparseable
// buffer is retained for display and surfaces through validation.
func (c *Controller) SetFieldText(name, text string) Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.editableField(name)
	if !ok || p.Type != TypeObject {
		return c.value.Clone()
	}

	fs := c.fieldState(name)
	fs.Dirty = true

	if m, parsed := ParseObject(text); parsed {
		next := c.value.Clone()
		next[name] = m
		c.value = next
		fs.Editing = false
		fs.EditedText = ""
	} else {
		fs.Editing = true
		fs.EditedText = text
	}

	c.revalidate()
	return c.value.Clone()
}

// FieldText returns the editable text of an object field: the retained
// buffer while an edit is in progress, else the pretty-printed canonical
// value.
func (c *Controller) FieldText(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fs, ok := c.fields[name]; ok && fs.Editing {
		return fs.EditedText
	}
	return FormatObject(c.value[name])
}

// AddArrayItem appends one default item to an array field.
func (c *Controller) AddArrayItem(name string) Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.editableField(name)
	if !ok || p.Type != TypeArray {
		return c.value.Clone()
	}

	next := c.value.Clone()
	next[name] = AppendArrayItem(p, currentArray(next[name]))
	c.value = next
	c.markDirty(name)
	c.revalidate()
	return c.value.Clone()
}

// RemoveArrayItem deletes the item at index i from an array field.
func (c *Controller) RemoveArrayItem(name string, i int) Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.editableField(name)
	if !ok || p.Type != TypeArray {
		return c.value.Clone()
	}

	next := c.value.Clone()
	next[name] = RemoveArrayItem(currentArray(next[name]), i)
	c.value = next
	c.markDirty(name)
	c.revalidate()
	return c.value.Clone()
}

// SetArrayItem replaces the item at index i of an array field with the
// coded form of raw.
func (c *Controller) SetArrayItem(name string, i int, raw any) Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.editableField(name)
	if !ok || p.Type != TypeArray {
		return c.value.Clone()
	}

	next := c.value.Clone()
	next[name] = SetArrayItem(p, currentArray(next[name]), i, raw)
	c.value = next
	c.markDirty(name)
	c.revalidate()
	return c.value.Clone()
}

// ApplyTemplate wholesale-replaces the configuration value with a provided
// example document and revalidates. Every schema-known field is routed
// through the codec, so a document with the wrong runtime shapes (string
// digits in a numeric field, say) lands coerced and range-checked rather
// than verbatim.
func (c *Controller) ApplyTemplate(example Value) Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.editable() {
		return c.value.Clone()
	}

	next := example.Clone()
	for i := range c.schema.Properties {
		p := &c.schema.Properties[i]
		if raw, ok := next[p.Name]; ok {
			next[p.Name] = CoerceField(p, raw)
		}
	}
	c.value = next
	c.fields = make(map[string]*FieldState)
	c.revalidate()
	return c.value.Clone()
}

// GenerateDefaults destructively replaces the entire configuration value
// with synthesized defaults.
func (c *Controller) GenerateDefaults() Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.editable() {
		return c.value.Clone()
	}

	c.value = DefaultValue(c.schema)
	c.fields = make(map[string]*FieldState)
	c.revalidate()
	return c.value.Clone()
}

// Reset restores the stored configuration loaded at open time; for a
// never-configured plugin it behaves like GenerateDefaults.
func (c *Controller) Reset() Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.editable() {
		return c.value.Clone()
	}

	if c.stored != nil {
		c.value = c.stored.Clone()
	} else {
		c.value = DefaultValue(c.schema)
	}
	c.fields = make(map[string]*FieldState)
	c.revalidate()
	return c.value.Clone()
}

// Save hands the configuration to the Saver collaborator. It is a no-op
// while another save or test is in flight, fails fast when the validator
// is unhappy, and forwards the collaborator's error unchanged. The stored
// configuration snapshot advances on success so a later Reset restores
// what was saved.
func (c *Controller) Save(ctx context.Context, saver Saver) error {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return nil
	}
	if c.state != StateReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	if len(c.errs) != 0 {
		c.mu.Unlock()
		return ErrInvalid
	}
	c.state = StateSubmitting
	value := c.value.Clone()
	c.mu.Unlock()

	err := saver.SaveConfig(ctx, c.pluginID, value)

	c.mu.Lock()
	c.state = StateReady
	if err == nil {
		c.stored = value
	}
	c.mu.Unlock()
	return err
}

// Test hands the configuration to the Tester collaborator under the same
// gating as Save.
func (c *Controller) Test(ctx context.Context, tester Tester) (*TestResult, error) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return nil, nil
	}
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	if len(c.errs) != 0 {
		c.mu.Unlock()
		return nil, ErrInvalid
	}
	c.state = StateSubmitting
	value := c.value.Clone()
	c.mu.Unlock()

	result, err := tester.TestConfig(ctx, c.pluginID, value)

	c.mu.Lock()
	c.state = StateReady
	c.mu.Unlock()
	return result, err
}

// editableField resolves a schema property when field mutations are
// permitted in the current state.
func (c *Controller) editableField(name string) (*Property, bool) {
	if !c.editable() {
		return nil, false
	}
	p := c.schema.Property(name)
	if p == nil {
		return nil, false
	}
	return p, true
}

func (c *Controller) editable() bool {
	return c.schema != nil && (c.state == StateReady || c.state == StateSubmitting)
}

func (c *Controller) fieldState(name string) *FieldState {
	fs, ok := c.fields[name]
	if !ok {
		fs = &FieldState{}
		c.fields[name] = fs
	}
	return fs
}

func (c *Controller) markDirty(name string) {
	c.fieldState(name).Dirty = true
}

func (c *Controller) revalidate() {
	c.errs = Validate(c.schema, c.value, c.fields)
}

func currentArray(v any) []any {
	arr, ok := v.([]any)
	if !ok {
		return []any{}
	}
	return arr
}

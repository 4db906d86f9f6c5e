package form

import (
	"context"
	"errors"
	"sync"

	"github.com/looplab/fsm"

	"github.com/bitfantasy/whp/internal/whp/validate"
)

// Engine states.
const (
	StateEditing    = "editing"
	StateValidating = "validating"
	StateSubmitting = "submitting"
	StateSubmitted  = "submitted"
)

var (
	// ErrInvalid is returned by Submit when a required or format rule fails.
	ErrInvalid = errors.New("form has validation errors")
	// ErrSubmitInProgress is returned by Submit while a previous submit is pending.
	ErrSubmitInProgress = errors.New("submit already in progress")
)

// SubmitFunc receives the full value map of a valid form.
type SubmitFunc func(ctx context.Context, values Values) error

// State is a copy of the engine's values and errors.
type State struct {
	Values Values            `json:"values"`
	Errors map[string]string `json:"errors"`
}

// Engine owns the live state of one rendered form.
type Engine struct {
	mu       sync.Mutex
	schema   *Schema
	rules    *validate.Rules
	derivers []Deriver
	values   Values
	errors   map[string]string
	machine  *fsm.FSM
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithValues seeds the engine, for edit flows. Sanitizers are not applied.
func WithValues(values Values) EngineOption {
	return func(e *Engine) {
		e.values = values.Clone()
	}
}

// WithErrors seeds the error map, used when the previous state travels with
// an incremental change request.
func WithErrors(errs map[string]string) EngineOption {
	return func(e *Engine) {
		for k, v := range errs {
			if v != "" {
				e.errors[k] = v
			}
		}
	}
}

// NewEngine creates an engine in the editing state.
func NewEngine(schema *Schema, rules *validate.Rules, opts ...EngineOption) *Engine {
	e := &Engine{
		schema: schema,
		rules:  rules,
		values: make(Values),
		errors: make(map[string]string),
		machine: fsm.NewFSM(
			StateEditing,
			fsm.Events{
				{Name: "validate", Src: []string{StateEditing, StateSubmitted}, Dst: StateValidating},
				{Name: "reject", Src: []string{StateValidating}, Dst: StateEditing},
				{Name: "submit", Src: []string{StateValidating}, Dst: StateSubmitting},
				{Name: "fail", Src: []string{StateSubmitting}, Dst: StateEditing},
				{Name: "succeed", Src: []string{StateSubmitting}, Dst: StateSubmitted},
				{Name: "edit", Src: []string{StateSubmitted}, Dst: StateEditing},
			},
			fsm.Callbacks{},
		),
	}
	for _, name := range schema.Derive {
		e.derivers = append(e.derivers, derivers[name])
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the schema the engine was built from.
func (e *Engine) Schema() *Schema { return e.schema }

// OnFieldChange stores a sanitized value for name and updates the error map.
//
// Under ClearWhenValid the error of name is cleared and the whole form is
// re-validated; the error map is emptied only if that pass finds nothing.
// Errors of other fields stay visible until then.
func (e *Engine) OnFieldChange(name string, raw Value) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine.Current() == StateSubmitted {
		e.fire("edit")
	}

	field, known := e.schema.Field(name)
	value := raw
	if known && !value.IsList() && field.Sanitizer != "" {
		if sanitize, ok := e.rules.Sanitizer(field.Sanitizer); ok {
			value = Text(sanitize(value.String()))
		}
	}
	e.values[name] = value
	delete(e.errors, name)

	for _, derive := range e.derivers {
		derive(name, e.values)
	}

	switch e.schema.ChangePolicy {
	case ValidateField:
		if known {
			if msg := FieldError(field, value, e.rules); msg != "" {
				e.errors[name] = msg
			}
		}
	default:
		if len(ComputeErrors(e.schema, e.rules, e.values)) == 0 {
			e.errors = make(map[string]string)
		}
	}
}

// Submit validates every field and, when the form is valid, hands the values
// to fn. Validation failures populate the error map and return ErrInvalid
// without calling fn. A failing fn leaves values untouched so the caller can
// retry; no form-level error is recorded.
func (e *Engine) Submit(ctx context.Context, fn SubmitFunc) error {
	e.mu.Lock()
	if e.machine.Current() == StateSubmitting {
		e.mu.Unlock()
		return ErrSubmitInProgress
	}
	e.fire("validate")
	errs := ComputeErrors(e.schema, e.rules, e.values)
	if len(errs) > 0 {
		e.errors = errs
		e.fire("reject")
		e.mu.Unlock()
		return ErrInvalid
	}
	e.errors = make(map[string]string)
	e.fire("submit")
	values := e.values.Clone()
	e.mu.Unlock()

	err := fn(ctx, values)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.fire("fail")
		return err
	}
	e.fire("succeed")
	return nil
}

// IsSubmitting reports whether a submit is pending.
func (e *Engine) IsSubmitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Current() == StateSubmitting
}

// Current returns the engine state name.
func (e *Engine) Current() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Current()
}

// Values returns a copy of the stored values.
func (e *Engine) Values() Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values.Clone()
}

// Errors returns a copy of the error map.
func (e *Engine) Errors() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.errors))
	for k, v := range e.errors {
		out[k] = v
	}
	return out
}

// Snapshot returns values and errors together.
func (e *Engine) Snapshot() State {
	return State{Values: e.Values(), Errors: e.Errors()}
}

// fire drives the state machine. Transitions are only requested from
// states that allow them, so an error here is a programming mistake.
func (e *Engine) fire(event string) {
	err := e.machine.Event(context.Background(), event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		panic("form: " + err.Error())
	}
}

// ComputeErrors validates every field of schema against values and returns
// the complete error map. It has no side effects.
func ComputeErrors(schema *Schema, rules *validate.Rules, values Values) map[string]string {
	errs := make(map[string]string)
	for _, field := range schema.Fields() {
		if msg := FieldError(field, values[field.Name], rules); msg != "" {
			errs[field.Name] = msg
		}
	}
	return errs
}

// FieldError runs the required check and then the field's format validator.
// Format validators only see non-empty text.
func FieldError(field FieldDescriptor, value Value, rules *validate.Rules) string {
	if field.Required {
		var msg string
		switch field.Kind {
		case KindCheckbox:
			msg = validate.RequiredAcceptance(value.String())
		case KindMultiSelect:
			msg = validate.RequiredChoice(field.Label, value.Items())
		default:
			msg = validate.RequiredText(field.Label, value.String())
		}
		if msg != "" {
			return msg
		}
	}
	if field.Validator == "" || value.IsList() || value.IsEmpty() {
		return ""
	}
	check, ok := rules.Validator(field.Validator)
	if !ok {
		return ""
	}
	return check(value.String())
}

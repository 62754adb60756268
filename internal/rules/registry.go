// internal/rules/registry.go
package rules

import (
	"sort"

	"github.com/solatis/switchboard/internal/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

/*
 * Operator and Argument registries.
 *
 * Both registries are populated once at process start and treated as
 * read-only afterward. They carry no locks: concurrent registration during
 * request handling is precluded by startup ordering, not by runtime checks.
 *
 * Choice ordering is deterministic and independent of registration order:
 *   - Operators: grouped by title-cased group, groups sorted by key, entries
 *     sorted by preposition (ties broken by name).
 *   - Arguments: grouped by owner type, groups sorted by owner, entries sorted
 *     by full key. Value and label are both the full key.
 *
 * Argument registration silently replaces an earlier argument with the same
 * composite key. Callers that register User.age twice get the later one.
 */

// Choice is one selectable value with its display label.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// ChoiceGroup is a labeled set of choices.
type ChoiceGroup struct {
	Label   string   `json:"label" yaml:"label"`
	Choices []Choice `json:"choices" yaml:"choices"`
}

// OperatorRegistry catalogs operators by name.
type OperatorRegistry struct {
	operators map[string]*Operator
}

// NewOperatorRegistry creates a registry holding the given operators.
func NewOperatorRegistry(ops ...*Operator) *OperatorRegistry {
	r := &OperatorRegistry{operators: make(map[string]*Operator, len(ops))}
	for _, op := range ops {
		r.Register(op)
	}
	return r
}

// Register inserts op, replacing any operator with the same name.
func (r *OperatorRegistry) Register(op *Operator) {
	r.operators[op.Name] = op
}

// Lookup returns the operator registered under name.
// Returns ErrOperatorNotFound if absent.
func (r *OperatorRegistry) Lookup(name string) (*Operator, error) {
	op, ok := r.operators[name]
	if !ok {
		return nil, types.ErrOperatorNotFound
	}
	return op, nil
}

// ParameterNames returns the declared parameter list of the named operator.
// Returns nil for unknown operators; the caller renders no parameter fields.
func (r *OperatorRegistry) ParameterNames(name string) []string {
	op, ok := r.operators[name]
	if !ok {
		return nil
	}
	return append([]string(nil), op.Arguments...)
}

// Arguments maps every operator name to its declared parameter list.
func (r *OperatorRegistry) Arguments() map[string][]string {
	out := make(map[string][]string, len(r.operators))
	for name, op := range r.operators {
		out[name] = append([]string{}, op.Arguments...)
	}
	return out
}

// Choices returns operators grouped for selection.
func (r *OperatorRegistry) Choices() []ChoiceGroup {
	ops := make([]*Operator, 0, len(r.operators))
	for _, op := range r.operators {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Preposition != ops[j].Preposition {
			return ops[i].Preposition < ops[j].Preposition
		}
		return ops[i].Name < ops[j].Name
	})

	// cases.Caser is stateful; one per call keeps Choices safe for concurrent readers
	title := cases.Title(language.Und)

	index := make(map[string]int)
	var groups []ChoiceGroup
	for _, op := range ops {
		key := title.String(op.Group)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, ChoiceGroup{Label: key})
		}
		groups[i].Choices = append(groups[i].Choices, Choice{
			Value: op.Name,
			Label: title.String(op.Preposition),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Label < groups[j].Label
	})
	return groups
}

// Argument is an evaluation input: an attribute on an owning context type.
type Argument struct {
	Owner     string    // context type name, e.g. "User"
	Attribute string    // attribute name, e.g. "age"
	Type      FieldType // informational; Cast is authoritative
	Cast      Caster
}

// NewArgument creates an argument whose caster follows its field type.
func NewArgument(owner, attribute string, ft FieldType) *Argument {
	return &Argument{Owner: owner, Attribute: attribute, Type: ft, Cast: CasterFor(ft)}
}

// Key returns the composite "Owner.attribute" registry key.
func (a *Argument) Key() string {
	return a.Owner + "." + a.Attribute
}

// ArgumentRegistry catalogs arguments by composite key.
type ArgumentRegistry struct {
	arguments map[string]*Argument
}

// NewArgumentRegistry creates a registry holding the given arguments.
func NewArgumentRegistry(args ...*Argument) *ArgumentRegistry {
	r := &ArgumentRegistry{arguments: make(map[string]*Argument, len(args))}
	for _, a := range args {
		r.Register(a)
	}
	return r
}

// Register inserts a under its composite key. A later registration with the
// same key replaces the earlier one.
func (r *ArgumentRegistry) Register(a *Argument) {
	r.arguments[a.Key()] = a
}

// Lookup returns the argument registered under key.
// Returns ErrArgumentNotFound if absent.
func (r *ArgumentRegistry) Lookup(key string) (*Argument, error) {
	a, ok := r.arguments[key]
	if !ok {
		return nil, types.ErrArgumentNotFound
	}
	return a, nil
}

// Keys returns all composite keys in lexicographic order.
func (r *ArgumentRegistry) Keys() []string {
	keys := make([]string, 0, len(r.arguments))
	for k := range r.arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Choices returns arguments grouped by owner type for selection.
func (r *ArgumentRegistry) Choices() []ChoiceGroup {
	index := make(map[string]int)
	var groups []ChoiceGroup
	for _, key := range r.Keys() {
		owner := r.arguments[key].Owner
		i, ok := index[owner]
		if !ok {
			i = len(groups)
			index[owner] = i
			groups = append(groups, ChoiceGroup{Label: owner})
		}
		groups[i].Choices = append(groups[i].Choices, Choice{Value: key, Label: key})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Label < groups[j].Label
	})
	return groups
}

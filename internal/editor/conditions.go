// internal/editor/conditions.go
package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/switchboard/internal/rules"
	"github.com/solatis/switchboard/internal/types"
	"go.uber.org/multierr"
)

/*
 * Condition row set.
 *
 * Rows arrive either as an ordered list of per-row field maps, or flattened
 * into one submission using the "form-N-<field>" convention with an optional
 * "form-TOTAL_FORMS" count. Row order is submission order and is preserved
 * into the switch's condition list.
 *
 * Each row's parameter fields are derived at construction from the operator
 * selected in THAT row (submitted value, else initial value). Row N's schema
 * is never fixed in advance.
 *
 * A row whose fields are all empty is skipped: it is an untouched extra row,
 * not a condition. An absent negative token counts as "0".
 */

const (
	formPrefix      = "form"
	TotalFormsField = formPrefix + "-TOTAL_FORMS"

	// MaxConditionRows bounds the row count a single submission may declare.
	MaxConditionRows = 1000
)

// ConditionRow is one condition in the editor with its derived parameter fields.
type ConditionRow struct {
	Index      int
	Data       map[string]string // submitted row fields, nil for unbound rows
	Initial    map[string]string
	Parameters []rules.ParameterField
	Errors     map[string][]string
}

// Value returns the submitted value of field, falling back to its initial value.
func (r *ConditionRow) Value(field string) (string, bool) {
	if r.Data != nil {
		v, ok := r.Data[field]
		return v, ok
	}
	v, ok := r.Initial[field]
	return v, ok
}

func (r *ConditionRow) empty() bool {
	for _, v := range r.Data {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ConditionSet is the ordered collection of condition rows under one switch.
type ConditionSet struct {
	Rows []*ConditionRow

	materializer *rules.Materializer
	bound        bool
	validated    bool
	err          error
	conditions   []types.Condition
}

// NewConditionSet creates a bound set from ordered per-row field maps.
func NewConditionSet(m *rules.Materializer, rows []map[string]string) *ConditionSet {
	s := &ConditionSet{materializer: m, bound: true}
	for i, data := range rows {
		if data == nil {
			data = map[string]string{}
		}
		s.Rows = append(s.Rows, s.newRow(i, data, nil))
	}
	return s
}

// ConditionSetFromValues creates a bound set from flattened "form-N-<field>" values.
func ConditionSetFromValues(m *rules.Materializer, values map[string]string) (*ConditionSet, error) {
	rows, err := splitRows(values)
	if err != nil {
		return nil, err
	}
	return NewConditionSet(m, rows), nil
}

// InitialConditionSet creates an unbound set pre-filled from existing conditions.
func InitialConditionSet(m *rules.Materializer, conditions []types.Condition) *ConditionSet {
	s := &ConditionSet{materializer: m}
	for i, c := range conditions {
		s.Rows = append(s.Rows, s.newRow(i, nil, ConditionInitial(c)))
	}
	return s
}

func (s *ConditionSet) newRow(index int, data, initial map[string]string) *ConditionRow {
	row := &ConditionRow{Index: index, Data: data, Initial: initial, Errors: map[string][]string{}}
	if s.materializer != nil {
		operator, _ := row.Value(rules.FieldOperator)
		row.Parameters = s.materializer.ParameterFields(operator, row.Value)
	}
	return row
}

// ConditionInitial flattens a condition into the field map a row would submit.
func ConditionInitial(c types.Condition) map[string]string {
	fields := map[string]string{
		rules.FieldArgument: c.ArgumentKey(),
		rules.FieldOperator: c.Operator.Name,
		rules.FieldNegative: "0",
	}
	if c.Negative {
		fields[rules.FieldNegative] = "1"
	}
	for _, v := range c.Operator.Variables {
		fields[v.Name] = rules.FormatValue(v.Value)
	}
	return fields
}

// IsValid validates every non-empty row independently and caches the outcome.
func (s *ConditionSet) IsValid() bool {
	if !s.validated {
		s.validate()
	}
	return s.err == nil
}

// Err returns the aggregated row errors of the last validation.
func (s *ConditionSet) Err() error {
	s.IsValid()
	return s.err
}

// Conditions returns the materialized conditions in row order.
func (s *ConditionSet) Conditions() ([]types.Condition, error) {
	if !s.IsValid() {
		return nil, s.err
	}
	return append([]types.Condition(nil), s.conditions...), nil
}

func (s *ConditionSet) validate() {
	s.validated = true
	if !s.bound {
		s.err = fmt.Errorf("%w: condition rows have no submitted data", types.ErrValidation)
		return
	}
	if s.materializer == nil {
		s.err = fmt.Errorf("%w: no registries configured", types.ErrValidation)
		return
	}

	var errs error
	s.conditions = s.conditions[:0]
	for _, row := range s.Rows {
		row.Errors = map[string][]string{}
		if row.empty() {
			continue
		}
		cond, err := s.validateRow(row)
		if err != nil {
			collectErrors(row.Errors, err)
			errs = multierr.Append(errs, rowError(row.Index, err))
			continue
		}
		s.conditions = append(s.conditions, cond)
	}
	s.err = errs
}

func (s *ConditionSet) validateRow(row *ConditionRow) (types.Condition, error) {
	var errs error
	for _, field := range []string{rules.FieldArgument, rules.FieldOperator} {
		if strings.TrimSpace(row.Data[field]) == "" {
			errs = multierr.Append(errs, types.NewFieldError(field, types.ErrFieldRequired))
		}
	}
	if errs != nil {
		return types.Condition{}, errs
	}

	negative := strings.TrimSpace(row.Data[rules.FieldNegative])
	if negative == "" {
		negative = "0"
	}

	params := make(map[string]string, len(row.Parameters))
	for _, p := range row.Parameters {
		if v, ok := row.Data[p.Name]; ok {
			params[p.Name] = v
		}
	}

	return s.materializer.Materialize(rules.RawCondition{
		Operator: row.Data[rules.FieldOperator],
		Argument: row.Data[rules.FieldArgument],
		Negative: negative,
		Params:   params,
	})
}

// rowError prefixes every field error of err with the row's form prefix so the
// aggregate names "form-0-upper_limit" rather than a bare "upper_limit".
func rowError(index int, err error) error {
	var out error
	for _, fe := range types.FieldErrors(err) {
		out = multierr.Append(out, types.NewFieldError(rowField(index, fe.Field), fe.Err))
	}
	return out
}

func rowField(index int, field string) string {
	return fmt.Sprintf("%s-%d-%s", formPrefix, index, field)
}

// splitRows groups "form-N-<field>" values into ordered per-row maps.
func splitRows(values map[string]string) ([]map[string]string, error) {
	total := -1
	if raw, ok := values[TotalFormsField]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 {
			return nil, types.NewFieldError(TotalFormsField, fmt.Errorf("%w: %q", types.ErrValidation, raw))
		}
		total = n
	}

	byIndex := map[int]map[string]string{}
	maxIndex := -1
	for key, value := range values {
		rest, ok := strings.CutPrefix(key, formPrefix+"-")
		if !ok {
			continue
		}
		idx, field, ok := strings.Cut(rest, "-")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(idx)
		if err != nil || n < 0 {
			continue
		}
		if byIndex[n] == nil {
			byIndex[n] = map[string]string{}
		}
		byIndex[n][field] = value
		if n > maxIndex {
			maxIndex = n
		}
	}

	if total < 0 {
		total = maxIndex + 1
	}
	if total > MaxConditionRows {
		return nil, types.NewFieldError(TotalFormsField,
			fmt.Errorf("%w: at most %d condition rows", types.ErrValidation, MaxConditionRows))
	}

	rows := make([]map[string]string, total)
	for i := range rows {
		if data, ok := byIndex[i]; ok {
			rows[i] = data
			continue
		}
		rows[i] = map[string]string{}
	}
	return rows, nil
}

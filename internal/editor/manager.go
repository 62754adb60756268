// Package editor implements the switch/condition editing workflow.
//
// A Manager aggregates one switch header form and its ordered condition rows.
// It validates both independently, assembles the switch and persists it
// through an external switch manager with replace semantics. Invalid
// submissions are kept intact so they can be shown again at the head of the
// listing without losing what the user typed.
package editor

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/solatis/switchboard/internal/rules"
	"github.com/solatis/switchboard/internal/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Store is the subset of the switch manager the editor writes through.
// Atomicity and concurrent-writer arbitration belong to the implementation.
type Store interface {
	Switches(ctx context.Context) ([]*types.Switch, error)
	Register(ctx context.Context, sw *types.Switch) error
	Unregister(ctx context.Context, name string) error
}

// Manager aggregates a switch header and its condition rows.
type Manager struct {
	Switch     *SwitchForm
	Conditions *ConditionSet
}

// NewManager creates a manager from an already-built header and row set.
func NewManager(sw *SwitchForm, conditions *ConditionSet) *Manager {
	return &Manager{Switch: sw, Conditions: conditions}
}

// FromPost builds a manager from one flattened form submission.
// Header fields and "form-N-<field>" rows share the same value map.
func FromPost(m *rules.Materializer, values url.Values) (*Manager, error) {
	flat := make(map[string]string, len(values))
	for k := range values {
		flat[k] = values.Get(k)
	}

	header := map[string]string{}
	for _, f := range []string{FieldName, FieldLabel, FieldDescription, FieldState, FieldCompounded, FieldConcent, FieldDelete} {
		if v, ok := flat[f]; ok {
			header[f] = v
		}
	}

	conditions, err := ConditionSetFromValues(m, flat)
	if err != nil {
		return nil, err
	}
	return NewManager(NewSwitchForm(header), conditions), nil
}

// SwitchFormFromObject creates an unbound form showing an existing switch.
// The name is read-only; condition rows are pre-filled from bound variables.
func SwitchFormFromObject(m *rules.Materializer, sw *types.Switch) *SwitchForm {
	f := &SwitchForm{
		Initial: map[string]string{
			FieldName:        sw.Name,
			FieldLabel:       sw.Label,
			FieldDescription: sw.Description,
			FieldState:       fmt.Sprint(int(sw.State)),
			FieldCompounded:  fmt.Sprint(sw.Compounded),
			FieldConcent:     fmt.Sprint(sw.Concent),
		},
		ReadOnlyName: true,
	}
	f.Conditions = InitialConditionSet(m, sw.Conditions)
	return f
}

// IsValid requires the header AND every condition row to validate.
// Both are always evaluated so all errors are available for re-display.
func (m *Manager) IsValid() bool {
	headerOK := m.Switch.IsValid()
	rowsOK := m.Conditions.IsValid()
	return headerOK && rowsOK
}

// Err returns the combined header and row errors.
func (m *Manager) Err() error {
	return multierr.Combine(m.Switch.Err(), m.Conditions.Err())
}

// Save assembles the switch with its conditions and registers it.
// Registration replaces any switch with the same name.
func (m *Manager) Save(ctx context.Context, store Store) error {
	if !m.IsValid() {
		return m.Err()
	}
	sw, err := m.Switch.ToObject()
	if err != nil {
		return err
	}
	conditions, err := m.Conditions.Conditions()
	if err != nil {
		return err
	}
	sw.Conditions = conditions
	return store.Register(ctx, sw)
}

// Delete unregisters the switch named in the submission.
func (m *Manager) Delete(ctx context.Context, store Store) error {
	return store.Unregister(ctx, m.Switch.Data[FieldName])
}

// AddToSwitchList attaches the submitted rows to the header form and inserts it
// at the head of list, preserving everything the user entered.
func (m *Manager) AddToSwitchList(list []*SwitchForm) []*SwitchForm {
	m.Switch.Conditions = m.Conditions
	return append([]*SwitchForm{m.Switch}, list...)
}

// Notice keys shown with a page.
const (
	NoticeError = "error"

	noticeSaveFailed = "Unable to save switch."
)

// Page is what the editor shows: every switch plus a blank form for a new one.
type Page struct {
	Switches  []*SwitchForm
	NewSwitch *SwitchForm
	Notices   map[string]string
}

// Outcome tells the caller what an update did.
type Outcome int

const (
	OutcomeSaved Outcome = iota
	OutcomeDeleted
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeDeleted:
		return "deleted"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Editor serves the switch listing and applies form submissions.
type Editor struct {
	materializer *rules.Materializer
	store        Store
	logger       *zap.Logger
}

// New creates an editor over explicit registries and a switch store.
func New(m *rules.Materializer, store Store, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor{materializer: m, store: store, logger: logger}
}

// Materializer returns the materializer the editor validates rows with.
func (e *Editor) Materializer() *rules.Materializer {
	return e.materializer
}

// Index lists every switch as a form sorted by name.
func (e *Editor) Index(ctx context.Context) (*Page, error) {
	switches, err := e.store.Switches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list switches: %w", err)
	}

	forms := make([]*SwitchForm, 0, len(switches))
	for _, sw := range switches {
		forms = append(forms, SwitchFormFromObject(e.materializer, sw))
	}
	sort.SliceStable(forms, func(i, j int) bool {
		return forms[i].Field(FieldName) < forms[j].Field(FieldName)
	})

	return &Page{
		Switches:  forms,
		NewSwitch: BlankSwitchForm(),
		Notices:   map[string]string{},
	}, nil
}

// Update applies one form submission. A delete request unregisters the switch;
// a valid submission saves it; an invalid one returns the listing with the
// submitted form inserted at the head and an error notice.
func (e *Editor) Update(ctx context.Context, values url.Values) (Outcome, *Page, error) {
	manager, err := FromPost(e.materializer, values)
	if err != nil {
		return OutcomeInvalid, nil, err
	}

	if manager.Switch.DeleteRequested() {
		name := manager.Switch.Data[FieldName]
		if err := manager.Delete(ctx, e.store); err != nil {
			return OutcomeDeleted, nil, err
		}
		e.logger.Info("switch deleted", zap.String("switch", name))
		return OutcomeDeleted, nil, nil
	}

	if manager.IsValid() {
		if err := manager.Save(ctx, e.store); err != nil {
			return OutcomeSaved, nil, err
		}
		e.logger.Info("switch saved",
			zap.String("switch", manager.Switch.Field(FieldName)),
			zap.Int("conditions", len(manager.Conditions.conditions)))
		return OutcomeSaved, nil, nil
	}

	e.logger.Debug("switch submission invalid",
		zap.String("switch", manager.Switch.Field(FieldName)),
		zap.Error(manager.Err()))

	page, err := e.Index(ctx)
	if err != nil {
		return OutcomeInvalid, nil, err
	}
	page.Switches = manager.AddToSwitchList(page.Switches)
	page.Notices[NoticeError] = noticeSaveFailed
	return OutcomeInvalid, page, nil
}

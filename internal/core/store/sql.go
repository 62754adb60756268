package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/switchboard/internal/core/db"
	"github.com/solatis/switchboard/internal/types"
)

// SQL is a switch manager backed by the switches and switch_conditions tables.
// Register replaces the header and every condition row in one transaction.
type SQL struct {
	queries *db.Queries
	now     func() time.Time
}

// NewSQL creates a manager over loaded named queries.
func NewSQL(queries *db.Queries) *SQL {
	return &SQL{queries: queries, now: time.Now}
}

type switchRow struct {
	Name        string `db:"name"`
	Label       string `db:"label"`
	Description string `db:"description"`
	State       int    `db:"state"`
	Compounded  int    `db:"compounded"`
	Concent     int    `db:"concent"`
}

type conditionRow struct {
	SwitchName string `db:"switch_name"`
	Position   int    `db:"position"`
	Argument   string `db:"argument"`
	Attribute  string `db:"attribute"`
	Operator   string `db:"operator"`
	Variables  string `db:"variables"`
	Negative   int    `db:"negative"`
}

// Switches returns every stored switch ordered by name.
func (s *SQL) Switches(ctx context.Context) ([]*types.Switch, error) {
	var headers []switchRow
	if err := s.queries.Select(ctx, "list-switches", &headers); err != nil {
		return nil, fmt.Errorf("failed to list switches: %w", err)
	}
	var rows []conditionRow
	if err := s.queries.Select(ctx, "list-conditions", &rows); err != nil {
		return nil, fmt.Errorf("failed to list conditions: %w", err)
	}

	byName := make(map[string][]conditionRow, len(headers))
	for _, r := range rows {
		byName[r.SwitchName] = append(byName[r.SwitchName], r)
	}

	out := make([]*types.Switch, 0, len(headers))
	for _, h := range headers {
		sw, err := assemble(h, byName[h.Name])
		if err != nil {
			return nil, err
		}
		out = append(out, sw)
	}
	return out, nil
}

// Get returns the switch stored under name.
func (s *SQL) Get(ctx context.Context, name string) (*types.Switch, error) {
	var header switchRow
	if err := s.queries.Get(ctx, "get-switch", &header, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrSwitchNotFound
		}
		return nil, fmt.Errorf("failed to get switch %s: %w", name, err)
	}
	var rows []conditionRow
	if err := s.queries.Select(ctx, "list-switch-conditions", &rows, name); err != nil {
		return nil, fmt.Errorf("failed to list conditions of %s: %w", name, err)
	}
	return assemble(header, rows)
}

// Register upserts sw and rewrites its conditions in position order.
func (s *SQL) Register(ctx context.Context, sw *types.Switch) error {
	if !types.ValidSwitchName(sw.Name) {
		return types.NewFieldError("name", types.ErrInvalidSwitchName)
	}
	if !sw.State.Valid() {
		return types.NewFieldError("state", types.ErrInvalidChoice)
	}

	vars := make([]string, len(sw.Conditions))
	for i, c := range sw.Conditions {
		encoded, err := json.Marshal(c.Operator.Variables)
		if err != nil {
			return fmt.Errorf("failed to encode variables of condition %d: %w", i, err)
		}
		vars[i] = string(encoded)
	}

	updatedAt := s.now().UTC().Format(time.RFC3339)
	return s.queries.InTx(ctx, func(tx *db.Tx) error {
		_, err := tx.Exec(ctx, "upsert-switch",
			sw.Name, sw.Label, sw.Description, int(sw.State),
			boolInt(sw.Compounded), boolInt(sw.Concent), updatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert switch %s: %w", sw.Name, err)
		}
		if _, err := tx.Exec(ctx, "delete-switch-conditions", sw.Name); err != nil {
			return fmt.Errorf("failed to clear conditions of %s: %w", sw.Name, err)
		}
		for i, c := range sw.Conditions {
			_, err := tx.Exec(ctx, "insert-condition",
				sw.Name, i, c.Argument, c.Attribute, c.Operator.Name, vars[i], boolInt(c.Negative))
			if err != nil {
				return fmt.Errorf("failed to insert condition %d of %s: %w", i, sw.Name, err)
			}
		}
		return nil
	})
}

// Unregister deletes the switch stored under name with its conditions.
func (s *SQL) Unregister(ctx context.Context, name string) error {
	return s.queries.InTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.Exec(ctx, "delete-switch-conditions", name); err != nil {
			return fmt.Errorf("failed to delete conditions of %s: %w", name, err)
		}
		res, err := tx.Exec(ctx, "delete-switch", name)
		if err != nil {
			return fmt.Errorf("failed to delete switch %s: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete switch %s: %w", name, err)
		}
		if n == 0 {
			return types.ErrSwitchNotFound
		}
		return nil
	})
}

func assemble(h switchRow, rows []conditionRow) (*types.Switch, error) {
	sw := &types.Switch{
		Name:        h.Name,
		Label:       h.Label,
		Description: h.Description,
		State:       types.SwitchState(h.State),
		Compounded:  h.Compounded != 0,
		Concent:     h.Concent != 0,
		Conditions:  make([]types.Condition, 0, len(rows)),
	}
	for _, r := range rows {
		var vars []types.Variable
		if err := json.Unmarshal([]byte(r.Variables), &vars); err != nil {
			return nil, fmt.Errorf("switch %s condition %d: corrupt variables: %w", h.Name, r.Position, err)
		}
		sw.Conditions = append(sw.Conditions, types.Condition{
			Argument:  r.Argument,
			Attribute: r.Attribute,
			Operator:  types.BoundOperator{Name: r.Operator, Variables: vars},
			Negative:  r.Negative != 0,
		})
	}
	return sw, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package transport

import (
	"context"
	"fmt"

	"github.com/solatis/switchboard/internal/rules"
	"github.com/solatis/switchboard/internal/types"
	"go.uber.org/zap"
)

// Manager is the switch manager the codec reads from and registers into.
type Manager interface {
	Switches(ctx context.Context) ([]*types.Switch, error)
	Get(ctx context.Context, name string) (*types.Switch, error)
	Register(ctx context.Context, sw *types.Switch) error
}

// ImportFailure records one switch that decoded but did not register.
type ImportFailure struct {
	Name string
	Err  error
}

// ImportResult summarizes one bulk import.
type ImportResult struct {
	ImportID   string
	Registered []string
	Failed     []ImportFailure
}

// Option configures a Codec.
type Option func(*Codec)

// WithOperators makes Import bind every condition against reg before
// registering, so switches naming unknown operators or carrying the wrong
// parameters are rejected per switch.
func WithOperators(reg *rules.OperatorRegistry) Option {
	return func(c *Codec) { c.operators = reg }
}

// Codec exports and imports armored switch collections.
// It performs no authorization; see the package documentation.
type Codec struct {
	manager   Manager
	operators *rules.OperatorRegistry
	logger    *zap.Logger
}

// New creates a codec over manager.
func New(manager Manager, logger *zap.Logger, opts ...Option) *Codec {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Codec{manager: manager, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export armors the named switches in the given order, or every switch when
// names is empty. Duplicate names are exported once. Any unknown name fails
// the whole export with ErrSwitchNotFound.
func (c *Codec) Export(ctx context.Context, names []string) (string, error) {
	switches, err := c.resolve(ctx, names)
	if err != nil {
		return "", err
	}

	payload, err := EncodePayload(switches)
	if err != nil {
		return "", fmt.Errorf("failed to encode switches: %w", err)
	}

	c.logger.Debug("switches exported", zap.Int("count", len(switches)))
	return Armor(payload), nil
}

func (c *Codec) resolve(ctx context.Context, names []string) ([]*types.Switch, error) {
	if len(names) == 0 {
		switches, err := c.manager.Switches(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list switches: %w", err)
		}
		return switches, nil
	}

	seen := make(map[string]bool, len(names))
	switches := make([]*types.Switch, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		sw, err := c.manager.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("switch %s: %w", name, err)
		}
		switches = append(switches, sw)
	}
	return switches, nil
}

// Import dearmors and decodes text, then registers each switch independently.
// Framing or decoding failures return ErrMalformedInput before anything is
// registered. A switch that fails to register is logged and skipped; the
// remaining switches are still attempted.
func (c *Codec) Import(ctx context.Context, text string) (*ImportResult, error) {
	payload, err := Dearmor(text)
	if err != nil {
		return nil, err
	}
	switches, err := DecodePayload(payload)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{ImportID: types.NewImportID()}
	logger := c.logger.With(zap.String("import_id", result.ImportID))

	for _, sw := range switches {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := c.register(ctx, sw); err != nil {
			logger.Warn("switch import failed",
				zap.String("switch", sw.Name),
				zap.Error(err))
			result.Failed = append(result.Failed, ImportFailure{Name: sw.Name, Err: err})
			continue
		}
		result.Registered = append(result.Registered, sw.Name)
	}

	logger.Info("switches imported",
		zap.Int("registered", len(result.Registered)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (c *Codec) register(ctx context.Context, sw *types.Switch) error {
	if c.operators != nil {
		for i, cond := range sw.Conditions {
			if _, err := c.operators.Bind(cond); err != nil {
				return fmt.Errorf("condition %d: %w", i, err)
			}
		}
	}
	return c.manager.Register(ctx, sw)
}

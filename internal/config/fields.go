package config

import (
	"fmt"
	"log/slog"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
	"github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/value"
)

// Getter returns the current value of a stored field.
type Getter func(name string) value.Value

// Definitions converts the declared fields into store definitions.
//
// Computed fields are compiled once here. At evaluation time the
// expression sees every non-computed field, read through get, as plain
// values (numbers are float64, records are maps). An evaluation error is
// logged and yields null.
func (c *Config) Definitions(get Getter, logger *slog.Logger) ([]store.Definition, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "config")

	var plain []string
	for _, f := range c.Fields {
		if f.Computed == "" {
			plain = append(plain, f.Name)
		}
	}

	defs := make([]store.Definition, 0, len(c.Fields))
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Computed != "" {
			program, err := compileExpr(f.Computed)
			if err != nil {
				return nil, errors.New("S030").WithField(f.Name).
					WithDetail(fmt.Sprintf("Computed expression for %q does not compile.", f.Name)).
					Wrap(err)
			}
			defs = append(defs, store.Def(f.Name, computedField(f.Name, program, plain, get, logger)))
			continue
		}

		initial, err := f.InitialValue()
		if err != nil {
			return nil, errors.New("S030").WithField(f.Name).Wrap(err)
		}
		defs = append(defs, store.Def(f.Name, initial))
	}
	return defs, nil
}

// InitialValue decodes the field's initial value. A missing value is null.
func (f *FieldConfig) InitialValue() (value.Value, error) {
	if f.Initial.Kind == 0 {
		return value.Null(), nil
	}
	return value.FromYAMLNode(&f.Initial)
}

func compileExpr(src string) (*exprvm.Program, error) {
	return exprlang.Compile(src,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables())
}

func computedField(name string, program *exprvm.Program, fields []string, get Getter, logger *slog.Logger) value.Computed {
	return func() value.Value {
		env := make(map[string]any, len(fields))
		if get != nil {
			for _, n := range fields {
				env[n] = value.ToAny(get(n))
			}
		}

		out, err := exprlang.Run(program, env)
		if err != nil {
			logger.Warn("computed field failed", "field", name, "error", err)
			return value.Null()
		}
		v, err := value.From(out)
		if err != nil {
			logger.Warn("computed field returned an unsupported value", "field", name, "error", err)
			return value.Null()
		}
		return v
	}
}

// StoreOptions returns the store options for the configured features.
// Backend, codec and logger options are added by the caller.
func (c *Config) StoreOptions() []store.Option {
	var opts []store.Option
	if p := c.Persistence; p != nil {
		opts = append(opts, store.WithPersistence(store.PersistenceConfig{
			Keys:   p.Keys,
			Prefix: p.Prefix,
			Deep:   p.Deep,
		}))
	}
	if h := c.History; h != nil {
		opts = append(opts, store.WithHistory(store.HistoryConfig{
			Keys:       h.Keys,
			UseStorage: h.UseStorage,
			StorageKey: h.StorageKey,
			MaxLength:  h.MaxLength,
		}))
	}
	if d := c.StorageTimeout(); d > 0 {
		opts = append(opts, store.WithStorageTimeout(d))
	}
	return opts
}

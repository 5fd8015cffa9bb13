package line

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/pipewrench/internal/checks"
	"github.com/vk/pipewrench/internal/config"
	"github.com/vk/pipewrench/internal/ops"
	"github.com/vk/pipewrench/internal/registry"
	"github.com/vk/pipewrench/internal/table"
)

// applyFunc is the resolved transformation of one stage. On failure the
// returned table is ignored and the caller decides, per staging policy,
// whether to abort or pass the input table through unchanged.
type applyFunc func(ctx context.Context, t *table.Table) (*table.Table, error)

// Stage is the runtime product of one stage descriptor: a callable
// transformation, a display description, and the staging policy. A stage is
// owned by the line that built it.
type Stage struct {
	apply   applyFunc
	desc    string
	staging config.Staging
}

// Description returns the stage's display description, already resolved with
// the precedence: explicit staging desc, then kind-generated, then bare name.
func (s *Stage) Description() string { return s.desc }

// Exraise reports whether a failure of this stage aborts the file's run.
func (s *Stage) Exraise() bool { return s.staging.Exraise }

// NewStage builds one stage from one descriptor, dispatching on the kind tag.
// Unknown identifiers fail here, before any file is processed.
func NewStage(sd *config.StageDescriptor, reg *registry.Registry) (*Stage, error) {
	switch sd.Kind {
	case config.KindTransform:
		fn, err := reg.Transform(sd.Function)
		if err != nil {
			return nil, err
		}
		kwargs := sd.Kwargs
		return &Stage{
			apply: func(ctx context.Context, t *table.Table) (*table.Table, error) {
				return fn(ctx, t, kwargs)
			},
			desc:    resolveDesc(sd.Staging.Desc, "", sd.Function),
			staging: sd.Staging,
		}, nil

	case config.KindPdpipe:
		op, err := ops.Build(sd.Function, sd.Kwargs)
		if err != nil {
			return nil, err
		}
		return &Stage{
			apply:   op.Apply,
			desc:    resolveDesc(sd.Staging.Desc, op.Desc, sd.Function),
			staging: sd.Staging,
		}, nil

	case config.KindVerifyAll, config.KindVerifyAny:
		fn, err := reg.Check(sd.Check)
		if err != nil {
			return nil, err
		}
		return newVerifyStage(sd, fn), nil

	case config.KindEngarde:
		chk, err := checks.Build(sd.Check, sd.Kwargs)
		if err != nil {
			return nil, err
		}
		return &Stage{
			apply: func(ctx context.Context, t *table.Table) (*table.Table, error) {
				if err := chk.Apply(ctx, t); err != nil {
					return nil, err
				}
				return t, nil
			},
			desc:    resolveDesc(sd.Staging.Desc, chk.Desc, sd.Check),
			staging: sd.Staging,
		}, nil
	}
	return nil, fmt.Errorf("unknown stage kind %q", sd.Kind)
}

// newVerifyStage wraps a registered row predicate with all/any semantics.
// The table always passes through unchanged on success.
func newVerifyStage(sd *config.StageDescriptor, fn registry.CheckFunc) *Stage {
	all := sd.Kind == config.KindVerifyAll
	kwargs := sd.Kwargs
	check := sd.Check

	auto := fmt.Sprintf("Verify any row satisfies %s", check)
	if all {
		auto = fmt.Sprintf("Verify all rows satisfy %s", check)
	}

	return &Stage{
		apply: func(ctx context.Context, t *table.Table) (*table.Table, error) {
			mask, err := fn(ctx, t, kwargs)
			if err != nil {
				return nil, err
			}
			if len(mask) != t.NumRows() {
				return nil, fmt.Errorf("check %q returned %d mask entries for %d rows", check, len(mask), t.NumRows())
			}
			if all {
				index := t.IndexValues()
				var failing []string
				for i, ok := range mask {
					if !ok {
						failing = append(failing, table.FormatCell(index[i]))
					}
				}
				if failing != nil {
					return nil, &VerificationError{Check: check, Kind: sd.Kind, Rows: failing}
				}
				return t, nil
			}
			for _, ok := range mask {
				if ok {
					return t, nil
				}
			}
			return nil, &VerificationError{Check: check, Kind: sd.Kind}
		},
		desc:    resolveDesc(sd.Staging.Desc, auto, check),
		staging: sd.Staging,
	}
}

// resolveDesc applies the description precedence rule.
func resolveDesc(explicit, auto, name string) string {
	if explicit != "" {
		return explicit
	}
	if auto != "" {
		return auto
	}
	return name
}

// VerificationError reports a verify_all or verify_any stage whose predicate
// was not satisfied. For verify_all, Rows holds the index values of every
// failing row.
type VerificationError struct {
	Check string
	Kind  config.StageKind
	Rows  []string
}

func (e *VerificationError) Error() string {
	if e.Kind == config.KindVerifyAny {
		return fmt.Sprintf("verify_any: no rows satisfy check %q", e.Check)
	}
	return fmt.Sprintf("verify_all: check %q failed for rows [%s]", e.Check, strings.Join(e.Rows, " "))
}

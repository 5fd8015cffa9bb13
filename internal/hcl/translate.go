// This file translates the HCL block schema into the format-agnostic
// configuration model, including kwarg evaluation and structural validation.

package hcl

import (
	"fmt"
	"strings"

	"github.com/vk/pipewrench/internal/config"
)

func (l *Loader) translateSource(s *sourceBlock) (*config.SourceDescriptor, error) {
	kwargs, err := l.evalKwargs(s.Kwargs)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", s.Name, err)
	}
	desc := &config.SourceDescriptor{
		Name:   s.Name,
		File:   s.File,
		Kwargs: kwargs,
	}
	if s.IndexCol != nil {
		desc.IndexCol = *s.IndexCol
	}
	return desc, nil
}

func (l *Loader) translateSink(s *sinkBlock) (*config.SinkDescriptor, error) {
	if strings.Count(s.File, "*") > 1 {
		return nil, fmt.Errorf("sink %q: pattern %q has more than one wildcard", s.Name, s.File)
	}
	kwargs, err := l.evalKwargs(s.Kwargs)
	if err != nil {
		return nil, fmt.Errorf("sink %q: %w", s.Name, err)
	}
	return &config.SinkDescriptor{
		Name:   s.Name,
		File:   s.File,
		Kwargs: kwargs,
	}, nil
}

func (l *Loader) translatePipeline(p *pipelineBlock) ([]*config.StageDescriptor, error) {
	stages := make([]*config.StageDescriptor, 0, len(p.Stages))
	for i, sb := range p.Stages {
		desc, err := l.translateStage(sb)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q, stage %d: %w", p.Name, i, err)
		}
		stages = append(stages, desc)
	}
	return stages, nil
}

func (l *Loader) translateStage(s *stageBlock) (*config.StageDescriptor, error) {
	kind := config.StageKind(s.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown stage kind %q (choices: %s)", s.Kind, kindChoices())
	}

	desc := &config.StageDescriptor{
		Kind: kind,
		// Failures abort the run unless the staging block opts out.
		Staging: config.Staging{Exraise: true},
	}

	switch kind {
	case config.KindTransform, config.KindPdpipe:
		if s.Function == nil || *s.Function == "" {
			return nil, fmt.Errorf("stage kind %q requires a 'function' attribute", kind)
		}
		desc.Function = *s.Function
	case config.KindVerifyAll, config.KindVerifyAny, config.KindEngarde:
		if s.Check == nil || *s.Check == "" {
			return nil, fmt.Errorf("stage kind %q requires a 'check' attribute", kind)
		}
		desc.Check = *s.Check
	}

	kwargs, err := l.evalKwargs(s.Kwargs)
	if err != nil {
		return nil, err
	}
	desc.Kwargs = kwargs

	if s.Staging != nil {
		if s.Staging.Desc != nil {
			desc.Staging.Desc = *s.Staging.Desc
		}
		if s.Staging.Exmsg != nil {
			desc.Staging.Exmsg = *s.Staging.Exmsg
		}
		if s.Staging.Exraise != nil {
			desc.Staging.Exraise = *s.Staging.Exraise
		}
	}
	return desc, nil
}

// evalKwargs evaluates every attribute of a kwargs block into a cty value.
// Expressions are evaluated without a variable scope; kwargs are literals.
func (l *Loader) evalKwargs(block *kwargsBlock) (config.Kwargs, error) {
	if block == nil || block.Body == nil {
		return config.Kwargs{}, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid kwargs block: %w", diags)
	}
	kwargs := make(config.Kwargs, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("kwarg %q: %w", name, diags)
		}
		kwargs[name] = val
	}
	return kwargs, nil
}

func kindChoices() string {
	names := make([]string, len(config.Kinds))
	for i, k := range config.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

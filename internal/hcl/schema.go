package hcl

import "github.com/hashicorp/hcl/v2"

// kwargsBlock captures the free-form attributes of a 'kwargs' block. The
// attribute set is open-ended, so the body is kept raw and evaluated later.
type kwargsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// stagingBlock is the per-stage policy block. All fields are optional;
// pointers distinguish "absent" from zero values so exraise can default true.
type stagingBlock struct {
	Desc    *string `hcl:"desc,optional"`
	Exmsg   *string `hcl:"exmsg,optional"`
	Exraise *bool   `hcl:"exraise,optional"`
}

// stageBlock represents one `stage "<kind>" { ... }` entry inside a pipeline.
type stageBlock struct {
	Kind     string        `hcl:"kind,label"`
	Function *string       `hcl:"function,optional"`
	Check    *string       `hcl:"check,optional"`
	Kwargs   *kwargsBlock  `hcl:"kwargs,block"`
	Staging  *stagingBlock `hcl:"staging,block"`
}

// sourceBlock represents a `source "<name>" { ... }` block.
type sourceBlock struct {
	Name     string       `hcl:"name,label"`
	File     string       `hcl:"file"`
	IndexCol *string      `hcl:"index_col,optional"`
	Kwargs   *kwargsBlock `hcl:"kwargs,block"`
}

// sinkBlock represents a `sink "<name>" { ... }` block.
type sinkBlock struct {
	Name   string       `hcl:"name,label"`
	File   string       `hcl:"file"`
	Kwargs *kwargsBlock `hcl:"kwargs,block"`
}

// pipelineBlock represents a `pipeline "<name>" { ... }` block holding the
// ordered stage list.
type pipelineBlock struct {
	Name   string        `hcl:"name,label"`
	Stages []*stageBlock `hcl:"stage,block"`
}

// fileRoot decodes all recognized top-level blocks from one document.
type fileRoot struct {
	Sources   []*sourceBlock   `hcl:"source,block"`
	Sinks     []*sinkBlock     `hcl:"sink,block"`
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

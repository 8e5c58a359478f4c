// Package template implements the Path Template Tokenizer (spec.md §4.1): a
// pure function turning a raw command string into a flat sequence of
// TemplateComponents, plus the ParameterDef contract embedded in Parameter
// components.
package template

import (
	"encoding/gob"

	"axes/internal/color"
)

// Component is the sum type for one piece of a tokenized command string.
// Concrete variants are the unexported-marker-bearing structs below; callers
// switch on the dynamic type.
type Component interface {
	isComponent()
}

// Literal is a run of plain text between (or around) tokens. Adjacent
// literals are always coalesced by the tokenizer.
type Literal struct{ Text string }

// Parameter is a `<params::...>` token bound to a ParameterDef contract.
type Parameter struct{ Def ParameterDef }

// GenericParams is the bare `<params>` (or `<params(literal)>`) token that
// absorbs every CLI argument not claimed by a specific Parameter.
type GenericParams struct{ Literal bool }

// ColorToken is a `<#style>` ANSI styling token.
type ColorToken struct{ Style color.Style }

// RunLiteral is a `<run('...')>` token: its inner text is run as a command
// whose captured stdout is substituted inline. The tokenizer ends a token at
// its first `>`, so the inner text cannot contain `>` and therefore cannot
// hold params/vars/scripts tokens of its own.
type RunLiteral struct{ Cmd string }

// Path substitutes the target project's absolute root.
type Path struct{}

// Name substitutes the project's qualified name.
type Name struct{}

// Uuid substitutes the project's UUID.
type Uuid struct{}

// Version substitutes the resolved `version` option, if any.
type Version struct{}

// ScriptRef is a `<scripts::NAME>` reference, inlined by the Task Flattener.
type ScriptRef struct{ Name string }

// VarRef is a `<vars::NAME>` reference, inlined by the Task Flattener.
type VarRef struct{ Name string }

func (Literal) isComponent()       {}
func (Parameter) isComponent()     {}
func (GenericParams) isComponent() {}
func (ColorToken) isComponent()    {}
func (RunLiteral) isComponent()    {}
func (Path) isComponent()          {}
func (Name) isComponent()          {}
func (Uuid) isComponent()          {}
func (Version) isComponent()       {}
func (ScriptRef) isComponent()     {}
func (VarRef) isComponent()        {}

// Concrete Component variants must be gob-registered so CompiledLayers
// (which embed []Component behind the interface) can round-trip through the
// layer cache.
func init() {
	gob.Register(Literal{})
	gob.Register(Parameter{})
	gob.Register(GenericParams{})
	gob.Register(ColorToken{})
	gob.Register(RunLiteral{})
	gob.Register(Path{})
	gob.Register(Name{})
	gob.Register(Uuid{})
	gob.Register(Version{})
	gob.Register(ScriptRef{})
	gob.Register(VarRef{})
}

// ParameterKind distinguishes positional (`<params::0>`) from named
// (`<params::name>`) parameter specifiers.
type ParameterKind int

const (
	KindPositional ParameterKind = iota
	KindNamed
)

// GenericIndex is a sentinel positional index (mirrors the original's
// usize::MAX sentinel). Nothing in this module sets it: the bare
// `<params>`/`<params(...)>` token is a GenericParams component with no
// index at all.
const GenericIndex = -1

// ParameterDef is the parsed contract of one `<params::...>` token.
//
// Invariant: the same OriginalToken string always round-trips through the
// Argument Resolver to the same substitution (spec.md §3).
type ParameterDef struct {
	Kind ParameterKind

	// Index is meaningful when Kind == KindPositional.
	Index int
	// Name is meaningful when Kind == KindNamed.
	Name string

	Required     bool
	Literal      bool
	DefaultValue *string
	Alias        *string
	Map          *string

	// OriginalToken is the verbatim `<...>` text this def was parsed from.
	OriginalToken string
}

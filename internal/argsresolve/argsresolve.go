// Package argsresolve implements the Argument Resolver (spec.md §4.6): it
// matches the ParameterDefs embedded in a flattened task against the raw CLI
// tokens the user typed, producing a per-token substitution plus whatever is
// left over for a generic `<params>` token.
package argsresolve

import (
	"fmt"
	"strings"

	"axes/internal/axerr"
	"axes/internal/template"
)

// Result is the resolver's output: rendered text per ParameterDef (keyed by
// its OriginalToken, so the same token referenced twice in a template always
// yields the same substitution — spec.md §4.6 determinism invariant), plus
// the CLI tokens no Parameter claimed, which a generic `<params>` token
// renders.
type Result struct {
	Substitutions map[string]string
	GenericValues []string
}

type positionalArg struct {
	value    string
	consumed bool
}

type namedArg struct {
	value    *string
	consumed bool
}

// Resolve runs the full procedure in spec.md §4.6.
func Resolve(defs []template.ParameterDef, rawArgs []string, hasGenericParams bool) (*Result, error) {
	positionals, named := partition(rawArgs)

	subs := make(map[string]string, len(defs))
	for _, def := range defs {
		value, err := resolveOne(def, positionals, named)
		if err != nil {
			return nil, err
		}
		subs[def.OriginalToken] = value
	}

	var leftover []string
	for _, p := range positionals {
		if !p.consumed {
			leftover = append(leftover, p.value)
		}
	}
	for flag, n := range named {
		if !n.consumed {
			leftover = append(leftover, flag)
			if n.value != nil {
				leftover = append(leftover, *n.value)
			}
		}
	}

	if len(leftover) > 0 && !hasGenericParams {
		return nil, axerr.NewUserError("run", fmt.Errorf("unexpected argument(s): %s", strings.Join(leftover, " ")))
	}

	return &Result{Substitutions: subs, GenericValues: leftover}, nil
}

// partition splits raw CLI tokens into positional args (in appearance order)
// and named args keyed by the flag token exactly as the user typed it
// (e.g. "--target" or "-t"). A token starting with `-`/`--` is named; its
// value is the next token unless that token is itself named.
func partition(rawArgs []string) ([]*positionalArg, map[string]*namedArg) {
	var positionals []*positionalArg
	named := map[string]*namedArg{}

	for i := 0; i < len(rawArgs); i++ {
		tok := rawArgs[i]
		if isFlag(tok) {
			n := &namedArg{}
			if i+1 < len(rawArgs) && !isFlag(rawArgs[i+1]) {
				v := rawArgs[i+1]
				n.value = &v
				i++
			}
			named[tok] = n
			continue
		}
		positionals = append(positionals, &positionalArg{value: tok})
	}
	return positionals, named
}

func isFlag(tok string) bool {
	return strings.HasPrefix(tok, "-") && tok != "-"
}

func resolveOne(def template.ParameterDef, positionals []*positionalArg, named map[string]*namedArg) (string, error) {
	switch def.Kind {
	case template.KindPositional:
		return resolvePositional(def, positionals)
	default:
		return resolveNamed(def, named)
	}
}

// resolvePositional consumes the index-th *unconsumed* positional arg
// (spec.md §4.6 step 2, Positional case), falling back to default_value or
// empty/required-error exactly like the absent-named case below.
func resolvePositional(def template.ParameterDef, positionals []*positionalArg) (string, error) {
	if arg := nthUnconsumed(positionals, def.Index); arg != nil {
		arg.consumed = true
		return applyLiteral(def, arg.value), nil
	}
	if def.DefaultValue != nil {
		return applyLiteral(def, *def.DefaultValue), nil
	}
	if def.Required {
		return "", axerr.NewUserError("run", fmt.Errorf("missing required parameter %s", def.OriginalToken))
	}
	return applyLiteral(def, ""), nil
}

// nthUnconsumed returns the index-th positional arg that hasn't already been
// claimed by an earlier ParameterDef, or nil if there aren't that many left.
func nthUnconsumed(positionals []*positionalArg, index int) *positionalArg {
	if index < 0 {
		return nil
	}
	n := 0
	for _, p := range positionals {
		if p.consumed {
			continue
		}
		if n == index {
			return p
		}
		n++
	}
	return nil
}

// resolveNamed applies spec.md §4.6 step 2's Named case. Crucially,
// default_value only ever applies when the flag is present with no value of
// its own; an absent flag always resolves to empty (or a required-error),
// never to its default.
func resolveNamed(def template.ParameterDef, named map[string]*namedArg) (string, error) {
	longKey := "--" + def.Name
	longArg, hasLong := named[longKey]
	var aliasArg *namedArg
	var hasAlias bool
	if def.Alias != nil {
		aliasArg, hasAlias = named[*def.Alias]
	}
	if hasLong && hasAlias {
		return "", axerr.NewUserError("run", fmt.Errorf("both %s and %s given for the same parameter", longKey, *def.Alias))
	}

	var arg *namedArg
	switch {
	case hasLong:
		arg = longArg
	case hasAlias:
		arg = aliasArg
	}

	if arg == nil {
		if def.Required {
			return "", axerr.NewUserError("run", fmt.Errorf("missing required parameter %s", def.OriginalToken))
		}
		return applyLiteral(def, ""), nil
	}

	arg.consumed = true
	raw := ""
	hasValue := arg.value != nil
	if hasValue {
		raw = *arg.value
	} else if def.DefaultValue != nil {
		raw = *def.DefaultValue
		hasValue = true
	}
	return renderNamed(def, raw, hasValue), nil
}

// renderNamed applies the map/pass-through rendering rules for a present
// Named parameter (spec.md §4.6 step 2).
func renderNamed(def template.ParameterDef, value string, hasValue bool) string {
	if def.Map != nil {
		return applyLiteral(def, *def.Map+value)
	}
	if !hasValue {
		return applyLiteral(def, "--"+def.Name)
	}
	return applyLiteral(def, fmt.Sprintf("--%s %s", def.Name, value))
}

// applyLiteral wraps value in double quotes with internal quotes escaped,
// when the `literal` modifier is set.
func applyLiteral(def template.ParameterDef, value string) string {
	if !def.Literal {
		return value
	}
	escaped := strings.ReplaceAll(value, `"`, `\"`)
	return `"` + escaped + `"`
}

// ExtractDefs scans a sequence of templates and returns the unique
// ParameterDefs encountered (deduplicated by OriginalToken, in first-seen
// order) plus whether a generic `<params>` token was present anywhere.
func ExtractDefs(templates [][]template.Component) (defs []template.ParameterDef, hasGeneric bool) {
	seen := map[string]bool{}
	for _, tpl := range templates {
		for _, comp := range tpl {
			switch c := comp.(type) {
			case template.Parameter:
				if !seen[c.Def.OriginalToken] {
					seen[c.Def.OriginalToken] = true
					defs = append(defs, c.Def)
				}
			case template.GenericParams:
				hasGeneric = true
			}
		}
	}
	return defs, hasGeneric
}

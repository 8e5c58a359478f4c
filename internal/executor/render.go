package executor

import (
	"context"
	"fmt"
	"strings"

	"axes/internal/color"
	"axes/internal/template"
)

// RenderContext carries every substitution source the tokenizer's namespaces
// draw from: resolved parameters, generic leftover args, and project
// identity (spec.md §4.1, §4.7).
type RenderContext struct {
	Substitutions  map[string]string
	GenericValues  []string
	GenericLiteral bool
	ProjectPath    string
	ProjectName    string
	ProjectUUID    string
	Version        string
	HasVersion     bool
}

// render turns a tokenized template into its final string, evaluating
// `<run('...')>` substitutions (which may themselves spawn a child process)
// along the way.
func (e *Executor) render(ctx context.Context, comps []template.Component, rc RenderContext) (string, error) {
	var sb strings.Builder
	for _, comp := range comps {
		switch c := comp.(type) {
		case template.Literal:
			sb.WriteString(c.Text)

		case template.Parameter:
			sb.WriteString(rc.Substitutions[c.Def.OriginalToken])

		case template.GenericParams:
			sb.WriteString(renderGeneric(rc.GenericValues, c.Literal || rc.GenericLiteral))

		case template.ColorToken:
			sb.WriteString(color.ToANSI(c.Style))

		case template.Path:
			sb.WriteString(rc.ProjectPath)
		case template.Name:
			sb.WriteString(rc.ProjectName)
		case template.Uuid:
			sb.WriteString(rc.ProjectUUID)
		case template.Version:
			if rc.HasVersion {
				sb.WriteString(rc.Version)
			}

		case template.RunLiteral:
			out, err := e.renderRunLiteral(ctx, c.Cmd, rc)
			if err != nil {
				return "", fmt.Errorf("in <run(...)> substitution: %w", err)
			}
			sb.WriteString(out)

		case template.ScriptRef, template.VarRef:
			return "", fmt.Errorf("unresolved reference token at render time: %v (flattener bug)", c)

		default:
			return "", fmt.Errorf("unrecognized template component %T", c)
		}
	}
	return sb.String(), nil
}

func renderGeneric(values []string, literal bool) string {
	if !literal {
		return strings.Join(values, " ")
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return strings.Join(quoted, " ")
}

// renderRunLiteral tokenizes the inner command, renders it, spawns a child
// capturing stdout with stderr inherited, and trims trailing whitespace.
// Failure aborts the enclosing command (spec.md §4.7). The inner text holds
// no `<...>` tokens (the tokenizer rejects a `>` inside `<run('...')>`), and
// the flattener does not inline references inside a RunLiteral, so a
// `<scripts::x>`/`<vars::y>` reaching render() here is an error.
func (e *Executor) renderRunLiteral(ctx context.Context, cmd string, rc RenderContext) (string, error) {
	innerTokens, err := template.Tokenize(cmd)
	if err != nil {
		return "", err
	}
	rendered, err := e.render(ctx, innerTokens, rc)
	if err != nil {
		return "", err
	}
	out, err := e.captureOutput(ctx, rendered)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, " \t\r\n"), nil
}

// BuildRenderContext assembles a RenderContext from a flattened task's
// resolved arguments and the target project's identity.
func BuildRenderContext(projectPath, projectName, projectUUID string, version *string, subs map[string]string, generic []string, genericLiteral bool) RenderContext {
	rc := RenderContext{
		Substitutions:  subs,
		GenericValues:  generic,
		GenericLiteral: genericLiteral,
		ProjectPath:    projectPath,
		ProjectName:    projectName,
		ProjectUUID:    projectUUID,
	}
	if version != nil {
		rc.Version = *version
		rc.HasVersion = true
	}
	return rc
}

// Package compiler implements the Layer Compiler (spec.md §4.2): it turns one
// project's raw, on-disk config into a platform-agnostic, fully-tokenized
// CompiledLayer. References to other scripts/vars are left unresolved — that
// is the Task Flattener's job.
package compiler

import (
	"fmt"
	"strings"

	"axes/internal/rawconfig"
	"axes/internal/template"
)

// Action distinguishes whether a rendered command should be executed or
// merely printed to stdout.
type Action int

const (
	ActionExecute Action = iota
	ActionPrint
)

// CommandExecution is one compiled command line: its tokenized template plus
// the flags parsed from its action prefixes.
type CommandExecution struct {
	Action         Action
	Template       []template.Component
	IgnoreErrors   bool
	RunInParallel  bool
	SilentMode     bool
}

// PlatformExecution bundles up to four platform-keyed CommandExecutions.
// Selection is by current OS with fallback to Default.
type PlatformExecution struct {
	Default *CommandExecution
	Windows *CommandExecution
	Linux   *CommandExecution
	MacOS   *CommandExecution
}

// Select returns the CommandExecution for goos ("windows", "linux", "darwin",
// ...), falling back to Default. Returns nil if neither is set.
func (p PlatformExecution) Select(goos string) *CommandExecution {
	switch goos {
	case "windows":
		if p.Windows != nil {
			return p.Windows
		}
	case "linux":
		if p.Linux != nil {
			return p.Linux
		}
	case "darwin":
		if p.MacOS != nil {
			return p.MacOS
		}
	}
	return p.Default
}

// Task is a compiled script: an optional description plus an ordered
// sequence of PlatformExecutions (one per line of the source entry).
type Task struct {
	Desc *string
	Runs []PlatformExecution
}

// Var is a compiled var entry: a single PlatformExecution with no action
// prefixes ever interpreted.
type Var struct {
	Desc *string
	Run  PlatformExecution
}

// Options mirrors rawconfig.OptionsConfig once every string field has been
// tokenized.
type Options struct {
	Prompt           *string
	Shell            *string
	CacheDir         *string
	AtStart          *Task
	AtExit           *Task
	OpenWithDefault  *string
	OpenWithCommands map[string]Task
}

// CompiledLayer is the fully-tokenized, platform-agnostic AST compiled from
// one project's axes.toml.
type CompiledLayer struct {
	Version     *int
	Description *string
	Scripts     map[string]Task
	Vars        map[string]Var
	Env         map[string]string
	Options     Options
}

// CompileLayer compiles a parsed ProjectConfig into a CompiledLayer.
// sourceFile is used only for error attribution.
func CompileLayer(sourceFile string, cfg *rawconfig.ProjectConfig) (*CompiledLayer, error) {
	layer := &CompiledLayer{
		Version:     cfg.Version,
		Description: cfg.Description,
		Scripts:     make(map[string]Task, len(cfg.Scripts)),
		Vars:        make(map[string]Var, len(cfg.Vars)),
		Env:         cfg.Env,
	}

	for name, raw := range cfg.Scripts {
		task, err := compileScript(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: script %q: %w", sourceFile, name, err)
		}
		layer.Scripts[name] = *task
	}

	for name, raw := range cfg.Vars {
		v, err := compileVar(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: var %q: %w", sourceFile, name, err)
		}
		layer.Vars[name] = *v
	}

	opts, err := compileOptions(cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: options: %w", sourceFile, err)
	}
	layer.Options = *opts

	return layer, nil
}

func compileOptions(raw rawconfig.OptionsConfig) (*Options, error) {
	opts := &Options{
		Prompt:   raw.Prompt,
		Shell:    raw.Shell,
		CacheDir: raw.CacheDir,
	}

	if raw.AtStart != nil {
		t, err := compileScript(*raw.AtStart)
		if err != nil {
			return nil, fmt.Errorf("at_start: %w", err)
		}
		opts.AtStart = t
	}
	if raw.AtExit != nil {
		t, err := compileScript(*raw.AtExit)
		if err != nil {
			return nil, fmt.Errorf("at_exit: %w", err)
		}
		opts.AtExit = t
	}

	opts.OpenWithDefault = raw.OpenWith.Default
	if len(raw.OpenWith.Commands) > 0 {
		opts.OpenWithCommands = make(map[string]Task, len(raw.OpenWith.Commands))
		for name, rawScript := range raw.OpenWith.Commands {
			t, err := compileScript(rawScript)
			if err != nil {
				return nil, fmt.Errorf("open_with.commands.%s: %w", name, err)
			}
			opts.OpenWithCommands[name] = *t
		}
	}

	return opts, nil
}

// compileScript normalizes any of the four raw script shapes into a Task.
func compileScript(raw rawconfig.TomlScript) (*Task, error) {
	switch raw.Shape {
	case rawconfig.ShapeSimple:
		exec, err := compileCommandLine(raw.Simple)
		if err != nil {
			return nil, err
		}
		return &Task{Runs: []PlatformExecution{{Default: exec}}}, nil

	case rawconfig.ShapeSequence:
		runs := make([]PlatformExecution, 0, len(raw.Sequence))
		for _, line := range raw.Sequence {
			exec, err := compileCommandLine(line)
			if err != nil {
				return nil, err
			}
			runs = append(runs, PlatformExecution{Default: exec})
		}
		return &Task{Runs: runs}, nil

	case rawconfig.ShapePlatform:
		pe, err := compilePlatformBlock(raw.Platform)
		if err != nil {
			return nil, err
		}
		return &Task{Desc: raw.Desc, Runs: []PlatformExecution{*pe}}, nil

	case rawconfig.ShapeExtended:
		inner, err := compileScript(*raw.Run)
		if err != nil {
			return nil, err
		}
		inner.Desc = raw.Desc
		return inner, nil

	default:
		return nil, fmt.Errorf("unrecognized script shape")
	}
}

func compilePlatformBlock(pb rawconfig.PlatformBlock) (*PlatformExecution, error) {
	pe := &PlatformExecution{}
	var err error
	if pb.Default != nil {
		if pe.Default, err = compileCommandLine(*pb.Default); err != nil {
			return nil, err
		}
	}
	if pb.Windows != nil {
		if pe.Windows, err = compileCommandLine(*pb.Windows); err != nil {
			return nil, err
		}
	}
	if pb.Linux != nil {
		if pe.Linux, err = compileCommandLine(*pb.Linux); err != nil {
			return nil, err
		}
	}
	if pb.MacOS != nil {
		if pe.MacOS, err = compileCommandLine(*pb.MacOS); err != nil {
			return nil, err
		}
	}
	return pe, nil
}

// compileVar compiles a raw var entry into a Var. Action prefixes are never
// parsed for vars; the whole string (minus tokenization) is literal.
func compileVar(raw rawconfig.TomlVar) (*Var, error) {
	v := &Var{Desc: raw.Desc}

	if !raw.IsExtended {
		tpl, err := template.Tokenize(raw.Simple)
		if err != nil {
			return nil, err
		}
		v.Run = PlatformExecution{Default: &CommandExecution{Action: ActionExecute, Template: tpl}}
		return v, nil
	}

	if raw.Value.IsPlatform {
		pe, err := compileVarPlatformBlock(raw.Value.Platform)
		if err != nil {
			return nil, err
		}
		v.Run = *pe
		return v, nil
	}

	tpl, err := template.Tokenize(raw.Value.Simple)
	if err != nil {
		return nil, err
	}
	v.Run = PlatformExecution{Default: &CommandExecution{Action: ActionExecute, Template: tpl}}
	return v, nil
}

func compileVarPlatformBlock(pb rawconfig.PlatformBlock) (*PlatformExecution, error) {
	tokenizeVar := func(s *string) (*CommandExecution, error) {
		if s == nil {
			return nil, nil
		}
		tpl, err := template.Tokenize(*s)
		if err != nil {
			return nil, err
		}
		return &CommandExecution{Action: ActionExecute, Template: tpl}, nil
	}

	pe := &PlatformExecution{}
	var err error
	if pe.Default, err = tokenizeVar(pb.Default); err != nil {
		return nil, err
	}
	if pe.Windows, err = tokenizeVar(pb.Windows); err != nil {
		return nil, err
	}
	if pe.Linux, err = tokenizeVar(pb.Linux); err != nil {
		return nil, err
	}
	if pe.MacOS, err = tokenizeVar(pb.MacOS); err != nil {
		return nil, err
	}
	return pe, nil
}

// compileCommandLine parses the action prefixes off one script line, then
// tokenizes the remainder.
func compileCommandLine(line string) (*CommandExecution, error) {
	rest, silent, ignoreErrors, parallel, isPrint := parsePrefixes(line)

	tpl, err := template.Tokenize(rest)
	if err != nil {
		return nil, err
	}

	action := ActionExecute
	if isPrint {
		action = ActionPrint
	}

	return &CommandExecution{
		Action:        action,
		Template:      tpl,
		IgnoreErrors:  ignoreErrors,
		RunInParallel: parallel,
		SilentMode:    silent,
	}, nil
}

// parsePrefixes strips the leading `@`/`-`/`>` combination (in any order,
// optionally terminated by `|`) and a leading `#` (print-only) from a script
// line, per spec.md §4.1.
func parsePrefixes(line string) (rest string, silent, ignoreErrors, parallel, isPrint bool) {
	rest = line
	for {
		switch {
		case strings.HasPrefix(rest, "@"):
			silent = true
			rest = rest[1:]
		case strings.HasPrefix(rest, "-"):
			ignoreErrors = true
			rest = rest[1:]
		case strings.HasPrefix(rest, ">"):
			parallel = true
			rest = rest[1:]
		default:
			goto prefixesDone
		}
	}
prefixesDone:
	if strings.HasPrefix(rest, "|") {
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, "#") {
		isPrint = true
		rest = rest[1:]
	}
	return rest, silent, ignoreErrors, parallel, isPrint
}

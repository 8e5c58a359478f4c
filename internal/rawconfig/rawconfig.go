// Package rawconfig parses a project's on-disk axes.toml (spec.md §3, §6)
// into the union-typed structures the Layer Compiler consumes. Action
// prefixes and template tokens are NOT interpreted here — that's the
// compiler's job; this package only resolves the four syntactic shapes a
// script or var entry may take.
package rawconfig

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// ProjectConfig is the root of one project's axes.toml.
type ProjectConfig struct {
	Version     *int                  `toml:"version"`
	Description *string               `toml:"description"`
	Scripts     map[string]TomlScript `toml:"scripts"`
	Vars        map[string]TomlVar    `toml:"vars"`
	Env         map[string]string     `toml:"env"`
	Options     OptionsConfig         `toml:"options"`
}

// OptionsConfig is the `[options]` table.
type OptionsConfig struct {
	Prompt   *string                  `toml:"prompt"`
	Shell    *string                  `toml:"shell"`
	CacheDir *string                  `toml:"cache_dir"`
	AtStart  *TomlScript              `toml:"at_start"`
	AtExit   *TomlScript              `toml:"at_exit"`
	OpenWith OpenWithConfig           `toml:"open_with"`
}

// OpenWithConfig is the `[options.open_with]` table.
type OpenWithConfig struct {
	Default  *string               `toml:"default"`
	Commands map[string]TomlScript `toml:"commands"`
}

// scriptShapeKeys are the only fields allowed in a platform/extended script
// table; anything else is an unknown-field parse error (spec.md §4.2).
var scriptShapeKeys = map[string]bool{
	"default": true, "windows": true, "linux": true, "macos": true,
	"desc": true, "run": true,
}

var varShapeKeys = map[string]bool{
	"default": true, "windows": true, "linux": true, "macos": true,
	"desc": true, "value": true,
}

// ScriptShape distinguishes the four syntactic shapes a script entry may take.
type ScriptShape int

const (
	ShapeSimple ScriptShape = iota
	ShapeSequence
	ShapePlatform
	ShapeExtended
)

// PlatformBlock holds the up-to-four platform-keyed raw command strings.
type PlatformBlock struct {
	Default *string
	Windows *string
	Linux   *string
	MacOS   *string
}

// TomlScript is a script entry, one of: a plain string, an ordered list of
// strings, a platform table, or an extended table wrapping any of the above
// plus a description (spec.md §3).
type TomlScript struct {
	Shape ScriptShape

	Simple   string
	Sequence []string
	Platform PlatformBlock

	// Desc is set for ShapePlatform (inline `desc` alongside the platform
	// keys) and ShapeExtended.
	Desc *string
	// Run is set only for ShapeExtended.
	Run *TomlScript
}

// UnmarshalTOML implements the custom decoding for the four script shapes.
func (s *TomlScript) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		s.Shape = ShapeSimple
		s.Simple = v
		return nil

	case []interface{}:
		s.Shape = ShapeSequence
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("script sequence entries must be strings")
			}
			s.Sequence = append(s.Sequence, str)
		}
		return nil

	case map[string]interface{}:
		if err := checkUnknownKeys(v, scriptShapeKeys); err != nil {
			return err
		}
		if runVal, ok := v["run"]; ok {
			s.Shape = ShapeExtended
			if desc, ok := v["desc"].(string); ok {
				s.Desc = &desc
			}
			inner := &TomlScript{}
			if err := inner.UnmarshalTOML(runVal); err != nil {
				return fmt.Errorf("in 'run' field: %w", err)
			}
			s.Run = inner
			return nil
		}
		s.Shape = ShapePlatform
		if desc, ok := v["desc"].(string); ok {
			s.Desc = &desc
		}
		assignPlatformBlock(&s.Platform, v)
		return nil

	default:
		return fmt.Errorf("script entry must be a string, array, or table")
	}
}

// TomlVarValue is the `value` field of an extended var table: either a plain
// string or a platform table. Action prefixes are never parsed for vars.
type TomlVarValue struct {
	IsPlatform bool
	Simple     string
	Platform   PlatformBlock
}

func (v *TomlVarValue) UnmarshalTOML(data interface{}) error {
	switch d := data.(type) {
	case string:
		v.Simple = d
		return nil
	case map[string]interface{}:
		v.IsPlatform = true
		assignPlatformBlock(&v.Platform, d)
		return nil
	default:
		return fmt.Errorf("var value must be a string or table")
	}
}

// TomlVar is a var entry: a plain string, or an extended table of
// `{desc, value}` (spec.md §3).
type TomlVar struct {
	IsExtended bool
	Simple     string
	Desc       *string
	Value      TomlVarValue
}

func (v *TomlVar) UnmarshalTOML(data interface{}) error {
	switch d := data.(type) {
	case string:
		v.Simple = d
		return nil
	case map[string]interface{}:
		if err := checkUnknownKeys(d, varShapeKeys); err != nil {
			return err
		}
		v.IsExtended = true
		if desc, ok := d["desc"].(string); ok {
			v.Desc = &desc
		}
		valueData, ok := d["value"]
		if !ok {
			return fmt.Errorf("extended var table requires a 'value' field")
		}
		return v.Value.UnmarshalTOML(valueData)
	default:
		return fmt.Errorf("var entry must be a string or table")
	}
}

func assignPlatformBlock(pb *PlatformBlock, m map[string]interface{}) {
	if s, ok := m["default"].(string); ok {
		pb.Default = &s
	}
	if s, ok := m["windows"].(string); ok {
		pb.Windows = &s
	}
	if s, ok := m["linux"].(string); ok {
		pb.Linux = &s
	}
	if s, ok := m["macos"].(string); ok {
		pb.MacOS = &s
	}
}

func checkUnknownKeys(m map[string]interface{}, allowed map[string]bool) error {
	for k := range m {
		if !allowed[k] {
			return fmt.Errorf("unknown field %q", k)
		}
	}
	return nil
}

// Load parses contents, the bytes of the axes.toml at path. It does no I/O,
// and path is not used.
func Load(path string, contents []byte) (*ProjectConfig, error) {
	var cfg ProjectConfig
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

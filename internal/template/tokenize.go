package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"axes/internal/color"
)

// tokenRe captures a `<...>` token together with an optional leading
// backslash that marks it as escaped.
var tokenRe = regexp.MustCompile(`\\?<([^>]+)>`)

// Tokenize converts a raw command string into a flat sequence of Components.
// It is a pure function: same input always yields the same output, and it
// performs no I/O. Unknown namespaces are a hard error (spec.md §4.1).
func Tokenize(text string) ([]Component, error) {
	var components []Component
	pushLiteral := func(s string) {
		if s == "" {
			return
		}
		if n := len(components); n > 0 {
			if lit, ok := components[n-1].(Literal); ok {
				components[n-1] = Literal{Text: lit.Text + s}
				return
			}
		}
		components = append(components, Literal{Text: s})
	}

	lastIndex := 0
	matches := tokenRe.FindAllStringSubmatchIndex(text, -1)
	for _, m := range matches {
		start, end := m[0], m[1]
		pushLiteral(text[lastIndex:start])

		fullMatch := text[start:end]
		if strings.HasPrefix(fullMatch, `\`) {
			// Escaped token: the backslash is consumed, the literal <...> is kept.
			pushLiteral(fullMatch[1:])
		} else {
			content := text[m[2]:m[3]]
			component, err := parseTokenContent(content)
			if err != nil {
				return nil, fmt.Errorf("failed to parse token %q: %w", fullMatch, err)
			}
			components = append(components, component)
		}
		lastIndex = end
	}
	pushLiteral(text[lastIndex:])

	return components, nil
}

func parseTokenContent(content string) (Component, error) {
	trimmed := strings.TrimSpace(content)

	switch {
	case strings.HasPrefix(trimmed, "params::"):
		spec := strings.TrimPrefix(trimmed, "params::")
		def, err := ParseParameterToken("<"+content+">", spec)
		if err != nil {
			return nil, err
		}
		return Parameter{Def: def}, nil

	case trimmed == "params":
		return GenericParams{Literal: false}, nil

	case strings.HasPrefix(trimmed, "params(") && strings.HasSuffix(trimmed, ")"):
		modifiersStr := strings.TrimSuffix(strings.TrimPrefix(trimmed, "params("), ")")
		mods, err := ParseModifiers(modifiersStr)
		if err != nil {
			return nil, err
		}
		return GenericParams{Literal: mods.Literal}, nil

	case strings.HasPrefix(trimmed, "#"):
		styleName := strings.TrimPrefix(trimmed, "#")
		style, err := color.ParseStyleName(styleName)
		if err != nil {
			return nil, err
		}
		return ColorToken{Style: style}, nil

	case strings.HasPrefix(trimmed, "run"):
		rest := strings.TrimPrefix(trimmed, "run")
		if strings.HasPrefix(rest, "('") && strings.HasSuffix(rest, "')") {
			cmd := strings.TrimSuffix(strings.TrimPrefix(rest, "('"), "')")
			return RunLiteral{Cmd: cmd}, nil
		}
		return nil, fmt.Errorf("invalid run(...) syntax")

	case trimmed == "path":
		return Path{}, nil
	case trimmed == "name":
		return Name{}, nil
	case trimmed == "uuid":
		return Uuid{}, nil
	case trimmed == "version":
		return Version{}, nil

	case strings.HasPrefix(trimmed, "scripts::"):
		return ScriptRef{Name: strings.TrimPrefix(trimmed, "scripts::")}, nil
	case strings.HasPrefix(trimmed, "vars::"):
		return VarRef{Name: strings.TrimPrefix(trimmed, "vars::")}, nil

	default:
		return nil, fmt.Errorf("unknown token namespace in <%s>", content)
	}
}

// paramSpecRe splits "0(required)" or "target(alias='-t')" into a specifier
// and an optional modifiers string.
var paramSpecRe = regexp.MustCompile(`^\s*([^(\s]+)\s*(?:\((.*)\))?\s*$`)

// ParseParameterToken parses the content of a `<params::...>` token, e.g.
// "0(required)" or "target(alias='-t')".
func ParseParameterToken(originalToken, spec string) (ParameterDef, error) {
	caps := paramSpecRe.FindStringSubmatch(spec)
	if caps == nil {
		return ParameterDef{}, fmt.Errorf("invalid parameter format in token: %s", originalToken)
	}
	specifier := caps[1]
	modifiersStr := caps[2]

	mods, err := ParseModifiers(modifiersStr)
	if err != nil {
		return ParameterDef{}, fmt.Errorf("failed to parse modifiers in token %s: %w", originalToken, err)
	}

	def := ParameterDef{
		Required:      mods.Required,
		Literal:       mods.Literal,
		DefaultValue:  mods.DefaultValue,
		Alias:         mods.Alias,
		Map:           mods.Map,
		OriginalToken: originalToken,
	}

	if index, err := strconv.Atoi(specifier); err == nil {
		def.Kind = KindPositional
		def.Index = index
	} else {
		def.Kind = KindNamed
		def.Name = specifier
	}

	return def, nil
}

// Modifiers is the parsed set of `(key=value, flag)` modifiers attached to a
// parameter or generic-params token.
type Modifiers struct {
	Required     bool
	Literal      bool
	DefaultValue *string
	Alias        *string
	Map          *string
}

// modifierRe matches one "key" or "key=value" / "key='value'" / `key="value"`
// entry in a comma-separated modifier list.
var modifierRe = regexp.MustCompile(`\s*([^=,\s]+)(?:\s*=\s*(?:'([^']*)'|"([^"]*)"|([^,]*)))?\s*`)

// ParseModifiers parses a modifier string like "required, default='staging', literal".
func ParseModifiers(s string) (Modifiers, error) {
	var mods Modifiers
	if strings.TrimSpace(s) == "" {
		return mods, nil
	}

	for _, m := range splitModifiers(s) {
		caps := modifierRe.FindStringSubmatch(m)
		if caps == nil {
			continue
		}
		key := strings.TrimSpace(caps[1])
		if key == "" {
			continue
		}
		var value *string
		for _, g := range caps[2:] {
			if g != "" {
				v := g
				value = &v
				break
			}
		}
		// A value group can legitimately be the empty string (e.g. map='');
		// detect "key=" with no quoted/bare text by checking for '=' in the match.
		if value == nil && strings.Contains(m, "=") {
			empty := ""
			value = &empty
		}

		if value != nil {
			switch key {
			case "default":
				mods.DefaultValue = value
			case "alias":
				mods.Alias = value
			case "map":
				mods.Map = value
			default:
				return Modifiers{}, fmt.Errorf("unknown modifier key: %q", key)
			}
		} else {
			switch key {
			case "required":
				mods.Required = true
			case "literal":
				mods.Literal = true
			default:
				return Modifiers{}, fmt.Errorf("unknown boolean modifier: %q (or missing value)", key)
			}
		}
	}
	return mods, nil
}

// splitModifiers splits on top-level commas, respecting single/double quotes
// so that a comma inside a quoted default value doesn't split the modifier.
func splitModifiers(s string) []string {
	var parts []string
	var buf strings.Builder
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			buf.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			buf.WriteRune(r)
		case r == ',':
			parts = append(parts, buf.String())
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	if buf.Len() > 0 {
		parts = append(parts, buf.String())
	}
	return parts
}

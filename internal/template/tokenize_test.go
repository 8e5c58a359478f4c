package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_LiteralOnly(t *testing.T) {
	comps, err := Tokenize("cargo build --release")
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, Literal{Text: "cargo build --release"}, comps[0])
}

func TestTokenize_SplitsLiteralsAroundTokens(t *testing.T) {
	comps, err := Tokenize("echo <path> and <path>")
	require.NoError(t, err)
	require.Len(t, comps, 4)
	assert.Equal(t, Literal{Text: "echo "}, comps[0])
	assert.Equal(t, Path{}, comps[1])
	assert.Equal(t, Literal{Text: " and "}, comps[2])
	assert.Equal(t, Path{}, comps[3])
}

func TestTokenize_EscapedTokenIsKeptLiteral(t *testing.T) {
	comps, err := Tokenize(`echo \<path>`)
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, Literal{Text: "echo <path>"}, comps[0])
}

func TestTokenize_UnknownNamespaceErrors(t *testing.T) {
	_, err := Tokenize("<bogus::thing>")
	assert.Error(t, err)
}

func TestTokenize_WellKnownSubstitutions(t *testing.T) {
	comps, err := Tokenize("<path> <name> <uuid> <version>")
	require.NoError(t, err)
	require.Len(t, comps, 7)
	assert.Equal(t, Path{}, comps[0])
	assert.Equal(t, Name{}, comps[2])
	assert.Equal(t, Uuid{}, comps[4])
	assert.Equal(t, Version{}, comps[6])
}

func TestTokenize_ScriptAndVarRefs(t *testing.T) {
	comps, err := Tokenize("<scripts::build> then <vars::target>")
	require.NoError(t, err)
	assert.Equal(t, ScriptRef{Name: "build"}, comps[0])
	assert.Equal(t, VarRef{Name: "target"}, comps[2])
}

func TestTokenize_RunLiteral(t *testing.T) {
	comps, err := Tokenize(`<run('git rev-parse HEAD')>`)
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, RunLiteral{Cmd: "git rev-parse HEAD"}, comps[0])
}

func TestTokenize_ColorToken(t *testing.T) {
	comps, err := Tokenize("<#bold>warning<#reset>")
	require.NoError(t, err)
	require.Len(t, comps, 3)
	_, ok := comps[0].(ColorToken)
	assert.True(t, ok)
}

func TestParseParameterToken_Positional(t *testing.T) {
	def, err := ParseParameterToken("<params::0>", "0")
	require.NoError(t, err)
	assert.Equal(t, KindPositional, def.Kind)
	assert.Equal(t, 0, def.Index)
	assert.False(t, def.Required)
}

func TestParseParameterToken_NamedWithModifiers(t *testing.T) {
	def, err := ParseParameterToken("<params::target(required, alias='-t')>", "target(required, alias='-t')")
	require.NoError(t, err)
	assert.Equal(t, KindNamed, def.Kind)
	assert.Equal(t, "target", def.Name)
	assert.True(t, def.Required)
	require.NotNil(t, def.Alias)
	assert.Equal(t, "-t", *def.Alias)
}

func TestParseParameterToken_DefaultValue(t *testing.T) {
	def, err := ParseParameterToken("<params::env(default='staging')>", "env(default='staging')")
	require.NoError(t, err)
	require.NotNil(t, def.DefaultValue)
	assert.Equal(t, "staging", *def.DefaultValue)
}

func TestParseModifiers_UnknownKeyErrors(t *testing.T) {
	_, err := ParseModifiers("bogus=1")
	assert.Error(t, err)
}

func TestParseModifiers_CommaInsideQuotedValue(t *testing.T) {
	mods, err := ParseModifiers(`default='a,b', required`)
	require.NoError(t, err)
	require.NotNil(t, mods.DefaultValue)
	assert.Equal(t, "a,b", *mods.DefaultValue)
	assert.True(t, mods.Required)
}

func TestTokenize_GenericParams(t *testing.T) {
	comps, err := Tokenize("run <params>")
	require.NoError(t, err)
	assert.Equal(t, GenericParams{Literal: false}, comps[1])
}

func TestTokenize_GenericParamsLiteral(t *testing.T) {
	comps, err := Tokenize("run <params(literal)>")
	require.NoError(t, err)
	assert.Equal(t, GenericParams{Literal: true}, comps[1])
}

package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMixGraphTopology(t *testing.T) {
	g, err := NewMixGraph(2, MixParams{FadeIn: 2, Tempo: 1.25, Pitch: 0.8, Gain: 1.5})
	require.NoError(t, err)
	require.Len(t, g.Stages, 5)

	// Stage order is fixed: mix, fade, tempo, pitch, gain.
	assert.Equal(t, "amix", g.Stages[0].Filter)
	assert.Equal(t, []string{"0:a", "1:a"}, g.Stages[0].Inputs)
	assert.Equal(t, "afade", g.Stages[1].Filter)
	assert.Equal(t, "atempo", g.Stages[2].Filter)
	assert.Equal(t, "rubberband", g.Stages[3].Filter)
	assert.Equal(t, "volume", g.Stages[4].Filter)

	// Each stage consumes the previous stage's output.
	for i := 1; i < len(g.Stages); i++ {
		assert.Equal(t, []string{g.Stages[i-1].Output}, g.Stages[i].Inputs)
	}

	assert.Equal(t, "gain_out", g.Terminal())
}

func TestNewMixGraphArbitraryArity(t *testing.T) {
	g, err := NewMixGraph(4, MixParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"0:a", "1:a", "2:a", "3:a"}, g.Stages[0].Inputs)
	assert.Equal(t, Option{"inputs", "4"}, g.Stages[0].Options[0])

	_, err = NewMixGraph(1, MixParams{})
	assert.Error(t, err)
}

func TestMixParamsDefaults(t *testing.T) {
	p := MixParams{}
	p.ApplyDefaults()
	assert.Equal(t, 1.0, p.Tempo)
	assert.Equal(t, 1.0, p.Pitch)
	assert.Equal(t, 1.5, p.Gain)
	assert.Equal(t, 0.0, p.FadeIn)
}

func TestFilterSpecRendering(t *testing.T) {
	g, err := NewMixGraph(2, MixParams{FadeIn: 2})
	require.NoError(t, err)

	spec := g.FilterSpec()
	assert.Equal(t,
		"[0:a][1:a]amix=inputs=2:duration=longest[mix_out];"+
			"[mix_out]afade=t=in:st=0:d=2[fade_out];"+
			"[fade_out]atempo=tempo=1[tempo_out];"+
			"[tempo_out]rubberband=pitch=1:channels=2[pitch_out];"+
			"[pitch_out]volume=volume=1.5[gain_out]",
		spec)

	// Rendering is deterministic.
	assert.Equal(t, spec, g.FilterSpec())
}

func TestNewTrimGraph(t *testing.T) {
	g, err := NewTrimGraph(8, 2)
	require.NoError(t, err)
	require.Len(t, g.Stages, 1)
	assert.Equal(t, "atrim", g.Stages[0].Filter)
	assert.Equal(t, "[0:a]atrim=start=8:duration=2[trim_out]", g.FilterSpec())
	assert.Equal(t, "trim_out", g.Terminal())

	_, err = NewTrimGraph(-1, 5)
	assert.Error(t, err)
	_, err = NewTrimGraph(0, -5)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownFilter(t *testing.T) {
	g := &Graph{Stages: []Stage{
		{Filter: "reverb", Inputs: []string{"0:a"}, Output: "out"},
	}}
	err := g.Validate(1)
	assert.ErrorContains(t, err, "unknown filter")
}

func TestValidateRejectsUnresolvedInput(t *testing.T) {
	g := &Graph{Stages: []Stage{
		{Filter: "volume", Inputs: []string{"ghost"}, Output: "out"},
	}}
	err := g.Validate(1)
	assert.ErrorContains(t, err, "does not resolve")
}

func TestValidateRejectsForwardReference(t *testing.T) {
	// A stage may only consume outputs of stages appearing earlier.
	g := &Graph{Stages: []Stage{
		{Filter: "volume", Inputs: []string{"late_out"}, Output: "early_out"},
		{Filter: "volume", Inputs: []string{"0:a"}, Output: "late_out"},
	}}
	err := g.Validate(1)
	assert.ErrorContains(t, err, "does not resolve")
}

func TestValidateRejectsMultipleTerminals(t *testing.T) {
	g := &Graph{Stages: []Stage{
		{Filter: "volume", Inputs: []string{"0:a"}, Output: "a_out"},
		{Filter: "volume", Inputs: []string{"0:a"}, Output: "b_out"},
	}}
	err := g.Validate(1)
	assert.ErrorContains(t, err, "exactly one terminal")
}

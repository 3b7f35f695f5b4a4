package audio

import (
	"fmt"
	"strconv"
	"strings"
)

// Option is a single named filter option. Options are kept as an ordered
// slice so a graph always renders to the same filter spec.
type Option struct {
	Key   string
	Value string
}

// Stage is one named processing step of a filter graph. Inputs reference
// either a raw source label ("0:a", "1:a", ...) or the output label of an
// earlier stage.
type Stage struct {
	Filter  string
	Options []Option
	Inputs  []string
	Output  string
}

// Graph is an ordered list of stages forming a directed acyclic filter
// description, submitted to the external engine as one unit.
type Graph struct {
	Stages []Stage
}

// knownFilters is the fixed filter vocabulary the engine accepts.
var knownFilters = map[string]bool{
	"amix":       true, // mix N inputs
	"afade":      true, // fade in/out
	"atempo":     true, // tempo change
	"rubberband": true, // pitch shift
	"volume":     true, // gain
	"atrim":      true, // extract a sub-range
}

// SourceLabel returns the label addressing the audio stream of the i-th raw
// input.
func SourceLabel(i int) string {
	return fmt.Sprintf("%d:a", i)
}

// Validate checks the structural invariants of the graph: every filter is in
// the known vocabulary, every input label resolves to a raw source of the
// given count or the output of an earlier stage, and exactly one stage output
// is left unreferenced as the terminal.
func (g *Graph) Validate(inputCount int) error {
	if len(g.Stages) == 0 {
		return fmt.Errorf("filter graph has no stages")
	}

	sources := make(map[string]bool, inputCount)
	for i := 0; i < inputCount; i++ {
		sources[SourceLabel(i)] = true
	}

	defined := make(map[string]bool)
	referenced := make(map[string]bool)

	for i, stage := range g.Stages {
		if !knownFilters[stage.Filter] {
			return fmt.Errorf("stage %d: unknown filter %q", i, stage.Filter)
		}
		if stage.Output == "" {
			return fmt.Errorf("stage %d (%s): missing output label", i, stage.Filter)
		}
		if defined[stage.Output] {
			return fmt.Errorf("stage %d (%s): duplicate output label %q", i, stage.Filter, stage.Output)
		}
		if len(stage.Inputs) == 0 {
			return fmt.Errorf("stage %d (%s): no inputs", i, stage.Filter)
		}
		for _, in := range stage.Inputs {
			if !sources[in] && !defined[in] {
				return fmt.Errorf("stage %d (%s): input %q does not resolve to a source or an earlier stage", i, stage.Filter, in)
			}
			if defined[in] {
				referenced[in] = true
			}
		}
		defined[stage.Output] = true
	}

	var terminals []string
	for _, stage := range g.Stages {
		if !referenced[stage.Output] {
			terminals = append(terminals, stage.Output)
		}
	}
	if len(terminals) != 1 {
		return fmt.Errorf("filter graph must have exactly one terminal output, found %d (%s)",
			len(terminals), strings.Join(terminals, ", "))
	}

	return nil
}

// Terminal returns the graph's terminal output label: the one stage output no
// later stage consumes. Call Validate first; on an invalid graph Terminal
// returns the last stage's output.
func (g *Graph) Terminal() string {
	referenced := make(map[string]bool)
	for _, stage := range g.Stages {
		for _, in := range stage.Inputs {
			referenced[in] = true
		}
	}
	for _, stage := range g.Stages {
		if !referenced[stage.Output] {
			return stage.Output
		}
	}
	if len(g.Stages) == 0 {
		return ""
	}
	return g.Stages[len(g.Stages)-1].Output
}

// FilterSpec renders the graph as an ffmpeg filter_complex expression.
func (g *Graph) FilterSpec() string {
	parts := make([]string, 0, len(g.Stages))
	for _, stage := range g.Stages {
		var b strings.Builder
		for _, in := range stage.Inputs {
			b.WriteString("[" + in + "]")
		}
		b.WriteString(stage.Filter)
		for i, opt := range stage.Options {
			if i == 0 {
				b.WriteString("=")
			} else {
				b.WriteString(":")
			}
			b.WriteString(opt.Key + "=" + opt.Value)
		}
		b.WriteString("[" + stage.Output + "]")
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ";")
}

// Describe returns a compact human-readable form of the graph's stages, used
// in error reports.
func (g *Graph) Describe() string {
	names := make([]string, 0, len(g.Stages))
	for _, stage := range g.Stages {
		opts := make([]string, 0, len(stage.Options))
		for _, opt := range stage.Options {
			opts = append(opts, opt.Key+"="+opt.Value)
		}
		names = append(names, stage.Filter+"("+strings.Join(opts, ",")+")")
	}
	return strings.Join(names, " -> ")
}

// MixParams are the scalar parameters of a mix graph.
type MixParams struct {
	FadeIn float64 // Fade-in duration in seconds
	Tempo  float64 // Playback tempo factor
	Pitch  float64 // Pitch-shift factor
	Gain   float64 // Output volume factor
}

// ApplyDefaults fills unset parameters with their documented defaults.
func (p *MixParams) ApplyDefaults() {
	if p.Tempo == 0 {
		p.Tempo = 1.0
	}
	if p.Pitch == 0 {
		p.Pitch = 1.0
	}
	if p.Gain == 0 {
		p.Gain = 1.5
	}
	// FadeIn defaults to 0, which afade treats as a no-op duration.
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// NewMixGraph builds the fixed mix chain over inputCount raw sources:
// mix (longest-duration policy) -> fade-in -> tempo -> pitch -> gain.
// Any number of inputs >= 2 is accepted; the endpoint currently supplies two.
func NewMixGraph(inputCount int, p MixParams) (*Graph, error) {
	if inputCount < 2 {
		return nil, fmt.Errorf("mix graph requires at least 2 inputs, got %d", inputCount)
	}
	p.ApplyDefaults()

	inputs := make([]string, inputCount)
	for i := range inputs {
		inputs[i] = SourceLabel(i)
	}

	g := &Graph{Stages: []Stage{
		{
			Filter: "amix",
			Options: []Option{
				{"inputs", strconv.Itoa(inputCount)},
				{"duration", "longest"},
			},
			Inputs: inputs,
			Output: "mix_out",
		},
		{
			Filter: "afade",
			Options: []Option{
				{"t", "in"},
				{"st", "0"},
				{"d", formatFloat(p.FadeIn)},
			},
			Inputs: []string{"mix_out"},
			Output: "fade_out",
		},
		{
			Filter:  "atempo",
			Options: []Option{{"tempo", formatFloat(p.Tempo)}},
			Inputs:  []string{"fade_out"},
			Output:  "tempo_out",
		},
		{
			Filter: "rubberband",
			Options: []Option{
				{"pitch", formatFloat(p.Pitch)},
				{"channels", "2"},
			},
			Inputs: []string{"tempo_out"},
			Output: "pitch_out",
		},
		{
			Filter:  "volume",
			Options: []Option{{"volume", formatFloat(p.Gain)}},
			Inputs:  []string{"pitch_out"},
			Output:  "gain_out",
		},
	}}

	if err := g.Validate(inputCount); err != nil {
		return nil, err
	}
	return g, nil
}

// NewTrimGraph builds the single-stage graph extracting [start, start+span)
// from the sole raw source.
//
// Note: the client-facing parameter is named "endTime" but has always been fed
// to the engine as a duration, not an absolute end timestamp. That reading is
// preserved here on purpose until product intent says otherwise.
func NewTrimGraph(start, span float64) (*Graph, error) {
	if start < 0 || span < 0 {
		return nil, fmt.Errorf("trim bounds must be non-negative (start=%g, span=%g)", start, span)
	}

	g := &Graph{Stages: []Stage{
		{
			Filter: "atrim",
			Options: []Option{
				{"start", formatFloat(start)},
				{"duration", formatFloat(span)},
			},
			Inputs: []string{SourceLabel(0)},
			Output: "trim_out",
		},
	}}

	if err := g.Validate(1); err != nil {
		return nil, err
	}
	return g, nil
}

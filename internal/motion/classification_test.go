package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// window builds samples 10ms apart from xyz triples.
func window(points ...[3]float64) []Sample {
	out := make([]Sample, len(points))
	for i, p := range points {
		out[i] = NewSample(int64(i*10), p[0], p[1], p[2])
	}
	return out
}

func TestBuildFrames(t *testing.T) {
	frames := BuildFrames(window(
		[3]float64{0, 0, 1},
		[3]float64{-0.5, 0.25, 1.5},
	))
	require.Len(t, frames, 2)

	first := frames[0]
	assert.Equal(t, Vec3{}, first.Diff)
	assert.Equal(t, 0.0, first.TotalGravDiffsSq)
	assert.Equal(t, 1.0, first.SummedAbs)
	assert.Equal(t, 1.0, first.TotalGravSq)

	second := frames[1]
	assert.Equal(t, Vec3{X: 0.5, Y: 0.25, Z: 1.5}, second.Abs)
	assert.InDelta(t, 2.25, second.SummedAbs, 1e-12)
	assert.InDelta(t, 0.25+0.0625+2.25, second.TotalGravSq, 1e-12)
	assert.Equal(t, Vec3{X: -0.5, Y: 0.25, Z: 0.5}, second.Diff)
	assert.InDelta(t, 0.25+0.0625+0.25, second.TotalGravDiffsSq, 1e-12)

	assert.Nil(t, BuildFrames(nil))
}

func TestClassifier_Rules(t *testing.T) {
	tests := []struct {
		name         string
		window       []Sample
		maxBacktrack int
		wantLabel    Label
		wantRule     Rule
	}{
		{
			name:         "empty window",
			window:       nil,
			maxBacktrack: 10,
			wantLabel:    LabelUnknown,
			wantRule:     RuleEmpty,
		},
		{
			name:         "constant gravity vector rests on face",
			window:       window([3]float64{0, 0, 1}, [3]float64{0, 0, 1}, [3]float64{0, 0, 1}),
			maxBacktrack: 10,
			wantLabel:    LabelOnFace,
			wantRule:     RuleStillness,
		},
		{
			name:         "single axis jump is a jerk",
			window:       window([3]float64{0, 0, 1}, [3]float64{0, 0, 2.2}),
			maxBacktrack: 10,
			wantLabel:    LabelRolling,
			wantRule:     RuleJerk,
		},
		{
			name:         "summed diff change is a jerk",
			window:       window([3]float64{0, 0, 0}, [3]float64{0, 0, 0}, [3]float64{0.8, 0.8, 0.8}),
			maxBacktrack: 10,
			wantLabel:    LabelRolling,
			wantRule:     RuleJerk,
		},
		{
			name:         "single sample at 1g",
			window:       window([3]float64{0, 0, 1}),
			maxBacktrack: 5,
			wantLabel:    LabelOnFace,
			wantRule:     RuleGravityBand,
		},
		{
			name:         "single sample outside gravity band",
			window:       window([3]float64{0.5, 0, 0}),
			maxBacktrack: 5,
			wantLabel:    LabelOnFace,
			wantRule:     RuleZeroDiff,
		},
		{
			name:         "gravity band upper bound is exclusive",
			window:       window([3]float64{0, 0, 1.06}),
			maxBacktrack: 5,
			wantLabel:    LabelOnFace,
			wantRule:     RuleZeroDiff,
		},
		{
			name:         "small consecutive diffs mean handling",
			window:       window([3]float64{0.5, 0, 0}, [3]float64{0.7, 0, 0}, [3]float64{0.9, 0, 0}),
			maxBacktrack: 10,
			wantLabel:    LabelHandling,
			wantRule:     RuleDampedDiffs,
		},
		{
			name:         "large squared diff below jerk limits",
			window:       window([3]float64{0, 0, 0}, [3]float64{0.5, 0.5, 0.5}, [3]float64{1.59, 1.59, 1.59}),
			maxBacktrack: 10,
			wantLabel:    LabelRolling,
			wantRule:     RuleLargeDiff,
		},
		{
			name:         "sustained diffs average to rolling",
			window:       window([3]float64{0, 0, 0}, [3]float64{1, 1, 0}, [3]float64{0, 0, 0}),
			maxBacktrack: 10,
			wantLabel:    LabelRolling,
			wantRule:     RuleAvgRolling,
		},
		{
			name: "quiet window averages to handling",
			window: window(
				[3]float64{0, 0, 0},
				[3]float64{0, 0, 0},
				[3]float64{0, 0, 0},
				[3]float64{0.6, 0, 0},
				[3]float64{0.7, 0, 0},
			),
			maxBacktrack: 10,
			wantLabel:    LabelHandling,
			wantRule:     RuleAvgHandling,
		},
		{
			name:         "ambiguous average falls back to rolling",
			window:       window([3]float64{0, 0, 0}, [3]float64{0.8, 0, 0}, [3]float64{0, 0, 0}),
			maxBacktrack: 10,
			wantLabel:    LabelRolling,
			wantRule:     RuleFallback,
		},
		{
			name:         "one-frame backtrack sees only the last pair as still",
			window:       window([3]float64{0, 0, 0.5}, [3]float64{0, 0, 1.5}, [3]float64{0.75, 0, 0.75}),
			maxBacktrack: 1,
			wantLabel:    LabelOnFace,
			wantRule:     RuleStillness,
		},
		{
			name:         "two-frame backtrack sees the earlier step",
			window:       window([3]float64{0, 0, 0.5}, [3]float64{0, 0, 1.5}, [3]float64{0.75, 0, 0.75}),
			maxBacktrack: 10,
			wantLabel:    LabelRolling,
			wantRule:     RuleFallback,
		},
		{
			name:         "ambiguous average with short backtrack",
			window:       window([3]float64{0, 0, 0}, [3]float64{0.8, 0, 0}, [3]float64{0, 0, 0}),
			maxBacktrack: 2,
			wantLabel:    LabelRolling,
			wantRule:     RuleFallback,
		},
	}

	c := NewClassifier(DefaultThresholds())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Evaluate(tt.window, tt.maxBacktrack)
			assert.Equal(t, tt.wantLabel, result.Label)
			assert.Equal(t, tt.wantRule, result.Rule)
			assert.Equal(t, len(tt.window), result.Frames)
			assert.Equal(t, tt.wantLabel, c.Classify(tt.window, tt.maxBacktrack))
		})
	}
}

func TestClassifier_JerkCheckDisabled(t *testing.T) {
	th := DefaultThresholds()
	th.JerkCheckEnabled = false
	c := NewClassifier(th)

	w := window([3]float64{0, 0, 0}, [3]float64{0, 0, 0}, [3]float64{0.8, 0.8, 0.8})
	result := c.Evaluate(w, 10)
	assert.Equal(t, LabelRolling, result.Label)
	assert.Equal(t, RuleFallback, result.Rule)
}

func TestClassifier_StillnessUsesRecentFramesOnly(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	// An early spike outside the last three frames must not block OnFace.
	w := window(
		[3]float64{0, 0, 3},
		[3]float64{0, 0, 1.5},
		[3]float64{0, 0, 1.5},
		[3]float64{0, 0, 1.5},
	)
	result := c.Evaluate(w, 10)
	assert.Equal(t, LabelOnFace, result.Label)
	assert.Equal(t, RuleStillness, result.Rule)
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	w := window(
		[3]float64{0.1, -0.2, 0.9},
		[3]float64{0.4, 0.3, 0.2},
		[3]float64{-0.6, 0.9, 0.1},
		[3]float64{0.2, 0.2, 0.95},
	)

	first := c.Evaluate(w, 4)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Evaluate(w, 4))
	}
}

func TestLabel_Valid(t *testing.T) {
	for _, l := range Labels {
		assert.True(t, l.Valid(), string(l))
	}
	assert.False(t, Label("Flying").Valid())
}

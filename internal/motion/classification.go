package motion

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Label is the motion state assigned to the newest sample.
type Label string

const (
	// LabelOnFace indicates the die is resting on a face
	LabelOnFace Label = "OnFace"
	// LabelRolling indicates the die is tumbling
	LabelRolling Label = "Rolling"
	// LabelHandling indicates the die is being held or moved gently
	LabelHandling Label = "Handling"
	// LabelUnknown indicates no decision could be made
	LabelUnknown Label = "Unknown"
)

// Labels lists every label in a stable order.
var Labels = []Label{LabelOnFace, LabelRolling, LabelHandling, LabelUnknown}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	switch l {
	case LabelOnFace, LabelRolling, LabelHandling, LabelUnknown:
		return true
	}
	return false
}

// Default classification thresholds (units of g or g²).
const (
	DefaultJerkAxis           = 1.1
	DefaultJerkSum            = 2.2
	DefaultStillnessMax       = 0.01
	DefaultStillnessBacktrack = 2
	DefaultGravityBandLow     = 1.0
	DefaultGravityBandHigh    = 1.11
	DefaultHandlingDiffMax    = 0.3
	DefaultRollingDiffMin     = 3.5
	DefaultAvgRollingMin      = 1.0
	DefaultAvgHandlingMax     = 0.35
)

// Thresholds holds the tunable limits used by the classification rules.
type Thresholds struct {
	// Early jerk check
	JerkCheckEnabled bool
	JerkAxis         float64 // per-axis |diff| that means Rolling
	JerkSum          float64 // change in summed |diff| that means Rolling

	// Stillness over recent summed magnitudes
	StillnessMax       float64
	StillnessBacktrack int

	// Gravity magnitude band [low, high)
	GravityBandLow  float64
	GravityBandHigh float64

	// Per-frame squared diff cascade
	HandlingDiffMax float64
	RollingDiffMin  float64

	// Windowed average of squared diffs
	AvgRollingMin  float64
	AvgHandlingMax float64
}

// DefaultThresholds returns the hand-tuned thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		JerkCheckEnabled:   true,
		JerkAxis:           DefaultJerkAxis,
		JerkSum:            DefaultJerkSum,
		StillnessMax:       DefaultStillnessMax,
		StillnessBacktrack: DefaultStillnessBacktrack,
		GravityBandLow:     DefaultGravityBandLow,
		GravityBandHigh:    DefaultGravityBandHigh,
		HandlingDiffMax:    DefaultHandlingDiffMax,
		RollingDiffMin:     DefaultRollingDiffMin,
		AvgRollingMin:      DefaultAvgRollingMin,
		AvgHandlingMax:     DefaultAvgHandlingMax,
	}
}

// Rule names the cascade step that produced a decision.
type Rule string

const (
	RuleEmpty       Rule = "empty"
	RuleJerk        Rule = "jerk"
	RuleStillness   Rule = "stillness"
	RuleGravityBand Rule = "gravity_band"
	RuleZeroDiff    Rule = "zero_diff"
	RuleDampedDiffs Rule = "damped_diffs"
	RuleLargeDiff   Rule = "large_diff"
	RuleAvgRolling  Rule = "avg_rolling"
	RuleAvgHandling Rule = "avg_handling"
	RuleFallback    Rule = "fallback"
)

// ClassificationResult holds the label and the rule that produced it.
type ClassificationResult struct {
	Label  Label
	Rule   Rule
	Frames int
}

// Classifier performs rule-based classification of a sample window.
// It holds no state besides its thresholds.
type Classifier struct {
	Thresholds Thresholds
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{Thresholds: th}
}

// Classify returns the label for the newest sample of window.
// maxBacktrack bounds the windowed aggregates.
func (c *Classifier) Classify(window []Sample, maxBacktrack int) Label {
	return c.Evaluate(window, maxBacktrack).Label
}

// Evaluate runs the rule cascade over window. Rules are checked in priority
// order and the first match wins.
func (c *Classifier) Evaluate(window []Sample, maxBacktrack int) ClassificationResult {
	frames := BuildFrames(window)
	result := ClassificationResult{Frames: len(frames)}
	if len(frames) == 0 {
		result.Label, result.Rule = LabelUnknown, RuleEmpty
		return result
	}

	th := c.Thresholds
	newest := frames[len(frames)-1]
	var prev *FeatureFrame
	if len(frames) > 1 {
		prev = &frames[len(frames)-2]
	}

	// 1. Sudden large jerk
	if th.JerkCheckEnabled && c.isJerk(newest, prev) {
		result.Label, result.Rule = LabelRolling, RuleJerk
		return result
	}

	// 2. Near-constant summed magnitude
	if c.isStill(frames, maxBacktrack) {
		result.Label, result.Rule = LabelOnFace, RuleStillness
		return result
	}

	// 3. Gravity magnitude close to 1g
	if newest.TotalGravSq >= th.GravityBandLow && newest.TotalGravSq < th.GravityBandHigh {
		result.Label, result.Rule = LabelOnFace, RuleGravityBand
		return result
	}

	// 4. Per-frame squared diffs
	g2 := newest.TotalGravDiffsSq
	switch {
	case g2 == 0:
		result.Label, result.Rule = LabelOnFace, RuleZeroDiff
		return result
	case prev != nil && g2 <= th.HandlingDiffMax && prev.TotalGravDiffsSq <= th.HandlingDiffMax:
		result.Label, result.Rule = LabelHandling, RuleDampedDiffs
		return result
	case g2 >= th.RollingDiffMin:
		result.Label, result.Rule = LabelRolling, RuleLargeDiff
		return result
	}

	// 5. Windowed average of squared diffs
	avg := averageDiffSq(frames, maxBacktrack)
	if avg >= th.AvgRollingMin {
		result.Label, result.Rule = LabelRolling, RuleAvgRolling
		return result
	}
	if avg <= th.AvgHandlingMax {
		result.Label, result.Rule = LabelHandling, RuleAvgHandling
		return result
	}

	// 6. Ambiguous motion defaults to the most common moving state
	result.Label, result.Rule = LabelRolling, RuleFallback
	return result
}

// isJerk checks the newest diff against the per-axis and summed limits.
func (c *Classifier) isJerk(newest FeatureFrame, prev *FeatureFrame) bool {
	d := newest.Diff.Abs()
	if d.X >= c.Thresholds.JerkAxis || d.Y >= c.Thresholds.JerkAxis || d.Z >= c.Thresholds.JerkAxis {
		return true
	}

	var prevSum float64
	if prev != nil {
		prevSum = prev.Diff.Abs().Sum()
	}
	return math.Abs(d.Sum()-prevSum) >= c.Thresholds.JerkSum
}

// isStill checks whether the summed magnitude barely changed across the most
// recent frames. A single frame has no differences and never matches.
func (c *Classifier) isStill(frames []FeatureFrame, maxBacktrack int) bool {
	backtracks := c.Thresholds.StillnessBacktrack
	if maxBacktrack > 0 && maxBacktrack < backtracks {
		backtracks = maxBacktrack
	}
	if backtracks < 1 {
		return false
	}

	recent := lastFrames(frames, backtracks+1)
	if len(recent) < 2 {
		return false
	}

	deltas := make([]float64, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		deltas[i-1] = math.Abs(recent[i].SummedAbs - recent[i-1].SummedAbs)
	}
	return floats.Max(deltas) < c.Thresholds.StillnessMax
}

// averageDiffSq returns the mean squared diff over the last maxBacktrack
// frames, or over all frames when fewer are available.
func averageDiffSq(frames []FeatureFrame, maxBacktrack int) float64 {
	recent := lastFrames(frames, maxBacktrack)
	values := make([]float64, len(recent))
	for i, f := range recent {
		values[i] = f.TotalGravDiffsSq
	}
	return stat.Mean(values, nil)
}

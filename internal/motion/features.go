package motion

// FeatureFrame holds the values derived for one sample of the window.
// Frames are recomputed on every classification and never stored.
type FeatureFrame struct {
	Sample Sample

	Abs              Vec3    // |x|, |y|, |z|
	SummedAbs        float64 // |x| + |y| + |z|
	TotalGravSq      float64 // |x|² + |y|² + |z|²
	Diff             Vec3    // raw measurements minus the previous sample's; zero for the oldest frame
	TotalGravDiffsSq float64 // squared norm of Diff
}

// BuildFrames derives the feature frames for samples in a single pass,
// preserving order. Returns nil for an empty window.
func BuildFrames(samples []Sample) []FeatureFrame {
	if len(samples) == 0 {
		return nil
	}

	frames := make([]FeatureFrame, len(samples))
	for i, s := range samples {
		f := &frames[i]
		f.Sample = s
		f.Abs = s.Measurements.Abs()
		f.SummedAbs = f.Abs.Sum()
		f.TotalGravSq = f.Abs.NormSq()
		if i > 0 {
			f.Diff = s.Measurements.Sub(samples[i-1].Measurements)
		}
		f.TotalGravDiffsSq = f.Diff.NormSq()
	}
	return frames
}

// lastFrames returns at most n trailing frames. Non-positive n yields all of them.
func lastFrames(frames []FeatureFrame, n int) []FeatureFrame {
	if n <= 0 || n >= len(frames) {
		return frames
	}
	return frames[len(frames)-n:]
}

package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/rollstate/internal/fsutil"
	"github.com/banshee-data/rollstate/internal/motion"
)

var labelColors = map[motion.Label]color.Color{
	motion.LabelOnFace:   color.RGBA{R: 31, G: 119, B: 180, A: 255},
	motion.LabelRolling:  color.RGBA{R: 214, G: 39, B: 40, A: 255},
	motion.LabelHandling: color.RGBA{R: 44, G: 160, B: 44, A: 255},
	motion.LabelUnknown:  color.RGBA{R: 127, G: 127, B: 127, A: 255},
}

// newPlot builds the magnitude plot with one scatter series per predicted label.
func (t *Timeline) newPlot() (*plot.Plot, error) {
	points := t.Points()
	if len(points) == 0 {
		return nil, ErrEmptyTimeline
	}

	p := plot.New()
	p.Title.Text = t.title
	p.X.Label.Text = "Time (ms)"
	p.Y.Label.Text = "|a| (g)"

	magPts := make(plotter.XYs, len(points))
	byLabel := make(map[motion.Label]plotter.XYs)
	for i, pt := range points {
		xy := plotter.XY{X: float64(pt.Millis), Y: pt.Magnitude}
		magPts[i] = xy
		byLabel[pt.Predicted] = append(byLabel[pt.Predicted], xy)
	}

	line, err := plotter.NewLine(magPts)
	if err != nil {
		return nil, err
	}
	line.Color = color.Gray{Y: 90}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("magnitude", line)

	for _, label := range motion.Labels {
		xys, ok := byLabel[label]
		if !ok {
			continue
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = labelColors[label]
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(string(label), sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders the timeline to a PNG file at path.
func (t *Timeline) WritePNG(fsys fsutil.FileSystem, path string) error {
	p, err := t.newPlot()
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("save plot: %w", err)
	}
	return f.Close()
}

package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/rollstate/internal/motion"
)

// WriteHTML renders the timeline as a go-echarts line chart: acceleration
// magnitude on the left axis and the predicted label index on the right.
func (t *Timeline) WriteHTML(w io.Writer) error {
	points := t.Points()
	if len(points) == 0 {
		return ErrEmptyTimeline
	}

	xs := make([]string, len(points))
	mags := make([]opts.LineData, len(points))
	labels := make([]opts.LineData, len(points))
	for i, pt := range points {
		xs[i] = strconv.FormatInt(pt.Millis, 10)
		mags[i] = opts.LineData{Value: pt.Magnitude}
		labels[i] = opts.LineData{Value: labelIndex(pt.Predicted), Name: string(pt.Predicted)}
	}

	names := make([]string, len(motion.Labels))
	for i, l := range motion.Labels {
		names[i] = string(l)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: t.title, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: t.title, Subtitle: fmt.Sprintf("samples=%d", len(points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (ms)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "|a| (g)"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.ExtendYAxis(opts.YAxis{
		Name: "label",
		Type: "category",
		Data: names,
	})

	line.SetXAxis(xs).
		AddSeries("magnitude", mags).
		AddSeries("predicted", labels, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1, Step: "end"}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

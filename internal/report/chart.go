package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/davidmdi/moodbot/internal/models"
)

const (
	chartWidth  = 900
	chartHeight = 450

	axisPad = 0.5
	yMin    = float64(models.MoodVeryUnhappy) - axisPad
	yMax    = float64(models.MoodVeryHappy) + axisPad
)

// PointLabel is the x-axis label of a point, e.g. "Mon 02/03"
func PointLabel(p Point) string {
	return p.At.Format("Mon 02/01")
}

// RenderChart draws the user's week as a PNG line chart
func RenderChart(r UserReport) ([]byte, error) {
	if len(r.Points) == 0 {
		return nil, fmt.Errorf("no points to plot for %s", r.RecipientID)
	}

	graph := newChart(r)
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func newChart(r UserReport) chart.Chart {
	n := len(r.Points)
	xMin, xMax := -axisPad, float64(n-1)+axisPad
	xs := make([]float64, n)
	ys := make([]float64, n)
	annotations := make([]chart.Value2, n)

	// go-chart takes an axis range from its outermost ticks, so unlabelled
	// ticks pin the padded bounds.
	xTicks := make([]chart.Tick, 0, n+2)
	xTicks = append(xTicks, chart.Tick{Value: xMin})
	for i, p := range r.Points {
		xs[i] = float64(i)
		ys[i] = float64(p.Mood)
		xTicks = append(xTicks, chart.Tick{Value: xs[i], Label: PointLabel(p)})
		annotations[i] = chart.Value2{XValue: xs[i], YValue: ys[i], Label: strconv.Itoa(int(p.Mood))}
	}
	xTicks = append(xTicks, chart.Tick{Value: xMax})

	yTicks := make([]chart.Tick, 0, len(models.MoodScale)+2)
	yTicks = append(yTicks, chart.Tick{Value: yMin})
	for _, m := range models.MoodScale {
		yTicks = append(yTicks, chart.Tick{Value: float64(m), Label: fmt.Sprintf("%d %s", int(m), m.Label())})
	}
	yTicks = append(yTicks, chart.Tick{Value: yMax})

	return chart.Chart{
		Title:  fmt.Sprintf("Mood this week: %s", r.DisplayName),
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 30, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
			Ticks: xTicks,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: yMin, Max: yMax},
			Ticks: yTicks,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    r.DisplayName,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: 3,
					DotWidth:    5,
				},
			},
			chart.AnnotationSeries{Annotations: annotations},
		},
	}
}

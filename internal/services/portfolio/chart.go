package portfolio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
)

// ErrNothingToChart is returned when the portfolio has no valued holdings.
var ErrNothingToChart = errors.New("nothing to chart")

// Slices beyond this are grouped into "Other" so small holdings don't turn
// the chart into confetti.
const maxChartSlices = 8

// RenderAllocationChart renders the portfolio's current-value allocation as
// a PNG pie chart. Holdings without a known price carry zero value and are
// left out.
func (s *Service) RenderAllocationChart(ctx context.Context, id string) ([]byte, error) {
	holdings, err := s.Holdings(ctx, id)
	if err != nil {
		return nil, err
	}

	var values []chart.Value
	for _, h := range holdings {
		if h.CurrentValue <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", h.Symbol, h.WeightPct),
			Value: h.CurrentValue,
		})
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("portfolio %s: %w", id, ErrNothingToChart)
	}

	sort.Slice(values, func(i, j int) bool { return values[i].Value > values[j].Value })
	if len(values) > maxChartSlices {
		var other float64
		for _, v := range values[maxChartSlices:] {
			other += v.Value
		}
		values = append(values[:maxChartSlices], chart.Value{Label: "Other", Value: other})
	}

	pie := chart.PieChart{
		Width:  600,
		Height: 600,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

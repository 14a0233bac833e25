package trackers

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// PlotReturns renders the episodic returns of one or more runs as an
// HTML line chart to w. Each entry of series is drawn as one line,
// named by its key, with episodes on the x-axis.
func PlotReturns(w io.Writer, title string,
	series map[string][]float64) error {
	if len(series) == 0 {
		return fmt.Errorf("plotReturns: no series to plot")
	}

	names := make([]string, 0, len(series))
	episodes := 0
	for name, returns := range series {
		names = append(names, name)
		if len(returns) > episodes {
			episodes = len(returns)
		}
	}
	sort.Strings(names)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	steps := make([]string, episodes)
	for i := range steps {
		steps[i] = fmt.Sprintf("%d", i)
	}
	line.SetXAxis(steps)

	for _, name := range names {
		items := make([]opts.LineData, 0, len(series[name]))
		for _, ret := range series[name] {
			items = append(items, opts.LineData{Value: ret})
		}
		line.AddSeries(name, items)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("plotReturns: %v", err)
	}
	return nil
}

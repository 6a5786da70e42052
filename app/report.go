// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"fmt"
	"net/http"

	"github.com/google/safehtml/template"
	"golang.org/x/blockstats/blockseries"
)

const reportHTML = `<!DOCTYPE html>
<html>
<head>
<title>blockstats</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-top: 1em; }
th, td { border: 1px solid #d1d5db; padding: 4px 10px; text-align: right; }
th { background: #f3f4f6; }
td.label { text-align: left; }
td.best { background: #dcfce7; color: #065f46; font-weight: 600; }
h2 { margin-top: 1.5em; }
</style>
</head>
<body>
<h1>Block broadcast statistics</h1>
{{if not .Experiments}}
<p>No experiments uploaded. POST payloads to /upload.</p>
{{end}}
{{if .Experiments}}
<p>Experiments: {{range $i, $name := .Experiments}}{{if $i}}, {{end}}{{$name}}{{end}}</p>
{{end}}
{{range .Categories}}
<h2>{{.Label}}</h2>
<table>
<tr><th>Parameter</th>{{range $.Experiments}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}
<tr><td class="label">{{.Label}}</td>{{range .Cells}}<td{{if .Best}} class="best"{{end}}>{{.Value}}</td>{{end}}</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`

var reportTemplate = template.Must(template.New("report").ParseFromTrustedTemplate(
	template.MakeTrustedTemplate(reportHTML)))

// reportCell is one formatted summary value.
type reportCell struct {
	Value string
	Best  bool
}

type reportMetricRow struct {
	Label string
	Cells []reportCell
}

type reportCategory struct {
	Label string
	Rows  []reportMetricRow
}

type reportData struct {
	Experiments []string
	Categories  []reportCategory
}

// metricLabels maps summary metrics to their report row labels.
var metricLabels = map[string]string{
	blockseries.MetricNumBlocks:          "Blocks",
	blockseries.MetricBlockSize:          "Avg block size (KB)",
	blockseries.MetricCompressionPercent: "Avg compression percent",
	blockseries.MetricBroadcastTimeAvg:   "Avg broadcast time (avg)",
	blockseries.MetricBroadcastTime66p:   "Avg broadcast time (66p)",
	blockseries.MetricBroadcastTimeFull:  "Avg broadcast time (full)",
	blockseries.MetricCompressionTime:    "Avg compression time (ms)",
	blockseries.MetricDecompressionTime:  "Avg decompression time (ms)",
}

// formatMetric renders one summary value the way the report displays
// it: sizes in KB, percents scaled to 100, compress/decompress times
// in milliseconds.
func formatMetric(metric string, v float64) string {
	switch metric {
	case blockseries.MetricNumBlocks:
		return fmt.Sprintf("%.0f", v)
	case blockseries.MetricBlockSize:
		return fmt.Sprintf("%.0f KB", v/1024)
	case blockseries.MetricCompressionPercent:
		return fmt.Sprintf("%.2f%%", v*100)
	case blockseries.MetricCompressionTime, blockseries.MetricDecompressionTime:
		return fmt.Sprintf("%.2f ms", v*1000)
	default:
		return fmt.Sprintf("%.2f s", v)
	}
}

// report is the handler for the root page: the summary grid over
// every uploaded experiment, under the request's filter state.
func (a *App) report(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	exps := a.experiments()
	entries := blockseries.Union(exps)
	cfg, err := filterFromQuery(r, entries)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad filter parameter: %v", err)
		return
	}
	summary := blockseries.Summarize(entries, cfg)

	data := reportData{Experiments: summary.Experiments}
	for _, row := range summary.Rows {
		cat := reportCategory{Label: row.Label}
		for _, metric := range blockseries.Metrics {
			mr := reportMetricRow{Label: metricLabels[metric]}
			bestIdx, marked := row.Best[metric]
			for i, cell := range row.Cells {
				if !cell.Defined() || (metric == blockseries.MetricNumBlocks && cell.NumBlocks == 0) {
					mr.Cells = append(mr.Cells, reportCell{Value: "-"})
					continue
				}
				mr.Cells = append(mr.Cells, reportCell{
					Value: formatMetric(metric, cell.Values[metric]),
					Best:  marked && i == bestIdx,
				})
			}
			cat.Rows = append(cat.Rows, mr)
		}
		data.Categories = append(data.Categories, cat)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reportTemplate.Execute(w, data); err != nil {
		http.Error(w, err.Error(), 500)
	}
}

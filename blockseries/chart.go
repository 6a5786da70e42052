// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blockseries

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// kindTitles maps each series kind to its chart title suffix and
// y-axis label.
var kindTitles = map[string][2]string{
	KindBlockSize:          {"block size", "bytes"},
	KindCompressionPercent: {"compression percent", "fraction"},
	KindBroadcastTimeAvg:   {"broadcast time (avg)", "seconds"},
	KindBroadcastTimeFull:  {"broadcast time (full)", "seconds"},
	KindBroadcastTime66p:   {"broadcast time (66p)", "seconds"},
	KindCompressionTime:    {"compression time", "seconds"},
	KindDecompressionTime:  {"decompression time", "seconds"},
}

// palette holds the per-experiment line colors, reused cyclically.
var palette = []color.Color{
	color.NRGBA{0x1f, 0x77, 0xb4, 0xff},
	color.NRGBA{0xff, 0x7f, 0x0e, 0xff},
	color.NRGBA{0x2c, 0xa0, 0x2c, 0xff},
	color.NRGBA{0xd6, 0x27, 0x28, 0xff},
	color.NRGBA{0x94, 0x67, 0xbd, 0xff},
	color.NRGBA{0x8c, 0x56, 0x4b, 0xff},
}

// Chart writes one PNG per visible category and kind into pngDir,
// with one line per experiment over the aggregated series. Kinds
// with no surviving points anywhere are skipped.
func Chart(entries []*UnionEntry, cfg FilterConfig, pngDir string) error {
	if err := os.MkdirAll(pngDir, 0777); err != nil {
		return err
	}

	for _, e := range entries {
		if !Visible(e, cfg) {
			continue
		}
		for _, kind := range Kinds {
			pl := plot.New()
			pl.Title.Text = e.Label + ": " + kindTitles[kind][0]
			pl.X.Label.Text = "seconds"
			pl.Y.Label.Text = kindTitles[kind][1]
			pl.Add(plotter.NewGrid())
			pl.Legend.Top = true

			drawn := 0
			for i, s := range e.Series[kind] {
				points := Aggregate(s.Points, e.BlockSizeByID[i], cfg)
				if len(points) == 0 {
					continue
				}
				xys := make(plotter.XYs, len(points))
				for j, p := range points {
					xys[j].X, xys[j].Y = p.T, p.V
				}
				line, err := plotter.NewLine(xys)
				if err != nil {
					return err
				}
				line.LineStyle.Width = vg.Points(1.5)
				line.LineStyle.Color = palette[i%len(palette)]
				pl.Add(line)
				pl.Legend.Add(s.ExperimentName, line)
				drawn++
			}
			if drawn == 0 {
				continue
			}

			name := fmt.Sprintf("%s-%s.png", sanitizeFilename(e.Key), kind)
			if err := writePNG(pl, filepath.Join(pngDir, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writePNG(pl *plot.Plot, file string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	can := vgimg.PngCanvas{Canvas: vgimg.NewWith(
		vgimg.UseWH(30*vg.Centimeter, 12*vg.Centimeter),
		vgimg.UseBackgroundColor(color.White))}
	pl.Draw(draw.New(can))
	if _, err := can.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '-'
		}
		return r
	}, s)
}

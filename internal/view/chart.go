package view

import (
	"strconv"
	"strings"
)

const (
	chartWidth   = 600
	chartHeight  = 240
	chartPadding = 32
)

// ChartPoint is one plotted value in SVG coordinates.
type ChartPoint struct {
	X, Y  float64
	Label string
	Value string
}

// LineChart is the geometry of a single-series line chart.
type LineChart struct {
	Width, Height int
	Polyline      string
	Points        []ChartPoint
	Empty         bool
}

// Bar is one rectangle in a bar chart.
type Bar struct {
	X, Y, W, H float64
	Series     string
	Value      string
}

// BarGroup is the bars sharing one x label.
type BarGroup struct {
	Label  string
	LabelX float64
	Bars   []Bar
}

// BarChart is the geometry of a grouped bar chart.
type BarChart struct {
	Width, Height int
	Baseline      float64
	Groups        []BarGroup
	Series        []string
	Empty         bool
}

// Series is a named list of values for a bar chart.
type Series struct {
	Name   string
	Values []float64
}

func plotBounds() (left, top, width, height float64) {
	return chartPadding, chartPadding / 2, chartWidth - 2*chartPadding, chartHeight - chartPadding - chartPadding/2
}

func maxOf(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

// NewLineChart scales values into the chart box. Values share the y axis from
// zero to their maximum.
func NewLineChart(labels []string, values []float64) LineChart {
	c := LineChart{Width: chartWidth, Height: chartHeight}
	if len(values) == 0 {
		c.Empty = true
		return c
	}

	left, top, w, h := plotBounds()
	peak := maxOf(values)
	if peak == 0 {
		peak = 1
	}

	step := 0.0
	if len(values) > 1 {
		step = w / float64(len(values)-1)
	}

	coords := make([]string, 0, len(values))
	for i, v := range values {
		x := left + step*float64(i)
		if len(values) == 1 {
			x = left + w/2
		}
		y := top + h - (v/peak)*h
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		c.Points = append(c.Points, ChartPoint{X: round1(x), Y: round1(y), Label: label, Value: FormatCount(v)})
		coords = append(coords, ftoa(x)+","+ftoa(y))
	}
	c.Polyline = strings.Join(coords, " ")
	return c
}

// NewBarChart lays out grouped bars, one group per label.
func NewBarChart(labels []string, series ...Series) BarChart {
	c := BarChart{Width: chartWidth, Height: chartHeight}
	if len(labels) == 0 || len(series) == 0 {
		c.Empty = true
		return c
	}

	left, top, w, h := plotBounds()
	c.Baseline = round1(top + h)

	var all []float64
	for _, s := range series {
		c.Series = append(c.Series, s.Name)
		all = append(all, s.Values...)
	}
	peak := maxOf(all)
	if peak == 0 {
		peak = 1
	}

	groupW := w / float64(len(labels))
	barW := groupW * 0.7 / float64(len(series))
	for i, label := range labels {
		gx := left + groupW*float64(i)
		g := BarGroup{Label: label, LabelX: round1(gx + groupW/2)}
		for j, s := range series {
			v := 0.0
			if i < len(s.Values) {
				v = s.Values[i]
			}
			bh := (v / peak) * h
			g.Bars = append(g.Bars, Bar{
				X:      round1(gx + groupW*0.15 + barW*float64(j)),
				Y:      round1(top + h - bh),
				W:      round1(barW),
				H:      round1(bh),
				Series: s.Name,
				Value:  FormatCount(v),
			})
		}
		c.Groups = append(c.Groups, g)
	}
	return c
}

func round1(v float64) float64 {
	f, _ := strconv.ParseFloat(ftoa(v), 64)
	return f
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

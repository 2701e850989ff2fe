// Package report renders hourly series for the terminal.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"go-activity-pipeline/internal/model"
)

const barWidth = 40

// FormatSeries prints one "hour mean" line per bucket, "NaN" for an undefined mean
func FormatSeries(s model.HourlySeries) string {
	var out strings.Builder
	fmt.Fprintf(&out, "%s\n", seriesTitle(s))
	for _, p := range s.Points {
		fmt.Fprintf(&out, "%-6d %s\n", p.Hour, formatMean(p.Mean))
	}
	return out.String()
}

// GenerateHistogram draws a horizontal bar per hour, scaled to the largest
// mean in the series. Bars in the top quarter are highlighted.
func GenerateHistogram(s model.HourlySeries) string {
	var out strings.Builder
	out.WriteString(seriesTitle(s) + "\n")
	out.WriteString(strings.Repeat("─", barWidth+18) + "\n")

	if len(s.Points) == 0 {
		return out.String() + "No hourly data available\n"
	}

	maxMean := 0.0
	for _, p := range s.Points {
		if p.Defined() && p.Mean > maxMean {
			maxMean = p.Mean
		}
	}

	high := color.New(color.FgRed, color.Bold)
	normal := color.New(color.FgBlue)
	missing := color.New(color.FgHiBlack)

	for _, p := range s.Points {
		label := fmt.Sprintf("%4dh ", p.Hour)
		if !p.Defined() {
			out.WriteString(label + missing.Sprint("·") + " " + missing.Sprint("n/a") + "\n")
			continue
		}

		n := 0
		if maxMean > 0 && p.Mean > 0 {
			n = min(max(int(math.Round(p.Mean/maxMean*barWidth)), 0), barWidth)
		}
		bar := strings.Repeat("█", n)
		c := normal
		if maxMean > 0 && p.Mean >= 0.75*maxMean {
			c = high
		}
		out.WriteString(label + c.Sprint(bar) + " " + formatMean(p.Mean) + "\n")
	}
	return out.String()
}

// FormatRegressions prints one line per fit
func FormatRegressions(fits []model.Regression) string {
	if len(fits) == 0 {
		return ""
	}
	var out strings.Builder
	out.WriteString("Temperature vs activity\n")
	for _, f := range fits {
		fmt.Fprintf(&out, "%-6s %-10s slope=%.4f intercept=%.4f r=%.3f n=%d\n",
			f.Sex, f.Subject, f.Slope, f.Intercept, f.R, f.N)
	}
	return out.String()
}

func seriesTitle(s model.HourlySeries) string {
	title := string(s.Sex) + " hourly mean activity"
	if s.Subject != "" {
		title = string(s.Sex) + " " + s.Subject + " hourly mean activity"
	}
	return title
}

func formatMean(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

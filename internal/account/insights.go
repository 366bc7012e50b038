package account

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const keyMask = "•"

// MaskKey hides all but the edges of an API key. Whitespace is removed
// first; keys of up to 8 characters keep one character at each end, longer
// keys keep four.
func MaskKey(key string) string {
	clean := []rune(stripSpace(key))
	n := len(clean)
	switch {
	case n == 0:
		return ""
	case n <= 8:
		return string(clean[0]) + strings.Repeat(keyMask, max(0, n-2)) + string(clean[n-1])
	default:
		return string(clean[:4]) + strings.Repeat(keyMask, n-8) + string(clean[n-4:])
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ChartPoint is one day on the usage chart.
type ChartPoint struct {
	Date       string  `json:"date"`
	Requests   int     `json:"requests"`
	Successful int     `json:"successful"`
	Failed     int     `json:"failed"`
	Tokens     int     `json:"tokens"`
	AvgTime    float64 `json:"avgTime"`
}

// ChartPoints turns newest-first daily usage into chronological chart points.
func ChartPoints(daily []DailyUsage) []ChartPoint {
	points := make([]ChartPoint, 0, len(daily))
	for _, d := range daily {
		points = append(points, ChartPoint{
			Date:       chartLabel(d.Date),
			Requests:   int(d.TotalRequests),
			Successful: int(d.SuccessfulRequests),
			Failed:     int(d.FailedRequests),
			Tokens:     int(d.TotalTokens),
			AvgTime:    float64(d.AvgExecutionTime),
		})
	}
	slices.Reverse(points)
	return points
}

func chartLabel(date string) string {
	for _, layout := range []string{time.DateOnly, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UTC().Format("Jan 2")
		}
	}
	return date
}

// Direction of a usage trend.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// Trend compares the average daily requests of the latest 7 days with the
// 7 days before them.
type Trend struct {
	Current   int     `json:"current"`
	Previous  int     `json:"previous"`
	Trend     float64 `json:"trend"` // percent change, 2 decimals
	Direction string  `json:"direction"`
}

// Trends computes the request trend from newest-first daily usage. It
// returns nil with fewer than two days of data.
func Trends(daily []DailyUsage) *Trend {
	if len(daily) < 2 {
		return nil
	}
	chrono := slices.Clone(daily)
	slices.Reverse(chrono)

	recent := chrono[max(0, len(chrono)-7):]
	var previous []DailyUsage
	if len(chrono) > 7 {
		previous = chrono[max(0, len(chrono)-14) : len(chrono)-7]
	}

	recentAvg := avgRequests(recent)
	previousAvg := avgRequests(previous)

	change := 0.0
	if previousAvg > 0 {
		change = (recentAvg - previousAvg) / previousAvg * 100
	}

	dir := TrendStable
	switch {
	case change > 0:
		dir = TrendUp
	case change < 0:
		dir = TrendDown
	}
	return &Trend{
		Current:   int(roundHalfUp(recentAvg)),
		Previous:  int(roundHalfUp(previousAvg)),
		Trend:     roundHalfUp(change*100) / 100,
		Direction: dir,
	}
}

func avgRequests(days []DailyUsage) float64 {
	if len(days) == 0 {
		return 0
	}
	var sum float64
	for _, d := range days {
		sum += math.Trunc(float64(d.TotalRequests))
	}
	return sum / float64(len(days))
}

func roundHalfUp(f float64) float64 {
	return math.Floor(f + 0.5)
}

// Insight is a short observation shown on the settings screen.
type Insight struct {
	Type    string `json:"type"` // warning | info
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Insights derives observations from usage stats. Stats without a summary
// produce none.
func Insights(stats *Stats) []Insight {
	insights := []Insight{}
	if stats == nil || stats.Summary == nil {
		return insights
	}
	s := stats.Summary

	if s.SuccessRate < 85 {
		insights = append(insights, Insight{
			Type:    "warning",
			Title:   "Low Success Rate",
			Message: fmt.Sprintf("Your API success rate is %s%%. Consider reviewing error patterns.", formatNumber(float64(s.SuccessRate))),
		})
	}
	if s.TotalRequests > 1000 {
		insights = append(insights, Insight{
			Type:    "info",
			Title:   "High Usage",
			Message: "You're a power user! Consider optimizing requests for better performance.",
		})
	}
	if len(stats.EndpointUsage) > 0 {
		top := stats.EndpointUsage[0]
		if top.Endpoint != "" && top.TotalRequests > 0 {
			insights = append(insights, Insight{
				Type:    "info",
				Title:   "Most Used Feature",
				Message: fmt.Sprintf("Your most used feature is %s with %s requests.", top.Endpoint, formatNumber(float64(top.TotalRequests))),
			})
		}
	}
	return insights
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

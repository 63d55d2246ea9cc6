// Package dashboard exposes city sustainability indicators.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/upb/smart-city-assistant/services"
	"go.uber.org/zap"
)

// History window bounds in days
const (
	DefaultHistoryDays = 30
	MaxHistoryDays     = 365
)

const (
	airQualityThreshold  = 40
	energyTrendThreshold = 3
	recyclingThreshold   = 80
)

// Reporter writes a narrative report from indicator data; it never fails
type Reporter interface {
	GenerateCityReport(ctx context.Context, city string, kpis interface{}) string
}

// KPI is a display-ready indicator
type KPI struct {
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	Trend       string  `json:"trend"`
	Category    string  `json:"category"`
	LastUpdated string  `json:"last_updated"`
}

// Alert flags a notable indicator
type Alert struct {
	Type      string      `json:"type"`
	Category  string      `json:"category"`
	Message   string      `json:"message"`
	Metric    string      `json:"metric"`
	Value     interface{} `json:"value,omitempty"`
	Threshold *int        `json:"threshold,omitempty"`
	Trend     string      `json:"trend,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// CityDashboard is the full view of one city
type CityDashboard struct {
	CityName    string  `json:"city_name"`
	KPIs        []KPI   `json:"kpis"`
	Alerts      []Alert `json:"alerts"`
	LastUpdated string  `json:"last_updated"`
	Status      string  `json:"status"`
}

// HistoryPoint is one day of a KPI series
type HistoryPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// History is a KPI series for a city
type History struct {
	City    string         `json:"city"`
	Metric  string         `json:"metric"`
	History []HistoryPoint `json:"history"`
	Status  string         `json:"status"`
}

// Report is a generated narrative for a city
type Report struct {
	City   string `json:"city"`
	Report string `json:"report"`
	Status string `json:"status"`
}

// Service serves dashboard data
type Service struct {
	reporter Reporter
	logger   *zap.Logger
	now      func() time.Time
	jitter   func() float64
}

// NewService creates a new dashboard service
func NewService(reporter Reporter, logger *zap.Logger) *Service {
	return &Service{
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
		jitter:   rand.Float64,
	}
}

// Cities lists the known city names
func Cities() []string {
	names := make([]string, 0, len(cities))
	for _, c := range cities {
		names = append(names, c.name)
	}
	return names
}

func lookup(name string) (*city, error) {
	for i := range cities {
		if cities[i].name == name {
			return &cities[i], nil
		}
	}
	return nil, services.NewNotFound(fmt.Sprintf("City '%s' not found", name))
}

// MetricCategory groups a metric key for display
func MetricCategory(key string) string {
	if c, ok := metricCategories[key]; ok {
		return c
	}
	return "General"
}

// DisplayName turns a metric key such as "air_quality" into "Air Quality"
func DisplayName(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// City returns the dashboard for name
func (s *Service) City(name string) (*CityDashboard, error) {
	c, err := lookup(name)
	if err != nil {
		return nil, err
	}

	stamp := s.now().Format(time.RFC3339)
	kpis := make([]KPI, 0, len(c.metrics))
	for _, m := range c.metrics {
		kpis = append(kpis, KPI{
			Name:        DisplayName(m.Key),
			Value:       m.Value,
			Unit:        m.Unit,
			Trend:       m.Trend,
			Category:    MetricCategory(m.Key),
			LastUpdated: stamp,
		})
	}

	return &CityDashboard{
		CityName:    c.name,
		KPIs:        kpis,
		Alerts:      Alerts(c.name, c.metrics, stamp),
		LastUpdated: stamp,
		Status:      "success",
	}, nil
}

func metricByKey(metrics []Metric, key string) (Metric, bool) {
	for _, m := range metrics {
		if m.Key == key {
			return m, true
		}
	}
	return Metric{}, false
}

// trendPercent parses "+4%" as 4. Unparseable trends are zero.
func trendPercent(trend string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(trend), "%"), 64)
	if err != nil {
		return 0
	}
	return v
}

// Alerts derives notices from the indicators of a city
func Alerts(cityName string, metrics []Metric, stamp string) []Alert {
	alerts := []Alert{}

	if aq, ok := metricByKey(metrics, "air_quality"); ok && aq.Value > airQualityThreshold {
		threshold := airQualityThreshold
		alerts = append(alerts, Alert{
			Type:      "warning",
			Category:  "Environment",
			Message:   fmt.Sprintf("Air quality in %s is approaching unhealthy levels", cityName),
			Metric:    "Air Quality Index",
			Value:     aq.Value,
			Threshold: &threshold,
			Timestamp: stamp,
		})
	}

	if energy, ok := metricByKey(metrics, "energy_consumption"); ok &&
		strings.HasPrefix(energy.Trend, "+") && trendPercent(energy.Trend) > energyTrendThreshold {
		alerts = append(alerts, Alert{
			Type:      "info",
			Category:  "Resources",
			Message:   fmt.Sprintf("Energy consumption in %s is increasing rapidly", cityName),
			Metric:    "Energy Consumption",
			Trend:     energy.Trend,
			Timestamp: stamp,
		})
	}

	if recycled, ok := metricByKey(metrics, "waste_recycled"); ok && recycled.Value > recyclingThreshold {
		alerts = append(alerts, Alert{
			Type:      "success",
			Category:  "Environment",
			Message:   fmt.Sprintf("%s has achieved excellent recycling rates!", cityName),
			Metric:    "Waste Recycled",
			Value:     strconv.FormatFloat(recycled.Value, 'f', -1, 64) + "%",
			Timestamp: stamp,
		})
	}

	return alerts
}

// ClampDays bounds a requested history window
func ClampDays(days int) int {
	switch {
	case days < 1:
		return 1
	case days > MaxHistoryDays:
		return MaxHistoryDays
	default:
		return days
	}
}

// KPIHistory returns a daily series for metric ending yesterday. Values
// vary within 10% of the current reading, or of 100 for unknown metrics.
func (s *Service) KPIHistory(name, metric string, days int) (*History, error) {
	c, err := lookup(name)
	if err != nil {
		return nil, err
	}

	base := 100.0
	if m, ok := metricByKey(c.metrics, metric); ok {
		base = m.Value
	}

	days = ClampDays(days)
	now := s.now()
	points := make([]HistoryPoint, 0, days)
	for i := 0; i < days; i++ {
		variation := (s.jitter()*2 - 1) * 0.1
		points = append(points, HistoryPoint{
			Date:  now.AddDate(0, 0, -(days - i)).Format("2006-01-02"),
			Value: math.Round(base*(1+variation)*100) / 100,
		})
	}

	return &History{City: c.name, Metric: metric, History: points, Status: "success"}, nil
}

// Report asks the assistant for a narrative report on a city
func (s *Service) Report(ctx context.Context, name string) (*Report, error) {
	c, err := lookup(name)
	if err != nil {
		return nil, err
	}

	kpis := make(map[string]interface{}, len(c.metrics))
	for _, m := range c.metrics {
		kpis[m.Key] = map[string]interface{}{"value": m.Value, "unit": m.Unit, "trend": m.Trend}
	}

	report := s.reporter.GenerateCityReport(ctx, c.name, kpis)
	s.logger.Debug("city report generated", zap.String("city", c.name))

	return &Report{City: c.name, Report: report, Status: "success"}, nil
}

package dashboard

// Metric is one raw indicator of a city
type Metric struct {
	Key   string
	Value float64
	Unit  string
	Trend string
}

type city struct {
	name    string
	metrics []Metric
}

// Sample data shown until live feeds are connected.
var cities = []city{
	{
		name: "New York",
		metrics: []Metric{
			{"air_quality", 42, "AQI", "+5%"},
			{"water_usage", 1.2, "M gallons", "-3%"},
			{"energy_consumption", 850, "MWh", "+2%"},
			{"waste_recycled", 78, "%", "+12%"},
			{"population", 8.4, "M", "+1.2%"},
			{"green_spaces", 29, "%", "+3%"},
			{"public_transport", 62, "%", "+5%"},
			{"carbon_footprint", 4.2, "tons/person", "-8%"},
		},
	},
	{
		name: "San Francisco",
		metrics: []Metric{
			{"air_quality", 38, "AQI", "-2%"},
			{"water_usage", 0.8, "M gallons", "-5%"},
			{"energy_consumption", 620, "MWh", "-3%"},
			{"waste_recycled", 85, "%", "+8%"},
			{"population", 0.87, "M", "+0.8%"},
			{"green_spaces", 35, "%", "+5%"},
			{"public_transport", 75, "%", "+7%"},
			{"carbon_footprint", 3.8, "tons/person", "-12%"},
		},
	},
	{
		name: "Chicago",
		metrics: []Metric{
			{"air_quality", 45, "AQI", "+3%"},
			{"water_usage", 1.5, "M gallons", "-1%"},
			{"energy_consumption", 920, "MWh", "+4%"},
			{"waste_recycled", 72, "%", "+6%"},
			{"population", 2.7, "M", "+0.5%"},
			{"green_spaces", 26, "%", "+2%"},
			{"public_transport", 58, "%", "+3%"},
			{"carbon_footprint", 4.5, "tons/person", "-5%"},
		},
	},
}

var metricCategories = map[string]string{
	"air_quality":        "Environment",
	"water_usage":        "Resources",
	"energy_consumption": "Resources",
	"waste_recycled":     "Environment",
	"population":         "Demographics",
	"green_spaces":       "Environment",
	"public_transport":   "Transportation",
	"carbon_footprint":   "Environment",
}

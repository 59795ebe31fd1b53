// Package constants provides shared constants for the growth-forecast application.
package constants

// Simulation constants
const (
	// MonthsPerYear is the number of months in a simulated year
	MonthsPerYear = 12

	// DefaultSimulationYears is the horizon used when the configuration does
	// not specify one
	DefaultSimulationYears = 3

	// ChurnCycleYears is the length of the repeating churn-rate cycle
	ChurnCycleYears = 3

	// LocalSaturationThreshold is the share of the local follower market at
	// which the simulation enters the global market phase
	LocalSaturationThreshold = 0.95

	// AdsSaturationCutoff is the saturation factor below which all paid ads
	// campaigns stop
	AdsSaturationCutoff = 0.05

	// ZeroChurnLifetimeMonths caps the assumed customer lifetime at ten years
	// when the churn rate is zero
	ZeroChurnLifetimeMonths = 120

	// OtherChannelCPC is the assumed cost per visitor for the "other"
	// marketing channel
	OtherChannelCPC = 2.0
)

// Market phase labels
const (
	// MarketPhaseLocal is the initial beachhead market phase
	MarketPhaseLocal = "Local"

	// MarketPhaseGlobal is the expanded market phase after local saturation
	MarketPhaseGlobal = "Global"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultScenarioName is the scenario name used when a configuration
	// declares no scenarios
	DefaultScenarioName = "default"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML
	// configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Numeric constants
const (
	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	hjson "github.com/hjson/hjson-go/v4"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/growthlab/growth-forecast/pkg/assumptions"
	"github.com/growthlab/growth-forecast/pkg/constants"
)

// Configuration holds all configuration for growth-forecast.
type Configuration struct {
	Logging     LoggingConfig          `yaml:"logging,omitempty"`
	Output      OutputConfig           `yaml:"output,omitempty"`
	Simulation  SimulationConfig       `yaml:"simulation,omitempty"`
	Assumptions map[string]interface{} `yaml:"assumptions,omitempty"`
	Scenarios   []Scenario             `yaml:"scenarios,omitempty"`
	Storage     StorageConfig          `yaml:"storage,omitempty"`

	stores   map[string]*assumptions.Store
	warnings []string
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// SimulationConfig holds the simulation horizon.
type SimulationConfig struct {
	Years int `yaml:"years,omitempty"`
}

// StorageConfig holds run persistence options. An empty path disables
// persistence.
type StorageConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Scenario holds the assumption overrides for one named scenario. Inline
// assumptions take precedence over the assumptionsFile overlay, which takes
// precedence over the shared assumptions block.
type Scenario struct {
	Name            string                 `yaml:"name"`
	Active          bool                   `yaml:"active"`
	Assumptions     map[string]interface{} `yaml:"assumptions,omitempty"`
	AssumptionsFile string                 `yaml:"assumptionsFile,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := viper.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from an
// in-memory reader. The HTTP server uses this for uploaded configs.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}

	var configuration Configuration
	err := v.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// ParseAssumptions resolves the merged assumption store for every scenario
// and applies the configuration defaults (simulation horizon, output format,
// implicit scenario). Warnings about deprecated or unrecognized parameters
// accumulate for ValidateConfiguration to report.
func (conf *Configuration) ParseAssumptions() error {
	conf.warnings = nil

	if conf.Simulation.Years < 0 {
		return fmt.Errorf("simulation years must be at least 1, got %d", conf.Simulation.Years)
	}

	base, warnings, err := assumptions.FromRaw(conf.Assumptions)
	if err != nil {
		return fmt.Errorf("assumptions: %w", err)
	}
	conf.warnings = append(conf.warnings, warnings...)

	// A configuration with no scenarios block still simulates the shared
	// assumptions under an implicit scenario.
	if len(conf.Scenarios) == 0 {
		conf.Scenarios = []Scenario{{Name: constants.DefaultScenarioName, Active: true}}
	}

	conf.stores = make(map[string]*assumptions.Store, len(conf.Scenarios))
	for i, scenario := range conf.Scenarios {
		if scenario.Name == "" {
			return fmt.Errorf("scenario %d: name is required", i)
		}
		if _, ok := conf.stores[scenario.Name]; ok {
			return fmt.Errorf("scenario %s: duplicate scenario name", scenario.Name)
		}

		store := base
		if scenario.AssumptionsFile != "" {
			overlay, fileWarnings, err := loadAssumptionsFile(scenario.AssumptionsFile)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", scenario.Name, err)
			}
			for _, w := range fileWarnings {
				conf.warnings = append(conf.warnings, fmt.Sprintf("scenario %s: %s", scenario.Name, w))
			}
			store = store.Merge(overlay)
		}
		if len(scenario.Assumptions) > 0 {
			overlay, scenarioWarnings, err := assumptions.FromRaw(scenario.Assumptions)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", scenario.Name, err)
			}
			for _, w := range scenarioWarnings {
				conf.warnings = append(conf.warnings, fmt.Sprintf("scenario %s: %s", scenario.Name, w))
			}
			store = store.Merge(overlay)
		}
		conf.stores[scenario.Name] = store
	}

	if conf.Simulation.Years == 0 {
		conf.Simulation.Years = constants.DefaultSimulationYears
	}
	if conf.Output.Format == "" {
		conf.Output.Format = constants.OutputFormatPretty
	}

	return nil
}

// loadAssumptionsFile reads a scenario overlay file. YAML is chosen by the
// .yaml/.yml extension; anything else is parsed as HJSON, which also accepts
// plain JSON.
func loadAssumptionsFile(path string) (*assumptions.Store, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading assumptions file: %w", err)
	}

	raw := make(map[string]interface{})
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, nil, fmt.Errorf("parsing assumptions file %s: %w", path, err)
		}
	default:
		if err := hjson.Unmarshal(data, &raw); err != nil {
			return nil, nil, fmt.Errorf("parsing assumptions file %s: %w", path, err)
		}
	}

	store, warnings, err := assumptions.FromRaw(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("assumptions file %s: %w", path, err)
	}
	return store, warnings, nil
}

// ApplyAssumptionsOverlay merges an extra overlay file into every parsed
// scenario store. The CLI uses this for one-off what-if runs; overlay values
// win over everything in the configuration. ParseAssumptions must have been
// called first.
func (conf *Configuration) ApplyAssumptionsOverlay(path string) error {
	if path == "" {
		return nil
	}

	overlay, warnings, err := loadAssumptionsFile(path)
	if err != nil {
		return err
	}
	conf.warnings = append(conf.warnings, warnings...)

	for name, store := range conf.stores {
		conf.stores[name] = store.Merge(overlay)
	}
	return nil
}

// StoreForScenario returns the merged assumption store for a named scenario.
// ParseAssumptions must have been called first.
func (conf Configuration) StoreForScenario(name string) (*assumptions.Store, error) {
	store, ok := conf.stores[name]
	if !ok {
		return nil, fmt.Errorf("no parsed assumptions for scenario %s", name)
	}
	return store, nil
}

// rateParameters are the fraction-valued assumptions checked against [0, 1].
// Growth rates and multipliers are excluded since they may legitimately
// exceed 1.
var rateParameters = []string{
	"ConvVS",
	"ConvSP",
	"Churn_Rate",
	"ChurnY1",
	"ChurnY2",
	"ChurnY3",
	"Reach_per_Post",
	"Organic_CTR_to_Site",
	"Inf_Reach_Rate",
	"Inf_Click_Rate",
	"Referral_Monthly_Rate",
	"Existing_Free_to_Paid_Monthly_Conv_Rate",
	"Free_Active_Share",
	"FollowerAds_Reach_to_Follower_Rate",
	"FollowerAds_CTR_to_Site",
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings
func (conf *Configuration) ValidateConfiguration() []string {
	warnings := append([]string(nil), conf.warnings...)

	switch conf.Output.Format {
	case "", constants.OutputFormatPretty, constants.OutputFormatCSV:
	default:
		warnings = append(warnings, fmt.Sprintf("unrecognized output format %q, using %q",
			conf.Output.Format, constants.OutputFormatPretty))
	}

	active := 0
	for _, scenario := range conf.Scenarios {
		if scenario.Active {
			active++
		}
	}
	if len(conf.Scenarios) > 0 && active == 0 {
		warnings = append(warnings, "no active scenarios are configured; nothing will be simulated")
	}

	for _, scenario := range conf.Scenarios {
		store, ok := conf.stores[scenario.Name]
		if !ok {
			continue
		}
		for _, name := range rateParameters {
			value := store.Get(name, 0)
			if value < 0 || value > 1 {
				warnings = append(warnings, fmt.Sprintf("scenario %s: %s = %g is outside [0, 1]",
					scenario.Name, name, value))
			}
		}
	}

	return warnings
}

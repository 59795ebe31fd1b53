package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/growthlab/growth-forecast/internal/config"
	"github.com/growthlab/growth-forecast/internal/forecast"
	"github.com/growthlab/growth-forecast/internal/server"
	"github.com/growthlab/growth-forecast/internal/store"
	"github.com/growthlab/growth-forecast/pkg/assumptions"
	"github.com/growthlab/growth-forecast/pkg/constants"
	"github.com/growthlab/growth-forecast/pkg/output"
	"github.com/growthlab/growth-forecast/pkg/report"
	"github.com/growthlab/growth-forecast/pkg/validation"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info" // Default to info level
	}

	// Parse log level
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	// Determine output format
	format := loggingConfig.Format
	if format == "" {
		format = "json" // Default to JSON for production
	}

	// Configure encoder
	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	// Configure output file if specified
	if loggingConfig.OutputFile != "" {
		// Ensure the directory exists
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Test if we can create/write to the file
		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

type cliOptions struct {
	configLocation  string
	years           int
	assumptionsPath string
	outputFormat    string
	logLevel        string
	reportPath      string
	savePath        string
}

func main() {
	// .env values become process env before flags read their defaults.
	_ = godotenv.Load()

	configLocation := flag.String("config", defaultConfigLocation(), "path to configuration file")
	yearsFlag := flag.Int("years", 0, "simulation duration override in years")
	assumptionsFlag := flag.String("assumptions", "", "path to an extra assumptions overlay (HJSON or YAML) applied to every scenario")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	reportFlag := flag.String("report", "", "write an executive report to this path (.html/.htm renders HTML, anything else markdown)")
	saveFlag := flag.String("save", "", "archive the run to a SQLite database at this path (overrides storage.path)")
	defaultsFlag := flag.Bool("defaults", false, "print the default assumption table and exit")
	serveFlag := flag.Bool("serve", false, "start the HTTP API server")
	addrFlag := flag.String("addr", "", "listen address override for -serve")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flag.Parse()

	if *defaultsFlag {
		printDefaults()
		return
	}

	if *serveFlag {
		runServer(*serverConfigLocation, *addrFlag, *logLevel)
		return
	}

	runForecast(cliOptions{
		configLocation:  *configLocation,
		years:           *yearsFlag,
		assumptionsPath: *assumptionsFlag,
		outputFormat:    *outputFormatFlag,
		logLevel:        *logLevel,
		reportPath:      *reportFlag,
		savePath:        *saveFlag,
	})
}

func defaultConfigLocation() string {
	if env := os.Getenv("GROWTH_FORECAST_CONFIG"); env != "" {
		return env
	}
	return constants.DefaultConfigFile
}

func printDefaults() {
	defaults := assumptions.Defaults()
	names := make([]string, 0, len(defaults))
	for name := range defaults {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-42s %g\n", name, defaults[name])
	}
}

func runForecast(opts cliOptions) {
	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(opts.configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", opts.configLocation, err)
		return
	}

	// Initialize logging based on config and CLI override
	logger, err := initializeLogger(conf.Logging, opts.logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	if opts.years > 0 {
		conf.Simulation.Years = opts.years
	}

	// Resolve the merged assumption store for every scenario.
	if err := conf.ParseAssumptions(); err != nil {
		logger.Fatal("failed to parse assumptions",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if opts.assumptionsPath != "" {
		if err := conf.ApplyAssumptionsOverlay(opts.assumptionsPath); err != nil {
			logger.Fatal("failed to apply assumptions overlay",
				zap.String("op", "main"),
				zap.String("path", opts.assumptionsPath),
				zap.Error(err),
			)
		}
	}

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if opts.outputFormat != "" {
		outputFormat = opts.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty // Default to pretty format
	}

	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	// Validate configuration and display any warnings
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	// Run the simulation to get the Forecast.
	results, err := forecast.GetForecast(logger, *conf)
	if err != nil {
		logger.Fatal("failed to compute forecast",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	// Handle output.
	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(results)
	case constants.OutputFormatCSV:
		output.CsvFormat(results)
	}

	if opts.reportPath != "" {
		if err := writeReport(opts.reportPath, results); err != nil {
			logger.Fatal("failed to write report",
				zap.String("op", "main"),
				zap.String("path", opts.reportPath),
				zap.Error(err),
			)
		}
		logger.Info("wrote report",
			zap.String("op", "main"),
			zap.String("path", opts.reportPath),
		)
	}

	savePath := opts.savePath
	if savePath == "" {
		savePath = conf.Storage.Path
	}
	if savePath != "" {
		archiveResults(logger, savePath, conf, results)
	}
}

// writeReport renders the executive report; the extension picks the format.
func writeReport(path string, results []forecast.Forecast) error {
	markdown := report.BuildMarkdown(results)

	content := markdown
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		html, err := report.RenderHTML(markdown)
		if err != nil {
			return err
		}
		content = html
	}

	return os.WriteFile(path, []byte(content), 0644)
}

// archiveResults saves every scenario projection to the SQLite archive.
func archiveResults(logger *zap.Logger, path string, conf *config.Configuration, results []forecast.Forecast) {
	archive, err := store.Open(path, logger)
	if err != nil {
		logger.Fatal("failed to open run archive",
			zap.String("op", "main"),
			zap.String("path", path),
			zap.Error(err),
		)
	}
	defer func() {
		_ = archive.Close()
	}()

	for _, result := range results {
		scenarioAssumptions, err := conf.StoreForScenario(result.Name)
		if err != nil {
			logger.Error("failed to resolve assumptions for archive",
				zap.String("op", "main"),
				zap.String("scenario", result.Name),
				zap.Error(err),
			)
			continue
		}

		run, err := archive.SaveRun(result.Name, conf.Simulation.Years, scenarioAssumptions.Raw(), &forecast.Projection{
			Monthly: result.Monthly,
			Yearly:  result.Yearly,
		})
		if err != nil {
			logger.Error("failed to archive forecast run",
				zap.String("op", "main"),
				zap.String("scenario", result.Name),
				zap.Error(err),
			)
			continue
		}

		logger.Info("archived forecast run",
			zap.String("op", "main"),
			zap.String("scenario", result.Name),
			zap.String("id", run.ID),
		)
	}
}

func runServer(configLocation, addrOverride, logLevelOverride string) {
	serverCfg, err := server.LoadConfig(configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", configLocation, err)
		return
	}

	logger, err := initializeLogger(serverCfg.Logging, logLevelOverride)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	addr := serverCfg.Address
	if env := os.Getenv("GROWTH_FORECAST_ADDR"); env != "" {
		addr = env
	}
	if addrOverride != "" {
		addr = addrOverride
	}

	var archive *store.Store
	if serverCfg.StorePath != "" {
		archive, err = store.Open(serverCfg.StorePath, logger)
		if err != nil {
			logger.Fatal("failed to open run archive",
				zap.String("op", "main"),
				zap.String("path", serverCfg.StorePath),
				zap.Error(err),
			)
		}
		defer func() {
			_ = archive.Close()
		}()
	}

	handler := server.NewHandler(logger, serverCfg, version, archive)

	logger.Info("starting growth-forecast API server",
		zap.String("op", "main"),
		zap.String("addr", addr),
		zap.String("version", version),
	)

	srv := &http.Server{Addr: addr, Handler: handler}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server terminated",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

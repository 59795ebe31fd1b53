// Package server exposes the growth forecast engine over an HTTP API.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/growthlab/growth-forecast/internal/config"
	"github.com/growthlab/growth-forecast/internal/forecast"
	"github.com/growthlab/growth-forecast/internal/store"
	"github.com/growthlab/growth-forecast/pkg/assumptions"
	"github.com/growthlab/growth-forecast/pkg/constants"
	"github.com/growthlab/growth-forecast/pkg/output"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	archive       *store.Store
}

// NewHandler constructs the HTTP handler that serves the forecast API.
// A nil archive disables the /api/runs endpoints.
func NewHandler(logger *zap.Logger, cfg *Config, version string, archive *store.Store) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := constants.DefaultMaxUploadSizeBytes
	if cfg != nil && cfg.UploadSizeBytes() > 0 {
		maxUploadSize = cfg.UploadSizeBytes()
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		archive:       archive,
	}

	mux := http.NewServeMux()

	// Forecast API endpoint (file upload)
	mux.HandleFunc("/api/forecast", h.handleForecast)

	// Forecast API endpoint for editor-driven updates
	mux.HandleFunc("/api/editor/forecast", h.handleForecastEditor)

	// Config serialization endpoint for editor downloads
	mux.HandleFunc("/api/editor/export", h.handleConfigExport)

	// Default assumption table for editor bootstrapping
	mux.HandleFunc("/api/assumptions", h.handleAssumptions)

	// Version endpoint for client metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	// Archived run listing and detail
	mux.HandleFunc("/api/runs", h.handleRuns)
	mux.HandleFunc("/api/runs/", h.handleRunDetail)

	return mux
}

type forecastResponse struct {
	Scenarios  []string               `json:"scenarios"`
	Results    []scenarioResult       `json:"results"`
	CSV        string                 `json:"csv"`
	Warnings   []string               `json:"warnings,omitempty"`
	Duration   string                 `json:"duration"`
	Config     map[string]interface{} `json:"config,omitempty"`
	ConfigYAML string                 `json:"configYaml,omitempty"`
}

type scenarioResult struct {
	Name   string                `json:"name"`
	Months int                   `json:"months"`
	Yearly []forecast.YearRecord `json:"yearly"`
	RunID  string                `json:"runId,omitempty"`
}

func (h *handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), "server.handleForecast")
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), "server.handleForecast")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing configuration file", "server.handleForecast")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && h.logger != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", "server.handleForecast"),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), "server.handleForecast")
		return
	}

	configBytes := buf.Bytes()
	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("error reading config data, %v", err), "server.handleForecast")
		return
	}

	h.runForecast(w, configBytes, configMap, start, "server.handleForecast")
}

func (h *handler) handleForecastEditor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), "server.handleForecastEditor")
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	// The editor posts {config: {...}}; a bare config object is also accepted.
	configPayload := payload
	if rawConfig, ok := payload["config"]; ok {
		cfgMap, ok := rawConfig.(map[string]interface{})
		if !ok {
			h.respondError(w, http.StatusBadRequest, "invalid config payload: expected object", "server.handleForecastEditor")
			return
		}
		configPayload = cfgMap
	}

	configBytes, err := yaml.Marshal(configPayload)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), "server.handleForecastEditor")
		return
	}

	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse configuration: %v", err), "server.handleForecastEditor")
		return
	}

	h.runForecast(w, configBytes, configMap, start, "server.handleForecastEditor")
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), "server.handleConfigExport")
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), "server.handleConfigExport")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

func (h *handler) handleAssumptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"assumptions": assumptions.Defaults(),
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	if h.archive == nil {
		h.respondError(w, http.StatusNotFound, "run archive is not configured", "server.handleRuns")
		return
	}

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", rawLimit), "server.handleRuns")
			return
		}
		limit = parsed
	}

	runs, err := h.archive.ListRuns(limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list runs: %v", err), "server.handleRuns")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}

func (h *handler) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	if h.archive == nil {
		h.respondError(w, http.StatusNotFound, "run archive is not configured", "server.handleRunDetail")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if id == "" || strings.Contains(id, "/") {
		h.respondError(w, http.StatusNotFound, "run not found", "server.handleRunDetail")
		return
	}

	run, err := h.archive.GetRun(id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			h.respondError(w, http.StatusNotFound, "run not found", "server.handleRunDetail")
			return
		}
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load run: %v", err), "server.handleRunDetail")
		return
	}

	h.writeJSON(w, http.StatusOK, run)
}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range []string{"logging", "output", "simulation", "assumptions", "scenarios", "storage"} {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	ordered := orderedConfig{items: items}
	return yaml.Marshal(ordered)
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func (h *handler) runForecast(w http.ResponseWriter, configBytes []byte, configMap map[string]interface{}, start time.Time, op string) {
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	if err := cfg.ParseAssumptions(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	warnings := cfg.ValidateConfiguration()

	results, err := forecast.GetForecast(h.logger, *cfg)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to compute forecast: %v", err), op)
		return
	}

	scenarioResults := make([]scenarioResult, 0, len(results))
	for _, result := range results {
		sr := scenarioResult{
			Name:   result.Name,
			Months: len(result.Monthly),
			Yearly: result.Yearly,
		}
		if h.archive != nil {
			sr.RunID = h.archiveRun(cfg, result, op)
		}
		scenarioResults = append(scenarioResults, sr)
	}

	elapsed := time.Since(start)

	if configMap == nil {
		configMap = make(map[string]interface{})
	}

	response := forecastResponse{
		Scenarios:  extractScenarioNames(results),
		Results:    scenarioResults,
		CSV:        output.CsvString(results),
		Warnings:   warnings,
		Duration:   elapsed.String(),
		Config:     configMap,
		ConfigYAML: string(configBytes),
	}

	if h.logger != nil {
		h.logger.Info("forecast computed",
			zap.String("op", op),
			zap.Int("scenarios", len(response.Scenarios)),
			zap.Duration("duration", elapsed),
		)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// archiveRun persists one scenario's projection and returns the run ID, or an
// empty string when archiving fails. A failed archive never fails the request.
func (h *handler) archiveRun(cfg *config.Configuration, result forecast.Forecast, op string) string {
	scenarioAssumptions, err := cfg.StoreForScenario(result.Name)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("failed to resolve assumptions for archive",
				zap.String("op", op),
				zap.String("scenario", result.Name),
				zap.Error(err),
			)
		}
		return ""
	}

	run, err := h.archive.SaveRun(result.Name, cfg.Simulation.Years, scenarioAssumptions.Raw(), &forecast.Projection{
		Monthly: result.Monthly,
		Yearly:  result.Yearly,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("failed to archive forecast run",
				zap.String("op", op),
				zap.String("scenario", result.Name),
				zap.Error(err),
			)
		}
		return ""
	}
	return run.ID
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	if h.logger != nil {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && h.logger != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func extractScenarioNames(results []forecast.Forecast) []string {
	names := make([]string, 0, len(results))
	for _, scenario := range results {
		names = append(names, scenario.Name)
	}
	return names
}

// Package result accumulates and persists one simulation run's metrics
// and action/event log, mirroring simulator/result/result.py's
// SimulationResult/SimulationResultWriter split between an in-memory
// result and its on-disk projection.
package result

import (
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"cora-sim/internal/agents"
	"cora-sim/internal/config"
	"cora-sim/internal/lendingpool"
	"cora-sim/internal/metrics"
)

// Result is the full in-memory record of a run, returned from a
// finished Writer via Result().
type Result struct {
	RunID              string
	StepMetrics        []metrics.Metric
	CustomEventMetrics map[string][]metrics.Metric
	EndMetrics         metrics.Metric
	ActionLog          []agents.Action
	EventLog           []lendingpool.Event
}

// Writer accumulates a run's metrics/log lines in memory and, per the
// run's config toggles, mirrors them to <results_folder>/<run_id>/.
type Writer struct {
	result  Result
	cfg     config.ResultConfig
	storage *Storage
	logger  *slog.Logger
	logFile *lumberjack.Logger
}

// NewWriter constructs a Writer for runID, creating its result directory
// and log sink when any write toggle is enabled.
func NewWriter(runID string, cfg config.ResultConfig) (*Writer, error) {
	w := &Writer{
		result: Result{RunID: runID, CustomEventMetrics: map[string][]metrics.Metric{}},
		cfg:    cfg,
	}

	if !(cfg.WriteLog || cfg.WriteCustomEventMetrics || cfg.WriteEndMetrics || cfg.WriteStepMetrics) {
		return w, nil
	}

	dir := filepath.Join(cfg.ResultsFolder, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	storage, err := NewStorage(dir)
	if err != nil {
		return nil, err
	}
	w.storage = storage

	if cfg.WriteLog {
		w.logFile = &lumberjack.Logger{
			Filename:   filepath.Join(dir, "log.txt"),
			MaxSize:    100,
			MaxBackups: 3,
			Compress:   true,
		}
		w.logger = slog.New(slog.NewJSONHandler(w.logFile, nil))
	}

	return w, nil
}

// Close flushes and closes the run's log sink, if one was opened.
func (w *Writer) Close() error {
	if w.logFile == nil {
		return nil
	}
	return w.logFile.Close()
}

// Result returns the accumulated in-memory record.
func (w *Writer) Result() Result { return w.result }

// AddStepMetrics appends one tick's metric record.
func (w *Writer) AddStepMetrics(m metrics.Metric) error {
	w.result.StepMetrics = append(w.result.StepMetrics, m)
	if w.cfg.WriteStepMetrics {
		return w.storage.WriteOrAppendCSV("step_metrics", []metrics.Metric{m})
	}
	return nil
}

// AddCustomEventMetrics appends one named custom-event metric record.
func (w *Writer) AddCustomEventMetrics(eventName string, m metrics.Metric) error {
	w.result.CustomEventMetrics[eventName] = append(w.result.CustomEventMetrics[eventName], m)
	if w.cfg.WriteCustomEventMetrics {
		return w.storage.WriteOrAppendCSV(eventName, []metrics.Metric{m})
	}
	return nil
}

// AddEndMetrics records the terminal metric record.
func (w *Writer) AddEndMetrics(m metrics.Metric) error {
	w.result.EndMetrics = m
	if w.cfg.WriteEndMetrics {
		return w.storage.WriteOrAppendCSV("end_metrics", []metrics.Metric{m})
	}
	return nil
}

// AddActionToLog records an agent action, writing a structured log line
// when logging is enabled.
func (w *Writer) AddActionToLog(a agents.Action) {
	w.result.ActionLog = append(w.result.ActionLog, a)
	if w.cfg.WriteLog && w.logger != nil {
		w.logger.Info(a.Message,
			slog.String("agent_id", a.AgentID),
			slog.Int64("time", a.Time),
			slog.String("type", a.Type),
			slog.Any("extra", a.Extra),
		)
	}
}

// AddEventToLog records a pool event, writing a structured log line
// when logging is enabled.
func (w *Writer) AddEventToLog(e lendingpool.Event) {
	w.result.EventLog = append(w.result.EventLog, e)
	if w.cfg.WriteLog && w.logger != nil {
		w.logger.Info(e.Message,
			slog.Int64("time", e.Time),
			slog.String("type", e.Type),
			slog.Any("extra", e.Extra),
		)
	}
}

package tools

import (
	"time"

	"github.com/loxone-mcp/bridge/internal/loxerr"
	"github.com/loxone-mcp/bridge/internal/statelog"
)

const defaultDoorWindowHours = 24

func (tc *ToolContext) requireStateLog() (*statelog.Log, error) {
	if tc.StateLog == nil {
		return nil, loxerr.New(loxerr.KindCapabilityUnavailable, loxerr.ErrCapabilityUnavailable, "state-change log not available")
	}
	return tc.StateLog, nil
}

// GetSensorStateHistoryResponse is get_sensor_state_history's output.
type GetSensorStateHistoryResponse struct {
	UUID   string           `json:"uuid,omitempty"`
	Events []statelog.Event `json:"events"`
	Count  int              `json:"count"`
	Error  string           `json:"error,omitempty"`
}

// GetSensorStateHistory returns the ring-buffered change history for one
// sensor UUID.
func (tc *ToolContext) GetSensorStateHistory(uuid string) GetSensorStateHistoryResponse {
	log, err := tc.requireStateLog()
	if err != nil {
		return GetSensorStateHistoryResponse{Error: errString(err)}
	}
	events, ok := log.History(uuid)
	if !ok {
		return GetSensorStateHistoryResponse{Error: "Device not found: " + uuid}
	}
	return GetSensorStateHistoryResponse{UUID: uuid, Events: events, Count: len(events)}
}

// GetRecentSensorChangesResponse is get_recent_sensor_changes' output.
type GetRecentSensorChangesResponse struct {
	Events []statelog.Event `json:"events"`
	Count  int              `json:"count"`
	Error  string           `json:"error,omitempty"`
}

// GetRecentSensorChanges returns the most recent limit changes across every
// tracked sensor, newest first.
func (tc *ToolContext) GetRecentSensorChanges(limit int) GetRecentSensorChangesResponse {
	log, err := tc.requireStateLog()
	if err != nil {
		return GetRecentSensorChangesResponse{Error: errString(err)}
	}
	if limit <= 0 {
		limit = 20
	}
	events := log.RecentChanges(limit)
	return GetRecentSensorChangesResponse{Events: events, Count: len(events)}
}

// GetDoorWindowActivityResponse is get_door_window_activity's output.
type GetDoorWindowActivityResponse struct {
	statelog.DoorWindowActivitySummary
	Error string `json:"error,omitempty"`
}

// GetDoorWindowActivity summarizes OPEN/CLOSED events over the trailing
// window, defaulting to 24 hours.
func (tc *ToolContext) GetDoorWindowActivity(hours int) GetDoorWindowActivityResponse {
	log, err := tc.requireStateLog()
	if err != nil {
		return GetDoorWindowActivityResponse{Error: errString(err)}
	}
	if hours <= 0 {
		hours = defaultDoorWindowHours
	}
	summary := log.DoorWindowActivity(hours, float64(time.Now().Unix()))
	return GetDoorWindowActivityResponse{DoorWindowActivitySummary: summary}
}

// GetLoggingStatisticsResponse is get_logging_statistics' output.
type GetLoggingStatisticsResponse struct {
	statelog.Statistics
	Error string `json:"error,omitempty"`
}

// GetLoggingStatistics reports C9's summary statistics.
func (tc *ToolContext) GetLoggingStatistics() GetLoggingStatisticsResponse {
	log, err := tc.requireStateLog()
	if err != nil {
		return GetLoggingStatisticsResponse{Error: errString(err)}
	}
	return GetLoggingStatisticsResponse{Statistics: log.Statistics()}
}

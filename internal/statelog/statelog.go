// Package statelog implements C9, the state-change log: a bounded,
// ring-buffered record of every sensor value transition, periodically
// flushed to disk. Data shape and eviction policy grounded on
// original_source/sensor_state_logger.py's SensorStateLogger; the
// load/persist pattern (read-on-start, write-on-a-timer) follows
// internal/scout/agent.go's loadAgentID/saveAgentID, generalized here to
// an atomic write-temp-then-rename per spec.md §4.9 (the Python reference
// writes in place; this supersedes it).
package statelog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loxone-mcp/bridge/internal/ltype"
	"github.com/loxone-mcp/bridge/internal/sched"
)

const (
	// DefaultMaxEventsPerSensor bounds each UUID's ring buffer.
	DefaultMaxEventsPerSensor = 100
	// DefaultMaxSensors bounds the number of tracked UUIDs.
	DefaultMaxSensors = 1000
	// DefaultSyncInterval is the periodic flush-to-disk cadence.
	DefaultSyncInterval = 600 * time.Second

	shutdownSyncTimeout = 5 * time.Second
)

// Event is one recorded state transition.
type Event struct {
	UUID          string  `json:"uuid"`
	TimestampUnix float64 `json:"timestamp"`
	OldValue      string  `json:"old_value"`
	NewValue      string  `json:"new_value"`
	HumanReadable string  `json:"human_readable"`
}

// history is one UUID's ring-buffered record.
type history struct {
	UUID         string  `json:"uuid"`
	FirstSeen    float64 `json:"first_seen"`
	LastUpdated  float64 `json:"last_updated"`
	TotalChanges int     `json:"total_changes"`
	CurrentState string  `json:"current_state"`
	Events       []Event `json:"state_events"`
}

func (h *history) append(e Event, maxEvents int) {
	h.Events = append(h.Events, e)
	if len(h.Events) > maxEvents {
		h.Events = h.Events[len(h.Events)-maxEvents:]
	}
}

// Log is the in-memory, periodically persisted sensor state-change log.
type Log struct {
	path               string
	maxEventsPerSensor int
	maxSensors         int
	syncInterval       time.Duration
	logger             *zap.Logger

	mu           sync.Mutex
	histories    map[string]*history
	sessionStart float64
	dirty        bool

	periodic *sched.Periodic
}

// Options configures a Log. Zero values fall back to the package defaults.
type Options struct {
	Path               string
	MaxEventsPerSensor int
	MaxSensors         int
	SyncInterval       time.Duration
}

// New builds a Log, loading any existing file at opts.Path. The caller
// should call Start to begin the periodic sync loop and Shutdown to flush
// on exit.
func New(opts Options, logger *zap.Logger) *Log {
	if opts.MaxEventsPerSensor <= 0 {
		opts.MaxEventsPerSensor = DefaultMaxEventsPerSensor
	}
	if opts.MaxSensors <= 0 {
		opts.MaxSensors = DefaultMaxSensors
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = DefaultSyncInterval
	}
	if opts.Path == "" {
		opts.Path = "sensor_state_log.json"
	}

	l := &Log{
		path:               opts.Path,
		maxEventsPerSensor: opts.MaxEventsPerSensor,
		maxSensors:         opts.MaxSensors,
		syncInterval:       opts.SyncInterval,
		logger:             logger,
		histories:          make(map[string]*history),
		sessionStart:       float64(time.Now().Unix()),
	}
	l.load()
	return l
}

// Start begins the periodic disk-sync loop.
func (l *Log) Start(ctx context.Context) {
	l.periodic = sched.NewPeriodic(l.syncInterval, func(ctx context.Context) {
		l.mu.Lock()
		dirty := l.dirty
		l.mu.Unlock()
		if !dirty {
			return
		}
		if err := l.persist(); err != nil && l.logger != nil {
			l.logger.Error("periodic state-log sync failed", zap.Error(err))
		}
	}, l.logger)
	l.periodic.Start(ctx)
}

// Shutdown stops the periodic loop and performs a final bounded sync.
func (l *Log) Shutdown() {
	if l.periodic != nil {
		l.periodic.Stop()
	}

	done := make(chan error, 1)
	go func() { done <- l.persist() }()
	select {
	case err := <-done:
		if err != nil && l.logger != nil {
			l.logger.Error("final state-log sync failed", zap.Error(err))
		}
	case <-time.After(shutdownSyncTimeout):
		if l.logger != nil {
			l.logger.Warn("final state-log sync timed out")
		}
	}
}

// LogChange records one state transition for uuid, evicting the
// least-recently-updated sensor if this is a new UUID and max_sensors
// would otherwise be exceeded.
func (l *Log) LogChange(uuid string, old, newVal ltype.Value, observedUnix int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := float64(observedUnix)
	h, ok := l.histories[uuid]
	if !ok && len(l.histories) >= l.maxSensors {
		l.evictOldestLocked()
	}

	label := humanReadable(newVal)
	event := Event{
		UUID:          uuid,
		TimestampUnix: now,
		OldValue:      old.String(),
		NewValue:      newVal.String(),
		HumanReadable: label,
	}

	if ok {
		h.LastUpdated = now
		h.TotalChanges++
		h.CurrentState = newVal.String()
		h.append(event, l.maxEventsPerSensor)
	} else {
		h = &history{
			UUID:         uuid,
			FirstSeen:    now,
			LastUpdated:  now,
			TotalChanges: 1,
			CurrentState: newVal.String(),
		}
		h.append(event, l.maxEventsPerSensor)
		l.histories[uuid] = h
	}

	l.dirty = true
}

func (l *Log) evictOldestLocked() {
	var oldestUUID string
	var oldestAt float64
	first := true
	for uuid, h := range l.histories {
		if first || h.LastUpdated < oldestAt {
			oldestUUID = uuid
			oldestAt = h.LastUpdated
			first = false
		}
	}
	if oldestUUID != "" {
		delete(l.histories, oldestUUID)
	}
}

// humanReadable reproduces sensor_state_logger.py's _get_human_readable_state:
// 0 -> OPEN, 1 -> CLOSED, strings uppercased, otherwise VALUE(v).
func humanReadable(v ltype.Value) string {
	if f, ok := v.AsDouble(); ok {
		switch f {
		case 0:
			return "OPEN"
		case 1:
			return "CLOSED"
		default:
			return fmt.Sprintf("VALUE(%s)", v.String())
		}
	}
	if s, ok := v.AsText(); ok {
		return strings.ToUpper(s)
	}
	return fmt.Sprintf("VALUE(%s)", v.String())
}

// History returns the full ring buffer for uuid, or false if unknown.
func (l *Log) History(uuid string) ([]Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.histories[uuid]
	if !ok {
		return nil, false
	}
	out := make([]Event, len(h.Events))
	copy(out, h.Events)
	return out, true
}

// RecentChanges returns the most recent `limit` events across all sensors,
// newest first.
func (l *Log) RecentChanges(limit int) []Event {
	l.mu.Lock()
	all := l.allEventsLocked()
	l.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].TimestampUnix > all[j].TimestampUnix })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// ChangesSince returns every event at or after sinceUnix, oldest first.
func (l *Log) ChangesSince(sinceUnix float64) []Event {
	l.mu.Lock()
	all := l.allEventsLocked()
	l.mu.Unlock()

	out := make([]Event, 0, len(all))
	for _, e := range all {
		if e.TimestampUnix >= sinceUnix {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimestampUnix < out[j].TimestampUnix })
	return out
}

func (l *Log) allEventsLocked() []Event {
	var all []Event
	for _, h := range l.histories {
		all = append(all, h.Events...)
	}
	return all
}

// SensorActivity summarizes one UUID's door/window open/close counts
// within a DoorWindowActivity window.
type SensorActivity struct {
	TotalChanges int     `json:"total_changes"`
	Opens        int     `json:"opens"`
	Closes       int     `json:"closes"`
	CurrentState string  `json:"current_state"`
	LastChange   float64 `json:"last_change"`
}

// TimelineEntry is one door/window change rendered for display.
type TimelineEntry struct {
	TimestampUnix float64 `json:"timestamp"`
	UUID          string  `json:"uuid"`
	Change        string  `json:"change"`
	Human         string  `json:"human"`
}

// DoorWindowActivitySummary is the result of DoorWindowActivity.
type DoorWindowActivitySummary struct {
	PeriodHours    int                       `json:"period_hours"`
	TotalChanges   int                       `json:"total_changes"`
	SensorsActive  int                       `json:"sensors_active"`
	SensorActivity map[string]SensorActivity `json:"sensor_activity"`
	Timeline       []TimelineEntry           `json:"timeline"`
}

// DoorWindowActivity summarizes OPEN/CLOSED transitions over the last
// windowHours hours, per spec.md §4.9.
func (l *Log) DoorWindowActivity(windowHours int, nowUnix float64) DoorWindowActivitySummary {
	since := nowUnix - float64(windowHours)*3600
	changes := l.ChangesSince(since)

	var doorWindow []Event
	for _, e := range changes {
		if e.HumanReadable == "OPEN" || e.HumanReadable == "CLOSED" {
			doorWindow = append(doorWindow, e)
		}
	}

	activity := make(map[string]SensorActivity)
	for _, e := range doorWindow {
		a := activity[e.UUID]
		a.TotalChanges++
		if e.HumanReadable == "OPEN" {
			a.Opens++
		} else {
			a.Closes++
		}
		a.CurrentState = e.HumanReadable
		a.LastChange = e.TimestampUnix
		activity[e.UUID] = a
	}

	timeline := doorWindow
	if len(timeline) > 20 {
		timeline = timeline[len(timeline)-20:]
	}
	entries := make([]TimelineEntry, 0, len(timeline))
	for _, e := range timeline {
		entries = append(entries, TimelineEntry{
			TimestampUnix: e.TimestampUnix,
			UUID:          e.UUID,
			Change:        fmt.Sprintf("%s → %s", e.OldValue, e.NewValue),
			Human:         e.HumanReadable,
		})
	}

	return DoorWindowActivitySummary{
		PeriodHours:    windowHours,
		TotalChanges:   len(doorWindow),
		SensorsActive:  len(activity),
		SensorActivity: activity,
		Timeline:       entries,
	}
}

// Statistics is the result of Statistics.
type Statistics struct {
	Status           string  `json:"status,omitempty"`
	SessionStart     float64 `json:"session_start,omitempty"`
	SensorsTracked   int     `json:"sensors_tracked,omitempty"`
	TotalEvents      int     `json:"total_events,omitempty"`
	LogFile          string  `json:"log_file,omitempty"`
	OldestEvent      float64 `json:"oldest_event,omitempty"`
	NewestEvent      float64 `json:"newest_event,omitempty"`
	MostActiveSensor string  `json:"most_active_sensor,omitempty"`
}

// Statistics returns overall logging statistics, per spec.md §4.9.
func (l *Log) Statistics() Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.histories) == 0 {
		return Statistics{Status: "no_data"}
	}

	stats := Statistics{
		SessionStart:   l.sessionStart,
		SensorsTracked: len(l.histories),
		LogFile:        l.path,
	}

	first := true
	mostActiveUUID := ""
	mostActiveChanges := -1
	for uuid, h := range l.histories {
		stats.TotalEvents += len(h.Events)
		if first || h.FirstSeen < stats.OldestEvent {
			stats.OldestEvent = h.FirstSeen
		}
		if first || h.LastUpdated > stats.NewestEvent {
			stats.NewestEvent = h.LastUpdated
		}
		if h.TotalChanges > mostActiveChanges {
			mostActiveChanges = h.TotalChanges
			mostActiveUUID = uuid
		}
		first = false
	}
	stats.MostActiveSensor = mostActiveUUID

	return stats
}

// persistedFile is the on-disk JSON envelope.
type persistedFile struct {
	SessionStart  float64             `json:"session_start"`
	LastPersisted float64             `json:"last_persisted"`
	Histories     map[string]*history `json:"sensor_histories"`
}

// persist atomically writes the full log to disk: write to a sibling
// temp file, then rename over the target, so a crash mid-write never
// leaves a truncated log file (spec.md §4.9; supersedes the Python
// reference's in-place write).
func (l *Log) persist() error {
	l.mu.Lock()
	if !l.dirty {
		l.mu.Unlock()
		return nil
	}
	pf := persistedFile{
		SessionStart:  l.sessionStart,
		LastPersisted: float64(time.Now().Unix()),
		Histories:     l.histories,
	}
	// Marshal while still holding the lock: the histories map holds
	// pointers, and concurrent LogChange calls mutate those History
	// structs in place, so releasing the lock before encoding would race.
	data, err := json.MarshalIndent(pf, "", "  ")
	l.mu.Unlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, ".statelog-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	l.mu.Lock()
	l.dirty = false
	l.mu.Unlock()
	return nil
}

// load reads an existing log file if present, dropping malformed entries
// with a warning rather than failing startup.
func (l *Log) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}

	var pf persistedFile
	if err := json.Unmarshal(data, &pf); err != nil {
		if l.logger != nil {
			l.logger.Warn("failed to load existing state log, starting fresh", zap.Error(err))
		}
		return
	}

	loaded := 0
	for uuid, h := range pf.Histories {
		if h == nil || uuid == "" {
			continue
		}
		if loaded >= l.maxSensors {
			if l.logger != nil {
				l.logger.Warn("reached max sensors limit while loading state log", zap.Int("max_sensors", l.maxSensors))
			}
			break
		}
		if len(h.Events) > l.maxEventsPerSensor {
			h.Events = h.Events[len(h.Events)-l.maxEventsPerSensor:]
		}
		l.histories[uuid] = h
		loaded++
	}
	if pf.SessionStart > 0 {
		l.sessionStart = pf.SessionStart
	}
	if l.logger != nil {
		l.logger.Info("loaded state log", zap.Int("sensors", loaded), zap.String("path", l.path))
	}
}

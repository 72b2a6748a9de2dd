package types

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EpisodeContext carries the inputs and outcome of a single episode
type EpisodeContext struct {
	Context context.Context
	Cancel  context.CancelFunc // cancel function to stop the episode

	Episode    int
	Experiment string
	Trace      *Trace
	Report     *EpisodeReport

	Timesteps   int
	RunDuration time.Duration

	// outcomes
	Err         error
	TimedOut    bool
	Crashed     bool
	Truncated   bool
	ForcedReset bool

	lock *sync.Mutex
}

func NewEpisodeContext(parent context.Context, episode int, experiment string, timeout time.Duration) *EpisodeContext {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	return &EpisodeContext{
		Context:    ctx,
		Cancel:     cancel,
		Episode:    episode,
		Experiment: experiment,
		Trace:      NewTrace(),
		Report:     NewEpisodeReport(episode, experiment),
		lock:       new(sync.Mutex),
	}
}

func (e *EpisodeContext) SetError(err error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.Err = err
	e.Report.AddLog(err.Error(), "error")
}

func (e *EpisodeContext) SetTimedOut() {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.TimedOut = true
}

// Valid is true for episodes that ended without an error or timeout
func (e *EpisodeContext) Valid() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.Err == nil && !e.TimedOut
}

// REPORT CONFIGURATION

// Configuration of the report
type ReportsPrintConfig struct {
	PrintTimeline bool // print the report timeline representation

	PrintIfError   bool // print the report if an error occurs
	PrintIfTimeout bool // print the report if a timeout occurs

	Sampling float32 // rate of randomly printed reports (for successful episodes)
}

// configuration of the report with no printing
func RepConfigOff() *ReportsPrintConfig {
	return &ReportsPrintConfig{}
}

// prints errors and timeouts, and a successful episode with probability 0.02
func RepConfigStandard() *ReportsPrintConfig {
	return &ReportsPrintConfig{
		PrintIfError:   true,
		PrintIfTimeout: true,
		Sampling:       0.02,
	}
}

// prints every episode with the full timeline
func RepConfigComplete() *ReportsPrintConfig {
	return &ReportsPrintConfig{
		PrintTimeline:  true,
		PrintIfError:   true,
		PrintIfTimeout: true,
		Sampling:       1.0,
	}
}

// EPISODE REPORT

// Report of an episode
type EpisodeReport struct {
	EpisodeNumber  int
	ExperimentName string
	episodeStep    int

	nextIndex int       // next available index for an entry
	startTime time.Time // start time to compute timestamp of an entry

	lock *sync.Mutex // mutex to control entries updates

	Timeline   []*EpisodeReportEntry // generic timeline containing all the entries ordered by index
	TimeValues map[string][]*EpisodeReportEntry
	IntValues  map[string][]*EpisodeReportEntry
	Logs       map[string]string
}

func NewEpisodeReport(episodeNumber int, experimentName string) *EpisodeReport {
	return &EpisodeReport{
		EpisodeNumber:  episodeNumber,
		ExperimentName: experimentName,
		startTime:      time.Now(),
		lock:           new(sync.Mutex),
		Timeline:       make([]*EpisodeReportEntry, 0),
		TimeValues:     make(map[string][]*EpisodeReportEntry),
		IntValues:      make(map[string][]*EpisodeReportEntry),
		Logs:           make(map[string]string),
	}
}

// set the current episode step in the report
func (e *EpisodeReport) setEpisodeStep(step int) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.episodeStep = step
}

func (e *EpisodeReport) addEntry(value interface{}, entryType string, caller string) *EpisodeReportEntry {
	entry := &EpisodeReportEntry{
		Index:       e.nextIndex,
		Timestamp:   time.Since(e.startTime),
		EpisodeStep: e.episodeStep,
		EntryType:   entryType,
		Caller:      caller,
		Value:       value,
	}
	e.nextIndex += 1
	e.Timeline = append(e.Timeline, entry)
	return entry
}

// add a new entry of type int to the report
func (e *EpisodeReport) AddIntEntry(value int, entryType string, caller string) {
	e.lock.Lock()
	defer e.lock.Unlock()
	entry := e.addEntry(value, entryType, caller)
	e.IntValues[entryType] = append(e.IntValues[entryType], entry)
}

// add a new entry of type time.Duration to the report
func (e *EpisodeReport) AddTimeEntry(value time.Duration, entryType string, caller string) {
	e.lock.Lock()
	defer e.lock.Unlock()
	entry := e.addEntry(value, entryType, caller)
	e.TimeValues[entryType] = append(e.TimeValues[entryType], entry)
}

func (e *EpisodeReport) AddLog(value string, key string) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.Logs[key] = value
}

// return a string representation of the report timeline
func (e *EpisodeReport) StringTimeline() string {
	e.lock.Lock()
	defer e.lock.Unlock()
	result := fmt.Sprintf("Length: %d\n", len(e.Timeline))
	for _, entry := range e.Timeline {
		result += entry.String() + "\n"
	}
	return result
}

// return a string representation of the report entries per type
func (e *EpisodeReport) StringPerType() string {
	e.lock.Lock()
	defer e.lock.Unlock()
	result := ""
	for entryType, entries := range e.TimeValues {
		total := time.Duration(0)
		for _, en := range entries {
			total += en.Value.(time.Duration)
		}
		avg := time.Duration(0)
		if len(entries) > 0 {
			avg = total / time.Duration(len(entries))
		}
		result = fmt.Sprintf("%s%s [%d]: total %s, avg %s\n", result, entryType, len(entries), total, avg)
	}
	for entryType, entries := range e.IntValues {
		result = fmt.Sprintf("%s%s [%d]\n", result, entryType, len(entries))
	}
	for key, value := range e.Logs {
		result = fmt.Sprintf("%s%s : %s\n", result, key, value)
	}
	return result
}

// ENTRY

// Entry of the Report
type EpisodeReportEntry struct {
	Index     int           // index of the entry, managed by the report
	Timestamp time.Duration // timestamp of the entry, managed by the report

	EpisodeStep int         // episode step
	EntryType   string      // entry type
	Caller      string      // the method adding the entry
	Value       interface{} // entry value
}

// return a string representation of the entry
func (en *EpisodeReportEntry) String() string {
	switch v := en.Value.(type) {
	case time.Duration:
		return fmt.Sprintf("[ %6d | %5d | %3d ] %20s : %12s (%20s)", en.Index, en.Timestamp.Milliseconds(), en.EpisodeStep, en.EntryType, v.String(), en.Caller)
	case int:
		return fmt.Sprintf("[ %6d | %5d | %3d ] %20s : %5d (%20s)", en.Index, en.Timestamp.Milliseconds(), en.EpisodeStep, en.EntryType, v, en.Caller)
	default:
		return "wrong entry type"
	}
}

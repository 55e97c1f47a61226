package ecs

import (
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Stage groups systems into ordered phases of a single pass. Commands queued during a
// stage are flushed before the next stage starts, so entities spawned in Update are
// visible to PostUpdate systems in the same pass.
type Stage int

const (
	// Startup systems run once, at the start of the first pass.
	Startup Stage = iota
	First
	PreUpdate
	Update
	PostUpdate
	Last

	stageCount
)

var stageNames = [...]string{"Startup", "First", "PreUpdate", "Update", "PostUpdate", "Last"}

func (s Stage) String() string {
	if s < 0 || s >= stageCount {
		return "Stage(" + strconv.Itoa(int(s)) + ")"
	}
	return stageNames[s]
}

// Condition gates a system: the system only executes on passes where every one of its
// conditions returns true.
type Condition func(storage *Storage) bool

// SingletonExists is satisfied while a singleton of type T is present in storage.
func SingletonExists[T any]() Condition {
	t := reflect.TypeFor[T]()
	return func(storage *Storage) bool {
		return storage.HasSingleton(t)
	}
}

// Not inverts a condition.
func Not(c Condition) Condition {
	return func(storage *Storage) bool {
		return !c(storage)
	}
}

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	Passes          int64
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	Stage          Stage
	ExecutionCount int64
	SkipCount      int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	skipCount      int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

type queryExecutor interface {
	Execute()
}

type storageInitializer interface {
	Init(storage *Storage)
}

type registeredSystem struct {
	system     System
	stage      Stage
	conditions []Condition
	queries    []queryExecutor
	stats      *systemStatsInternal
}

// Scheduler manages and executes systems in stage order, and in registration order within
// a stage.
type Scheduler struct {
	storage     *Storage
	systems     []*registeredSystem
	passes      int64
	startupDone bool
}

// NewScheduler creates a new scheduler for the given storage.
func NewScheduler(storage *Storage) *Scheduler {
	return &Scheduler{
		storage: storage,
	}
}

// Storage returns the storage the scheduler runs against.
func (s *Scheduler) Storage() *Storage {
	return s.storage
}

// Register adds a system to the Update stage and initializes its Query and Singleton fields.
func (s *Scheduler) Register(system System, conditions ...Condition) {
	s.RegisterIn(Update, system, conditions...)
}

// RegisterIn adds a system to the given stage, gated by optional run conditions.
func (s *Scheduler) RegisterIn(stage Stage, system System, conditions ...Condition) {
	if stage < 0 || stage >= stageCount {
		panic("invalid stage: " + stage.String())
	}

	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Ptr {
		systemType = systemType.Elem()
	}

	s.systems = append(s.systems, &registeredSystem{
		system:     system,
		stage:      stage,
		conditions: conditions,
		queries:    s.initializeFields(system),
		stats: &systemStatsInternal{
			name:        systemType.Name(),
			minDuration: time.Duration(1<<63 - 1),
		},
	})
}

// initializeFields wires Query and Singleton fields to the storage and returns the
// queries that must be executed before each run of the system.
func (s *Scheduler) initializeFields(system System) []queryExecutor {
	systemValue := reflect.ValueOf(system)
	if systemValue.Kind() != reflect.Ptr {
		return nil
	}
	systemValue = systemValue.Elem()
	if systemValue.Kind() != reflect.Struct {
		return nil
	}

	var queries []queryExecutor
	systemType := systemValue.Type()

	for i := 0; i < systemValue.NumField(); i++ {
		field := systemValue.Field(i)
		if !field.CanSet() || field.Kind() != reflect.Struct {
			continue
		}

		typeName := field.Type().Name()
		isQuery := strings.HasPrefix(typeName, "Query[")
		if !isQuery && !strings.HasPrefix(typeName, "Singleton[") {
			continue
		}

		init, ok := field.Addr().Interface().(storageInitializer)
		if !ok {
			panic("Init method not found on field: " + systemType.Field(i).Name)
		}
		init.Init(s.storage)

		if isQuery {
			queries = append(queries, field.Addr().Interface().(queryExecutor))
		}
	}

	return queries
}

// Once executes one pass: Startup systems on the first pass, then every stage in order,
// flushing commands after each stage.
func (s *Scheduler) Once(dt float64) {
	frame := newUpdateFrame(dt, s.storage)
	s.passes++

	first := Startup
	if s.startupDone {
		first = First
	}
	s.startupDone = true

	for stage := first; stage < stageCount; stage++ {
		frame.Stage = stage
		for _, rs := range s.systems {
			if rs.stage != stage {
				continue
			}
			s.execute(rs, frame)
		}
		frame.Commands.Flush(s.storage)
	}
}

func (s *Scheduler) execute(rs *registeredSystem, frame *UpdateFrame) {
	stats := rs.stats
	for _, cond := range rs.conditions {
		if !cond(s.storage) {
			stats.skipCount++
			return
		}
	}

	for _, q := range rs.queries {
		q.Execute()
	}

	start := time.Now()
	rs.system.Execute(frame)
	duration := time.Since(start)

	stats.executionCount++
	stats.lastDuration = duration
	stats.totalDuration += duration
	stats.minDuration = min(stats.minDuration, duration)
	stats.maxDuration = max(stats.maxDuration, duration)
}

// GetStats returns statistics about system execution.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		Passes:      s.passes,
		Systems:     make([]SystemStats, len(s.systems)),
	}

	for i, rs := range s.systems {
		internal := rs.stats
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}

		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			Stage:          rs.stage,
			ExecutionCount: internal.executionCount,
			SkipCount:      internal.skipCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		stats.TotalExecutions += internal.executionCount
	}

	return stats
}

package pipeline

import (
	"fmt"
	"time"

	"github.com/banshee-data/trajectory.report/internal/align"
	"github.com/banshee-data/trajectory.report/internal/config"
	"github.com/banshee-data/trajectory.report/internal/geo"
	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/segment"
	"github.com/banshee-data/trajectory.report/internal/telemetry"
	"github.com/banshee-data/trajectory.report/internal/timeutil"
)

// Topic names read by the analysis.
const (
	TopicGlobalPosition = "vehicle_global_position"
	TopicLocalPosition  = "vehicle_local_position"
	TopicSetpoint       = "position_setpoint_triplet"
	TopicStatus         = "vehicle_status"
)

func primary(name string) telemetry.TopicKey {
	return telemetry.TopicKey{Name: name, Instance: 0}
}

// Columns read or written by the analysis.
var (
	Position  = geo.NewSource(primary(TopicGlobalPosition), "lat", "lon")
	Reference = geo.NewSource(primary(TopicLocalPosition), "ref_lat", "ref_lon")
	Setpoint  = geo.NewSource(primary(TopicSetpoint), "current_lat", "current_lon")

	XYGlobal = telemetry.NamespacedField(primary(TopicLocalPosition), "xy_global")
	ZGlobal  = telemetry.NamespacedField(primary(TopicLocalPosition), "z_global")

	NavState = telemetry.NamespacedField(primary(TopicStatus), "nav_state")
	NavGroup = NavState + "_group"
)

var stageLabels = []string{"require", "merge", "filter", "derive", "segment"}

// Config holds the dependencies of Run. Zero values select the defaults:
// default analysis settings, UTM projection and the real clock.
type Config struct {
	Analysis  *config.AnalysisConfig
	Projector geo.Projector
	Clock     timeutil.Clock
}

// StageTiming records how long one stage took.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Result is the output of one analysis.
type Result struct {
	Table     *telemetry.Table
	Groups    []int
	Runs      []segment.Run
	AutoRuns  []segment.Run
	AutoValue float64

	MergedRows int
	StartedAt  time.Time
	Stages     []StageTiming
}

// AutoBucket returns the bucket function that collapses every auto
// navigation state into one value.
func AutoBucket(cfg *config.AnalysisConfig) segment.BucketFunc {
	codes := make([]float64, len(cfg.GetAutoNavStates()))
	for i, s := range cfg.GetAutoNavStates() {
		codes[i] = float64(s)
	}
	return segment.Collapse(codes, cfg.GetAutoGroupValue())
}

// Run executes every stage in order. Any stage error aborts the analysis and
// names the stage.
func Run(topics map[telemetry.TopicKey]*telemetry.TopicTable, cfg Config) (*Result, error) {
	if cfg.Analysis == nil {
		cfg.Analysis = config.DefaultAnalysisConfig()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if err := cfg.Analysis.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", telemetry.ErrConfiguration, err)
	}
	a := cfg.Analysis
	deriver := geo.NewDeriver(cfg.Projector)

	res := &Result{StartedAt: cfg.Clock.Now(), AutoValue: a.GetAutoGroupValue()}
	var table *telemetry.Table

	stages := []func() error{
		func() error {
			return requireTopics(topics, a.GetRequiredTopics())
		},
		func() error {
			opts, err := mergeOptions(a)
			if err != nil {
				return err
			}
			merged, err := align.Merge(topics, opts)
			if err != nil {
				return err
			}
			topics = nil
			table = merged
			res.MergedRows = merged.Len()
			return nil
		},
		func() error {
			f := geo.ValidityFilter{
				Flags:         []string{XYGlobal, ZGlobal},
				FlagThreshold: a.GetFlagThreshold(),
				Sources:       []geo.Source{Position, Setpoint},
				LatBound:      a.GetLatBound(),
				LonBound:      a.GetLonBound(),
			}
			filtered, err := f.Apply(table)
			if err != nil {
				return err
			}
			table = filtered
			return nil
		},
		func() error {
			if err := geo.RequireColumns(table, Reference.Lat, Reference.Lon, Setpoint.Lat, Setpoint.Lon, Position.Lat, Position.Lon); err != nil {
				return err
			}
			if err := deriver.EnsureReference(table, Reference); err != nil {
				return err
			}
			if err := deriver.AddRelative(table, Setpoint, Reference); err != nil {
				return err
			}
			return deriver.AddRelative(table, Position, Reference)
		},
		func() error {
			bucket := AutoBucket(a)
			groups, err := segment.Label(table, NavState, bucket, NavGroup)
			if err != nil {
				return err
			}
			runs, err := segment.Runs(table, NavState, bucket)
			if err != nil {
				return err
			}
			res.Groups = groups
			res.Runs = runs
			res.AutoRuns = segment.Select(runs, a.GetAutoGroupValue())
			return nil
		},
	}

	for i, stage := range stages {
		start := cfg.Clock.Now()
		if err := stage(); err != nil {
			return nil, fmt.Errorf("%s stage: %w", stageLabels[i], err)
		}
		d := cfg.Clock.Since(start)
		res.Stages = append(res.Stages, StageTiming{Stage: stageLabels[i], Duration: d})
		monitoring.Debugf("pipeline: %s stage took %v", stageLabels[i], d)
	}

	res.Table = table
	monitoring.Logf("pipeline: %d rows (%d merged), %d runs, %d auto runs",
		table.Len(), res.MergedRows, len(res.Runs), len(res.AutoRuns))
	return res, nil
}

func requireTopics(topics map[telemetry.TopicKey]*telemetry.TopicTable, required []string) error {
	for _, name := range required {
		if _, ok := topics[primary(name)]; !ok {
			return fmt.Errorf("%w: required topic %s missing from log", telemetry.ErrConfiguration, primary(name))
		}
	}
	return nil
}

func mergeOptions(a *config.AnalysisConfig) (align.Options, error) {
	policy, err := align.ParsePolicy(a.GetMergePolicy())
	if err != nil {
		return align.Options{}, err
	}
	opts := align.Options{
		Policy: policy,
		Anchor: telemetry.TopicKey{Name: a.GetAnchorTopic(), Instance: a.GetAnchorInstance()},
	}
	for _, name := range a.GetHoldTopics() {
		opts.HoldTopics = append(opts.HoldTopics, primary(name))
	}
	return opts, nil
}

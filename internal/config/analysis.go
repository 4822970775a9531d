package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// Merge policy names accepted in merge_policy.
const (
	MergeOrdered = "ordered"
	MergeAsOf    = "asof"
)

// AnalysisConfig is the configuration of one global-position analysis.
// Every field is optional; the Get* methods fall back to the defaults, so a
// partial file is safe.
type AnalysisConfig struct {
	// Alignment
	MergePolicy    *string  `json:"merge_policy,omitempty"` // "ordered" or "asof"
	AnchorTopic    *string  `json:"anchor_topic,omitempty"` // as-of timeline topic
	AnchorInstance *int     `json:"anchor_instance,omitempty"`
	HoldTopics     []string `json:"hold_topics,omitempty"` // zero-order-hold topics (instance 0)
	RequiredTopics []string `json:"required_topics,omitempty"`

	// Segmentation
	AutoNavStates  []int    `json:"auto_nav_states,omitempty"`
	AutoGroupValue *float64 `json:"auto_group_value,omitempty"`

	// Validity filter
	LatBound      *float64 `json:"lat_bound,omitempty"`
	LonBound      *float64 `json:"lon_bound,omitempty"`
	FlagThreshold *float64 `json:"flag_threshold,omitempty"`

	// Report
	PlotWidthIn  *float64 `json:"plot_width_in,omitempty"`
	PlotHeightIn *float64 `json:"plot_height_in,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Default values.
var (
	defaultRequiredTopics = []string{
		"vehicle_global_position",
		"vehicle_local_position",
		"position_setpoint_triplet",
		"vehicle_status",
	}
	defaultHoldTopics    = []string{"position_setpoint_triplet", "vehicle_status"}
	defaultAutoNavStates = []int{3, 4, 5, 6, 7, 8}
)

// EmptyAnalysisConfig returns a config with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field set to its default.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		MergePolicy:    ptrString(MergeOrdered),
		AnchorTopic:    ptrString("vehicle_global_position"),
		AnchorInstance: ptrInt(0),
		HoldTopics:     append([]string(nil), defaultHoldTopics...),
		RequiredTopics: append([]string(nil), defaultRequiredTopics...),
		AutoNavStates:  append([]int(nil), defaultAutoNavStates...),
		AutoGroupValue: ptrFloat64(-1),
		LatBound:       ptrFloat64(80),
		LonBound:       ptrFloat64(180),
		FlagThreshold:  ptrFloat64(0.1),
		PlotWidthIn:    ptrFloat64(20),
		PlotHeightIn:   ptrFloat64(13),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded; intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable together.
func (c *AnalysisConfig) Validate() error {
	switch c.GetMergePolicy() {
	case MergeOrdered, MergeAsOf:
	default:
		return fmt.Errorf("merge_policy must be %q or %q, got %q", MergeOrdered, MergeAsOf, c.GetMergePolicy())
	}

	required := make(map[string]bool)
	for _, t := range c.GetRequiredTopics() {
		if t == "" {
			return fmt.Errorf("required_topics must not contain empty names")
		}
		required[t] = true
	}
	for _, t := range c.GetHoldTopics() {
		if !required[t] {
			return fmt.Errorf("hold topic %q is not in required_topics", t)
		}
	}
	if c.GetMergePolicy() == MergeAsOf && !required[c.GetAnchorTopic()] {
		return fmt.Errorf("anchor_topic %q is not in required_topics", c.GetAnchorTopic())
	}
	if c.GetAnchorInstance() < 0 {
		return fmt.Errorf("anchor_instance must be non-negative, got %d", c.GetAnchorInstance())
	}

	if b := c.GetLatBound(); b <= 0 || b > 90 {
		return fmt.Errorf("lat_bound must be in (0, 90], got %f", b)
	}
	if b := c.GetLonBound(); b <= 0 || b > 180 {
		return fmt.Errorf("lon_bound must be in (0, 180], got %f", b)
	}
	if c.GetFlagThreshold() < 0 {
		return fmt.Errorf("flag_threshold must be non-negative, got %f", c.GetFlagThreshold())
	}
	if c.GetPlotWidthIn() <= 0 || c.GetPlotHeightIn() <= 0 {
		return fmt.Errorf("plot size must be positive, got %fx%f", c.GetPlotWidthIn(), c.GetPlotHeightIn())
	}
	return nil
}

// GetMergePolicy returns the merge_policy value or the default.
func (c *AnalysisConfig) GetMergePolicy() string {
	if c.MergePolicy == nil || *c.MergePolicy == "" {
		return MergeOrdered
	}
	return *c.MergePolicy
}

// GetAnchorTopic returns the anchor_topic value or the default.
func (c *AnalysisConfig) GetAnchorTopic() string {
	if c.AnchorTopic == nil || *c.AnchorTopic == "" {
		return "vehicle_global_position"
	}
	return *c.AnchorTopic
}

// GetAnchorInstance returns the anchor_instance value or the default.
func (c *AnalysisConfig) GetAnchorInstance() int {
	if c.AnchorInstance == nil {
		return 0
	}
	return *c.AnchorInstance
}

// GetHoldTopics returns the hold_topics value or the default.
func (c *AnalysisConfig) GetHoldTopics() []string {
	if c.HoldTopics == nil {
		return defaultHoldTopics
	}
	return c.HoldTopics
}

// GetRequiredTopics returns the required_topics value or the default.
func (c *AnalysisConfig) GetRequiredTopics() []string {
	if len(c.RequiredTopics) == 0 {
		return defaultRequiredTopics
	}
	return c.RequiredTopics
}

// GetAutoNavStates returns the auto_nav_states value or the default.
func (c *AnalysisConfig) GetAutoNavStates() []int {
	if len(c.AutoNavStates) == 0 {
		return defaultAutoNavStates
	}
	return c.AutoNavStates
}

// GetAutoGroupValue returns the auto_group_value value or the default.
func (c *AnalysisConfig) GetAutoGroupValue() float64 {
	if c.AutoGroupValue == nil {
		return -1
	}
	return *c.AutoGroupValue
}

// GetLatBound returns the lat_bound value or the default.
func (c *AnalysisConfig) GetLatBound() float64 {
	if c.LatBound == nil {
		return 80
	}
	return *c.LatBound
}

// GetLonBound returns the lon_bound value or the default.
func (c *AnalysisConfig) GetLonBound() float64 {
	if c.LonBound == nil {
		return 180
	}
	return *c.LonBound
}

// GetFlagThreshold returns the flag_threshold value or the default.
func (c *AnalysisConfig) GetFlagThreshold() float64 {
	if c.FlagThreshold == nil {
		return 0.1
	}
	return *c.FlagThreshold
}

// GetPlotWidthIn returns the plot_width_in value or the default.
func (c *AnalysisConfig) GetPlotWidthIn() float64 {
	if c.PlotWidthIn == nil {
		return 20
	}
	return *c.PlotWidthIn
}

// GetPlotHeightIn returns the plot_height_in value or the default.
func (c *AnalysisConfig) GetPlotHeightIn() float64 {
	if c.PlotHeightIn == nil {
		return 13
	}
	return *c.PlotHeightIn
}

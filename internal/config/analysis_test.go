package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultAnalysisConfig(t *testing.T) {
	cfg := DefaultAnalysisConfig()

	if cfg.MergePolicy == nil || *cfg.MergePolicy != MergeOrdered {
		t.Errorf("Expected MergePolicy %q, got %v", MergeOrdered, cfg.MergePolicy)
	}
	if cfg.AutoGroupValue == nil || *cfg.AutoGroupValue != -1 {
		t.Errorf("Expected AutoGroupValue -1, got %v", cfg.AutoGroupValue)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	// Defaults and getters on an empty config agree
	empty := EmptyAnalysisConfig()
	if empty.GetMergePolicy() != cfg.GetMergePolicy() {
		t.Errorf("GetMergePolicy() = %q, want %q", empty.GetMergePolicy(), cfg.GetMergePolicy())
	}
	if !reflect.DeepEqual(empty.GetRequiredTopics(), cfg.GetRequiredTopics()) {
		t.Errorf("GetRequiredTopics() = %v, want %v", empty.GetRequiredTopics(), cfg.GetRequiredTopics())
	}
	if !reflect.DeepEqual(empty.GetHoldTopics(), cfg.GetHoldTopics()) {
		t.Errorf("GetHoldTopics() = %v, want %v", empty.GetHoldTopics(), cfg.GetHoldTopics())
	}
	if !reflect.DeepEqual(empty.GetAutoNavStates(), []int{3, 4, 5, 6, 7, 8}) {
		t.Errorf("GetAutoNavStates() = %v", empty.GetAutoNavStates())
	}
	if empty.GetLatBound() != 80 || empty.GetLonBound() != 180 {
		t.Errorf("bounds = %f/%f, want 80/180", empty.GetLatBound(), empty.GetLonBound())
	}
	if empty.GetFlagThreshold() != 0.1 {
		t.Errorf("GetFlagThreshold() = %f, want 0.1", empty.GetFlagThreshold())
	}
	if empty.GetPlotWidthIn() != 20 || empty.GetPlotHeightIn() != 13 {
		t.Errorf("plot size = %fx%f, want 20x13", empty.GetPlotWidthIn(), empty.GetPlotHeightIn())
	}
	if empty.GetAnchorTopic() != "vehicle_global_position" || empty.GetAnchorInstance() != 0 {
		t.Errorf("anchor = %s_%d", empty.GetAnchorTopic(), empty.GetAnchorInstance())
	}
}

func TestLoadAnalysisConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "analysis.json")

	testJSON := `{
  "merge_policy": "asof",
  "anchor_topic": "vehicle_status",
  "hold_topics": [],
  "lat_bound": 60
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadAnalysisConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetMergePolicy() != MergeAsOf {
		t.Errorf("GetMergePolicy() = %q, want %q", cfg.GetMergePolicy(), MergeAsOf)
	}
	if cfg.GetAnchorTopic() != "vehicle_status" {
		t.Errorf("GetAnchorTopic() = %q", cfg.GetAnchorTopic())
	}
	if len(cfg.GetHoldTopics()) != 0 {
		t.Errorf("explicit empty hold_topics should disable hold, got %v", cfg.GetHoldTopics())
	}
	if cfg.GetLatBound() != 60 {
		t.Errorf("GetLatBound() = %f, want 60", cfg.GetLatBound())
	}
	// unset fields fall back
	if cfg.GetLonBound() != 180 {
		t.Errorf("GetLonBound() = %f, want 180", cfg.GetLonBound())
	}
}

func TestLoadAnalysisConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"wrong extension", write("cfg.yaml", "{}"), ".json extension"},
		{"missing file", filepath.Join(tmpDir, "absent.json"), "failed to stat"},
		{"bad json", write("bad.json", "{"), "failed to parse"},
		{"bad policy", write("policy.json", `{"merge_policy":"backwards"}`), "merge_policy"},
		{"hold not required", write("hold.json", `{"hold_topics":["battery_status"]}`), "hold topic"},
		{"anchor not required", write("anchor.json", `{"merge_policy":"asof","anchor_topic":"battery_status"}`), "anchor_topic"},
		{"lat bound", write("lat.json", `{"lat_bound":95}`), "lat_bound"},
		{"lon bound", write("lon.json", `{"lon_bound":-1}`), "lon_bound"},
		{"threshold", write("flag.json", `{"flag_threshold":-0.5}`), "flag_threshold"},
		{"plot size", write("plot.json", `{"plot_width_in":0}`), "plot size"},
		{"anchor instance", write("inst.json", `{"anchor_instance":-1}`), "anchor_instance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAnalysisConfig(tt.path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAnalysisConfigTooLarge(t *testing.T) {
	p := filepath.Join(t.TempDir(), "big.json")
	if err := os.WriteFile(p, make([]byte, 2*1024*1024), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAnalysisConfig(p); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	want := DefaultAnalysisConfig()
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("defaults file disagrees with DefaultAnalysisConfig():\n got %+v\nwant %+v", cfg, want)
	}
}

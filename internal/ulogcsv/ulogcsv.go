// Package ulogcsv decodes a directory of per-topic CSV files, as written by
// ulog2csv, into topic tables.
//
// Each file is named <prefix>_<topic>_<instance>.csv and starts with a header
// row naming its columns, one of which is timestamp (microseconds). Array and
// nested field names are flattened: accel[0] becomes accel_0 and a.b becomes
// a_b.
package ulogcsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// ErrNoFiles is returned when no file in the directory matches a requested
// topic.
var ErrNoFiles = errors.New("no topic files found")

var fieldReplacer = strings.NewReplacer("[", "_", "]", "", ".", "_")

// SanitizeField flattens array and nested field names.
func SanitizeField(name string) string {
	return fieldReplacer.Replace(strings.TrimSpace(name))
}

var instanceSuffix = regexp.MustCompile(`_(\d+)\.csv$`)

// matchTopic returns the longest topic in topics that names file, and the
// instance encoded in the file name.
func matchTopic(file string, topics []string) (telemetry.TopicKey, bool) {
	m := instanceSuffix.FindStringSubmatchIndex(file)
	if m == nil {
		return telemetry.TopicKey{}, false
	}
	stem := file[:m[0]]
	instance, err := strconv.Atoi(file[m[2]:m[3]])
	if err != nil {
		return telemetry.TopicKey{}, false
	}

	best := ""
	for _, topic := range topics {
		if stem != topic && !strings.HasSuffix(stem, "_"+topic) {
			continue
		}
		if len(topic) > len(best) {
			best = topic
		}
	}
	if best == "" {
		return telemetry.TopicKey{}, false
	}
	return telemetry.TopicKey{Name: best, Instance: instance}, true
}

// Load reads every CSV file in the root of fsys that belongs to one of topics.
// Files of other topics are skipped. It fails with ErrNoFiles when nothing
// matches.
func Load(fsys fs.FS, topics []string) (map[telemetry.TopicKey]*telemetry.TopicTable, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list log directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".csv" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	tables := make(map[telemetry.TopicKey]*telemetry.TopicTable)
	for _, name := range names {
		key, ok := matchTopic(name, topics)
		if !ok {
			monitoring.Debugf("ulogcsv: skipping %s", name)
			continue
		}
		if _, dup := tables[key]; dup {
			return nil, fmt.Errorf("%w: topic %s appears in more than one file (%s)",
				telemetry.ErrConfiguration, key, name)
		}
		f, err := fsys.Open(name)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		tbl, err := Decode(f, key)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		tables[key] = tbl
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w for topics %s", ErrNoFiles, strings.Join(topics, ", "))
	}
	monitoring.Logf("ulogcsv: loaded %d topic tables", len(tables))
	return tables, nil
}

// Decode reads one topic CSV stream.
func Decode(r io.Reader, key telemetry.TopicKey) (*telemetry.TopicTable, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file, no header", telemetry.ErrConfiguration)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	tsCol := -1
	var fields []string
	var fieldCols []int
	for i, h := range header {
		name := SanitizeField(h)
		if name == telemetry.TimestampColumn {
			tsCol = i
			continue
		}
		fields = append(fields, name)
		fieldCols = append(fieldCols, i)
	}
	if tsCol < 0 {
		return nil, fmt.Errorf("%w: no %s column in header", telemetry.ErrLookup, telemetry.TimestampColumn)
	}

	tbl := telemetry.NewTopicTable(key, fields)
	row := make([]float64, len(fields))
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := parseTimestamp(record[tsCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for i, col := range fieldCols {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: field %s: %w", line, fields[i], err)
			}
			row[i] = v
		}
		if err := tbl.Append(ts, row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := tbl.Validate(); err != nil {
		return nil, err
	}
	return tbl, nil
}

func parseTimestamp(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if ts, err := strconv.ParseUint(s, 10, 64); err == nil {
		return ts, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	return uint64(f), nil
}

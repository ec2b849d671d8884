// Package storage persists recorded controller runs as a directory per run
// holding metadata.json and samples.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/motioncore/internal/trace"
)

var ErrNoRun = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
)

var header = []string{"time", "subsystem", "target", "measured", "output", "settled"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Dir() string { return s.baseDir }

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one recorded run. Metrics is keyed by subsystem
// and then by metric name.
type RunMetadata struct {
	ID        string                        `json:"id"`
	Robot     string                        `json:"robot"`
	Routine   string                        `json:"routine"`
	Law       string                        `json:"law"`
	Backend   string                        `json:"backend"`
	Timestamp time.Time                     `json:"timestamp"`
	Duration  float64                       `json:"duration"`
	Samples   int                           `json:"samples"`
	Metrics   map[string]map[string]float64 `json:"metrics"`
	Error     string                        `json:"error,omitempty"`
}

// Save writes a new run and returns its id. meta.ID, meta.Timestamp and
// meta.Samples are filled in.
func (s *Store) Save(meta RunMetadata, samples []trace.Sample) (string, error) {
	now := time.Now()
	name := meta.Robot
	if meta.Routine != "" {
		name += "_" + meta.Routine
	}
	if err := s.Init(); err != nil {
		return "", err
	}
	runID, runDir, err := s.makeRunDir(fmt.Sprintf("%s_%d", name, now.UnixMilli()))
	if err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now
	meta.Samples = len(samples)

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeSamples(filepath.Join(runDir, samplesFile), samples); err != nil {
		return "", err
	}
	return runID, nil
}

// makeRunDir creates a fresh directory for base, suffixing a counter when
// two runs land on the same millisecond.
func (s *Store) makeRunDir(base string) (string, string, error) {
	id := base
	for n := 1; ; n++ {
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", fmt.Errorf("create run dir: %w", err)
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSamples(path string, samples []trace.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return encodeSamples(f, samples)
}

func encodeSamples(out io.Writer, samples []trace.Sample) error {
	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, smp := range samples {
		row := []string{
			strconv.FormatFloat(smp.Time.Seconds(), 'f', 6, 64),
			smp.Subsystem,
			strconv.FormatFloat(smp.Target, 'f', 6, 64),
			strconv.FormatFloat(smp.Measured, 'f', 6, 64),
			strconv.FormatFloat(smp.Output, 'f', 3, 64),
			strconv.FormatBool(smp.Settled),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadSamples reads back the samples of a run. Malformed rows are skipped.
func (s *Store) LoadSamples(runID string) ([]trace.Sample, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []trace.Sample{}, nil
	}

	samples := make([]trace.Sample, 0, len(records)-1)
	for _, rec := range records[1:] {
		smp, ok := parseRow(rec)
		if !ok {
			continue
		}
		samples = append(samples, smp)
	}
	return samples, nil
}

func parseRow(rec []string) (trace.Sample, bool) {
	if len(rec) != len(header) {
		return trace.Sample{}, false
	}
	var nums [4]float64
	for i, idx := range []int{0, 2, 3, 4} {
		v, err := strconv.ParseFloat(rec[idx], 64)
		if err != nil {
			return trace.Sample{}, false
		}
		nums[i] = v
	}
	settled, err := strconv.ParseBool(rec[5])
	if err != nil {
		return trace.Sample{}, false
	}
	return trace.Sample{
		Time:      time.Duration(math.Round(nums[0] * float64(time.Second))),
		Subsystem: rec[1],
		Target:    nums[1],
		Measured:  nums[2],
		Output:    nums[3],
		Settled:   settled,
	}, true
}

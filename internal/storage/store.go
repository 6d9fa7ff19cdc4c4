// Package storage keeps CLI runs on disk, one directory per run holding
// metadata.json and states.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/phaselab/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Run describes what produced a stored trajectory.
type Run struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	Params    dynamo.Params      `json:"params,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt,omitempty"`
	Steps     int                `json:"steps"`
	Samples   int                `json:"samples"`
	Diverged  bool               `json:"diverged"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Save writes tr under a fresh run id. Only finite samples are written.
func (s *Store) Save(run Run, tr *dynamo.Trajectory) (*Run, error) {
	run.ID = fmt.Sprintf("%s_%s", run.Kind, uuid.NewString()[:8])
	run.Timestamp = time.Now().UTC()
	run.Samples = tr.FiniteLen()
	run.Diverged = tr.Diverged

	runDir := filepath.Join(s.baseDir, run.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return nil, err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return nil, err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, tr); err != nil {
		return nil, err
	}
	return &run, nil
}

// WriteCSV writes a header "time,x0,x1,..." followed by one row per
// finite sample.
func WriteCSV(out io.Writer, tr *dynamo.Trajectory) error {
	w := csv.NewWriter(out)
	n := tr.FiniteLen()
	if n == 0 {
		w.Flush()
		return w.Error()
	}

	header := []string{"time"}
	for i := range tr.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		row := []string{strconv.FormatFloat(tr.Times[i], 'g', -1, 64)}
		for _, val := range tr.States[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]Run, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Run{}, nil
		}
		return nil, err
	}

	runs := make([]Run, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*Run, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// LoadTrajectory reads states.csv back. Rows that fail to parse are
// skipped.
func (s *Store) LoadTrajectory(runID string) (*dynamo.Trajectory, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tr := dynamo.NewTrajectory(max(len(records)-1, 0))
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}

		state := make(dynamo.State, 0, len(record)-1)
		for _, field := range record[1:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				break
			}
			state = append(state, val)
		}
		if len(state) != len(record)-1 {
			continue
		}
		tr.Append(state, t)
	}
	return tr, nil
}

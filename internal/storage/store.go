// Package storage keeps saved gradient descent runs on disk, one
// directory per run.
package storage

import (
	"bytes"
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
	"strings"
	"time"

	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	datasetFile    = "dataset.csv"
)

var (
	ErrNotFound            = errors.New("storage: run not found")
	ErrFingerprintMismatch = errors.New("storage: trajectory fingerprint mismatch")
	ErrCorrupt             = errors.New("storage: malformed run file")
	ErrInvalidName         = errors.New("storage: invalid run name")
)

type Store struct {
	baseDir string
	codec   Codec
}

type Option func(*Store)

// WithCodec sets the codec used for trajectories written by Save.
func WithCodec(c Codec) Option {
	return func(s *Store) { s.codec = c }
}

func New(baseDir string, opts ...Option) *Store {
	s := &Store{baseDir: baseDir, codec: noopCodec{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Run is everything Save persists.
type Run struct {
	Name       string
	Seed       int64
	Data       dataset.Spec
	Config     descent.Config
	Dataset    *dataset.Dataset
	Trajectory *descent.Trajectory
	Reference  descent.Fit
	Metrics    map[string]float64
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Timestamp    time.Time          `json:"timestamp"`
	Seed         int64              `json:"seed"`
	Arity        int                `json:"arity"`
	LearningRate float64            `json:"learning_rate"`
	Steps        int                `json:"steps"`
	Data         dataset.Spec       `json:"data"`
	Initial      descent.Params     `json:"initial"`
	// Final is the last snapshot with finite values. DivergedAt is the
	// first step with a NaN or infinity, 0 if there is none.
	Final        descent.Snapshot   `json:"final"`
	DivergedAt   int                `json:"diverged_at,omitempty"`
	Reference    descent.Fit        `json:"reference"`
	Metrics      map[string]float64 `json:"metrics"`
	Codec        string             `json:"codec"`
	Fingerprint  string             `json:"fingerprint"`
}

func (s *Store) Save(run Run) (string, error) {
	if run.Trajectory == nil || run.Trajectory.Len() == 0 {
		return "", fmt.Errorf("storage: empty trajectory")
	}
	name := run.Name
	if name == "" {
		name = "run"
	}
	if err := checkName(name); err != nil {
		return "", err
	}
	now := time.Now()
	fp := run.Trajectory.Fingerprint()
	final, divergedAt := lastFinite(run.Trajectory)
	runID := fmt.Sprintf("%s_%d_%08x", name, now.Unix(), uint32(fp))
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Name:         name,
		Timestamp:    now,
		Seed:         run.Seed,
		Arity:        int(run.Config.Arity),
		LearningRate: run.Config.LearningRate,
		Steps:        run.Config.Steps,
		Data:         run.Data,
		Initial:      run.Trajectory.Initial,
		Final:        final,
		DivergedAt:   divergedAt,
		Reference:    run.Reference,
		Metrics:      finiteMetrics(run.Metrics),
		Codec:        s.codec.Name(),
		Fingerprint:  strconv.FormatUint(fp, 16),
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := WriteTrajectoryCSV(&buf, run.Trajectory); err != nil {
		return "", err
	}
	payload, err := s.codec.Compress(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("compress trajectory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, trajectoryFile+s.codec.Ext()), payload, 0644); err != nil {
		return "", err
	}

	if run.Dataset != nil {
		buf.Reset()
		if err := writeDatasetCSV(&buf, run.Dataset); err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(runDir, datasetFile), buf.Bytes(), 0644); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// checkName rejects names that would leave the store directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func lastFinite(t *descent.Trajectory) (descent.Snapshot, int) {
	var last descent.Snapshot
	for _, sn := range t.Snapshots {
		if !finite(sn.Params.Slope) || !finite(sn.Params.Intercept) || !finite(sn.Loss) {
			return last, sn.Step
		}
		last = sn
	}
	return last, 0
}

// finiteMetrics drops NaN and infinite values, which JSON cannot encode.
func finiteMetrics(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if finite(v) {
			out[k] = v
		}
	}
	return out
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

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

// List returns every readable run, oldest first.
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
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if err := checkName(runID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, metadataFile, err)
	}
	return &meta, nil
}

// RawTrajectory returns the decompressed trajectory CSV of a run.
func (s *Store) RawTrajectory(runID string) ([]byte, *RunMetadata, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	codec, err := ParseCodec(meta.Codec)
	if err != nil {
		return nil, nil, err
	}
	payload, err := os.ReadFile(filepath.Join(s.baseDir, runID, trajectoryFile+codec.Ext()))
	if err != nil {
		return nil, nil, err
	}
	data, err := codec.Decompress(payload)
	if err != nil {
		return nil, nil, err
	}
	return data, meta, nil
}

// LoadTrajectory reads a run's trajectory back and checks it against the
// fingerprint recorded at save time.
func (s *Store) LoadTrajectory(runID string) (*descent.Trajectory, error) {
	data, meta, err := s.RawTrajectory(runID)
	if err != nil {
		return nil, err
	}
	snaps, err := ReadTrajectoryCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	traj := &descent.Trajectory{
		Arity:     descent.Arity(meta.Arity),
		Initial:   meta.Initial,
		Snapshots: snaps,
	}
	if got := strconv.FormatUint(traj.Fingerprint(), 16); got != meta.Fingerprint {
		return nil, fmt.Errorf("%w: run %s has %s, file hashes to %s", ErrFingerprintMismatch, runID, meta.Fingerprint, got)
	}
	return traj, nil
}

func (s *Store) LoadDataset(runID string) (*dataset.Dataset, error) {
	if err := checkName(runID); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, runID, datasetFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, datasetFile)
		}
		return nil, err
	}
	defer f.Close()

	cols, err := readColumns(f, 2)
	if err != nil {
		return nil, err
	}
	return dataset.New(cols[0], cols[1])
}

// WriteTrajectoryCSV writes step,slope,intercept,loss rows. Floats use the
// shortest exact representation so a reload is bit-identical.
func WriteTrajectoryCSV(w io.Writer, traj *descent.Trajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"step", "slope", "intercept", "loss"}); err != nil {
		return err
	}
	for _, snap := range traj.Snapshots {
		row := []string{
			strconv.Itoa(snap.Step),
			formatFloat(snap.Params.Slope),
			formatFloat(snap.Params.Intercept),
			formatFloat(snap.Loss),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadTrajectoryCSV(r io.Reader) ([]descent.Snapshot, error) {
	cols, err := readColumns(r, 4)
	if err != nil {
		return nil, err
	}
	snaps := make([]descent.Snapshot, len(cols[0]))
	for i := range snaps {
		snaps[i] = descent.Snapshot{
			Step:   int(cols[0][i]),
			Params: descent.Params{Slope: cols[1][i], Intercept: cols[2][i]},
			Loss:   cols[3][i],
		}
		if snaps[i].Step != i+1 {
			return nil, fmt.Errorf("%w: row %d has step %d", ErrCorrupt, i+1, snaps[i].Step)
		}
	}
	return snaps, nil
}

func writeDatasetCSV(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "y"}); err != nil {
		return err
	}
	var werr error
	ds.Each(func(x, y float64) {
		if werr == nil {
			werr = cw.Write([]string{formatFloat(x), formatFloat(y)})
		}
	})
	if werr != nil {
		return werr
	}
	cw.Flush()
	return cw.Error()
}

// readColumns parses a headered CSV of n numeric columns.
func readColumns(r io.Reader, n int) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = n
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%w: missing header", ErrCorrupt)
	}
	cols := make([][]float64, n)
	for i := range cols {
		cols[i] = make([]float64, 0, len(records)-1)
	}
	for line, record := range records[1:] {
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, line+2, err)
			}
			cols[j] = append(cols[j], v)
		}
	}
	return cols, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

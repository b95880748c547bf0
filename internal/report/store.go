// Package report persists sweep results as a directory per run:
// metadata.json for the summary and ticks.csv for the per-placement
// records.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/collidebench/internal/manager"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID              string              `json:"id"`
	Scenario        string              `json:"scenario"`
	Engines         []string            `json:"engines"`
	Timestamp       time.Time           `json:"timestamp"`
	Model1          string              `json:"model1"`
	Model2          string              `json:"model2"`
	CellSizeFactor  float64             `json:"cell_size_factor"`
	ZeroDepthTol    float64             `json:"zero_depth_tol"`
	MinAgreement    float64             `json:"min_agreement"`
	Ticks           int                 `json:"ticks"`
	Discrepant      int                 `json:"discrepant"`
	StateMismatches int                 `json:"state_mismatches"`
	AgreementRatio  float64             `json:"agreement_ratio"`
	Passed          bool                `json:"passed"`
	FailedLanes     map[string]string   `json:"failed_lanes,omitempty"`
	Discrepancies   []DiscrepancyRecord `json:"discrepancies,omitempty"`
}

// DiscrepancyRecord keeps enough of a disagreeing tick to name the
// engines and how far apart their calls were.
type DiscrepancyRecord struct {
	Tick     int                `json:"tick"`
	Position [3]float64         `json:"position"`
	SimTime  float64            `json:"sim_time"`
	Verdicts map[string]string  `json:"verdicts"`
	Depths   map[string]float64 `json:"depths"`
}

func (s *Store) Save(scenarioName string, engines []string, res *manager.SweepResult) (string, error) {
	runID := fmt.Sprintf("%s_%d", sanitize(scenarioName), time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:              runID,
		Scenario:        scenarioName,
		Engines:         engines,
		Timestamp:       time.Now(),
		Model1:          res.Config.Model1,
		Model2:          res.Config.Model2,
		CellSizeFactor:  res.Config.CellSizeFactor,
		ZeroDepthTol:    res.Config.ZeroDepthTol,
		MinAgreement:    res.Config.MinAgreement,
		Ticks:           len(res.Ticks),
		Discrepant:      len(res.Discrepant),
		StateMismatches: res.StateMismatchTicks(),
		AgreementRatio:  res.AgreementRatio(),
		Passed:          res.Passed(),
		FailedLanes:     res.FailedLanes,
	}
	for i := range res.Discrepant {
		t := &res.Discrepant[i]
		rec := DiscrepancyRecord{
			Tick:     t.Index,
			Position: [3]float64{t.Position[0], t.Position[1], t.Position[2]},
			SimTime:  t.SimTime,
			Verdicts: make(map[string]string),
			Depths:   make(map[string]float64),
		}
		for _, r := range t.Verdict.Reports {
			rec.Verdicts[r.Lane] = r.Verdict.String()
			rec.Depths[r.Lane] = r.MaxDepth
		}
		meta.Discrepancies = append(meta.Discrepancies, rec)
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := s.writeTicks(runDir, res); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) writeTicks(runDir string, res *manager.SweepResult) error {
	csvFile, err := os.Create(filepath.Join(runDir, "ticks.csv"))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(res.Ticks) == 0 {
		return nil
	}

	// Lane columns come from the first tick; lanes that fail part way
	// leave empty cells afterwards.
	header := []string{"tick", "x", "y", "z", "sim_time", "agree"}
	lanes := make([]string, 0, len(res.Ticks[0].Verdict.Reports))
	for _, r := range res.Ticks[0].Verdict.Reports {
		lanes = append(lanes, r.Lane)
		header = append(header, r.Lane+"_verdict", r.Lane+"_depth")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range res.Ticks {
		t := &res.Ticks[i]
		row := []string{
			strconv.Itoa(t.Index),
			strconv.FormatFloat(t.Position[0], 'f', 6, 64),
			strconv.FormatFloat(t.Position[1], 'f', 6, 64),
			strconv.FormatFloat(t.Position[2], 'f', 6, 64),
			strconv.FormatFloat(t.SimTime, 'f', 6, 64),
			strconv.FormatBool(t.Verdict.Agree),
		}
		byLane := make(map[string]manager.ContactReport, len(t.Verdict.Reports))
		for _, r := range t.Verdict.Reports {
			byLane[r.Lane] = r
		}
		for _, lane := range lanes {
			if r, ok := byLane[lane]; ok {
				row = append(row, r.Verdict.String(),
					strconv.FormatFloat(r.MaxDepth, 'f', 6, 64))
			} else {
				row = append(row, "", "")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

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

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// TickRow is one parsed line of a run's ticks.csv.
type TickRow struct {
	Tick     int
	Position [3]float64
	SimTime  float64
	Agree    bool
	Depths   map[string]float64
}

func (s *Store) LoadTicks(runID string) ([]TickRow, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "ticks.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []TickRow{}, nil
	}

	header := records[0]
	rows := make([]TickRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 6 {
			continue
		}
		row := TickRow{Depths: make(map[string]float64)}
		row.Tick, _ = strconv.Atoi(record[0])
		for i := 0; i < 3; i++ {
			row.Position[i], _ = strconv.ParseFloat(record[1+i], 64)
		}
		row.SimTime, _ = strconv.ParseFloat(record[4], 64)
		row.Agree, _ = strconv.ParseBool(record[5])
		for i := 6; i < len(record) && i < len(header); i++ {
			lane, ok := strings.CutSuffix(header[i], "_depth")
			if !ok || record[i] == "" {
				continue
			}
			d, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				continue
			}
			row.Depths[lane] = d
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}

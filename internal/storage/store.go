// Package storage persists solved equilibrium snapshots to disk, one
// directory per snapshot with JSON metadata and CSV node and force
// tables.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/tenseg/internal/structure"
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

type SnapshotMetadata struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Timestamp  time.Time `json:"timestamp"`
	Dim        string    `json:"dim"`
	Nodes      int       `json:"nodes"`
	Members    int       `json:"members"`
	Attempts   int       `json:"attempts"`
	Iterations int       `json:"iterations"`
	Residual   float64   `json:"residual"`
	Energy     float64   `json:"energy"`
}

// Save writes one snapshot directory: metadata.json, nodes.csv with
// the equilibrium positions and forces.csv with per-member state.
func (s *Store) Save(label string, t *structure.Tensegrity, meta SnapshotMetadata) (string, error) {
	id := fmt.Sprintf("%s_%d", label, time.Now().Unix())
	dir := filepath.Join(s.baseDir, id)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	meta.ID = id
	meta.Label = label
	meta.Timestamp = time.Now()
	meta.Dim = t.Dim().String()
	meta.Nodes = len(t.Nodes())
	meta.Members = len(t.Connections)

	metaFile, err := os.Create(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := s.writeNodes(dir, t); err != nil {
		return "", err
	}
	if err := s.writeForces(dir, t); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) writeNodes(dir string, t *structure.Tensegrity) error {
	f, err := os.Create(filepath.Join(dir, "nodes.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"name", "x", "y"}
	if t.Dim() == structure.Dim3 {
		header = append(header, "z")
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, n := range t.Nodes() {
		row := []string{n.Name}
		for _, c := range n.Position {
			row = append(row, strconv.FormatFloat(c, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeForces(dir string, t *structure.Tensegrity) error {
	f, err := os.Create(filepath.Join(dir, "forces.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"name", "kind", "length", "rest_length", "force"}); err != nil {
		return err
	}
	for i, c := range t.Connections {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("%s#%d", c.Kind, i)
		}
		row := []string{
			name,
			c.Kind.String(),
			strconv.FormatFloat(c.CurrentLength(t.Surface), 'f', 6, 64),
			strconv.FormatFloat(c.RestLength, 'f', 6, 64),
			strconv.FormatFloat(c.Force, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) List() ([]SnapshotMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SnapshotMetadata{}, nil
		}
		return nil, err
	}

	snaps := make([]SnapshotMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta SnapshotMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		snaps = append(snaps, meta)
	}
	return snaps, nil
}

func (s *Store) Load(id string) (*SnapshotMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta SnapshotMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadPositions reads the node table back as name -> coordinates.
func (s *Store) LoadPositions(id string) (map[string][]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, id, "nodes.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]float64)
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 3 {
			continue
		}
		coords := make([]float64, 0, len(rec)-1)
		ok := true
		for _, field := range rec[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			coords = append(coords, v)
		}
		if ok {
			out[rec[0]] = coords
		}
	}
	return out, nil
}

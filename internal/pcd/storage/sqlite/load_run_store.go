package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Load run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// LoadRun is one attempt to load a pose document and a point document.
type LoadRun struct {
	RunID          string        `json:"run_id"`
	PosesDocument  string        `json:"poses_document"`
	PointsDocument string        `json:"points_document"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	PoseCount      int           `json:"pose_count"`
	RowCount       int64         `json:"row_count"`
	KeptPoints     int           `json:"kept_points"`
	DroppedPoints  int           `json:"dropped_points"`
	AnchorNodeID   string        `json:"anchor_node_id,omitempty"`
	Status         string        `json:"status"`
	Error          string        `json:"error,omitempty"`
	Version        string        `json:"version,omitempty"`
}

// LoadRunStore persists LoadRun rows.
type LoadRunStore struct {
	db *sql.DB
}

// NewLoadRunStore creates a new LoadRunStore.
func NewLoadRunStore(db *sql.DB) *LoadRunStore {
	return &LoadRunStore{db: db}
}

// Insert records run. If run.RunID is empty, a new UUID is generated, and a
// zero StartedAt is set to now.
func (s *LoadRunStore) Insert(run *LoadRun) error {
	if run.Status != StatusOK && run.Status != StatusFailed {
		return fmt.Errorf("insert load run: invalid status %q", run.Status)
	}
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO pcd_load_runs (
			run_id, poses_document, points_document, started_at_ns, duration_ns,
			pose_count, row_count, kept_points, dropped_points,
			anchor_node_id, status, error_text, tool_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.RunID,
		run.PosesDocument,
		run.PointsDocument,
		run.StartedAt.UnixNano(),
		int64(run.Duration),
		run.PoseCount,
		run.RowCount,
		run.KeptPoints,
		run.DroppedPoints,
		nullString(run.AnchorNodeID),
		run.Status,
		nullString(run.Error),
		nullString(run.Version),
	)
	if err != nil {
		return fmt.Errorf("insert load run: %w", err)
	}
	return nil
}

const selectLoadRun = `
	SELECT run_id, poses_document, points_document, started_at_ns, duration_ns,
	       pose_count, row_count, kept_points, dropped_points,
	       anchor_node_id, status, error_text, tool_version
	FROM pcd_load_runs
`

// Get returns the run with the given id, or an error wrapping
// sql.ErrNoRows.
func (s *LoadRunStore) Get(runID string) (*LoadRun, error) {
	row := s.db.QueryRow(selectLoadRun+" WHERE run_id = ?", runID)
	run, err := scanLoadRun(row)
	if err != nil {
		return nil, fmt.Errorf("get load run %s: %w", runID, err)
	}
	return run, nil
}

// ListRecent returns up to limit runs, newest first.
func (s *LoadRunStore) ListRecent(limit int) ([]*LoadRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(selectLoadRun+" ORDER BY started_at_ns DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list load runs: %w", err)
	}
	defer rows.Close()

	var runs []*LoadRun
	for rows.Next() {
		run, err := scanLoadRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan load run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoadRun(sc rowScanner) (*LoadRun, error) {
	r := &LoadRun{}
	var startedNs, durationNs int64
	var anchor, errText, version sql.NullString

	err := sc.Scan(
		&r.RunID, &r.PosesDocument, &r.PointsDocument, &startedNs, &durationNs,
		&r.PoseCount, &r.RowCount, &r.KeptPoints, &r.DroppedPoints,
		&anchor, &r.Status, &errText, &version,
	)
	if err != nil {
		return nil, err
	}

	r.StartedAt = time.Unix(0, startedNs)
	r.Duration = time.Duration(durationNs)
	r.AnchorNodeID = anchor.String
	r.Error = errText.String
	r.Version = version.String
	return r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

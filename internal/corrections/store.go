package corrections

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Correction records one user override of a predicted category. Confidence
// is the model's confidence in the wrong answer, when it was known.
type Correction struct {
	Description       string   `json:"description"`
	PredictedCategory string   `json:"predicted_category"`
	CorrectedCategory string   `json:"corrected_category"`
	Confidence        *float64 `json:"confidence,omitempty"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Stats summarizes the correction log. AvgConfidencePct is the average
// confidence of the overridden predictions as a percentage rounded to one
// decimal, nil while no correction carried a confidence.
type Stats struct {
	TotalCorrections int64           `json:"total_corrections"`
	AvgConfidencePct *float64        `json:"average_confidence_of_wrong_predictions"`
	MostWrong        []CategoryCount `json:"most_frequently_wrong"`
	CorrectedTo      []CategoryCount `json:"most_frequently_corrected_to"`
	ReadyToRetrain   bool            `json:"ready_to_retrain"`
}

type Progress struct {
	TotalCorrections     int64 `json:"total_corrections"`
	MinRequired          int   `json:"min_required_for_retraining"`
	ProgressPercent      int   `json:"progress_percent"`
	CorrectionsRemaining int64 `json:"corrections_remaining"`
	ReadyToRetrain       bool  `json:"ready_to_retrain"`
}

// Store persists corrections in SQLite.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts a correction and returns the new total count. The insert
// and the count run in one transaction so retraining cadence decisions see
// a consistent number.
func (s *Store) Record(ctx context.Context, c Correction) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var confidence sql.NullFloat64
	if c.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *c.Confidence, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO corrections (id, description, predicted_category, corrected_category, confidence)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), c.Description, c.PredictedCategory, c.CorrectedCategory, confidence,
	)
	if err != nil {
		return 0, fmt.Errorf("insert correction: %w", err)
	}

	var total int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM corrections`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count corrections: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit correction: %w", err)
	}

	return total, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corrections`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count corrections: %w", err)
	}
	return total, nil
}

// Stats aggregates the correction log: the five categories the model gets
// wrong most often, the five categories users correct to most often, and
// the average confidence of the wrong predictions.
func (s *Store) Stats(ctx context.Context, minRequired int) (*Stats, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalCorrections: total,
		MostWrong:        []CategoryCount{},
		CorrectedTo:      []CategoryCount{},
		ReadyToRetrain:   total >= int64(minRequired),
	}
	if total == 0 {
		return stats, nil
	}

	stats.MostWrong, err = s.topCategories(ctx, "predicted_category")
	if err != nil {
		return nil, err
	}

	stats.CorrectedTo, err = s.topCategories(ctx, "corrected_category")
	if err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT AVG(confidence) FROM corrections WHERE confidence IS NOT NULL`,
	).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("average confidence: %w", err)
	}
	if avg.Valid {
		pct := math.Round(avg.Float64*1000) / 10
		stats.AvgConfidencePct = &pct
	}

	return stats, nil
}

func (s *Store) Progress(ctx context.Context, minRequired int) (*Progress, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}

	percent := int(total * 100 / int64(minRequired))
	if percent > 100 {
		percent = 100
	}
	remaining := int64(minRequired) - total
	if remaining < 0 {
		remaining = 0
	}

	return &Progress{
		TotalCorrections:     total,
		MinRequired:          minRequired,
		ProgressPercent:      percent,
		CorrectionsRemaining: remaining,
		ReadyToRetrain:       total >= int64(minRequired),
	}, nil
}

// topCategories is only ever called with a fixed column name; the column is
// interpolated because placeholders cannot name columns.
func (s *Store) topCategories(ctx context.Context, column string) ([]CategoryCount, error) {
	query := fmt.Sprintf(
		`SELECT %s, COUNT(*) AS n FROM corrections GROUP BY %s ORDER BY n DESC, %s ASC LIMIT 5`,
		column, column, column,
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("top categories by %s: %w", column, err)
	}
	defer rows.Close()

	counts := []CategoryCount{}
	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts = append(counts, cc)
	}
	return counts, rows.Err()
}

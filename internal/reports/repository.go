// Package reports persists completed analysis artifacts to the audit
// database. Rows are immutable once written.
package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearfolio/suitability/internal/database"
	"github.com/clearfolio/suitability/internal/domain"
)

// ErrNotFound is returned when no artifact exists for a run ID.
var ErrNotFound = errors.New("analysis run not found")

// Summary is the indexed subset of an artifact used by listings and the
// review-due scan.
type Summary struct {
	RunID          string     `json:"run_id"`
	PortfolioID    string     `json:"portfolio_id"`
	ClientID       string     `json:"client_id"`
	AnalyzedAt     time.Time  `json:"analyzed_at"`
	OverallScore   float64    `json:"overall_score"`
	Band           string     `json:"band"`
	NextReviewDate *time.Time `json:"next_review_date,omitempty"`
}

// Repository stores PortfolioRecommendations in the audit database.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates an audit repository over the audit database.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "audit_repository").Logger(),
	}
}

// Save writes one artifact. The full document is stored as JSON alongside
// the indexed columns; a duplicate run ID is an error.
func (r *Repository) Save(ctx context.Context, rec *domain.PortfolioRecommendations) error {
	artifact, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize artifact for run %s: %w", rec.RunID, err)
	}

	var nextReview any
	if rec.NextReviewDate != nil {
		nextReview = rec.NextReviewDate.UTC().Format(time.RFC3339)
	}

	_, err = r.db.Conn().ExecContext(ctx,
		`INSERT INTO recommendations
		 (run_id, portfolio_id, client_id, analyzed_at, overall_score, band, next_review_date, artifact)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.PortfolioID, rec.ClientID,
		rec.AnalyzedAt.UTC().Format(time.RFC3339),
		rec.Score.OverallScore, string(rec.Score.Band), nextReview, artifact,
	)
	if err != nil {
		return fmt.Errorf("failed to persist run %s: %w", rec.RunID, err)
	}

	r.log.Debug().Str("run_id", rec.RunID).Str("portfolio_id", rec.PortfolioID).Msg("Artifact persisted")
	return nil
}

// Get loads the full artifact for a run ID.
func (r *Repository) Get(ctx context.Context, runID string) (*domain.PortfolioRecommendations, error) {
	var artifact []byte
	err := r.db.Conn().QueryRowContext(ctx,
		`SELECT artifact FROM recommendations WHERE run_id = ?`, runID,
	).Scan(&artifact)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	var rec domain.PortfolioRecommendations
	if err := json.Unmarshal(artifact, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode artifact for run %s: %w", runID, err)
	}
	return &rec, nil
}

// List returns recent run summaries, newest first. clientID filters when
// non-empty; limit <= 0 means the default page of 50.
func (r *Repository) List(ctx context.Context, clientID string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT run_id, portfolio_id, client_id, analyzed_at, overall_score, band, next_review_date
	          FROM recommendations`
	args := []any{}
	if clientID != "" {
		query += ` WHERE client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY analyzed_at DESC LIMIT ?`
	args = append(args, limit)

	return r.querySummaries(ctx, query, args...)
}

// ReviewDue returns summaries whose next review date is on or before asOf.
func (r *Repository) ReviewDue(ctx context.Context, asOf time.Time) ([]Summary, error) {
	return r.querySummaries(ctx,
		`SELECT run_id, portfolio_id, client_id, analyzed_at, overall_score, band, next_review_date
		 FROM recommendations
		 WHERE next_review_date IS NOT NULL AND next_review_date <= ?
		 ORDER BY next_review_date ASC`,
		asOf.UTC().Format(time.RFC3339),
	)
}

func (r *Repository) querySummaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			s          Summary
			analyzedAt string
			nextReview sql.NullString
		)
		if err := rows.Scan(&s.RunID, &s.PortfolioID, &s.ClientID, &analyzedAt, &s.OverallScore, &s.Band, &nextReview); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, analyzedAt); err == nil {
			s.AnalyzedAt = t
		}
		if nextReview.Valid {
			if t, err := time.Parse(time.RFC3339, nextReview.String); err == nil {
				s.NextReviewDate = &t
			}
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendations: %w", err)
	}
	return summaries, nil
}

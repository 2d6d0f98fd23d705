package mathd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoFeedback is returned by Stats when no ratings have been stored yet.
var ErrNoFeedback = errors.New("no feedback recorded")

// FeedbackEntry is one stored rating row. OriginalSolution and
// CorrectedSteps hold JSON as received.
type FeedbackEntry struct {
	ID               int64
	Question         string
	OriginalSolution string
	UserRating       int
	UserComment      string
	CorrectedAnswer  string
	CorrectedSteps   string
	IsHelpful        bool
	RouteUsed        string
	Confidence       float64
	Topic            string
	Difficulty       int
	SessionID        string
	CreatedAt        time.Time
}

// LearningStats aggregates stored ratings. Accuracy per route is the
// fraction of its ratings at 4 or above.
type LearningStats struct {
	TotalFeedback  int     `json:"total_feedback"`
	AverageRating  float64 `json:"average_rating"`
	KBAccuracy     float64 `json:"kb_accuracy"`
	WebAccuracy    float64 `json:"web_accuracy"`
	LowRatings     int     `json:"low_ratings"`
	HighRatings    int     `json:"high_ratings"`
	LearningStatus string  `json:"learning_status"`
}

// FeedbackStore persists ratings to SQLite.
type FeedbackStore struct {
	db *sql.DB
}

// OpenFeedbackStore opens the ratings database at path, creating parent
// directories and the schema as needed. ":memory:" keeps it in memory.
func OpenFeedbackStore(path string) (*FeedbackStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback database: %w", err)
	}

	store := &FeedbackStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *FeedbackStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS feedback_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question TEXT NOT NULL,
			original_solution TEXT NOT NULL,
			user_rating INTEGER NOT NULL,
			user_comment TEXT,
			corrected_answer TEXT,
			corrected_steps TEXT,
			is_helpful BOOLEAN,
			route_used TEXT NOT NULL,
			confidence_score REAL NOT NULL,
			topic TEXT,
			difficulty INTEGER,
			session_id TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_route ON feedback_entries(route_used)`,
	}
	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run feedback migration: %w", err)
		}
	}
	return nil
}

// Insert stores one rating and returns its id.
func (s *FeedbackStore) Insert(ctx context.Context, e FeedbackEntry) (int64, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO feedback_entries
		(question, original_solution, user_rating, user_comment, corrected_answer,
		 corrected_steps, is_helpful, route_used, confidence_score, topic,
		 difficulty, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Question, e.OriginalSolution, e.UserRating, e.UserComment,
		e.CorrectedAnswer, e.CorrectedSteps, e.IsHelpful, e.RouteUsed,
		e.Confidence, e.Topic, e.Difficulty, e.SessionID, e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert feedback: %w", err)
	}
	return result.LastInsertId()
}

// Stats aggregates all stored ratings. With zero rows it returns
// ErrNoFeedback.
func (s *FeedbackStore) Stats(ctx context.Context) (*LearningStats, error) {
	var total int
	var avg sql.NullFloat64
	var low, high sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), AVG(user_rating),
		SUM(CASE WHEN user_rating <= 2 THEN 1 ELSE 0 END),
		SUM(CASE WHEN user_rating >= 4 THEN 1 ELSE 0 END)
		FROM feedback_entries`).Scan(&total, &avg, &low, &high)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}
	if total == 0 {
		return nil, ErrNoFeedback
	}

	stats := &LearningStats{
		TotalFeedback:  total,
		AverageRating:  round2(avg.Float64),
		LowRatings:     int(low.Int64),
		HighRatings:    int(high.Int64),
		LearningStatus: "stable",
	}
	if stats.LowRatings > 0 {
		stats.LearningStatus = "active"
	}

	rows, err := s.db.QueryContext(ctx, `SELECT route_used, COUNT(*),
		SUM(CASE WHEN user_rating >= 4 THEN 1 ELSE 0 END)
		FROM feedback_entries GROUP BY route_used`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate routes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var route string
		var count, good int
		if err := rows.Scan(&route, &count, &good); err != nil {
			return nil, fmt.Errorf("failed to scan route aggregate: %w", err)
		}
		if count == 0 {
			continue
		}
		accuracy := round2(float64(good) / float64(count))
		switch route {
		case RouteKnowledgeBase:
			stats.KBAccuracy = accuracy
		case RouteWebSearch:
			stats.WebAccuracy = accuracy
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read route aggregates: %w", err)
	}

	return stats, nil
}

func (s *FeedbackStore) Close() error {
	return s.db.Close()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

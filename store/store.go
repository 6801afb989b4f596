// Package store persists users, the known tenders, the history of recorded
// titles and relevance feedback in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/use-agent/tenderscope/models"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

var (
	ErrNotFound   = errors.New("store: not found")
	ErrUserExists = errors.New("store: user already exists")
)

// Store is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// SQLite serialises writers; a single connection also keeps :memory:
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.CreatedAt = s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, hashed_password, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, u.HashedPassword, u.CreatedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return models.User{}, ErrUserExists
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, username string) (models.User, error) {
	var (
		u       models.User
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, hashed_password, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

// SaveRun merges records into the stored tenders by title, updating rows
// already present, and adds their titles to the title history. Tenders from
// earlier runs that records does not mention are kept. It is atomic.
func (s *Store) SaveRun(ctx context.Context, records []models.TenderRecord) error {
	return s.saveRun(ctx, records, false)
}

// ReplaceRun is SaveRun after clearing every stored tender. Full runs use it
// so tenders that left the portal drop out; the title history is kept.
func (s *Store) ReplaceRun(ctx context.Context, records []models.TenderRecord) error {
	return s.saveRun(ctx, records, true)
}

func (s *Store) saveRun(ctx context.Context, records []models.TenderRecord, replace bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tenders`); err != nil {
			return fmt.Errorf("clear tenders: %w", err)
		}
	}

	now := s.now().Unix()
	for _, r := range records {
		respondents, err := json.Marshal(nonNil(r.Respondents))
		if err != nil {
			return fmt.Errorf("encode respondents: %w", err)
		}
		awardees, err := json.Marshal(r.Awardees)
		if err != nil {
			return fmt.Errorf("encode awardees: %w", err)
		}

		var relevant, confidence any
		if r.Relevance != nil {
			relevant, confidence = r.Relevance.Relevant, r.Relevance.Confidence
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO tenders (title, identifier_kind, identifier, agency,
				reference_number, award_status, respondents, awardees, tab,
				relevant, confidence, scraped_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (title) DO UPDATE SET
				identifier_kind  = excluded.identifier_kind,
				identifier       = excluded.identifier,
				agency           = excluded.agency,
				reference_number = excluded.reference_number,
				award_status     = excluded.award_status,
				respondents      = excluded.respondents,
				awardees         = excluded.awardees,
				tab              = excluded.tab,
				relevant         = excluded.relevant,
				confidence       = excluded.confidence,
				scraped_at       = excluded.scraped_at`,
			r.Title, string(r.Identifier.Kind), r.Identifier.Value, r.Agency,
			r.ReferenceNumber, string(r.AwardStatus), string(respondents), string(awardees), string(r.Tab),
			relevant, confidence, now,
		)
		if err != nil {
			return fmt.Errorf("insert tender %q: %w", r.Title, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO seen_titles (title, first_seen) VALUES (?, ?) ON CONFLICT (title) DO NOTHING`,
			r.Title, now,
		); err != nil {
			return fmt.Errorf("record title %q: %w", r.Title, err)
		}
	}

	return tx.Commit()
}

// Tenders returns every stored tender in report order: status priority,
// then title. Unknown statuses sort last.
func (s *Store) Tenders(ctx context.Context) ([]models.TenderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, identifier_kind, identifier, agency, reference_number,
			award_status, respondents, awardees, tab, relevant, confidence
		FROM tenders
		ORDER BY CASE award_status
			WHEN 'OPEN' THEN 0
			WHEN 'AWARDED' THEN 1
			WHEN 'PENDING AWARD' THEN 2
			WHEN 'NO AWARD' THEN 3
			ELSE 4 END, title`)
	if err != nil {
		return nil, fmt.Errorf("query tenders: %w", err)
	}
	defer rows.Close()

	var out []models.TenderRecord
	for rows.Next() {
		var (
			r                     models.TenderRecord
			kind, status, tab     string
			respondents, awardees string
			relevant              sql.NullBool
			confidence            sql.NullFloat64
		)
		if err := rows.Scan(&r.Title, &kind, &r.Identifier.Value, &r.Agency, &r.ReferenceNumber,
			&status, &respondents, &awardees, &tab, &relevant, &confidence); err != nil {
			return nil, fmt.Errorf("scan tender: %w", err)
		}
		r.Identifier.Kind = models.IdentifierKind(kind)
		r.AwardStatus = models.AwardStatus(status)
		r.Tab = models.Tab(tab)
		if err := json.Unmarshal([]byte(respondents), &r.Respondents); err != nil {
			return nil, fmt.Errorf("decode respondents of %q: %w", r.Title, err)
		}
		if err := json.Unmarshal([]byte(awardees), &r.Awardees); err != nil {
			return nil, fmt.Errorf("decode awardees of %q: %w", r.Title, err)
		}
		if relevant.Valid {
			r.Relevance = &models.Relevance{Relevant: relevant.Bool, Confidence: confidence.Float64}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Titles returns every title ever recorded.
func (s *Store) Titles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM seen_titles`)
	if err != nil {
		return nil, fmt.Errorf("query titles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddFeedback records a labelled title for training the external scorer.
func (s *Store) AddFeedback(ctx context.Context, text string, relevant bool, username string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (text, relevant, username, created_at) VALUES (?, ?, ?, ?)`,
		text, relevant, username, s.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert feedback: %w", err)
	}
	return res.LastInsertId()
}

// FeedbackCount returns the number of stored feedback rows.
func (s *Store) FeedbackCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&n)
	return n, err
}

func nonNil(r []models.Respondent) []models.Respondent {
	if r == nil {
		return []models.Respondent{}
	}
	return r
}

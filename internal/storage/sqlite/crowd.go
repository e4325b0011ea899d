package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sandevgo/mualim/internal/core"
)

// maxRecords bounds the crowd cache; the oldest answers are evicted
// first once the bound is exceeded.
const maxRecords = 500

type CrowdRepo struct {
	db *sql.DB
}

func NewCrowdRepo(db *sql.DB) *CrowdRepo {
	return &CrowdRepo{db: db}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

const recordColumns = `id, question, answer, subject, grade, times_asked, created_at`

func scanRecord(row interface{ Scan(...any) error }) (*core.CacheRecord, error) {
	var rec core.CacheRecord
	if err := row.Scan(&rec.ID, &rec.Question, &rec.Answer, &rec.Subject, &rec.Grade, &rec.TimesAsked, &rec.CreatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Search finds a record whose normalized question contains, or is
// contained by, the normalized query, scoped to subject and grade.
func (r *CrowdRepo) Search(ctx context.Context, query string, subject core.Subject, grade core.Grade) (*core.CacheRecord, error) {
	norm := normalize(query)
	if norm == "" {
		return nil, nil
	}

	q := `SELECT ` + recordColumns + `
		FROM crowd_answers
		WHERE subject = ? AND grade = ?
		  AND (instr(?, question_norm) > 0 OR instr(question_norm, ?) > 0)
		ORDER BY times_asked DESC, id DESC
		LIMIT 1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, string(subject), string(grade), norm, norm))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("crowd search failed: %w", err)
	}

	if rec.AskedBy, err = r.loadAskers(ctx, rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

// Instructional lead-ins stripped before partial matching. The student
// asking "اشرح قانون أوم" and the cached "قانون أوم" should meet.
var instructionalWords = []string{
	"اشرح", "اشرحلي", "اشرح لي", "لخص", "لخصلي", "قارن", "عرف",
	"ما هو", "ما هي", "ماهو", "ماهي", "وضح",
	"explain", "summarize", "compare", "define", "what is",
}

func stripInstructional(norm string) string {
	for changed := true; changed; {
		changed = false
		for _, w := range instructionalWords {
			if strings.HasPrefix(norm, w+" ") {
				norm = strings.TrimSpace(strings.TrimPrefix(norm, w))
				changed = true
			}
		}
	}
	return norm
}

// SearchPartial is the offline fallback: subject-scoped, grade-blind,
// and looser than Search. It first tries bidirectional containment,
// then keyword-stripped token overlap, preferring popular records.
func (r *CrowdRepo) SearchPartial(ctx context.Context, query string, subject core.Subject) (*core.CacheRecord, error) {
	norm := normalize(query)
	if norm == "" {
		return nil, nil
	}

	q := `SELECT ` + recordColumns + `
		FROM crowd_answers
		WHERE subject = ?
		  AND (instr(?, question_norm) > 0 OR instr(question_norm, ?) > 0)
		ORDER BY times_asked DESC, id DESC
		LIMIT 1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, string(subject), norm, norm))
	if err == nil {
		rec.AskedBy, err = r.loadAskers(ctx, rec.ID)
		return rec, err
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("crowd partial search failed: %w", err)
	}

	return r.searchByTokens(ctx, stripInstructional(norm), subject)
}

func (r *CrowdRepo) searchByTokens(ctx context.Context, norm string, subject core.Subject) (*core.CacheRecord, error) {
	tokens := make([]string, 0, 8)
	for _, t := range strings.Fields(norm) {
		if utf8.RuneCountInString(t) >= 3 {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+`, question_norm FROM crowd_answers WHERE subject = ?`,
		string(subject))
	if err != nil {
		return nil, fmt.Errorf("crowd token search failed: %w", err)
	}
	defer rows.Close()

	var best *core.CacheRecord
	bestScore := 0
	for rows.Next() {
		var rec core.CacheRecord
		var qNorm string
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.Answer, &rec.Subject, &rec.Grade,
			&rec.TimesAsked, &rec.CreatedAt, &qNorm); err != nil {
			return nil, err
		}

		score := 0
		for _, t := range tokens {
			if strings.Contains(qNorm, t) {
				score++
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && rec.TimesAsked > best.TimesAsked) {
			recCopy := rec
			best = &recCopy
			bestScore = score
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if best == nil {
		return nil, nil
	}
	if best.AskedBy, err = r.loadAskers(ctx, best.ID); err != nil {
		return nil, err
	}
	return best, nil
}

// Add stores a fresh answer or, for an existing question, registers the
// requester. TimesAsked grows once per distinct requester; a known
// requester re-asking is a no-op. Evicts oldest records beyond the
// store bound.
func (r *CrowdRepo) Add(ctx context.Context, question, answer string, subject core.Subject, grade core.Grade, requesterID string) error {
	norm := normalize(question)
	if norm == "" {
		return fmt.Errorf("empty question")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM crowd_answers WHERE question_norm = ? AND subject = ? AND grade = ?`,
		norm, string(subject), string(grade)).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx,
			`INSERT INTO crowd_answers (question, question_norm, answer, subject, grade, times_asked)
			 VALUES (?, ?, ?, ?, ?, 1)`,
			question, norm, answer, string(subject), string(grade))
		if err != nil {
			return fmt.Errorf("failed to insert crowd answer: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO crowd_askers (answer_id, requester_id) VALUES (?, ?)`,
			id, requesterID); err != nil {
			return fmt.Errorf("failed to insert asker: %w", err)
		}
		// Ring-buffer semantics: drop the oldest beyond the bound
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM crowd_answers
			 WHERE id NOT IN (SELECT id FROM crowd_answers ORDER BY id DESC LIMIT ?)`,
			maxRecords); err != nil {
			return fmt.Errorf("failed to evict old answers: %w", err)
		}

	case err != nil:
		return fmt.Errorf("crowd lookup failed: %w", err)

	default:
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO crowd_askers (answer_id, requester_id) VALUES (?, ?)`,
			id, requesterID)
		if err != nil {
			return fmt.Errorf("failed to insert asker: %w", err)
		}
		added, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if added > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE crowd_answers SET times_asked = times_asked + 1 WHERE id = ?`, id); err != nil {
				return fmt.Errorf("failed to bump times_asked: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (r *CrowdRepo) Stats(ctx context.Context) (core.CacheStats, error) {
	var stats core.CacheStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(CASE WHEN times_asked > 5 THEN 1 END) FROM crowd_answers`,
	).Scan(&stats.TotalRecords, &stats.PopularCount)
	if err != nil {
		return core.CacheStats{}, fmt.Errorf("crowd stats failed: %w", err)
	}
	return stats, nil
}

func (r *CrowdRepo) Popular(ctx context.Context, limit int) ([]core.CacheRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM crowd_answers ORDER BY times_asked DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("crowd popular failed: %w", err)
	}
	defer rows.Close()

	var records []core.CacheRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *CrowdRepo) loadAskers(ctx context.Context, answerID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT requester_id FROM crowd_askers WHERE answer_id = ? ORDER BY requester_id`, answerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load askers: %w", err)
	}
	defer rows.Close()

	var askers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		askers = append(askers, id)
	}
	return askers, rows.Err()
}

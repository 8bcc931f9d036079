package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

const cardColumns = `id, content, source_material, tags, difficulty, is_active,
	source_id, fingerprint, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (domain.Card, error) {
	var (
		c        domain.Card
		tags     string
		sourceID sql.NullInt64
	)
	err := row.Scan(
		&c.ID,
		&c.Content,
		&c.SourceMaterial,
		&tags,
		&c.Difficulty,
		&c.IsActive,
		&sourceID,
		&c.Fingerprint,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Card{}, err
	}
	c.Tags = decodeTags(tags)
	c.SourceID = int64Ptr(sourceID)
	return c, nil
}

// CreateCard inserts a validated card and returns it with its assigned ID and
// timestamps.
func (db *DB) CreateCard(ctx context.Context, c domain.Card) (domain.Card, error) {
	if err := c.Validate(); err != nil {
		return domain.Card{}, err
	}
	now := db.now()
	c.CreatedAt = now
	c.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (content, source_material, tags, difficulty, is_active,
			source_id, fingerprint, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.Content,
		c.SourceMaterial,
		encodeTags(c.Tags),
		c.Difficulty,
		c.IsActive,
		nullInt64(c.SourceID),
		c.Fingerprint,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to insert card: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to get card ID: %w", err)
	}
	return c, nil
}

// GetCard retrieves a card by ID. It fails with domain.ErrNotFound when no
// card has that ID.
func (db *DB) GetCard(ctx context.Context, id int64) (domain.Card, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, fmt.Errorf("card %d: %w", id, domain.ErrNotFound)
		}
		return domain.Card{}, fmt.Errorf("failed to get card %d: %w", id, err)
	}
	return c, nil
}

// FindCardByFingerprint retrieves a card by its content fingerprint,
// regardless of active state. It fails with domain.ErrNotFound when no card
// matches.
func (db *DB) FindCardByFingerprint(ctx context.Context, fingerprint string) (domain.Card, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE fingerprint = ?`, fingerprint)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, fmt.Errorf("card fingerprint %s: %w", fingerprint, domain.ErrNotFound)
		}
		return domain.Card{}, fmt.Errorf("failed to find card by fingerprint %s: %w", fingerprint, err)
	}
	return c, nil
}

// CardsBySource retrieves all cards attached to the given source, including
// deactivated ones.
func (db *DB) CardsBySource(ctx context.Context, sourceID int64) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE source_id = ? ORDER BY id`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source %d: %w", sourceID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// UpdateCard overwrites a card's mutable fields.
func (db *DB) UpdateCard(ctx context.Context, c domain.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards
		SET content = ?, source_material = ?, tags = ?, difficulty = ?,
			is_active = ?, fingerprint = ?, updated_at = ?
		WHERE id = ?
	`,
		c.Content,
		c.SourceMaterial,
		encodeTags(c.Tags),
		c.Difficulty,
		c.IsActive,
		c.Fingerprint,
		db.now(),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("card %d: %w", c.ID, domain.ErrNotFound)
	}
	return nil
}

// DeactivateCard soft-deletes a card. Its progress history and questions
// remain in place.
func (db *DB) DeactivateCard(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE cards SET is_active = 0, updated_at = ? WHERE id = ?`, db.now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate card %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("card %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CreateQuestion inserts a validated question for an existing card.
func (db *DB) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	if err := q.Validate(); err != nil {
		return domain.Question{}, err
	}
	q.CreatedAt = db.now()

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO questions (card_id, question_text, answer_text, question_type,
			difficulty, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		q.CardID,
		q.QuestionText,
		q.AnswerText,
		string(q.Type),
		q.Difficulty,
		q.CreatedAt,
	)
	if err != nil {
		return domain.Question{}, fmt.Errorf("failed to insert question for card %d: %w", q.CardID, err)
	}
	q.ID, err = res.LastInsertId()
	if err != nil {
		return domain.Question{}, fmt.Errorf("failed to get question ID: %w", err)
	}
	return q, nil
}

// QuestionsByCard retrieves every question attached to a card, in creation
// order.
func (db *DB) QuestionsByCard(ctx context.Context, cardID int64) ([]domain.Question, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, card_id, question_text, answer_text, question_type, difficulty, created_at
		FROM questions WHERE card_id = ? ORDER BY id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions for card %d: %w", cardID, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(
			&q.ID,
			&q.CardID,
			&q.QuestionText,
			&q.AnswerText,
			&q.Type,
			&q.Difficulty,
			&q.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Source represents an import origin, either a local path or a git URL.
type Source struct {
	ID          int64
	Path        string
	LastScanned *time.Time
}

// CreateSource inserts a new source path and returns its ID.
func (db *DB) CreateSource(ctx context.Context, path string) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO sources (path) VALUES (?)`, path)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get source ID for %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path. It fails with
// domain.ErrNotFound when the path was never registered.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (Source, error) {
	var (
		s       Source
		scanned sql.NullTime
	)
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, path, last_scanned FROM sources WHERE path = ?`, path)
	if err := row.Scan(&s.ID, &s.Path, &scanned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Source{}, fmt.Errorf("source %s: %w", path, domain.ErrNotFound)
		}
		return Source{}, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	s.LastScanned = timePtr(scanned)
	return s, nil
}

// ListSources retrieves all registered sources.
func (db *DB) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, path, last_scanned FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var (
			s       Source
			scanned sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.Path, &scanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		s.LastScanned = timePtr(scanned)
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// TouchSource records that a source was just scanned.
func (db *DB) TouchSource(ctx context.Context, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE sources SET last_scanned = ? WHERE id = ?`, db.now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to touch source %d: %w", sourceID, err)
	}
	return nil
}

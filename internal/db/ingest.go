package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/phobos/internal/phlog"
	"github.com/banshee-data/phobos/internal/schema"
)

var ErrIngestNotFound = errors.New("ingest not found")

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Ingest is one stored decode of a log file.
type Ingest struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Format      string    `json:"format"`
	Version     string    `json:"version,omitempty"`
	Frames      int       `json:"frames"`
	EmptyFrames int       `json:"empty_frames"`
	Messages    int       `json:"messages"`
	Errors      int       `json:"errors"`
	HeaderError string    `json:"header_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredSample is a decoded sample together with where it came from.
type StoredSample struct {
	Index  int
	Offset int
	schema.Sample
}

// StoredFailure is a dropped frame as persisted; the error is kept as text.
type StoredFailure struct {
	Index  int
	Offset int
	Err    string
}

func marshalNullable(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// RecordIngest stores res, its samples and its failures in one transaction
// and returns the new ingest id.
func (db *DB) RecordIngest(ctx context.Context, source string, res *phlog.Result[schema.Sample]) (string, error) {
	id := uuid.NewString()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var version, headerErr sql.NullString
	if res.HasVersion {
		version = sql.NullString{String: res.Version, Valid: true}
	}
	if res.HeaderErr != nil {
		headerErr = sql.NullString{String: res.HeaderErr.Error(), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO ingests (
			id, source, format, version, frames, empty_frames, messages, errors,
			header_error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, source, res.Format, version, res.Frames, res.EmptyFrames,
		len(res.Messages), res.Errors, headerErr,
		db.clock.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert ingest: %w", err)
	}

	sampleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (ingest_id, frame_index, frame_offset, timestamp, input, state, pose)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer sampleStmt.Close()

	for _, m := range res.Messages {
		s := m.Value
		input, err := marshalNullable(s.Input, s.Input != nil)
		if err != nil {
			return "", err
		}
		state, err := marshalNullable(s.State, s.State != nil)
		if err != nil {
			return "", err
		}
		pose, err := marshalNullable(s.Pose, s.Pose != nil)
		if err != nil {
			return "", err
		}
		if _, err := sampleStmt.ExecContext(ctx, id, m.Index, m.Offset, s.Timestamp, input, state, pose); err != nil {
			return "", fmt.Errorf("failed to insert sample %d: %w", m.Index, err)
		}
	}

	for _, f := range res.Failures {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO failures (ingest_id, frame_index, frame_offset, error) VALUES (?, ?, ?, ?)`,
			id, f.Index, f.Offset, f.Err.Error(),
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert failure %d: %w", f.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit ingest: %w", err)
	}
	return id, nil
}

const ingestColumns = `id, source, format, version, frames, empty_frames, messages, errors, header_error, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngest(row rowScanner) (Ingest, error) {
	var (
		in                 Ingest
		version, headerErr sql.NullString
		created            string
	)
	err := row.Scan(&in.ID, &in.Source, &in.Format, &version, &in.Frames, &in.EmptyFrames,
		&in.Messages, &in.Errors, &headerErr, &created)
	if err != nil {
		return Ingest{}, err
	}
	in.Version = version.String
	in.HeaderError = headerErr.String
	if in.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Ingest{}, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	return in, nil
}

// Ingests lists stored ingests, newest first.
func (db *DB) Ingests(ctx context.Context) ([]Ingest, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+ingestColumns+` FROM ingests ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Ingest
	for rows.Next() {
		in, err := scanIngest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// GetIngest returns one ingest by id.
func (db *DB) GetIngest(ctx context.Context, id string) (Ingest, error) {
	in, err := scanIngest(db.QueryRowContext(ctx, `SELECT `+ingestColumns+` FROM ingests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Ingest{}, fmt.Errorf("%w: %s", ErrIngestNotFound, id)
	}
	return in, err
}

// Samples returns the samples of an ingest in frame order.
func (db *DB) Samples(ctx context.Context, id string) ([]StoredSample, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT frame_index, frame_offset, timestamp, input, state, pose
		FROM samples WHERE ingest_id = ? ORDER BY frame_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredSample
	for rows.Next() {
		var (
			s                  StoredSample
			input, state, pose sql.NullString
		)
		if err := rows.Scan(&s.Index, &s.Offset, &s.Timestamp, &input, &state, &pose); err != nil {
			return nil, err
		}
		if input.Valid {
			if err := json.Unmarshal([]byte(input.String), &s.Input); err != nil {
				return nil, fmt.Errorf("sample %d input: %w", s.Index, err)
			}
		}
		if state.Valid {
			if err := json.Unmarshal([]byte(state.String), &s.State); err != nil {
				return nil, fmt.Errorf("sample %d state: %w", s.Index, err)
			}
		}
		if pose.Valid {
			s.Pose = new(schema.Pose)
			if err := json.Unmarshal([]byte(pose.String), s.Pose); err != nil {
				return nil, fmt.Errorf("sample %d pose: %w", s.Index, err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Failures returns the dropped frames of an ingest in frame order.
func (db *DB) Failures(ctx context.Context, id string) ([]StoredFailure, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT frame_index, frame_offset, error FROM failures WHERE ingest_id = ? ORDER BY frame_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredFailure
	for rows.Next() {
		var f StoredFailure
		if err := rows.Scan(&f.Index, &f.Offset, &f.Err); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteIngest removes an ingest with its samples and failures.
func (db *DB) DeleteIngest(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM ingests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrIngestNotFound, id)
	}
	return nil
}

package rubric

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrVersionNotFound is returned when a rollback target does not exist.
var ErrVersionNotFound = errors.New("rubric version not found")

// Version is one historical rubric document. Doc is only populated by Get.
type Version struct {
	ID        int64
	CreatedBy string
	CreatedAt time.Time
	Doc       []byte
}

// VersionRepo records every accepted rubric replacement in SQL.
type VersionRepo struct {
	db *sql.DB
}

func NewVersionRepo(db *sql.DB) *VersionRepo { return &VersionRepo{db: db} }

func (r *VersionRepo) Record(ctx context.Context, by string, doc []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rubric_versions (created_by, rubric_json, created_at) VALUES ($1,$2,$3)`,
		by, string(doc), time.Now().Unix())
	return err
}

// List returns the newest versions first, without their documents.
func (r *VersionRepo) List(ctx context.Context, limit int) ([]Version, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_by, created_at FROM rubric_versions ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Version{}
	for rows.Next() {
		var v Version
		var createdAt int64
		if err := rows.Scan(&v.ID, &v.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		v.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *VersionRepo) Get(ctx context.Context, id int64) (Version, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_by, rubric_json, created_at FROM rubric_versions WHERE id=$1`, id)
	var v Version
	var doc string
	var createdAt int64
	if err := row.Scan(&v.ID, &v.CreatedBy, &doc, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Version{}, ErrVersionNotFound
		}
		return Version{}, err
	}
	v.Doc = []byte(doc)
	v.CreatedAt = time.Unix(createdAt, 0).UTC()
	return v, nil
}

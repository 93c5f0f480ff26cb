package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicpulse/clinicpulse/internal/domain/record"
)

type pgRepo struct{ pool *pgxpool.Pool }

// NewPGRepo returns a Postgres-backed repository. The dataset table is
// created by the migrations in migrations/; records are stored as a single
// jsonb payload per dataset because nothing queries inside them.
func NewPGRepo(pool *pgxpool.Pool) Repository {
	return &pgRepo{pool: pool}
}

func (r *pgRepo) Save(ctx context.Context, d *Dataset) error {
	payload, err := json.Marshal(d.Records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO dataset (id, uploaded_at, records) VALUES ($1, $2, $3)`,
		d.ID, d.UploadedAt, payload)
	return err
}

func (r *pgRepo) scan(row pgx.Row) (*Dataset, error) {
	var (
		d       Dataset
		payload []byte
	)
	if err := row.Scan(&d.ID, &d.UploadedAt, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoDataset
		}
		return nil, err
	}
	var records []record.AppointmentRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	d.Records = records
	return &d, nil
}

func (r *pgRepo) GetByID(ctx context.Context, id uuid.UUID) (*Dataset, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT id, uploaded_at, records FROM dataset WHERE id = $1`, id))
}

func (r *pgRepo) Latest(ctx context.Context) (*Dataset, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT id, uploaded_at, records FROM dataset ORDER BY uploaded_at DESC LIMIT 1`))
}

func (r *pgRepo) Clear(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM dataset`)
	return err
}

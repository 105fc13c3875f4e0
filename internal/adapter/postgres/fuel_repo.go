package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fuellog/internal/domain"

	"github.com/google/uuid"
)

var _ domain.FuelRepository = (*DB)(nil)

// ListFuelRecords returns every record owned by userID.
func (d *DB) ListFuelRecords(ctx context.Context, userID int64) ([]domain.FuelRecord, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, user_id, date, liters, price, currency, mileage, created_at FROM fuel_records WHERE user_id=$1 ORDER BY date, created_at;",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.FuelRecord, 0)
	for rows.Next() {
		var r domain.FuelRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Date, &r.Liters, &r.Price, &r.Currency, &r.Mileage, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateFuelRecord inserts a validated record and returns its id.
func (d *DB) CreateFuelRecord(ctx context.Context, userID int64, in domain.FuelRecordInput) (string, error) {
	id := uuid.NewString()
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO fuel_records(id, user_id, date, liters, price, currency, mileage, created_at) VALUES($1, $2, $3, $4, $5, $6, $7, $8);",
		id, userID, in.Date, in.Liters, in.Price, in.Currency, in.Mileage, d.now().UTC(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateFuelRecord applies patch to the stored record inside a transaction.
func (d *DB) UpdateFuelRecord(ctx context.Context, userID int64, id string, patch domain.FuelRecordPatch) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrRecordNotFound
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var r domain.FuelRecord
	err = tx.QueryRowContext(ctx,
		"SELECT id, user_id, date, liters, price, currency, mileage, created_at FROM fuel_records WHERE id=$1 AND user_id=$2 FOR UPDATE;",
		id, userID,
	).Scan(&r.ID, &r.UserID, &r.Date, &r.Liters, &r.Price, &r.Currency, &r.Mileage, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrRecordNotFound
	}
	if err != nil {
		return err
	}

	updated, err := patch.Apply(r)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE fuel_records SET date=$1, liters=$2, price=$3, currency=$4, mileage=$5 WHERE id=$6 AND user_id=$7;",
		updated.Date, updated.Liters, updated.Price, updated.Currency, updated.Mileage, id, userID,
	); err != nil {
		return fmt.Errorf("update fuel record: %w", err)
	}
	return tx.Commit()
}

// DeleteFuelRecord removes a record owned by userID.
func (d *DB) DeleteFuelRecord(ctx context.Context, userID int64, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrRecordNotFound
	}
	res, err := d.sql.ExecContext(ctx, "DELETE FROM fuel_records WHERE id=$1 AND user_id=$2;", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

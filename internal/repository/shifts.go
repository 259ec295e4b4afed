package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
)

func (r *Repository) GetShiftByID(id string) (*domain.Shift, error) {
	query := `
		SELECT store_id, user_id, user_name, week_start, day_of_week, time_slot, shift_type, status, notes, created_at, version
		FROM shifts WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	shift := &domain.Shift{
		ID: id,
	}

	dst := []any{
		&shift.StoreID,
		&shift.UserID,
		&shift.UserName,
		&shift.WeekStart,
		&shift.DayOfWeek,
		&shift.TimeSlot,
		&shift.Type,
		&shift.Status,
		&shift.Notes,
		&shift.CreatedAt,
		&shift.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return shift, nil
}

func (r *Repository) GetShiftsByStoreAndWeek(storeID string, weekStart time.Time) ([]*domain.Shift, error) {
	query := `
		SELECT id, user_id, user_name, day_of_week, time_slot, shift_type, status, notes, created_at, version
		FROM shifts
		WHERE store_id = $1 AND week_start = $2
		ORDER BY day_of_week, time_slot, created_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, storeID, weekStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := []*domain.Shift{}
	for rows.Next() {
		shift := &domain.Shift{
			StoreID:   storeID,
			WeekStart: weekStart,
		}
		dst := []any{
			&shift.ID,
			&shift.UserID,
			&shift.UserName,
			&shift.DayOfWeek,
			&shift.TimeSlot,
			&shift.Type,
			&shift.Status,
			&shift.Notes,
			&shift.CreatedAt,
			&shift.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

// GetActiveShiftInCell 查找占用指定格子的有效班次，格子空闲时返回 (nil, nil)
// excludeShiftID 用于移动班次时忽略它自己
func (r *Repository) GetActiveShiftInCell(cell domain.CellAddress, excludeShiftID string) (*domain.Shift, error) {
	query := `
		SELECT id, user_id, user_name, shift_type, status, notes, created_at, version
		FROM shifts
		WHERE store_id = $1
			AND week_start = $2
			AND day_of_week = $3
			AND time_slot = $4
			AND status IN ('pending', 'approved')
			AND id <> $5
		LIMIT 1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	shift := &domain.Shift{
		StoreID:   cell.StoreID,
		WeekStart: cell.WeekStart,
		DayOfWeek: cell.DayOfWeek,
		TimeSlot:  cell.TimeSlot,
	}

	params := []any{cell.StoreID, cell.WeekStart, cell.DayOfWeek, cell.TimeSlot, excludeShiftID}
	dst := []any{
		&shift.ID,
		&shift.UserID,
		&shift.UserName,
		&shift.Type,
		&shift.Status,
		&shift.Notes,
		&shift.CreatedAt,
		&shift.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return shift, nil
}

func (r *Repository) InsertShift(shift *domain.Shift) error {
	query := `
		INSERT INTO shifts (id, store_id, user_id, user_name, week_start, day_of_week, time_slot, shift_type, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{
		shift.ID,
		shift.StoreID,
		shift.UserID,
		shift.UserName,
		shift.WeekStart,
		shift.DayOfWeek,
		shift.TimeSlot,
		shift.Type,
		shift.Status,
		shift.Notes,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&shift.CreatedAt, &shift.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateShift(shift *domain.Shift) error {
	query := `
		UPDATE shifts
		SET
			day_of_week = $1,
			time_slot = $2,
			shift_type = $3,
			status = $4,
			notes = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{
		shift.DayOfWeek,
		shift.TimeSlot,
		shift.Type,
		shift.Status,
		shift.Notes,
		shift.ID,
		shift.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&shift.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteShift(id string) error {
	query := `
		DELETE FROM shifts WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}

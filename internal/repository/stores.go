package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
)

func (r *Repository) GetAllStores() ([]*domain.Store, error) {
	query := `
		SELECT s.id, s.name, s.created_at, s.version, sts.slot
		FROM stores s
		LEFT JOIN store_time_slots sts ON s.id = sts.store_id
		ORDER BY s.id, sts.position
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	storesMap := make(map[string]*domain.Store)
	storesOrder := []string{}

	for rows.Next() {
		var row struct {
			ID        string
			Name      string
			CreatedAt time.Time
			Version   int32
			Slot      sql.NullString
		}

		dst := []any{&row.ID, &row.Name, &row.CreatedAt, &row.Version, &row.Slot}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if _, exists := storesMap[row.ID]; !exists {
			storesMap[row.ID] = &domain.Store{
				ID:        row.ID,
				Name:      row.Name,
				TimeSlots: make([]string, 0),
				CreatedAt: row.CreatedAt,
				Version:   row.Version,
			}
			storesOrder = append(storesOrder, row.ID)
		}

		if row.Slot.Valid {
			storesMap[row.ID].TimeSlots = append(storesMap[row.ID].TimeSlots, row.Slot.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	stores := make([]*domain.Store, 0, len(storesOrder))
	for _, id := range storesOrder {
		stores = append(stores, storesMap[id])
	}

	return stores, nil
}

func (r *Repository) GetStoreByID(id string) (*domain.Store, error) {
	query := `
		SELECT s.name, s.created_at, s.version, sts.slot
		FROM stores s
		LEFT JOIN store_time_slots sts ON s.id = sts.store_id
		WHERE s.id = $1
		ORDER BY sts.position
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var store *domain.Store
	for rows.Next() {
		var row struct {
			Name      string
			CreatedAt time.Time
			Version   int32
			Slot      sql.NullString
		}

		dst := []any{&row.Name, &row.CreatedAt, &row.Version, &row.Slot}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if store == nil {
			store = &domain.Store{
				ID:        id,
				Name:      row.Name,
				TimeSlots: make([]string, 0),
				CreatedAt: row.CreatedAt,
				Version:   row.Version,
			}
		}

		if row.Slot.Valid {
			store.TimeSlots = append(store.TimeSlots, row.Slot.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if store == nil {
		return nil, sql.ErrNoRows
	}

	return store, nil
}

func (r *Repository) CreateStore(store *domain.Store) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO stores (id, name)
		VALUES ($1, $2)
		RETURNING created_at, version
	`

	if err := tx.QueryRowContext(ctx, query, store.ID, store.Name).Scan(&store.CreatedAt, &store.Version); err != nil {
		return err
	}

	for i, slot := range store.TimeSlots {
		query := `
			INSERT INTO store_time_slots (store_id, position, slot)
			VALUES ($1, $2, $3)
		`

		if _, err := tx.ExecContext(ctx, query, store.ID, i, slot); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

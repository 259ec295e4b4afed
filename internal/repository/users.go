package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
)

func (r *Repository) GetUserByID(id string) (*domain.User, error) {
	user := &domain.User{
		ID: id,
	}

	query := `
		SELECT username, password_hash, name, email, role, created_at, version
		FROM users WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	dst := []any{&user.Username, &user.PasswordHash, &user.Name, &user.Email, &user.Role, &user.CreatedAt, &user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := r.loadUserStoreIDs(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetUserByUsername(username string) (*domain.User, error) {
	user := &domain.User{
		Username: username,
	}

	query := `
		SELECT id, password_hash, name, email, role, created_at, version
		FROM users WHERE username = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	dst := []any{&user.ID, &user.PasswordHash, &user.Name, &user.Email, &user.Role, &user.CreatedAt, &user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, username).Scan(dst...); err != nil {
		return nil, err
	}

	if err := r.loadUserStoreIDs(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetAllUsers() ([]*domain.User, error) {
	query := `
		SELECT u.id, u.username, u.name, u.email, u.role, u.created_at, u.version, us.store_id
		FROM users u
		LEFT JOIN user_stores us ON u.id = us.user_id
		ORDER BY u.created_at, u.id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usersMap := make(map[string]*domain.User)
	usersOrder := []string{}

	for rows.Next() {
		var row struct {
			ID        string
			Username  string
			Name      string
			Email     string
			Role      string
			CreatedAt time.Time
			Version   int32
			StoreID   sql.NullString
		}

		dst := []any{&row.ID, &row.Username, &row.Name, &row.Email, &row.Role, &row.CreatedAt, &row.Version, &row.StoreID}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if _, exists := usersMap[row.ID]; !exists {
			usersMap[row.ID] = &domain.User{
				ID:        row.ID,
				Username:  row.Username,
				Name:      row.Name,
				Email:     row.Email,
				Role:      domain.Role(row.Role),
				StoreIDs:  make([]string, 0),
				CreatedAt: row.CreatedAt,
				Version:   row.Version,
			}
			usersOrder = append(usersOrder, row.ID)
		}

		if row.StoreID.Valid {
			usersMap[row.ID].StoreIDs = append(usersMap[row.ID].StoreIDs, row.StoreID.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(usersOrder))
	for _, id := range usersOrder {
		users = append(users, usersMap[id])
	}

	return users, nil
}

func (r *Repository) loadUserStoreIDs(ctx context.Context, user *domain.User) error {
	query := `
		SELECT store_id FROM user_stores WHERE user_id = $1 ORDER BY store_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, user.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	user.StoreIDs = make([]string, 0)
	for rows.Next() {
		var storeID string
		if err := rows.Scan(&storeID); err != nil {
			return err
		}
		user.StoreIDs = append(user.StoreIDs, storeID)
	}

	return rows.Err()
}

func (r *Repository) CreateUser(user *domain.User) error {
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
		INSERT INTO users (id, username, password_hash, name, email, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, version
	`

	params := []any{user.ID, user.Username, user.PasswordHash, user.Name, user.Email, user.Role}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&user.CreatedAt, &user.Version); err != nil {
		return err
	}

	for _, storeID := range user.StoreIDs {
		query := `
			INSERT INTO user_stores (user_id, store_id)
			VALUES ($1, $2)
		`

		if _, err := tx.ExecContext(ctx, query, user.ID, storeID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateUser(user *domain.User) error {
	query := `
		UPDATE users
		SET
			password_hash = $1,
			name = $2,
			email = $3,
			role = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{user.PasswordHash, user.Name, user.Email, user.Role, user.ID, user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&user.Version); err != nil {
		return err
	}

	return nil
}

package postgres

import (
	"context"
	"errors"
	"time"

	"qms/kiosk-service/internal/models"
	"qms/kiosk-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Authenticate(ctx context.Context, username, password string) (models.Operator, error) {
	var operator models.Operator
	var passwordHash string
	row := s.pool.QueryRow(ctx, `
		SELECT operator_id, username, role, password_hash
		FROM operators
		WHERE lower(username) = lower($1) AND active = TRUE
	`, username)
	if err := row.Scan(&operator.OperatorID, &operator.Username, &operator.Role, &passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Operator{}, store.ErrInvalidCredentials
		}
		return models.Operator{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return models.Operator{}, store.ErrInvalidCredentials
	}

	if _, err := s.pool.Exec(ctx, `UPDATE operators SET last_login_at = $2 WHERE operator_id = $1`, operator.OperatorID, time.Now().UTC()); err != nil {
		return models.Operator{}, err
	}
	return operator, nil
}

func (s *Store) CreateOperator(ctx context.Context, username, password, role string) (models.Operator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Operator{}, err
	}
	if role == "" {
		role = "operator"
	}
	operator := models.Operator{
		OperatorID: uuid.NewString(),
		Username:   username,
		Role:       role,
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO operators (operator_id, username, role, password_hash)
		VALUES ($1, $2, $3, $4)
	`, operator.OperatorID, operator.Username, operator.Role, string(hash))
	if err != nil {
		return models.Operator{}, err
	}
	return operator, nil
}

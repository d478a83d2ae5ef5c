package repository

import (
	"context"

	"txguardian/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, first_name, birth_city, mother_maiden_name, first_pet_name, first_car_make, created_at`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with their verification profile facts
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO users (email, first_name, birth_city, mother_maiden_name, first_pet_name, first_car_make)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		u.Email, u.FirstName, u.BirthCity, u.MotherMaidenName, u.FirstPetName, u.FirstCarMake,
	).Scan(&u.ID, &u.CreatedAt)
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanOne(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanOne(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) scanOne(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.BirthCity, &u.MotherMaidenName,
		&u.FirstPetName, &u.FirstCarMake, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

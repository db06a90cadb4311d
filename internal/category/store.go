package category

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sparklens/tweetgrab/internal/database"
)

var (
	ErrCategoryNotFound      = errors.New("category does not exist")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
)

type (
	// Category is the stable grouping reference each acquisition record is
	// filed under. Categories are created by users ahead of acquisition.
	Category struct {
		ID        uuid.UUID `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
	}

	Store struct{}
)

func (store *Store) Create(db database.Queryable, name string) (*Category, error) {
	category := &Category{ID: uuid.New(), Name: name, CreatedAt: time.Now()}

	_, err := db.Exec(`
		INSERT INTO categories(id, name, created_at)
		VALUES ($1, $2, current_timestamp)
	`, category.ID, category.Name)
	if err != nil {
		if database.IsUniqueConstraintViolation(err) {
			return nil, ErrCategoryAlreadyExists
		}

		return nil, fmt.Errorf("failed to insert category '%s': %w", name, err)
	}

	return category, nil
}

func (store *Store) GetWithID(db database.Queryable, id uuid.UUID) (*Category, error) {
	var category Category
	if err := db.Get(&category, `SELECT * FROM categories WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}

		return nil, err
	}

	return &category, nil
}

func (store *Store) GetWithName(db database.Queryable, name string) (*Category, error) {
	var category Category
	if err := db.Get(&category, `SELECT * FROM categories WHERE name=$1`, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}

		return nil, err
	}

	return &category, nil
}

func (store *Store) List(db database.Queryable) ([]*Category, error) {
	var categories []*Category
	if err := db.Select(&categories, `SELECT * FROM categories ORDER BY name`); err != nil {
		return nil, err
	}

	return categories, nil
}

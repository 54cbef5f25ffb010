/*Package pins provides the storage operations for geotagged pin reviews.
 */
package pins

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/travelwhiz/backend/core"
	"github.com/travelwhiz/backend/core/csql"
)

// Pin is a user-authored geotagged review record.
type Pin struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Review   string  `json:"review"`
	Rating   float64 `json:"rating"`
	Long     float64 `json:"long"`
	Lat      float64 `json:"lat"`
	Date     string  `json:"date"`
	Username string  `json:"username"`
}

// NewPin is the data to create a pin.
type NewPin struct {
	Title    string  `json:"title"`
	Review   string  `json:"review"`
	Rating   float64 `json:"rating"`
	Long     float64 `json:"long"`
	Lat      float64 `json:"lat"`
	Date     string  `json:"date"`
	Username string  `json:"username"`
}

// the date column is selected as text, the wire format is plain "2006-01-02"
const columns = `id, title, review, rating, long, lat, date::text, username`

// updatable fields for a partial update
var updatableFields = map[string]bool{
	"title":  true,
	"review": true,
	"rating": true,
}

// Store provides access to the pins of a database schema. It is stateless,
// all operations run against the passed database handle.
type Store struct {
	DB *csql.DB
}

// CreateTable creates the pins relation if it does not exist yet. The users
// relation must exist already, pins carry a foreign key on their owner.
func (s Store) CreateTable() error {
	_, err := s.DB.Exec(fmt.Sprintf(`CREATE table IF NOT EXISTS %s.pins
(id serial PRIMARY KEY,
title varchar NOT NULL,
review varchar NOT NULL DEFAULT '',
rating double precision NOT NULL DEFAULT 0,
long double precision NOT NULL DEFAULT 0,
lat double precision NOT NULL DEFAULT 0,
date date NOT NULL DEFAULT now(),
username varchar NOT NULL REFERENCES %s.users(username) ON DELETE CASCADE);`,
		s.DB.Schema, s.DB.Schema))
	return err
}

func (s Store) scan(row interface{ Scan(...interface{}) error }, pin *Pin) error {
	return row.Scan(&pin.ID, &pin.Title, &pin.Review, &pin.Rating, &pin.Long, &pin.Lat, &pin.Date, &pin.Username)
}

// Create inserts a pin and returns the created row including the
// store-assigned id. The owning username is not checked by the application,
// the foreign key constraint of the store enforces it.
func (s Store) Create(ctx context.Context, data NewPin) (Pin, error) {
	query := fmt.Sprintf(`INSERT INTO %s.pins (title, review, rating, long, lat, date, username)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+columns, s.DB.Schema)

	var pin Pin
	err := s.scan(s.DB.QueryRowContext(ctx, query,
		data.Title, data.Review, data.Rating, data.Long, data.Lat, data.Date, data.Username), &pin)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return Pin{}, core.NotFoundf("no user: %s", data.Username)
		}
		return Pin{}, err
	}
	return pin, nil
}

// FindAll returns all pins. No pagination, a known limitation at this scale.
func (s Store) FindAll(ctx context.Context) ([]Pin, error) {
	query := fmt.Sprintf(`SELECT `+columns+` FROM %s.pins`, s.DB.Schema)
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pins := []Pin{}
	for rows.Next() {
		var pin Pin
		if err := s.scan(rows, &pin); err != nil {
			return nil, err
		}
		pins = append(pins, pin)
	}
	return pins, rows.Err()
}

// Update applies a partial update to the pin with the given id and returns
// the updated row. Only title, review and rating can be changed.
func (s Store) Update(ctx context.Context, id int, fields map[string]interface{}) (Pin, error) {
	for name := range fields {
		if !updatableFields[name] {
			return Pin{}, core.BadRequestf("field %s cannot be updated", name)
		}
	}
	setClauses, values, err := csql.PartialUpdate(fields, nil)
	if err != nil {
		return Pin{}, err
	}

	query := fmt.Sprintf(`UPDATE %s.pins SET `+strings.Join(setClauses, ", ")+
		` WHERE id = $%d RETURNING `+columns, s.DB.Schema, len(values)+1)

	var pin Pin
	err = s.scan(s.DB.QueryRowContext(ctx, query, append(values, id)...), &pin)
	if err == csql.ErrNoRows {
		return Pin{}, core.NotFoundf("no pin: %d", id)
	}
	if err != nil {
		return Pin{}, err
	}
	return pin, nil
}

// Remove deletes the pin with the given id.
func (s Store) Remove(ctx context.Context, id int) error {
	query := fmt.Sprintf(`DELETE FROM %s.pins WHERE id = $1 RETURNING id`, s.DB.Schema)
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&id)
	if err == csql.ErrNoRows {
		return core.NotFoundf("no pin: %d", id)
	}
	return err
}

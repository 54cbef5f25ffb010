/*Package users provides the storage operations for user accounts, their
authentication and their favorite pins.
*/
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/travelwhiz/backend/core"
	"github.com/travelwhiz/backend/core/csql"
	"github.com/travelwhiz/backend/core/pins"
)

// User is a registered account. The password hash never leaves this package.
type User struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"isAdmin"`
	// Pins are the pins authored by this user, filled in by Get only
	Pins []pins.Pin `json:"pins,omitempty"`
}

// NewUser is the data to register a user.
type NewUser struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"isAdmin"`
}

const columns = `username, first_name, last_name, email, is_admin`

// translation of wire field names to column names for partial updates. Fields
// without an entry translate to themselves.
var updateTranslation = map[string]string{
	"firstName": "first_name",
	"lastName":  "last_name",
	"isAdmin":   "is_admin",
}

var updatableFields = map[string]bool{
	"password":  true,
	"firstName": true,
	"lastName":  true,
	"email":     true,
	"isAdmin":   true,
}

// both authentication failure paths must be indistinguishable, a caller
// cannot probe which usernames exist
const invalidCredentials = "invalid username/password"

// Store provides access to the users and favorites of a database schema.
// It is stateless, all operations run against the passed database handle.
type Store struct {
	DB *csql.DB
	// BcryptCost is the work factor for password hashes. Zero means
	// bcrypt.DefaultCost. Tests lower it to keep registration fast.
	BcryptCost int
}

// CreateTable creates the users relation if it does not exist yet.
func (s Store) CreateTable() error {
	_, err := s.DB.Exec(fmt.Sprintf(`CREATE table IF NOT EXISTS %s.users
(username varchar PRIMARY KEY,
password varchar NOT NULL,
first_name varchar NOT NULL DEFAULT '',
last_name varchar NOT NULL DEFAULT '',
email varchar NOT NULL UNIQUE,
is_admin boolean NOT NULL DEFAULT false);`, s.DB.Schema))
	return err
}

// CreateFavoritesTable creates the favorites relation if it does not exist
// yet. The composite primary key makes a duplicate favorite impossible even
// when two concurrent requests pass the duplicate pre-check; the violation
// surfaces as the same conflict error.
func (s Store) CreateFavoritesTable() error {
	_, err := s.DB.Exec(fmt.Sprintf(`CREATE table IF NOT EXISTS %s.favorites
(username varchar NOT NULL REFERENCES %s.users(username) ON DELETE CASCADE,
pin_id integer NOT NULL REFERENCES %s.pins(id) ON DELETE CASCADE,
PRIMARY KEY (username, pin_id));`, s.DB.Schema, s.DB.Schema, s.DB.Schema))
	return err
}

func (s Store) cost() int {
	if s.BcryptCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}

// Authenticate verifies the given plaintext password against the stored hash
// and returns the user on success. An unknown username and a wrong password
// fail alike.
func (s Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	query := fmt.Sprintf(`SELECT username, password, first_name, last_name, email, is_admin
FROM %s.users WHERE username = $1`, s.DB.Schema)

	var user User
	var hash string
	err := s.DB.QueryRowContext(ctx, query, username).
		Scan(&user.Username, &hash, &user.FirstName, &user.LastName, &user.Email, &user.IsAdmin)
	if err == csql.ErrNoRows {
		return User{}, core.Unauthorizedf(invalidCredentials)
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, core.Unauthorizedf(invalidCredentials)
	}
	return user, nil
}

// Register creates a user with a salted hash of the supplied password and
// returns it. A duplicate username is a conflict.
func (s Store) Register(ctx context.Context, data NewUser) (User, error) {
	duplicateQuery := fmt.Sprintf(`SELECT username FROM %s.users WHERE username = $1`, s.DB.Schema)
	var duplicate string
	err := s.DB.QueryRowContext(ctx, duplicateQuery, data.Username).Scan(&duplicate)
	if err == nil {
		return User{}, core.Conflictf("duplicate username: %s", data.Username)
	}
	if err != csql.ErrNoRows {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), s.cost())
	if err != nil {
		return User{}, err
	}

	query := fmt.Sprintf(`INSERT INTO %s.users (username, password, first_name, last_name, email, is_admin)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+columns, s.DB.Schema)

	var user User
	err = s.DB.QueryRowContext(ctx, query,
		data.Username, string(hash), data.FirstName, data.LastName, data.Email, data.IsAdmin).
		Scan(&user.Username, &user.FirstName, &user.LastName, &user.Email, &user.IsAdmin)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return User{}, core.Conflictf("duplicate username or email: %s", data.Username)
		}
		return User{}, err
	}
	return user, nil
}

// FindAll returns all users, ordered by username.
func (s Store) FindAll(ctx context.Context) ([]User, error) {
	query := fmt.Sprintf(`SELECT `+columns+` FROM %s.users ORDER BY username`, s.DB.Schema)
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.Username, &user.FirstName, &user.LastName, &user.Email, &user.IsAdmin); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Get returns the user with the given username, together with the pins they
// authored. A user without pins gets an empty list.
func (s Store) Get(ctx context.Context, username string) (User, error) {
	query := fmt.Sprintf(`SELECT `+columns+` FROM %s.users WHERE username = $1`, s.DB.Schema)

	var user User
	err := s.DB.QueryRowContext(ctx, query, username).
		Scan(&user.Username, &user.FirstName, &user.LastName, &user.Email, &user.IsAdmin)
	if err == csql.ErrNoRows {
		return User{}, core.NotFoundf("no user: %s", username)
	}
	if err != nil {
		return User{}, err
	}

	pinQuery := fmt.Sprintf(`SELECT p.id, p.title, p.review, p.rating, p.long, p.lat, p.date::text, p.username
FROM %s.pins AS p WHERE p.username = $1`, s.DB.Schema)
	rows, err := s.DB.QueryContext(ctx, pinQuery, username)
	if err != nil {
		return User{}, err
	}
	defer rows.Close()

	user.Pins = []pins.Pin{}
	for rows.Next() {
		var pin pins.Pin
		if err := rows.Scan(&pin.ID, &pin.Title, &pin.Review, &pin.Rating, &pin.Long, &pin.Lat, &pin.Date, &pin.Username); err != nil {
			return User{}, err
		}
		user.Pins = append(user.Pins, pin)
	}
	return user, rows.Err()
}

// Update applies a partial update to the user with the given username and
// returns the updated row.
//
// The fields must contain the user's current password, which re-authenticates
// the caller before any change is applied. The password value itself is
// re-hashed and written back, so the stored value is always a bcrypt hash.
func (s Store) Update(ctx context.Context, username string, fields map[string]interface{}) (User, error) {
	password, ok := fields["password"].(string)
	if !ok {
		return User{}, core.BadRequestf("password is required to update a user")
	}
	for name := range fields {
		if !updatableFields[name] {
			return User{}, core.BadRequestf("field %s cannot be updated", name)
		}
	}

	hashQuery := fmt.Sprintf(`SELECT password FROM %s.users WHERE username = $1`, s.DB.Schema)
	var hash string
	err := s.DB.QueryRowContext(ctx, hashQuery, username).Scan(&hash)
	if err == csql.ErrNoRows {
		return User{}, core.NotFoundf("no user: %s", username)
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, core.Unauthorizedf("invalid password")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return User{}, err
	}
	fields["password"] = string(newHash)

	setClauses, values, err := csql.PartialUpdate(fields, updateTranslation)
	if err != nil {
		return User{}, err
	}

	query := fmt.Sprintf(`UPDATE %s.users SET `+strings.Join(setClauses, ", ")+
		` WHERE username = $%d RETURNING `+columns, s.DB.Schema, len(values)+1)

	var user User
	err = s.DB.QueryRowContext(ctx, query, append(values, username)...).
		Scan(&user.Username, &user.FirstName, &user.LastName, &user.Email, &user.IsAdmin)
	if err == csql.ErrNoRows {
		return User{}, core.NotFoundf("no user: %s", username)
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// Remove deletes the user with the given username.
func (s Store) Remove(ctx context.Context, username string) error {
	query := fmt.Sprintf(`DELETE FROM %s.users WHERE username = $1 RETURNING username`, s.DB.Schema)
	err := s.DB.QueryRowContext(ctx, query, username).Scan(&username)
	if err == csql.ErrNoRows {
		return core.NotFoundf("no user: %s", username)
	}
	return err
}

// FavoritePin marks the pin as a favorite of the user. Favoriting a pin
// twice is a conflict.
func (s Store) FavoritePin(ctx context.Context, username string, pinID int) error {
	if err := s.checkFavoriteSides(ctx, username, pinID); err != nil {
		return err
	}

	duplicateQuery := fmt.Sprintf(`SELECT username, pin_id FROM %s.favorites
WHERE username = $1 AND pin_id = $2`, s.DB.Schema)
	var u string
	var p int
	err := s.DB.QueryRowContext(ctx, duplicateQuery, username, pinID).Scan(&u, &p)
	if err == nil {
		return core.Conflictf("%s already favorited pin %d", username, pinID)
	}
	if err != csql.ErrNoRows {
		return err
	}

	insertQuery := fmt.Sprintf(`INSERT INTO %s.favorites (pin_id, username) VALUES ($1, $2)`, s.DB.Schema)
	_, err = s.DB.ExecContext(ctx, insertQuery, pinID, username)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
		// a concurrent request slipped past the pre-check
		return core.Conflictf("%s already favorited pin %d", username, pinID)
	}
	return err
}

// UnfavoritePin removes the pin from the user's favorites. Unfavoriting a
// pin that was never favorited is a no-op, but user and pin must exist.
func (s Store) UnfavoritePin(ctx context.Context, username string, pinID int) error {
	if err := s.checkFavoriteSides(ctx, username, pinID); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s.favorites WHERE username = $1 AND pin_id = $2`, s.DB.Schema)
	_, err := s.DB.ExecContext(ctx, query, username, pinID)
	return err
}

// ListFavoritePins returns the pins the user has favorited.
func (s Store) ListFavoritePins(ctx context.Context, username string) ([]pins.Pin, error) {
	query := fmt.Sprintf(`SELECT p.id, p.title, p.review, p.rating, p.long, p.lat, p.date::text, p.username
FROM %s.pins AS p
JOIN %s.favorites AS f ON p.id = f.pin_id
WHERE f.username = $1`, s.DB.Schema, s.DB.Schema)

	rows, err := s.DB.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := []pins.Pin{}
	for rows.Next() {
		var pin pins.Pin
		if err := rows.Scan(&pin.ID, &pin.Title, &pin.Review, &pin.Rating, &pin.Long, &pin.Lat, &pin.Date, &pin.Username); err != nil {
			return nil, err
		}
		favorites = append(favorites, pin)
	}
	return favorites, rows.Err()
}

func (s Store) checkFavoriteSides(ctx context.Context, username string, pinID int) error {
	pinQuery := fmt.Sprintf(`SELECT id FROM %s.pins WHERE id = $1`, s.DB.Schema)
	err := s.DB.QueryRowContext(ctx, pinQuery, pinID).Scan(&pinID)
	if err == csql.ErrNoRows {
		return core.NotFoundf("no pin: %d", pinID)
	}
	if err != nil {
		return err
	}

	userQuery := fmt.Sprintf(`SELECT username FROM %s.users WHERE username = $1`, s.DB.Schema)
	err = s.DB.QueryRowContext(ctx, userQuery, username).Scan(&username)
	if err == csql.ErrNoRows {
		return core.NotFoundf("no user: %s", username)
	}
	return err
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"vouch/cmd/identity/ids"
)

// DB is the subset of *pgxpool.Pool the store needs. Declared as an
// interface so tests can substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
// - The pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Unique violations are classified by constraint name into logical fields,
//   which is what lets the registration workflow report EmailTaken vs
//   HandleTaken after losing an insert race.
type PostgresStore struct {
	db     DB
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "vouch").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(db DB, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		db:     db,
		schema: "vouch",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.db == nil {
		return nil, fmt.Errorf("identity: nil db")
	}
	return st, nil
}

const userColumns = "id, name, email, uid, password_hash, created_at"

// FindByEmailOrUID returns identities matching email OR uid, at most two,
// in insertion order. It exists solely for the advisory duplicate pre-check.
func (s *PostgresStore) FindByEmailOrUID(ctx context.Context, email, uid string) ([]User, error) {
	const op = "identity.FindByEmailOrUID"

	if err := s.check(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+userColumns+`
		   FROM `+s.usersTable()+`
		  WHERE email = $1 OR uid = $2
		  ORDER BY id
		  LIMIT 2`,
		email, uid,
	)
	if err != nil {
		return nil, StoreError{Op: op, Err: err}
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, StoreError{Op: op, Err: err}
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, StoreError{Op: op, Err: err}
	}
	return out, nil
}

// FindByEmail returns the identity with the given email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.FindByEmail"
	return s.findOne(ctx, op, "email", email)
}

// FindByUID returns the identity with the given handle.
func (s *PostgresStore) FindByUID(ctx context.Context, uid string) (User, error) {
	const op = "identity.FindByUID"
	return s.findOne(ctx, op, "uid", uid)
}

func (s *PostgresStore) findOne(ctx context.Context, op, column, value string) (User, error) {
	if err := s.check(ctx, op); err != nil {
		return User{}, err
	}

	var u User
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		   FROM `+s.usersTable()+`
		  WHERE `+column+` = $1`,
		value,
	)
	if err := scanUser(row, &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, StoreError{Op: op, Err: err}
	}
	return u, nil
}

// Insert persists a new identity as a single atomic statement. The unique
// constraints on email and uid are the authoritative duplicate guard: when
// two registrations race, exactly one insert commits and the other receives
// a ConflictError classified by the violated constraint.
func (s *PostgresStore) Insert(ctx context.Context, draft Draft) (User, error) {
	const op = "identity.Insert"

	if err := s.check(ctx, op); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(draft.PasswordHash) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty password hash"}
	}

	now := time.Now().UTC()
	id, err := ids.NewULID(now)
	if err != nil {
		return User{}, StoreError{Op: op, Err: err}
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO `+s.usersTable()+` (
		     id, name, email, uid, password_hash, created_at
		   ) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, draft.Name, draft.Email, draft.UID, draft.PasswordHash, now,
	)
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, StoreError{Op: op, Err: err}
	}

	return User{
		ID:           id,
		Name:         draft.Name,
		Email:        draft.Email,
		UID:          draft.UID,
		PasswordHash: draft.PasswordHash,
		CreatedAt:    now,
	}, nil
}

// UpdatePasswordHash replaces the secret hash for an existing identity.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id, newHash string) (User, error) {
	const op = "identity.UpdatePasswordHash"

	if err := s.check(ctx, op); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(newHash) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty password hash"}
	}

	var u User
	row := s.db.QueryRow(ctx,
		`UPDATE `+s.usersTable()+`
		    SET password_hash = $1
		  WHERE id = $2
		  RETURNING `+userColumns,
		newHash, id,
	)
	if err := scanUser(row, &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, StoreError{Op: op, Err: err}
	}
	return u, nil
}

// ---- helpers ----

func (s *PostgresStore) check(ctx context.Context, op string) error {
	if s == nil || s.db == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	return ctx.Err()
}

func (s *PostgresStore) usersTable() string {
	return pgx.Identifier{s.schema, "users"}.Sanitize()
}

func scanUser(row pgx.Row, u *User) error {
	return row.Scan(&u.ID, &u.Name, &u.Email, &u.UID, &u.PasswordHash, &u.CreatedAt)
}

// classifyUniqueViolation maps a unique-violation error to the logical field
// whose constraint fired. Stable constraint names are preferred; substring
// matching is a fallback for renamed schemas.
func classifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != pgerrcode.UniqueViolation {
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "uq_users_email":
		return "email", true
	case "uq_users_uid":
		return "uid", true
	default:
		switch {
		case strings.Contains(c, "email"):
			return "email", true
		case strings.Contains(c, "uid"):
			return "uid", true
		default:
			return "unique", true
		}
	}
}

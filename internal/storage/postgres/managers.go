package postgres

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/argon2"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/ddserr"
)

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const saltLength = 32

// Argon2 cost parameters. The original service hashed with argon2d; the
// Go ecosystem's only argon2 implementation (golang.org/x/crypto/argon2,
// already a teacher dependency) exposes argon2i and argon2id but not
// argon2d, so this store hashes with argon2id instead — see DESIGN.md
// for the substitution rationale. Parameters match the library's own
// recommended interactive defaults.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

func generateSalt() (string, error) {
	b := make([]byte, saltLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	out := make([]byte, saltLength)
	for i, v := range b {
		out[i] = saltAlphabet[int(v)%len(saltAlphabet)]
	}
	return string(out), nil
}

func hashPassword(password, salt string) []byte {
	return argon2.IDKey([]byte(password), []byte(salt), argonTime, argonMemory, argonThreads, argonKeyLen)
}

const (
	sqlRegisterManager = `
		INSERT INTO managers (manager_email, manager_hash, manager_salt, api_key)
		VALUES ($1, $2, $3, $4)
		RETURNING manager_id, manager_email, api_key, is_admin, manager_salt, manager_hash, created_at, updated_at`

	sqlFindManagerByAPIKey = `
		SELECT manager_id, manager_email, api_key, is_admin, manager_salt, manager_hash, created_at, updated_at
		FROM managers WHERE api_key = $1`

	sqlFindManagerByEmail = `
		SELECT manager_id, manager_email, api_key, is_admin, manager_salt, manager_hash, created_at, updated_at
		FROM managers WHERE manager_email = $1`

	sqlManagerDatasets = `
		SELECT d.dataset_id, d.manager_id, d.dataset_name, d.dataset_classification,
		       d.dataset_compression, d.dataset_format, d.dataset_desc, d.dataset_schema,
		       d.created_at, d.updated_at
		FROM datasets d
		JOIN managers m ON m.manager_id = d.manager_id
		WHERE m.api_key = $1
		ORDER BY d.created_at ASC`
)

func scanManager(row pgx.Row) (catalog.Manager, error) {
	var m catalog.Manager
	err := row.Scan(&m.ID, &m.Email, &m.APIKey, &m.Admin, &m.Salt, &m.Hash, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// RegisterManager hashes the password with a fresh salt and mints a
// random API key. It does not check the email's domain suffix; the HTTP
// handler does that against the configured domain before calling it.
func (s *Store) RegisterManager(ctx context.Context, email, password string) (catalog.Manager, error) {
	salt, err := generateSalt()
	if err != nil {
		return catalog.Manager{}, ddserr.Wrap(ddserr.KindGeneric, "generate salt", err)
	}
	hash := hashPassword(password, salt)
	apiKey := uuid.New()

	row := s.pool.QueryRow(ctx, sqlRegisterManager, email, hash, salt, apiKey)
	m, err := scanManager(row)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.Manager{}, ddserr.Wrap(ddserr.KindSql, "manager already registered", err)
		}
		return catalog.Manager{}, ddserr.Wrap(ddserr.KindSql, "insert manager", err)
	}
	return m, nil
}

// Authenticate recomputes the password hash with the stored salt and
// compares it against the stored hash in constant time.
func (s *Store) Authenticate(ctx context.Context, email, password string) (catalog.Manager, error) {
	row := s.pool.QueryRow(ctx, sqlFindManagerByEmail, email)
	m, err := scanManager(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Manager{}, ddserr.Wrap(ddserr.KindSql, "unknown manager", err)
		}
		return catalog.Manager{}, ddserr.Wrap(ddserr.KindSql, "find manager", err)
	}

	got := hashPassword(password, m.Salt)
	if subtle.ConstantTimeCompare(got, m.Hash) != 1 {
		return catalog.Manager{}, ddserr.ErrInvalidCredentials
	}
	return m, nil
}

// FindManager looks up a manager by their presented bearer api key.
func (s *Store) FindManager(ctx context.Context, apiKey uuid.UUID) (catalog.Manager, error) {
	row := s.pool.QueryRow(ctx, sqlFindManagerByAPIKey, apiKey)
	m, err := scanManager(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Manager{}, ddserr.Wrap(ddserr.KindSql, "unknown api key", err)
		}
		return catalog.Manager{}, ddserr.Wrap(ddserr.KindSql, "find manager", err)
	}
	return m, nil
}

// ManagerDatasets lists every dataset owned by the manager presenting apiKey.
func (s *Store) ManagerDatasets(ctx context.Context, apiKey uuid.UUID) ([]catalog.Dataset, error) {
	rows, err := s.pool.Query(ctx, sqlManagerDatasets, apiKey)
	if err != nil {
		return nil, ddserr.Wrap(ddserr.KindSql, "query manager datasets", err)
	}
	defer rows.Close()

	var out []catalog.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, ddserr.Wrap(ddserr.KindSql, "scan dataset", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

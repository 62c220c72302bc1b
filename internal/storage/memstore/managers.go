package memstore

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/ddserr"
)

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const saltLength = 32

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

func scanManager(row *sql.Row) (catalog.Manager, error) {
	var m catalog.Manager
	var apiKey string
	var admin int
	err := row.Scan(&m.ID, &m.Email, &apiKey, &admin, &m.Salt, &m.Hash, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return catalog.Manager{}, err
	}
	parsed, err := uuid.Parse(apiKey)
	if err != nil {
		return catalog.Manager{}, err
	}
	m.APIKey = parsed
	m.Admin = admin != 0
	return m, nil
}

func (s *Store) RegisterManager(ctx context.Context, email, password string) (catalog.Manager, error) {
	salt, err := generateSalt()
	if err != nil {
		return catalog.Manager{}, ddserr.Wrap(ddserr.KindGeneric, "generate salt", err)
	}
	hash := hashPassword(password, salt)
	apiKey := uuid.New()

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO managers (manager_email, manager_hash, manager_salt, api_key)
		VALUES (?, ?, ?, ?)
		RETURNING manager_id, manager_email, api_key, is_admin, manager_salt, manager_hash, created_at, updated_at`,
		email, hash, salt, apiKey.String())

	m, err := scanManager(row)
	if err != nil {
		return catalog.Manager{}, ddserr.Wrap(ddserr.KindSql, "insert manager", err)
	}
	return m, nil
}

func (s *Store) Authenticate(ctx context.Context, email, password string) (catalog.Manager, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT manager_id, manager_email, api_key, is_admin, manager_salt, manager_hash, created_at, updated_at
		FROM managers WHERE manager_email = ?`, email)

	m, err := scanManager(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

func (s *Store) FindManager(ctx context.Context, apiKey uuid.UUID) (catalog.Manager, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT manager_id, manager_email, api_key, is_admin, manager_salt, manager_hash, created_at, updated_at
		FROM managers WHERE api_key = ?`, apiKey.String())

	m, err := scanManager(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Manager{}, ddserr.Wrap(ddserr.KindSql, "unknown api key", err)
		}
		return catalog.Manager{}, ddserr.Wrap(ddserr.KindSql, "find manager", err)
	}
	return m, nil
}

func (s *Store) ManagerDatasets(ctx context.Context, apiKey uuid.UUID) ([]catalog.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.dataset_id, d.manager_id, d.dataset_name, d.dataset_classification,
		       d.dataset_compression, d.dataset_format, d.dataset_desc, d.dataset_schema,
		       d.created_at, d.updated_at
		FROM datasets d
		JOIN managers m ON m.manager_id = d.manager_id
		WHERE m.api_key = ?
		ORDER BY d.created_at ASC`, apiKey.String())
	if err != nil {
		return nil, ddserr.Wrap(ddserr.KindSql, "query manager datasets", err)
	}
	defer rows.Close()
	return scanDatasets(rows)
}

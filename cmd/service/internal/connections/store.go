package connections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	dbdriver "dbstudio"
)

// SavedConnection is a stored connection with its secrets decrypted.
type SavedConnection struct {
	ID        string
	Name      string
	Config    dbdriver.ConnectionConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

type connectionRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Driver      string    `db:"driver"`
	URL         string    `db:"url"`
	Username    string    `db:"username"`
	DatabaseID  string    `db:"database_id"`
	TokenEnc    string    `db:"token_enc"`
	PasswordEnc string    `db:"password_enc"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

const selectColumns = `id, name, driver, url, username, database_id, token_enc, password_enc, created_at, updated_at`

// SQLStore keeps saved connections in any of the supported SQL backends.
// Tokens and passwords are encrypted at rest.
type SQLStore struct {
	db        *sqlx.DB
	encryptor *aesGcmEncryptor
}

func NewSQLStore(db *sqlx.DB, key []byte) (*SQLStore, error) {
	enc, err := newAesGcmEncryptor(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	return &SQLStore{db: db, encryptor: enc}, nil
}

// q rebinds ? placeholders to the driver's native format.
func (s *SQLStore) q(query string) string { return s.db.Rebind(query) }

func (s *SQLStore) Create(ctx context.Context, name string, cfg dbdriver.ConnectionConfig) (*SavedConnection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	tag := strings.ToLower(strings.TrimSpace(string(cfg.Driver)))
	kind, known := dbdriver.ParseKind(tag)
	if !known && tag != "" {
		return nil, fmt.Errorf("unknown driver %q: %w", cfg.Driver, ErrInvalidInput)
	}
	cfg.Driver = kind
	if _, err := s.FindByName(ctx, name); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	tokenEnc, err := s.encryptor.Encrypt(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("encrypt token: %w", err)
	}
	passwordEnc, err := s.encryptor.Encrypt(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("encrypt password: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	row := connectionRow{
		ID:          uuid.New().String(),
		Name:        name,
		Driver:      string(cfg.Driver),
		URL:         cfg.URL,
		Username:    cfg.Username,
		DatabaseID:  cfg.Database,
		TokenEnc:    tokenEnc,
		PasswordEnc: passwordEnc,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.insert(ctx, row); err != nil {
		return nil, err
	}
	return &SavedConnection{ID: row.ID, Name: name, Config: cfg, CreatedAt: now, UpdatedAt: now}, nil
}

// insert writes row as-is. A concurrent Create that won the name check race
// surfaces here as ErrConflict via the unique index on name.
func (s *SQLStore) insert(ctx context.Context, row connectionRow) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO saved_connections (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), row.ID, row.Name, row.Driver, row.URL, row.Username, row.DatabaseID, row.TokenEnc, row.PasswordEnc, row.CreatedAt, row.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert saved connection: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*SavedConnection, error) {
	var row connectionRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+selectColumns+` FROM saved_connections WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get saved connection: %w", err)
	}
	return s.decode(row)
}

func (s *SQLStore) FindByName(ctx context.Context, name string) (*SavedConnection, error) {
	var row connectionRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+selectColumns+` FROM saved_connections WHERE name = ?`), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find saved connection: %w", err)
	}
	return s.decode(row)
}

func (s *SQLStore) List(ctx context.Context) ([]*SavedConnection, error) {
	var rows []connectionRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+selectColumns+` FROM saved_connections ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list saved connections: %w", err)
	}
	out := make([]*SavedConnection, 0, len(rows))
	for _, row := range rows {
		c, err := s.decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM saved_connections WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete saved connection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete saved connection: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetConnection satisfies Store for the resolver.
func (s *SQLStore) GetConnection(ctx context.Context, id string) (dbdriver.ConnectionConfig, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return dbdriver.ConnectionConfig{}, err
	}
	return c.Config, nil
}

func (s *SQLStore) decode(row connectionRow) (*SavedConnection, error) {
	token, err := s.encryptor.Decrypt(row.TokenEnc)
	if err != nil {
		return nil, errors.New("failed to decrypt token")
	}
	password, err := s.encryptor.Decrypt(row.PasswordEnc)
	if err != nil {
		return nil, errors.New("failed to decrypt password")
	}
	return &SavedConnection{
		ID:   row.ID,
		Name: row.Name,
		Config: dbdriver.ConnectionConfig{
			Driver:   dbdriver.Kind(row.Driver),
			URL:      row.URL,
			Token:    token,
			Username: row.Username,
			Password: password,
			Database: row.DatabaseID,
		},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

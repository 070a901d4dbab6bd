package postgres

/*
Файл request_repo.go — альтернативный адаптер хранилища заявок: PostgreSQL с JSONB.
Каждая заявка — строка (id UUID, doc JSONB). Документ хранится целиком, поэтому
поля, записанные старыми клиентами, доживают до выгрузки так же, как в MongoDB.
*/

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	"github.com/xela07ax/reqtrack/internal/domain"
)

type requestDoc struct {
	Description string `json:"description"`
	Status      string `json:"status"`
	AssignedBy  string `json:"assigned_by"`
	AssignedTo  string `json:"assigned_to"`
}

type RequestRepo struct {
	db      *sql.DB
	table   string // Уже экранированное имя таблицы
	timeout time.Duration
}

// Open создает пул соединений. Доступность базы проверяется в main через Ping.
func Open(connString, table string, timeout time.Duration) *RequestRepo {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		// В main мы проверим соединение через Ping
		log.Fatal(err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return NewRequestRepo(db, table, timeout)
}

// NewRequestRepo оборачивает готовый *sql.DB.
func NewRequestRepo(db *sql.DB, table string, timeout time.Duration) *RequestRepo {
	return &RequestRepo{
		db:      db,
		table:   pgx.Identifier{table}.Sanitize(),
		timeout: timeout,
	}
}

// Ping проверяет доступность базы при старте
func (r *RequestRepo) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.PingContext(ctx)
}

func (r *RequestRepo) Close(_ context.Context) error {
	return r.db.Close()
}

// EnsureSchema создает таблицу заявок, если ее еще нет.
func (r *RequestRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         UUID PRIMARY KEY,
			doc        JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, r.table)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres: failed to ensure schema: %w", err)
	}
	return nil
}

func (r *RequestRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func parseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("postgres: malformed request id %q: %w", id, err)
	}
	return u.String(), nil
}

func (r *RequestRepo) Insert(ctx context.Context, req *domain.Request) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	doc, err := json.Marshal(requestDoc{
		Description: req.Description,
		Status:      string(req.Status),
		AssignedBy:  req.AssignedBy,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		return "", fmt.Errorf("postgres: failed to encode request: %w", err)
	}

	id := uuid.New().String()
	query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)`, r.table)
	if _, err := r.db.ExecContext(ctx, query, id, doc); err != nil {
		return "", fmt.Errorf("postgres: failed to insert request: %w", err)
	}
	return id, nil
}

// FindByID возвращает (nil, nil), если заявки нет.
func (r *RequestRepo) FindByID(ctx context.Context, id string) (*domain.Request, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT id, doc FROM %s WHERE id = $1`, r.table)

	var rowID string
	var raw []byte
	err = r.db.QueryRowContext(ctx, query, key).Scan(&rowID, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Возвращаем nil для 404 в сервисе
		}
		return nil, fmt.Errorf("postgres: failed to find request: %w", err)
	}

	req, err := decodeRequest(rowID, raw)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepo) FindAll(ctx context.Context) ([]domain.Request, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT id, doc FROM %s ORDER BY created_at`, r.table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list requests: %w", err)
	}
	defer rows.Close()

	// Инициализируем пустой слайс, чтобы в JSON был [] вместо null
	results := make([]domain.Request, 0)
	for rows.Next() {
		var rowID string
		var raw []byte
		if err := rows.Scan(&rowID, &raw); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan request: %w", err)
		}
		req, err := decodeRequest(rowID, raw)
		if err != nil {
			return nil, err
		}
		results = append(results, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate requests: %w", err)
	}
	return results, nil
}

// UpdateStatus переписывает только ключ status внутри документа.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) (int64, error) {
	key, err := parseID(id)
	if err != nil {
		return 0, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s
		SET doc = jsonb_set(doc, '{status}', to_jsonb($1::text))
		WHERE id = $2`, r.table)

	result, err := r.db.ExecContext(ctx, query, string(status), key)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to update status: %w", err)
	}
	return result.RowsAffected()
}

func (r *RequestRepo) DeleteByID(ctx context.Context, id string) (int64, error) {
	key, err := parseID(id)
	if err != nil {
		return 0, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table)
	result, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to delete request: %w", err)
	}
	return result.RowsAffected()
}

// Documents отдает каждый документ целиком, с id под ключом _id.
func (r *RequestRepo) Documents(ctx context.Context) ([]domain.Document, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT id, doc FROM %s ORDER BY created_at`, r.table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to read documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		var rowID string
		var raw []byte
		if err := rows.Scan(&rowID, &raw); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan document: %w", err)
		}

		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("postgres: corrupt document %s: %w", rowID, err)
		}

		doc := make(domain.Document, len(fields)+1)
		for k, v := range fields {
			doc[k] = stringify(v)
		}
		doc[domain.FieldID] = rowID
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate documents: %w", err)
	}
	return docs, nil
}

func decodeRequest(id string, raw []byte) (domain.Request, error) {
	var doc requestDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Request{}, fmt.Errorf("postgres: corrupt document %s: %w", id, err)
	}
	return domain.Request{
		ID:          id,
		Description: doc.Description,
		Status:      domain.RequestStatus(doc.Status),
		AssignedBy:  doc.AssignedBy,
		AssignedTo:  doc.AssignedTo,
	}, nil
}

// stringify приводит значения JSON к строке ячейки таблицы.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bryanwahyu/geo-classifier/internal/domain/geo"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts or updates an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *geo.Analysis) error {
	const q = `
INSERT INTO geo_analyses
  (id, client_id, source, filename, document_url, input_excerpt, provider, result_json, created_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  document_url=VALUES(document_url), result_json=VALUES(result_json);
`
	result, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.ClientID), string(a.Source), a.Filename, a.DocumentURL,
		a.InputExcerpt, stringOrDash(a.Provider), string(result), createdAt,
	)
	return err
}

const selectColumns = `
SELECT id, client_id, source, filename, document_url, input_excerpt, provider, result_json, created_at
FROM geo_analyses`

// Get by ID + client
func (r *AnalysisRepository) Get(ctx context.Context, clientID string, id geo.AnalysisID) (*geo.Analysis, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+`
WHERE client_id=? AND id=? LIMIT 1;`, stringOrDash(clientID), id)

	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, geo.ErrNotFound
	}
	return a, err
}

// Paginate returns a page of analyses ordered by created_at desc
func (r *AnalysisRepository) Paginate(ctx context.Context, clientID string, page, pageSize int) (geo.Page, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	client := stringOrDash(clientID)

	rows, err := r.db.QueryContext(ctx, selectColumns+`
WHERE client_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`, client, pageSize, offset)
	if err != nil {
		return geo.Page{}, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	out := []*geo.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return geo.Page{}, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return geo.Page{}, fmt.Errorf("iterating rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM geo_analyses WHERE client_id=?`, client).Scan(&total); err != nil {
		return geo.Page{}, fmt.Errorf("getting total count: %w", err)
	}

	return geo.Page{
		Data:       out,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*geo.Analysis, error) {
	var (
		a       geo.Analysis
		source  string
		result  string
		created time.Time
	)
	if err := row.Scan(&a.ID, &a.ClientID, &source, &a.Filename, &a.DocumentURL,
		&a.InputExcerpt, &a.Provider, &result, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(result), &a.Result); err != nil {
		return nil, fmt.Errorf("decoding result_json: %w", err)
	}
	a.Source = geo.Source(source)
	a.CreatedAt = created
	return &a, nil
}

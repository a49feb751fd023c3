// Package docstore queries a Postgres mirror of a document database. Each
// row holds one page with its properties in a jsonb column, shaped exactly
// as the document service returns them.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/rebeliceyang/lazynotion/internal/filter"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/rebeliceyang/lazynotion/internal/notion"
)

// DefaultLimit caps the rows returned by one query
const DefaultLimit = 1000

// RowQuerier is satisfied by *pgxpool.Pool and *connection.Pool
type RowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store implements notion.Querier over a table
//
//	(id text, created_time timestamptz, last_edited_time timestamptz,
//	 url text, properties jsonb)
type Store struct {
	db      RowQuerier
	table   string
	limit   int
	builder *filter.Builder
	logger  *slog.Logger

	// schema of the last non-empty result, used to sort by typed values
	mu     sync.Mutex
	schema models.Schema
}

var _ notion.Querier = (*Store)(nil)

// New creates a store reading table through db
func New(db RowQuerier, table string, limit int, logger *slog.Logger) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		db:      db,
		table:   table,
		limit:   limit,
		builder: filter.NewBuilder("properties"),
		logger:  logger,
	}
}

// Query implements notion.Querier
func (s *Store) Query(ctx context.Context, params models.QueryParams) ([]models.Record, error) {
	sql, args, err := s.buildQuery(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to translate filter")
	}
	s.logger.Debug("docstore query", "sql", sql, "args", len(args))

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", s.table)
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		var (
			r     models.Record
			url   *string
			props []byte
		)
		if err := rows.Scan(&r.ID, &r.CreatedTime, &r.LastEditedTime, &url, &props); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		if url != nil {
			r.URL = *url
		}
		r.Properties = map[string]models.PropertyValue{}
		if len(props) > 0 {
			if err := json.Unmarshal(props, &r.Properties); err != nil {
				return nil, errors.Wrapf(err, "failed to decode properties of %s", r.ID)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read rows from %s", s.table)
	}

	if len(records) > 0 {
		s.mu.Lock()
		s.schema = notion.DeriveProperties(records)
		s.mu.Unlock()
	}
	return records, nil
}

func (s *Store) buildQuery(params models.QueryParams) (string, []any, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT id, created_time, last_edited_time, url, properties FROM %s",
		pgx.Identifier(strings.Split(s.table, ".")).Sanitize())

	where, args, err := s.builder.BuildWhere(params.Filter)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		sb.WriteString(" ")
		sb.WriteString(where)
	}

	s.mu.Lock()
	schema := s.schema
	s.mu.Unlock()

	orderBy, orderArgs := s.builder.BuildOrderBy(params.Sorts, schema, len(args)+1)
	if orderBy == "" {
		orderBy = "ORDER BY created_time DESC"
	} else {
		orderBy += ", created_time DESC"
	}
	sb.WriteString(" ")
	sb.WriteString(orderBy)
	args = append(args, orderArgs...)

	args = append(args, s.limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))

	return sb.String(), args, nil
}

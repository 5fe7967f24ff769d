package transport

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLInboxSource reads a transport-owned inbox table over database/sql.
// The cursor is the highest id read. Ids are allocated before commit, so a
// row can become visible below the cursor; every fetch re-reads the last
// lookback ids and relies on the dedup key to absorb rows already ingested.
type SQLInboxSource struct {
	db       *sql.DB
	table    string
	lookback int64
	query    string
}

func NewSQLInboxSource(db *sql.DB, table string, lookback int) (*SQLInboxSource, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, domainerrors.Configuration("invalid inbox table name %q", table)
	}
	if lookback < 0 {
		return nil, domainerrors.Configuration("inbox lookback must not be negative, got %d", lookback)
	}
	return &SQLInboxSource{
		db:       db,
		table:    table,
		lookback: int64(lookback),
		query: fmt.Sprintf(
			"SELECT id, text, source_timestamp, transport_message_id FROM %s WHERE id > $1 ORDER BY id ASC LIMIT $2",
			table,
		),
	}, nil
}

func (s *SQLInboxSource) Name() string { return "sql:" + s.table }

func (s *SQLInboxSource) Fetch(ctx context.Context, cursor string, limit int) ([]entities.RawNotification, error) {
	var after int64
	if cursor != "" {
		v, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, domainerrors.Validation("malformed inbox cursor %q", cursor)
		}
		after = v
	}
	if limit <= 0 {
		limit = 100
	}

	from := after - s.lookback
	if from < 0 {
		from = 0
	}
	rows, err := s.db.QueryContext(ctx, s.query, from, int64(limit)+after-from)
	if err != nil {
		return nil, domainerrors.Transient(fmt.Errorf("query %s: %w", s.table, err))
	}
	defer rows.Close()

	var out []entities.RawNotification
	for rows.Next() {
		var (
			id        int64
			text      string
			ts        time.Time
			messageID sql.NullString
		)
		if err := rows.Scan(&id, &text, &ts, &messageID); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		// Rows re-read below the cursor keep it where it is.
		if id > after {
			after = id
		}
		n := entities.RawNotification{
			Text:            text,
			SourceTimestamp: ts.UTC(),
			Cursor:          strconv.FormatInt(after, 10),
		}
		if messageID.Valid && messageID.String != "" {
			n.TransportMessageID = null.StringFrom(messageID.String)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, domainerrors.Transient(fmt.Errorf("read %s: %w", s.table, err))
	}
	return out, nil
}

package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"proplens/internal/events"
)

// columnar store DDL. The event_data table is the scan target: occurrence
// attributes are repeated on every property row so aggregations run without
// joins. website_event only backs the tag filter; cohort_members mirrors
// the row store's membership table.
var columnarSchema = []string{
	`CREATE TABLE IF NOT EXISTS event_data (
        website_id      String,
        event_id        String,
        session_id      String,
        event_name      String,
        url_path        String,
        url_query       String,
        referrer_path   String,
        referrer_domain String,
        page_title      String,
        browser         String,
        os              String,
        device          String,
        country         String,
        region          String,
        city            String,
        hostname        String,
        data_key        String,
        data_type       UInt8,
        string_value    String,
        date_value      DateTime64(3),
        created_at      DateTime64(3)
    ) ENGINE = MergeTree
    ORDER BY (website_id, created_at, event_name, data_key)`,
	`CREATE TABLE IF NOT EXISTS website_event (
        website_id String,
        event_id   String,
        session_id String,
        event_name String,
        tag        String,
        created_at DateTime64(3)
    ) ENGINE = MergeTree
    ORDER BY (website_id, created_at, event_id)`,
	`CREATE TABLE IF NOT EXISTS cohort_members (
        cohort_id  String,
        session_id String,
        created_at DateTime64(3)
    ) ENGINE = MergeTree
    ORDER BY (cohort_id, session_id)`,
}

// ConnectColumnar opens the ClickHouse connection from its DSN, verifies it
// with a ping, and bootstraps the schema.
func ConnectColumnar(ctx context.Context, dsn string, logger *slog.Logger) (driver.Conn, error) {
	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid clickhouse DSN: %w", err)
	}
	options.DialTimeout = 5 * time.Second

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping failed: %w", err)
	}

	for _, ddl := range columnarSchema {
		if err := conn.Exec(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to bootstrap columnar schema: %w", err)
		}
	}

	logger.Info("Columnar store connected", slog.String("database", options.Auth.Database))
	return conn, nil
}

// AppendColumnar writes occurrences and their flattened property rows to the
// columnar store, one batch per table.
func AppendColumnar(ctx context.Context, conn driver.Conn, occs []events.ColumnarWebsiteEvent, rows []events.ColumnarEventData) error {
	if len(rows) > 0 {
		batch, err := conn.PrepareBatch(ctx, "INSERT INTO event_data")
		if err != nil {
			return fmt.Errorf("failed to prepare event_data batch: %w", err)
		}
		for i := range rows {
			if err := batch.AppendStruct(&rows[i]); err != nil {
				return fmt.Errorf("failed to append event_data row: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("failed to send event_data batch: %w", err)
		}
	}

	if len(occs) > 0 {
		batch, err := conn.PrepareBatch(ctx, "INSERT INTO website_event")
		if err != nil {
			return fmt.Errorf("failed to prepare website_event batch: %w", err)
		}
		for i := range occs {
			if err := batch.AppendStruct(&occs[i]); err != nil {
				return fmt.Errorf("failed to append website_event row: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("failed to send website_event batch: %w", err)
		}
	}

	return nil
}

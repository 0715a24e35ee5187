package sources

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// PostgresSource reads knowledge content directly from a PostgreSQL
// database. All public base tables are dumped into the section format,
// one section per table.
type PostgresSource struct {
	pool     *pgxpool.Pool
	rowLimit int
	logger   arbor.ILogger
}

// NewPostgresSource connects to the database and verifies the connection.
func NewPostgresSource(ctx context.Context, config *common.PostgresConfig, logger arbor.ILogger) (interfaces.KnowledgeSource, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("postgres source requires a connection URL")
	}

	pool, err := pgxpool.New(ctx, config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	rowLimit := config.RowLimit
	if rowLimit <= 0 {
		rowLimit = 100
	}

	logger.Info().Int("row_limit", rowLimit).Msg("Postgres knowledge source connected")

	return &PostgresSource{
		pool:     pool,
		rowLimit: rowLimit,
		logger:   logger,
	}, nil
}

// Name returns the source name used in priority ordering and logs.
func (s *PostgresSource) Name() string {
	return "postgres"
}

// FetchAll dumps every public table into section-formatted text.
func (s *PostgresSource) FetchAll(ctx context.Context) (string, error) {
	tables, err := s.listTables(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}

	var sb strings.Builder
	for _, table := range tables {
		section, err := s.dumpTable(ctx, table)
		if err != nil {
			s.logger.Warn().Str("table", table).Err(err).Msg("Skipping table")
			continue
		}
		if section == "" {
			continue
		}
		sb.WriteString(section)
		sb.WriteString("\n")
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", fmt.Errorf("no readable tables found")
	}
	return content, nil
}

// Close releases the connection pool.
func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresSource) listTables(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (s *PostgresSource) dumpTable(ctx context.Context, table string) (string, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", pgx.Identifier{table}.Sanitize(), s.rowLimit)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	columns := make([]string, 0, len(rows.FieldDescriptions()))
	for _, fd := range rows.FieldDescriptions() {
		columns = append(columns, fd.Name)
	}

	var sb strings.Builder
	sb.WriteString(models.SectionMarker)
	sb.WriteString(strings.ToUpper(table))
	sb.WriteString(" ===\n")

	rowCount := 0
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return "", err
		}
		sb.WriteString(formatRow(columns, values))
		sb.WriteString("\n")
		rowCount++
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if rowCount == 0 {
		return "", nil
	}
	return sb.String(), nil
}

// formatRow renders one record as "col: value | col: value", skipping
// nil and empty values.
func formatRow(columns []string, values []any) string {
	parts := make([]string, 0, len(columns))
	for i, col := range columns {
		if i >= len(values) || values[i] == nil {
			continue
		}
		text := strings.TrimSpace(fmt.Sprintf("%v", values[i]))
		if text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", col, text))
	}
	return strings.Join(parts, " | ")
}

// formatRecord renders a map-shaped record with stable column order.
func formatRecord(record map[string]any) string {
	columns := make([]string, 0, len(record))
	for col := range record {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	values := make([]any, len(columns))
	for i, col := range columns {
		values[i] = record[col]
	}
	return formatRow(columns, values)
}

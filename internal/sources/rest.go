package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// RESTSource reads knowledge content over a PostgREST-style HTTP API
// (Supabase REST). Each configured table becomes one section.
type RESTSource struct {
	baseURL string
	apiKey  string
	tables  []string
	client  *http.Client
	logger  arbor.ILogger
}

// NewRESTSource creates a REST knowledge source.
func NewRESTSource(config *common.RESTConfig, logger arbor.ILogger) (interfaces.KnowledgeSource, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("rest source requires a base URL")
	}
	if len(config.Tables) == 0 {
		return nil, fmt.Errorf("rest source requires at least one table")
	}

	timeout := common.ParseDurationOr(config.Timeout, 10*time.Second)

	return &RESTSource{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		tables:  config.Tables,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Name returns the source name used in priority ordering and logs.
func (s *RESTSource) Name() string {
	return "rest"
}

// FetchAll downloads every configured table. A table that fails or
// comes back empty is skipped; the fetch fails only when nothing at
// all was readable.
func (s *RESTSource) FetchAll(ctx context.Context) (string, error) {
	var sb strings.Builder
	fetched := 0

	for _, table := range s.tables {
		records, err := s.fetchTable(ctx, table)
		if err != nil {
			s.logger.Warn().Str("table", table).Err(err).Msg("Skipping table")
			continue
		}
		if len(records) == 0 {
			continue
		}

		sb.WriteString(models.SectionMarker)
		sb.WriteString(strings.ToUpper(table))
		sb.WriteString(" ===\n")
		for _, record := range records {
			line := formatRecord(record)
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		fetched++
	}

	if fetched == 0 {
		return "", fmt.Errorf("no tables readable from %s", s.baseURL)
	}
	return strings.TrimSpace(sb.String()), nil
}

func (s *RESTSource) fetchTable(ctx context.Context, table string) ([]map[string]any, error) {
	url := fmt.Sprintf("%s/rest/v1/%s?select=*", s.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var records []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return records, nil
}

package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseStore inserts records through the project's PostgREST endpoint
type SupabaseStore struct {
	baseURL string
	apiKey  string
	table   string
	client  *http.Client
}

// NewSupabaseStore creates a store for the receipts table of a Supabase project
func NewSupabaseStore(projectURL, apiKey string) (*SupabaseStore, error) {
	if projectURL == "" || apiKey == "" {
		return nil, fmt.Errorf("%w: store URL and key", ErrMissingStoreConfig)
	}

	u, err := url.Parse(projectURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid store URL %q", projectURL)
	}

	return &SupabaseStore{
		baseURL: strings.TrimSuffix(projectURL, "/"),
		apiKey:  apiKey,
		table:   bucketName,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Insert posts one row. Failures are returned as is; there is no retry.
func (s *SupabaseStore) Insert(ctx context.Context, record Record) error {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, s.table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling supabase: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("supabase insert failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Close is a no-op for the HTTP client
func (s *SupabaseStore) Close() error {
	return nil
}

package branchsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// RestStore talks to a PostgREST style table API (/rest/v1/<table>), as
// exposed by Supabase.
type RestStore struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewRestStore(baseURL string, apiKey string) (*RestStore, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("cloud rest url is empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("cloud rest key is empty")
	}
	return &RestStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func NewRestStoreFromEnv() (*RestStore, error) {
	return NewRestStore(os.Getenv("CLOUD_REST_URL"), os.Getenv("CLOUD_REST_KEY"))
}

// encodeFilters renders filters as PostgREST query parameters:
// column=op.value.
func encodeFilters(filters []Filter) url.Values {
	params := url.Values{}
	for _, f := range filters {
		params.Add(f.Column, string(f.Op)+"."+filterValue(f.Value))
	}
	return params
}

func filterValue(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return "null"
		}
		return t.UTC().Format(time.RFC3339Nano)
	case nil:
		return "null"
	default:
		return fmt.Sprint(t)
	}
}

func (s *RestStore) endpoint(table string, params url.Values) string {
	u := s.baseURL + "/rest/v1/" + url.PathEscape(table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (s *RestStore) do(ctx context.Context, method string, endpoint string, body []byte, prefer string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cloud store error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

func (s *RestStore) Select(ctx context.Context, table string, filters ...Filter) ([]json.RawMessage, error) {
	params := encodeFilters(filters)
	params.Set("select", "*")
	body, err := s.do(ctx, http.MethodGet, s.endpoint(table, params), nil, "")
	if err != nil {
		return nil, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RestStore) Insert(ctx context.Context, table string, row json.RawMessage) error {
	body, err := json.Marshal([]json.RawMessage{row})
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodPost, s.endpoint(table, nil), body, "resolution=merge-duplicates,return=minimal")
	return err
}

func (s *RestStore) Update(ctx context.Context, table string, id string, row json.RawMessage) error {
	params := encodeFilters([]Filter{Eq("id", id)})
	_, err := s.do(ctx, http.MethodPatch, s.endpoint(table, params), row, "return=minimal")
	return err
}

func (s *RestStore) Delete(ctx context.Context, table string, id string) error {
	params := encodeFilters([]Filter{Eq("id", id)})
	_, err := s.do(ctx, http.MethodDelete, s.endpoint(table, params), nil, "return=minimal")
	return err
}

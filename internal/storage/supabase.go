package storage

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

const listPageSize = 1000

// Supabase stores objects through the Supabase Storage REST API in a public
// bucket.
type Supabase struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

func NewSupabase(baseURL, serviceKey, bucket string, httpClient *http.Client) *Supabase {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Supabase{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		serviceKey: strings.TrimSpace(serviceKey),
		bucket:     strings.TrimSpace(bucket),
		httpClient: httpClient,
	}
}

func (s *Supabase) Upload(ctx context.Context, obj Object) (string, error) {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	endpoint := fmt.Sprintf("%s/object/%s/%s", s.baseURL, url.PathEscape(s.bucket), escapeKey(obj.Key))
	body, status, err := s.do(ctx, http.MethodPost, endpoint, bytes.NewReader(obj.Data), map[string]string{
		"Content-Type": contentType,
		"x-upsert":     "false",
	})
	if err != nil {
		return "", err
	}
	if status >= 400 {
		return "", statusError("upload", status, body)
	}
	return s.publicURL(obj.Key), nil
}

func (s *Supabase) Delete(ctx context.Context, objectURL string) error {
	key, ok := s.keyFromURL(objectURL)
	if !ok {
		return fmt.Errorf("storage: %q is not an object of bucket %s", objectURL, s.bucket)
	}
	payload, err := json.Marshal(map[string][]string{"prefixes": {key}})
	if err != nil {
		return fmt.Errorf("marshal delete request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/object/%s", s.baseURL, url.PathEscape(s.bucket))
	body, status, err := s.do(ctx, http.MethodDelete, endpoint, bytes.NewReader(payload), map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}
	if status >= 400 && status != http.StatusNotFound {
		return statusError("delete", status, body)
	}
	return nil
}

type listRequest struct {
	Prefix string     `json:"prefix"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	SortBy listSortBy `json:"sortBy"`
}

type listSortBy struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

type listEntry struct {
	Name      string    `json:"name"`
	ID        *string   `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Supabase) List(ctx context.Context) ([]StoredObject, error) {
	endpoint := fmt.Sprintf("%s/object/list/%s", s.baseURL, url.PathEscape(s.bucket))
	var objects []StoredObject
	for offset := 0; ; offset += listPageSize {
		payload, err := json.Marshal(listRequest{
			Prefix: resumePrefix,
			Limit:  listPageSize,
			Offset: offset,
			SortBy: listSortBy{Column: "created_at", Order: "asc"},
		})
		if err != nil {
			return nil, fmt.Errorf("marshal list request: %w", err)
		}
		body, status, err := s.do(ctx, http.MethodPost, endpoint, bytes.NewReader(payload), map[string]string{"Content-Type": "application/json"})
		if err != nil {
			return nil, err
		}
		if status >= 400 {
			return nil, statusError("list", status, body)
		}
		var entries []listEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, fmt.Errorf("unmarshal list response: %w", err)
		}
		for _, entry := range entries {
			// folders come back without an id
			if entry.ID == nil {
				continue
			}
			key := resumePrefix + "/" + entry.Name
			objects = append(objects, StoredObject{Key: key, URL: s.publicURL(key), CreatedAt: entry.CreatedAt})
		}
		if len(entries) < listPageSize {
			return objects, nil
		}
	}
}

func (s *Supabase) do(ctx context.Context, method, endpoint string, body io.Reader, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("create storage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("storage request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read storage response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

func (s *Supabase) publicURL(key string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", s.baseURL, url.PathEscape(s.bucket), escapeKey(key))
}

func (s *Supabase) keyFromURL(objectURL string) (string, bool) {
	prefix := fmt.Sprintf("%s/object/public/%s/", s.baseURL, url.PathEscape(s.bucket))
	if !strings.HasPrefix(objectURL, prefix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(objectURL, prefix))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

type errorResponse struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func statusError(op string, status int, body []byte) error {
	var parsed errorResponse
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		message = parsed.Message
	}
	if status >= 400 && status < 500 && status != http.StatusUnauthorized && status != http.StatusForbidden && status != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s failed with status %d: %s", ErrRejected, op, status, message)
	}
	return fmt.Errorf("storage: %s failed with status %d: %s", op, status, message)
}

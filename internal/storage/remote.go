package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dgallion1/zimshred/internal/doctree"
)

// RemoteStore talks to an external storage service over HTTP. The service
// owns schema and embedding computation; one PUT carries an article's
// full document and chunk set so the transaction boundary is the request.
type RemoteStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewRemoteStore(baseURL, apiKey string) *RemoteStore {
	return &RemoteStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// articlePayload is the body for PUT /articles/{id}.
type articlePayload struct {
	Document *doctree.ShreddedDocument `json:"document"`
	Chunks   []doctree.Chunk           `json:"chunks"`
}

func (s *RemoteStore) SaveArticle(ctx context.Context, doc *doctree.ShreddedDocument, chunks []doctree.Chunk) error {
	body, err := json.Marshal(articlePayload{Document: doc, Chunks: chunks})
	if err != nil {
		return fmt.Errorf("marshal article: %w", err)
	}

	endpoint := s.baseURL + "/articles/" + url.PathEscape(doc.ArticleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("put article %s: %w", doc.ArticleID, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode >= 500:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &TransientError{Err: fmt.Errorf("put article %s: status %d: %s", doc.ArticleID, resp.StatusCode, string(respBody))}
	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("put article %s: status %d: %s", doc.ArticleID, resp.StatusCode, string(respBody))
	}
}

func (s *RemoteStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// httpClient handles HTTP communication with the service.
type httpClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func newHTTPClient(cfg *clientConfig) *httpClient {
	return &httpClient{
		client:  cfg.httpClient,
		baseURL: cfg.baseURL,
		apiKey:  cfg.apiKey,
	}
}

// get performs a GET request and decodes the JSON response into result.
func (h *httpClient) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	h.setHeaders(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend: do request: %w", err)
	}
	defer resp.Body.Close()
	return h.handleResponse(resp, result)
}

// uploadFile posts the file at filePath as multipart field "file" and
// decodes the JSON response into result. The body is streamed through a
// pipe so large recordings are not held in memory.
func (h *httpClient) uploadFile(ctx context.Context, path, filePath string, result any) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("backend: open upload: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(filePath))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
		errCh <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, pr)
	if err != nil {
		pr.CloseWithError(err)
		<-errCh
		return fmt.Errorf("backend: create request: %w", err)
	}
	h.setHeaders(req)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		<-errCh
		return fmt.Errorf("backend: do request: %w", err)
	}
	defer resp.Body.Close()

	// The server may answer before reading the whole body; unblock the
	// writer before waiting for it.
	pr.CloseWithError(io.ErrClosedPipe)
	writeErr := <-errCh

	if err := h.handleResponse(resp, result); err != nil {
		return err
	}
	if writeErr != nil && writeErr != io.ErrClosedPipe {
		return fmt.Errorf("backend: write upload: %w", writeErr)
	}
	return nil
}

func (h *httpClient) setHeaders(req *http.Request) {
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	req.Header.Set("User-Agent", "biovault-backend-go/1.0")
	req.Header.Set("Accept", "application/json")
}

func (h *httpClient) handleResponse(resp *http.Response, result any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("backend: read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(body, resp.StatusCode)
	}
	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("backend: unmarshal response: %w", err)
		}
	}
	return nil
}

func parseError(body []byte, httpStatus int) error {
	var e Error
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		e.HTTPStatus = httpStatus
		return &e
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(httpStatus)
	}
	return &Error{HTTPStatus: httpStatus, Message: msg}
}

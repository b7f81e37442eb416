package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure HTTPClient implements Client interface.
var _ Client = (*HTTPClient)(nil)

type HTTPClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewHTTPClient(client *http.Client, baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type (
	createFileRequest struct {
		Name string `json:"name"`
	}

	createFileResponse struct {
		FileHandle string `json:"file_handle"`
		UploadURL  string `json:"upload_url"`
	}

	processRequest struct {
		FileHandle string     `json:"file_handle"`
		Output     OutputSpec `json:"output"`
	}

	processResponse struct {
		DownloadURL string `json:"download_url"`
	}
)

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to construct request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call transcoder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("transcoder returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func (c *HTTPClient) CreateFile(ctx context.Context, name string) (*File, error) {
	ctx, span := tracer.Start(ctx, "HTTPClient.CreateFile", trace.WithAttributes(
		attribute.String("file.name", name),
	))
	defer span.End()

	var out createFileResponse
	err := c.do(ctx, http.MethodPost, "/v1/files", createFileRequest{Name: name}, &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create file")
		return nil, err
	}

	span.SetAttributes(attribute.String("file.handle", out.FileHandle))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "created file")
	return &File{
		Handle:    out.FileHandle,
		UploadURL: out.UploadURL,
	}, nil
}

// PutBytes uploads the source bytes straight to the pre-issued URL, not the
// API base, so it skips the JSON helper.
func (c *HTTPClient) PutBytes(ctx context.Context, uploadURL string, body io.Reader, size int64) error {
	ctx, span := tracer.Start(ctx, "HTTPClient.PutBytes", trace.WithAttributes(
		attribute.Int64("upload.size", size),
	))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct request")
		return fmt.Errorf("failed to construct request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put bytes")
		return fmt.Errorf("failed to put bytes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		err := fmt.Errorf("transcoder upload returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put bytes")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "put bytes")
	return nil
}

func (c *HTTPClient) Process(ctx context.Context, handle string, spec OutputSpec) (*Result, error) {
	ctx, span := tracer.Start(ctx, "HTTPClient.Process", trace.WithAttributes(
		attribute.String("file.handle", handle),
	))
	defer span.End()

	var out processResponse
	err := c.do(ctx, http.MethodPost, "/v1/process", processRequest{FileHandle: handle, Output: spec}, &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to process file")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "processed file")
	return &Result{DownloadURL: out.DownloadURL}, nil
}

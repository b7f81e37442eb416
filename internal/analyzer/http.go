package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure HTTPClient implements Client interface.
var _ Client = (*HTTPClient)(nil)

// HTTPClient drives a Gemini-style generative API: a files endpoint for media
// ingest and a per-model generateContent endpoint.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewHTTPClient(client *http.Client, baseURL, apiKey, model string) *HTTPClient {
	return &HTTPClient{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

type (
	fileResource struct {
		Name  string `json:"name"`
		URI   string `json:"uri"`
		State string `json:"state"`
	}

	uploadFileResponse struct {
		File fileResource `json:"file"`
	}

	generatePart struct {
		Text     string            `json:"text,omitempty"`
		FileData *generateFileData `json:"file_data,omitempty"`
	}

	generateFileData struct {
		MimeType string `json:"mime_type"`
		FileURI  string `json:"file_uri"`
	}

	generateContent struct {
		Parts []generatePart `json:"parts"`
	}

	generateRequest struct {
		Contents []generateContent `json:"contents"`
	}

	generateResponse struct {
		Candidates []struct {
			Content generateContent `json:"content"`
		} `json:"candidates"`
	}
)

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to construct request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	return req, nil
}

func (c *HTTPClient) doJSON(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call analyzer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func fileFromResource(res fileResource) *File {
	// resource names come back as "files/<id>"
	id := strings.TrimPrefix(res.Name, "files/")
	return &File{
		ID:    id,
		URI:   res.URI,
		State: FileState(res.State),
	}
}

func (c *HTTPClient) UploadFile(ctx context.Context, name, mimeType string, body io.Reader, size int64) (*File, error) {
	ctx, span := tracer.Start(ctx, "HTTPClient.UploadFile", trace.WithAttributes(
		attribute.String("file.name", name),
		attribute.Int64("file.size", size),
	))
	defer span.End()

	req, err := c.newRequest(ctx, http.MethodPost, "/upload/v1beta/files", body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct request")
		return nil, err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-File-Name", name)

	var out uploadFileResponse
	if err := c.doJSON(req, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload file")
		return nil, err
	}

	file := fileFromResource(out.File)

	span.SetAttributes(attribute.String("file.id", file.ID))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "uploaded file")
	return file, nil
}

func (c *HTTPClient) GetFile(ctx context.Context, id string) (*File, error) {
	ctx, span := tracer.Start(ctx, "HTTPClient.GetFile", trace.WithAttributes(
		attribute.String("file.id", id),
	))
	defer span.End()

	req, err := c.newRequest(ctx, http.MethodGet, "/v1beta/files/"+id, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct request")
		return nil, err
	}

	var out fileResource
	if err := c.doJSON(req, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get file")
		return nil, err
	}

	file := fileFromResource(out)

	span.AddEvent("file_state", trace.WithAttributes(
		attribute.String("state", string(file.State)),
	))

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "got file")
	return file, nil
}

func (c *HTTPClient) generate(ctx context.Context, parts []generatePart) (string, error) {
	raw, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Parts: parts}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1beta/models/"+c.model+":generateContent", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out generateResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}

	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("analyzer returned no candidates")
	}

	var text strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	return text.String(), nil
}

func (c *HTTPClient) Generate(ctx context.Context, prompt string, file *File) (string, error) {
	ctx, span := tracer.Start(ctx, "HTTPClient.Generate", trace.WithAttributes(
		attribute.String("file.id", file.ID),
		attribute.String("model", c.model),
	))
	defer span.End()

	text, err := c.generate(ctx, []generatePart{
		{FileData: &generateFileData{MimeType: "video/mp4", FileURI: file.URI}},
		{Text: prompt},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate")
		return "", err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "generated")
	return text, nil
}

func (c *HTTPClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "HTTPClient.GenerateText", trace.WithAttributes(
		attribute.String("model", c.model),
	))
	defer span.End()

	text, err := c.generate(ctx, []generatePart{{Text: prompt}})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate")
		return "", err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "generated")
	return text, nil
}

func (c *HTTPClient) DeleteFile(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "HTTPClient.DeleteFile", trace.WithAttributes(
		attribute.String("file.id", id),
	))
	defer span.End()

	req, err := c.newRequest(ctx, http.MethodDelete, "/v1beta/files/"+id, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct request")
		return err
	}

	if err := c.doJSON(req, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete file")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "deleted file")
	return nil
}

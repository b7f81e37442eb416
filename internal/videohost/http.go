package videohost

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
	createUploadResponse struct {
		AssetID   string `json:"asset_id"`
		UploadURL string `json:"upload_url"`
	}

	assetStatusResponse struct {
		State       string `json:"state"`
		ErrorDetail string `json:"error_detail"`
	}

	downloadResponse struct {
		URL    string `json:"url"`
		Status string `json:"status"`
	}
)

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to construct request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call video host: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("video host returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

func (c *HTTPClient) CreateDirectUpload(ctx context.Context) (*DirectUpload, error) {
	ctx, span := tracer.Start(ctx, "HTTPClient.CreateDirectUpload")
	defer span.End()

	var out createUploadResponse
	_, err := c.do(ctx, http.MethodPost, "/v1/uploads", map[string]any{}, &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create direct upload")
		return nil, err
	}

	span.SetAttributes(attribute.String("asset.id", out.AssetID))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "created direct upload")
	return &DirectUpload{
		AssetID:   out.AssetID,
		UploadURL: out.UploadURL,
	}, nil
}

func (c *HTTPClient) GetStatus(ctx context.Context, assetID string) (*AssetStatus, error) {
	ctx, span := tracer.Start(ctx, "HTTPClient.GetStatus", trace.WithAttributes(
		attribute.String("asset.id", assetID),
	))
	defer span.End()

	var out assetStatusResponse
	status, err := c.do(ctx, http.MethodGet, "/v1/assets/"+assetID, nil, &out)
	if err != nil {
		if status == http.StatusNotFound {
			span.RecordError(ErrAssetNotFound)
			// ok because the caller treats this as an expected race
			span.SetStatus(codes.Ok, "asset not found")
			return nil, ErrAssetNotFound
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get asset status")
		return nil, err
	}

	span.AddEvent("asset_status", trace.WithAttributes(
		attribute.String("state", out.State),
	))

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "got asset status")
	return &AssetStatus{
		State:       AssetState(out.State),
		ErrorDetail: out.ErrorDetail,
	}, nil
}

func (c *HTTPClient) RequestDownload(ctx context.Context, assetID string) (*Download, error) {
	ctx, span := tracer.Start(ctx, "HTTPClient.RequestDownload", trace.WithAttributes(
		attribute.String("asset.id", assetID),
	))
	defer span.End()

	var out downloadResponse
	_, err := c.do(ctx, http.MethodPost, "/v1/assets/"+assetID+"/downloads", map[string]any{}, &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to request download")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "requested download")
	return &Download{
		URL:   out.URL,
		Ready: out.Status == "ready",
	}, nil
}

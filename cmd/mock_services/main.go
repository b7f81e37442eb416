// Command mock_services runs in-memory stand-ins for the three external
// services the pipeline talks to: the video host, the transcoder, and the
// analyzer. Point the server config at http://localhost:1324 for local
// development without any real accounts.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type asset struct {
	data         []byte
	statusChecks int
}

type services struct {
	mu       sync.Mutex
	baseURL  string
	assets   map[string]*asset
	files    map[string][]byte
	analyzed map[string]int
	// Status checks an asset stays in processing after its upload.
	processingChecks int
}

func newServices(baseURL string, processingChecks int) *services {
	return &services{
		baseURL:          baseURL,
		assets:           map[string]*asset{},
		files:            map[string][]byte{},
		analyzed:         map[string]int{},
		processingChecks: processingChecks,
	}
}

// --- video host ---

func (s *services) createUpload(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.assets[id] = &asset{}

	return c.JSON(http.StatusOK, map[string]string{
		"asset_id":   id,
		"upload_url": s.baseURL + "/video/v1/uploads/" + id,
	})
}

func (s *services) receiveUpload(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[c.Param("asset_id")]
	if !ok {
		return c.NoContent(http.StatusNotFound)
	}
	a.data = body

	return c.NoContent(http.StatusOK)
}

func (s *services) assetStatus(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[c.Param("asset_id")]
	if !ok {
		return c.NoContent(http.StatusNotFound)
	}

	if a.data == nil {
		return c.JSON(http.StatusOK, map[string]string{
			"state":        "processing",
			"error_detail": "",
		})
	}

	a.statusChecks++
	state := "processing"
	if a.statusChecks > s.processingChecks {
		state = "ready"
	}

	return c.JSON(http.StatusOK, map[string]string{
		"state":        state,
		"error_detail": "",
	})
}

func (s *services) requestDownload(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("asset_id")
	if _, ok := s.assets[id]; !ok {
		return c.NoContent(http.StatusNotFound)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"url":    s.baseURL + "/video/v1/assets/" + id + "/source",
		"status": "ready",
	})
}

func (s *services) serveSource(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[c.Param("asset_id")]
	if !ok || a.data == nil {
		return c.NoContent(http.StatusNotFound)
	}

	return c.Blob(http.StatusOK, "video/mp4", a.data)
}

// --- transcoder ---

func (s *services) createFile(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle := uuid.NewString()
	s.files[handle] = nil

	return c.JSON(http.StatusOK, map[string]string{
		"file_handle": handle,
		"upload_url":  s.baseURL + "/transcode/v1/files/" + handle + "/content",
	})
}

func (s *services) receiveFile(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle := c.Param("file_handle")
	if _, ok := s.files[handle]; !ok {
		return c.NoContent(http.StatusNotFound)
	}
	s.files[handle] = body

	return c.NoContent(http.StatusOK)
}

func (s *services) process(c echo.Context) error {
	var req struct {
		FileHandle string `json:"file_handle"`
	}
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[req.FileHandle]; !ok {
		return c.NoContent(http.StatusNotFound)
	}

	// The "derivative" is the source bytes served back as-is.
	return c.JSON(http.StatusOK, map[string]string{
		"download_url": s.baseURL + "/transcode/v1/files/" + req.FileHandle + "/content",
	})
}

func (s *services) serveFile(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.files[c.Param("file_handle")]
	if !ok || data == nil {
		return c.NoContent(http.StatusNotFound)
	}

	return c.Blob(http.StatusOK, "video/mp4", data)
}

// --- analyzer ---

func (s *services) fileResource(id, state string) map[string]any {
	return map[string]any{
		"file": map[string]string{
			"name":  "files/" + id,
			"uri":   s.baseURL + "/analyze/v1beta/files/" + id,
			"state": state,
		},
	}
}

func (s *services) uploadAnalyzerFile(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.analyzed[id] = len(body)

	return c.JSON(http.StatusOK, s.fileResource(id, "PROCESSING"))
}

func (s *services) getAnalyzerFile(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("file_id")
	if _, ok := s.analyzed[id]; !ok {
		return c.NoContent(http.StatusNotFound)
	}

	resource := s.fileResource(id, "ACTIVE")
	return c.JSON(http.StatusOK, resource["file"])
}

func (s *services) deleteAnalyzerFile(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.analyzed, c.Param("file_id"))
	return c.NoContent(http.StatusOK)
}

func (s *services) generateContent(c echo.Context) error {
	var req struct {
		Contents []struct {
			Parts []struct {
				Text     string `json:"text"`
				FileData *struct {
					FileURI string `json:"file_uri"`
				} `json:"file_data"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	scoring := false
	for _, content := range req.Contents {
		for _, part := range content.Parts {
			if part.FileData != nil {
				scoring = true
			}
		}
	}

	text := "Explain a hobby you love to someone who has never heard of it."
	if scoring {
		text = `{"voice_clarity": 74, "confidence": 68, "pacing": 71, "engagement": 77, ` +
			`"feedback": "Strong opening. Slow down in the middle section and hold eye contact."}`
	}

	return c.JSON(http.StatusOK, map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
}

func main() {
	listen := flag.String("listen", ":1324", "listen address")
	baseURL := flag.String("base-url", "http://localhost:1324", "externally visible base URL")
	processingChecks := flag.Int(
		"processing-checks", 1,
		"status checks an uploaded asset stays in processing",
	)
	flag.Parse()

	s := newServices(strings.TrimSuffix(*baseURL, "/"), *processingChecks)

	e := echo.New()
	e.Use(middleware.Logger())

	video := e.Group("/video")
	video.POST("/v1/uploads", s.createUpload)
	video.PUT("/v1/uploads/:asset_id", s.receiveUpload)
	video.GET("/v1/assets/:asset_id", s.assetStatus)
	video.POST("/v1/assets/:asset_id/downloads", s.requestDownload)
	video.GET("/v1/assets/:asset_id/source", s.serveSource)

	transcode := e.Group("/transcode")
	transcode.POST("/v1/files", s.createFile)
	transcode.PUT("/v1/files/:file_handle/content", s.receiveFile)
	transcode.POST("/v1/process", s.process)
	transcode.GET("/v1/files/:file_handle/content", s.serveFile)

	analyze := e.Group("/analyze")
	analyze.POST("/upload/v1beta/files", s.uploadAnalyzerFile)
	analyze.GET("/v1beta/files/:file_id", s.getAnalyzerFile)
	analyze.DELETE("/v1beta/files/:file_id", s.deleteAnalyzerFile)
	analyze.POST("/v1beta/models/:model", s.generateContent)

	fmt.Println("mock services listening on", *listen)
	e.Logger.Fatal(e.Start(*listen))
}

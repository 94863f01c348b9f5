package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/askpdf/internal/models"
)

// apiClient talks to a running askpdf server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(serverURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(serverURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
}

// upload sends files as one corpus and returns its key.
func (c *apiClient) upload(files []string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		part, err := mw.CreateFormFile("files", filepath.Base(path))
		if err != nil {
			return "", err
		}
		if _, err := part.Write(data); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/corpora", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out struct {
		Key string `json:"key"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Key, nil
}

func (c *apiClient) ask(key string, query *models.AskRequest) (*models.AnswerResponse, error) {
	var out models.AnswerResponse
	return &out, c.postJSON(c.corpusURL(key, "/ask"), query, &out)
}

func (c *apiClient) summarize(key string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := c.postJSON(c.corpusURL(key, "/summarize"), nil, &out)
	return out.Summary, err
}

func (c *apiClient) passages(key, query string, limit int) (*models.PassagesResponse, error) {
	q := url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}}
	req, err := http.NewRequest(http.MethodGet, c.corpusURL(key, "/passages")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var out models.PassagesResponse
	return &out, c.do(req, &out)
}

func (c *apiClient) transform(op string, body *models.TransformRequest) (*models.TransformResponse, error) {
	var out models.TransformResponse
	return &out, c.postJSON(c.baseURL+"/"+op, body, &out)
}

func (c *apiClient) chat(body *models.ChatRequest) (string, error) {
	var out models.ChatResponse
	err := c.postJSON(c.baseURL+"/chat", body, &out)
	return out.Reply, err
}

func (c *apiClient) status() (map[string]interface{}, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiClient) corpusURL(key, suffix string) string {
	return c.baseURL + "/corpora/" + url.PathEscape(key) + suffix
}

func (c *apiClient) postJSON(target string, body, out interface{}) error {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, target, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readStdin() (string, error) {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return "", err
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// client.go — HTTP implementation of Store against the creator REST API.
package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds each API request.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps JSON response bodies; asset downloads are not capped.
const maxResponseBytes = 1 << 20

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL       string // e.g. "https://api.irysup.xyz"
	Token         string // sent as a Bearer token when set
	CreatorName   string // sent with font uploads
	CreatorIrysID string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client talks to the creator API.
type Client struct {
	base    *url.URL
	token   string
	creator [2]string
	http    *http.Client
	log     *slog.Logger
}

var _ Store = (*Client)(nil)

// NewClient creates an API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		base:    base,
		token:   cfg.Token,
		creator: [2]string{cfg.CreatorName, cfg.CreatorIrysID},
		http:    hc,
		log:     logger,
	}, nil
}

// UploadImage posts a background image with its metadata.
func (c *Client) UploadImage(ctx context.Context, f File, meta ImageMeta) (ImageUpload, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return ImageUpload{}, fmt.Errorf("encode metadata: %w", err)
	}

	var out ImageUpload
	err = c.postMultipart(ctx, "/creator/images", "image", f, map[string]string{"metadata": string(metaJSON)}, &out)
	if err != nil {
		return ImageUpload{}, err
	}
	if out.ImageURL == "" || out.Filename == "" {
		return ImageUpload{}, &APIError{Message: "invalid server response: missing imageUrl or filename"}
	}
	return out, nil
}

// UploadFont posts a custom font file.
func (c *Client) UploadFont(ctx context.Context, f File) (FontUpload, error) {
	fields := map[string]string{}
	if c.creator[0] != "" {
		fields["creator_name"] = c.creator[0]
		fields["creator_irysId"] = c.creator[1]
	}

	var env envelope[fontData]
	if err := c.postMultipart(ctx, "/creator/fonts", "font", f, fields, &env); err != nil {
		return FontUpload{}, err
	}
	if !env.Success {
		return FontUpload{}, &APIError{Message: env.failure()}
	}
	if env.Data.FontURL == "" {
		return FontUpload{}, &APIError{Message: "invalid server response: missing fontUrl"}
	}
	return FontUpload{FontURL: env.Data.FontURL}, nil
}

// UploadResultImage posts the finalized design as a base64 data URL.
func (c *Client) UploadResultImage(ctx context.Context, designID, dataURL string) (ResultUpload, error) {
	body := map[string]string{"designId": designID, "finalImage": dataURL}

	var env resultEnvelope
	if err := c.postJSON(ctx, "/creator/result", body, &env); err != nil {
		return ResultUpload{}, err
	}
	if !env.Success {
		return ResultUpload{}, &APIError{Message: env.failure()}
	}
	u := env.Data.ResultURL
	if u == "" {
		u = env.ResultURL
	}
	if u == "" {
		return ResultUpload{}, &APIError{Message: "invalid server response: missing resultUrl"}
	}
	return ResultUpload{ResultURL: u}, nil
}

// PublishDesign saves a design record to the creator's collection.
func (c *Client) PublishDesign(ctx context.Context, req PublishRequest) error {
	req.ImageName = strings.TrimSpace(req.ImageName)

	var env envelope[json.RawMessage]
	if err := c.postJSON(ctx, "/creator/upload", req, &env); err != nil {
		return err
	}
	if !env.Success {
		return &APIError{Message: env.failure()}
	}
	return nil
}

// DeleteImage removes an uploaded background image.
func (c *Client) DeleteImage(ctx context.Context, filename string) error {
	return c.delete(ctx, "/creator/images/", filename)
}

// DeleteFont removes an uploaded font.
func (c *Client) DeleteFont(ctx context.Context, filename string) error {
	return c.delete(ctx, "/creator/fonts/", filename)
}

// DeleteResult removes a finalized result image.
func (c *Client) DeleteResult(ctx context.Context, filename string) error {
	return c.delete(ctx, "/creator/result/", filename)
}

// Fetch downloads an asset. Relative URLs resolve against the API base.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := c.base.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse asset URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	return data, nil
}

// ── Transport ──

func (c *Client) delete(ctx context.Context, prefix, filename string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, prefix+url.PathEscape(filename), nil)
	if err != nil {
		return err
	}
	var env envelope[json.RawMessage]
	if err := c.do(req, &env); err != nil {
		return err
	}
	if !env.Success {
		return &APIError{Message: env.failure()}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) postMultipart(ctx context.Context, path, field string, f File, fields map[string]string, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile(field, f.Name)
	if err != nil {
		return fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(fw, f.Content); err != nil {
		return fmt.Errorf("read %s: %w", f.Name, err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("build form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("build form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a JSON body into out. Non-2xx answers become
// *APIError carrying the server's message when it sent one.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.log.Debug("api request", "method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope[json.RawMessage]
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &env) == nil && (env.Message != "" || env.Error != "") {
			msg = env.failure()
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Message: fmt.Sprintf("invalid server response: %v", err)}
	}
	return nil
}

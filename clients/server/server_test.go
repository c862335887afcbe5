package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/xob0t/irysup-creator/pkg/assets"
	"github.com/xob0t/irysup-creator/pkg/design"
	"github.com/xob0t/irysup-creator/pkg/generator"
)

func startServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s := New(opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func newClient(t *testing.T, baseURL, token string) *assets.Client {
	t.Helper()
	c, err := assets.NewClient(assets.ClientConfig{BaseURL: baseURL, Token: token, CreatorName: "ana", CreatorIrysID: "irys42"})
	require.NoError(t, err)
	return c
}

func pngFile(t *testing.T, name string, w, h int) assets.File {
	t.Helper()
	data, err := generator.EncodePNG(generator.NewSolidImage(w, h, color.RGBA{B: 255, A: 255}))
	require.NoError(t, err)
	return assets.File{Name: name, Size: int64(len(data)), Content: bytes.NewReader(data)}
}

func TestSessionLifecycleAgainstServer(t *testing.T) {
	srv, ts := startServer(t, Options{})
	client := newClient(t, ts.URL, "")
	ctx := context.Background()
	sess := assets.NewSession(client, nil)

	bg, err := sess.UploadBackground(ctx, pngFile(t, "bg.png", 64, 32), assets.ImageMeta{Name: "bg.png", Width: 64, Height: 32})
	require.NoError(t, err)
	fetched, err := client.Fetch(ctx, bg.URL)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(fetched))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds())

	_, err = sess.UploadFont(ctx, assets.File{Name: "Go Regular.ttf", Size: int64(len(goregular.TTF)), Content: bytes.NewReader(goregular.TTF)})
	require.NoError(t, err)

	res, err := sess.Finalize(ctx, generator.NewSolidImage(4, 4, color.White), "ana-irys42-1")
	require.NoError(t, err)
	assert.Contains(t, res.URL, "/uploads/result/ana-irys42-1.png")
	assert.Equal(t, 3, srv.AssetCount())

	owned := sess.Owned()
	rec := design.Record{ImageURL: owned.Result, BackgroundURL: owned.Background, FontURL: owned.Font, Text: "hi"}
	require.NoError(t, sess.Publish(ctx, assets.PublishRequest{ImageName: "first", CreatorName: "ana", ImageData: rec}))

	designs := srv.Designs()
	require.Len(t, designs, 1)
	assert.Equal(t, "first", designs[0].ImageName)
	assert.Equal(t, owned.Result, designs[0].ImageData.ImageURL)
	assert.Equal(t, 3, srv.AssetCount(), "published assets stay")
}

func TestDiscardRemovesServerAssets(t *testing.T) {
	srv, ts := startServer(t, Options{})
	client := newClient(t, ts.URL, "")
	ctx := context.Background()
	sess := assets.NewSession(client, nil)

	_, err := sess.UploadBackground(ctx, pngFile(t, "bg.png", 8, 8), assets.ImageMeta{})
	require.NoError(t, err)
	_, err = sess.UploadFont(ctx, assets.File{Name: "a b.ttf", Size: 4, Content: bytes.NewReader([]byte("font"))})
	require.NoError(t, err)
	require.Equal(t, 2, srv.AssetCount())

	sess.Discard(ctx)

	assert.Zero(t, srv.AssetCount())
}

func TestFontNameWithURLMetacharacters(t *testing.T) {
	srv, ts := startServer(t, Options{})
	client := newClient(t, ts.URL, "")
	ctx := context.Background()
	sess := assets.NewSession(client, nil)

	_, err := sess.UploadBackground(ctx, pngFile(t, "bg.png", 4, 4), assets.ImageMeta{})
	require.NoError(t, err)
	font, err := sess.UploadFont(ctx, assets.File{Name: "my#50%?font.ttf", Size: 4, Content: bytes.NewReader([]byte("font"))})
	require.NoError(t, err)
	assert.NotContains(t, font.URL, "#")
	assert.NotContains(t, font.URL, "?")

	data, err := client.Fetch(ctx, font.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("font"), data)

	sess.Discard(ctx)
	assert.Zero(t, srv.AssetCount())
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_50__font.ttf", sanitizeFilename("my#50%?font.ttf"))
	assert.Equal(t, "a_b_c-d.otf", sanitizeFilename("a/b\\c-d.otf"))
	assert.Equal(t, "_.ttf", sanitizeFilename("é.ttf"))
}

func TestDeleteMissingAsset(t *testing.T) {
	_, ts := startServer(t, Options{})
	client := newClient(t, ts.URL, "")

	err := client.DeleteImage(context.Background(), "nope.png")

	var apiErr *assets.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "asset not found", apiErr.Message)
}

func TestTokenRequired(t *testing.T) {
	_, ts := startServer(t, Options{Token: "s3cret"})
	ctx := context.Background()

	_, err := newClient(t, ts.URL, "wrong").UploadImage(ctx, pngFile(t, "bg.png", 2, 2), assets.ImageMeta{})
	var apiErr *assets.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = newClient(t, ts.URL, "s3cret").UploadImage(ctx, pngFile(t, "bg.png", 2, 2), assets.ImageMeta{})
	assert.NoError(t, err)
}

func TestServerRejectsBadFont(t *testing.T) {
	_, ts := startServer(t, Options{})
	client := newClient(t, ts.URL, "")

	_, err := client.UploadFont(context.Background(), assets.File{Name: "virus.exe", Content: bytes.NewReader([]byte("x"))})

	var apiErr *assets.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "unsupported file type")
}

func TestServerRejectsNonPNGResult(t *testing.T) {
	_, ts := startServer(t, Options{})
	client := newClient(t, ts.URL, "")

	_, err := client.UploadResultImage(context.Background(), "d1", "data:image/jpeg;base64,AAAA")

	var apiErr *assets.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "finalImage must be a PNG", apiErr.Message)
}

func TestListDesignsFiltersByCreator(t *testing.T) {
	srv, ts := startServer(t, Options{})
	client := newClient(t, ts.URL, "")
	ctx := context.Background()
	for _, who := range []string{"ana", "bo"} {
		req := assets.PublishRequest{ImageName: who + "-design", CreatorName: who, ImageData: design.Record{ImageURL: "/uploads/result/x.png"}}
		require.NoError(t, client.PublishDesign(ctx, req))
	}
	require.Len(t, srv.Designs(), 2)

	resp, err := http.Get(ts.URL + "/creator/designs?creator=bo")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Success bool        `json:"success"`
		Data    []Published `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "bo-design", body.Data[0].ImageName)
}

func TestRenderEndpoint(t *testing.T) {
	_, ts := startServer(t, Options{})
	client := newClient(t, ts.URL, "")
	ctx := context.Background()

	up, err := client.UploadImage(ctx, pngFile(t, "bg.png", 40, 20), assets.ImageMeta{})
	require.NoError(t, err)

	rec := design.Record{BackgroundURL: up.ImageURL, Text: "Hi", CanvasWidth: 80, CanvasHeight: 40, FontSize: 12, FontColor: "#ff0000"}
	body, err := json.Marshal(rec)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/render", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 40), img.Bounds(), "background scaled to the saved canvas")
}

func TestRenderFormatNegotiation(t *testing.T) {
	_, ts := startServer(t, Options{})
	client := newClient(t, ts.URL, "")
	up, err := client.UploadImage(context.Background(), pngFile(t, "bg.png", 10, 10), assets.ImageMeta{})
	require.NoError(t, err)
	body, err := json.Marshal(design.Record{BackgroundURL: up.ImageURL, Text: "x", FontSize: 8})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/render?format=bmp", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/bmp", resp.Header.Get("Content-Type"))
	img, err := bmp.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), img.Bounds())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/render", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Accept", "image/jpeg")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "image/jpeg", resp2.Header.Get("Content-Type"))
	_, err = jpeg.Decode(resp2.Body)
	assert.NoError(t, err)
}

func TestRenderUnknownBackground(t *testing.T) {
	_, ts := startServer(t, Options{})

	resp, err := http.Post(ts.URL+"/render", "application/json", bytes.NewReader([]byte(`{"backgroundUrl":"https://elsewhere/x.png"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebMux(cfg *Config, errs chan error) *httprouter.Router {
	mux := httprouter.New()

	mux.GET(cfg.prefix+"/", serveHomePage(cfg, errs))
	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg, errs))
	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, errs))
	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))
	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))
	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))
	mux.GET(cfg.prefix+"/qr", serveQR(cfg, errs))

	return mux
}

func get(mux http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStaticRoutes(t *testing.T) {
	cfg := testConfig()
	errs := make(chan error, 8)
	mux := newWebMux(cfg, errs)

	tests := []struct {
		path        string
		status      int
		contentType string
		contains    string
	}{
		{"/", http.StatusOK, "text/html; charset=utf-8", "assets/app.js"},
		{"/assets/app.js", http.StatusOK, "text/javascript; charset=utf-8", "X-Gemini-Key"},
		{"/assets/app.css", http.StatusOK, "text/css; charset=utf-8", ".card"},
		{"/assets/nope.js", http.StatusNotFound, "", ""},
		{"/favicons/favicon.svg", http.StatusOK, "image/svg+xml", "<svg"},
		{"/favicons/missing.png", http.StatusNotFound, "", ""},
		{"/healthz", http.StatusOK, "text/plain; charset=utf-8", "Ok"},
		{"/robots.txt", http.StatusOK, "text/plain; charset=utf-8", "GPTBot"},
		{"/version", http.StatusOK, "text/plain; charset=utf-8", "duelcodex v" + releaseVersion},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(mux, tt.path)

			assert.Equal(t, tt.status, rec.Code)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}

	assert.Empty(t, errs)
}

func TestHomePageHeaders(t *testing.T) {
	cfg := testConfig()
	rec := get(newWebMux(cfg, make(chan error, 1)), "/")

	assert.Contains(t, rec.Header().Get("Permissions-Policy"), "camera=(self)")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "connect-src 'self' ws: wss:")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "blob:")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, sessionCookieName, rec.Result().Cookies()[0].Name)

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	rec = get(newWebMux(cfg, make(chan error, 1)), "/")
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestServeQR(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/duel"

	rec := get(newWebMux(cfg, make(chan error, 1)), "/duel/qr")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1:5555", realIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7:5555", realIP(req))

	req.Header.Set("CF-Connecting-IP", "2001:db8::1")
	assert.Equal(t, "[2001:db8::1]:5555", realIP(req))
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "999 B", humanReadableSize(999))
	assert.Equal(t, "1.5 kB", humanReadableSize(1500))
	assert.Equal(t, "2.0 MB", humanReadableSize(2_000_000))
}

func TestProfileRoutes(t *testing.T) {
	cfg := testConfig()
	mux := httprouter.New()
	registerProfileHandlers(cfg, mux)

	rec := get(mux, "/pprof/goroutine?debug=1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutine")
}

func TestReadPhotoTooLarge(t *testing.T) {
	tests := []struct {
		name          string
		contentLength int64
	}{
		{"declared length", 0},
		{"streamed body", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPredictorFixture(t, replyWith(`[]`))
			f.cfg.maxUpload = 64

			req := f.photoRequest(t, http.MethodPost, "/predictor/scan", "1", pngBytes(t, 64, 64))
			if tt.contentLength != 0 {
				req.ContentLength = tt.contentLength
			}

			rec := f.do(req)

			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "photo_too_large", body.Error)
			assert.Equal(t, "Фото больше 64 B", body.Message)
		})
	}
}

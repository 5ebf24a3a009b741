package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("received: " + string(body)))
}

func TestGzipMiddleware_CompressesResponse(t *testing.T) {
	handler := GzipMiddleware(http.HandlerFunc(echoHandler))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hola"))
	req.Header.Set("Accept-Encoding", "gzip")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	if res.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", res.Header.Get("Content-Encoding"))
	}

	gz, err := gzip.NewReader(res.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer gz.Close()

	body, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "received: hola" {
		t.Fatalf("body = %q", string(body))
	}
}

func TestGzipMiddleware_DecompressesRequest(t *testing.T) {
	handler := GzipMiddleware(http.HandlerFunc(echoHandler))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte("compressed request"))
	_ = gz.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Encoding", "gzip")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if string(body) != "received: compressed request" {
		t.Fatalf("body = %q", string(body))
	}
}

func TestGzipMiddleware_PassThroughWithoutAcceptEncoding(t *testing.T) {
	handler := GzipMiddleware(http.HandlerFunc(echoHandler))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("plain"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	if res.Header.Get("Content-Encoding") == "gzip" {
		t.Fatalf("response must not be compressed without Accept-Encoding")
	}

	body, _ := io.ReadAll(res.Body)
	if string(body) != "received: plain" {
		t.Fatalf("body = %q", string(body))
	}
}

func TestGzipMiddleware_BadCompressedBody(t *testing.T) {
	handler := GzipMiddleware(http.HandlerFunc(echoHandler))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not gzip at all"))
	req.Header.Set("Content-Encoding", "gzip")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

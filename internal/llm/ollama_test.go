package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":"Nintendo Switch OLED","done":true}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "qwen2.5")
	out, err := c.Generate(context.Background(), "identify this")
	require.NoError(t, err)
	require.Equal(t, "Nintendo Switch OLED", out)
}

func TestOllamaGenerateRetriesTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":"YES","done":true}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "qwen2.5")
	out, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "YES", out)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestOllamaGenerateSurfacesModelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error":"model not found"}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "missing-model")
	_, err := c.Generate(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "model not found")
}

func TestOllamaHasNoVision(t *testing.T) {
	c := NewOllamaClient("http://localhost:11434", "qwen2.5")
	_, err := c.GenerateWithImage(context.Background(), "describe", "http://img.example/x.jpg")
	require.ErrorIs(t, err, ErrNoVision)
}

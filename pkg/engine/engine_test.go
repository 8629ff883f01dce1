package engine

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"FramePipeline/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectParsesBoxes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "0.400", r.FormValue("threshold"))
		assert.Equal(t, "true", r.FormValue("keep_aspect_ratio"))
		assert.Equal(t, "10", r.FormValue("top_k"))

		_, _, err := r.FormFile("file")
		assert.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"detections":[{"bbox":[1,2,30,40],"score":0.4},{"bbox":[5,5,9,9],"score":0.9}]}`))
	}))
	defer srv.Close()

	e := New(srv.URL, time.Second)
	got, err := e.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)), Options{
		Threshold:       0.4,
		KeepAspectRatio: true,
		TopK:            10,
	})
	require.NoError(t, err)
	assert.Equal(t, []entity.Detection{
		{Box: entity.Box{X0: 1, Y0: 2, X1: 30, Y1: 40}, Score: 0.4},
		{Box: entity.Box{X0: 5, Y0: 5, X1: 9, Y1: 9}, Score: 0.9},
	}, got)
}

func TestDetectServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)), Options{TopK: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

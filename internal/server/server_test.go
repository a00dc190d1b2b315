package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/drakos74/planet-vision/internal/export"
	"github.com/drakos74/planet-vision/internal/net"
	"github.com/stretchr/testify/assert"
)

const testImageSize = 8

func testServer(t *testing.T) *Server {
	t.Helper()

	config := net.NewConfig(testImageSize)
	config.Filters = 4
	config.Hidden = 16
	network := net.New(config)

	registry := export.NewRegistry(t.TempDir())
	_, err := registry.Export("amazon", network)
	assert.NoError(t, err)

	s := NewServer("vision", 8501, 0.5)
	assert.NoError(t, s.Load(registry, "amazon"))
	return s
}

func instance(v float64) []float64 {
	pixels := make([]float64, testImageSize*testImageSize*3)
	for i := range pixels {
		pixels[i] = v
	}
	return pixels
}

func TestServer_Predict(t *testing.T) {

	router := testServer(t).Router()

	body, err := json.Marshal(PredictRequest{Instances: [][]float64{instance(0.2), instance(0.8)}})
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/models/amazon:predict", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)

	var response PredictResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, len(response.Predictions))

	for _, prediction := range response.Predictions {
		assert.Equal(t, 4, len(prediction.Weather))
		assert.Equal(t, 13, len(prediction.Ground))
		assert.NotEmpty(t, prediction.WeatherLabel)
		sum := 0.0
		for _, w := range prediction.Weather {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-6)
		for _, tag := range prediction.GroundTags {
			assert.True(t, prediction.GroundScores[tag] >= 0.5)
		}
	}
}

func TestServer_PredictErrors(t *testing.T) {

	type test struct {
		path string
		body string
		code int
	}

	tests := map[string]test{
		"unknown-model": {
			path: "/v1/models/missing:predict",
			body: fmt.Sprintf(`{"instances":[%s]}`, pixelsJSON(t, instance(0.5))),
			code: http.StatusNotFound,
		},
		"malformed-body": {
			path: "/v1/models/amazon:predict",
			body: `{"instances": not-json`,
			code: http.StatusBadRequest,
		},
		"no-instances": {
			path: "/v1/models/amazon:predict",
			body: `{"instances":[]}`,
			code: http.StatusBadRequest,
		},
		"wrong-tensor-size": {
			path: "/v1/models/amazon:predict",
			body: `{"instances":[[0.1,0.2,0.3]]}`,
			code: http.StatusBadRequest,
		},
	}

	router := testServer(t).Router()

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, bytes.NewReader([]byte(tt.body))))
			assert.Equal(t, tt.code, w.Code)

			var response map[string]string
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.NotEmpty(t, response["error"])
		})
	}
}

func TestServer_ConcurrentPredict(t *testing.T) {

	router := testServer(t).Router()

	body, err := json.Marshal(PredictRequest{Instances: [][]float64{instance(0.4)}})
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/models/amazon:predict", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)
	expected := w.Body.String()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				w := httptest.NewRecorder()
				router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/models/amazon:predict", bytes.NewReader(body)))
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, expected, w.Body.String())
			}
		}()
	}
	wg.Wait()
}

func TestServer_Status(t *testing.T) {

	router := testServer(t).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models/amazon", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var status ModelStatus
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "amazon", status.Name)
	assert.Equal(t, 1, len(status.Versions))
	assert.Equal(t, 1, status.Versions[0].Version)
	assert.Equal(t, "AVAILABLE", status.Versions[0].State)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Metadata(t *testing.T) {

	router := testServer(t).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models/amazon/metadata", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var metadata Metadata
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &metadata))
	assert.Equal(t, "amazon", metadata.Name)
	assert.Equal(t, export.PredictMethod, metadata.Signature.Method)
	assert.Equal(t, []int{-1, testImageSize * testImageSize * 3}, metadata.Signature.Inputs[0].Shape)
}

func TestServer_Health(t *testing.T) {

	router := testServer(t).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"status":"ok"}`, w.Body.String())
}

func pixelsJSON(t *testing.T, pixels []float64) string {
	t.Helper()
	b, err := json.Marshal(pixels)
	assert.NoError(t, err)
	return string(b)
}

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/drakos74/planet-vision/internal/export"
	"github.com/drakos74/planet-vision/internal/metrics"
	"github.com/drakos74/planet-vision/internal/model"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const stateAvailable = "AVAILABLE"

// Handler produces a response body and a status code for a request.
type Handler func(r *http.Request) ([]byte, int, error)

// Server answers prediction requests for the loaded models.
type Server struct {
	name      string
	port      int
	threshold float64
	models    map[string]*servable
}

// NewServer creates a serving instance on the given port.
// threshold is the decision cut for the multi-label head.
func NewServer(name string, port int, threshold float64) *Server {
	return &Server{
		name:      name,
		port:      port,
		threshold: threshold,
		models:    make(map[string]*servable),
	}
}

// Load resolves the latest export of the named model from the registry
// and makes it servable.
func (s *Server) Load(registry *export.Registry, name string) error {
	network, version, err := registry.LoadLatest(name)
	if err != nil {
		return fmt.Errorf("could not load model '%s': %w", name, err)
	}
	signature, err := registry.Signature(name, version)
	if err != nil {
		return fmt.Errorf("could not load signature for '%s': %w", name, err)
	}
	s.models[name] = &servable{
		name:      name,
		version:   version,
		network:   network,
		signature: signature,
	}
	log.Info().
		Str("model", name).
		Int("version", version).
		Msg("model loaded")
	return nil
}

// Router builds the http routing table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/v1/models/{name:[a-zA-Z0-9_.-]+}:predict", s.handle(s.predict)).Methods(http.MethodPost)
	router.HandleFunc("/v1/models/{name:[a-zA-Z0-9_.-]+}/metadata", s.handle(s.metadata)).Methods(http.MethodGet)
	router.HandleFunc("/v1/models/{name:[a-zA-Z0-9_.-]+}", s.handle(s.status)).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handle(s.health)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())
	return router
}

// Run starts the server and blocks.
func (s *Server) Run() error {
	log.Warn().Str("server", s.name).Int("port", s.port).Msg("starting server")
	if err := http.ListenAndServe(fmt.Sprintf(":%d", s.port), s.Router()); err != nil {
		return fmt.Errorf("could not start model server: %w", err)
	}
	return nil
}

func (s *Server) handle(handler Handler) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		b, code, err := handler(r)
		if err != nil {
			log.Error().Err(err).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("code", code).
				Msg("request failed")
			b, _ = json.Marshal(map[string]string{"error": err.Error()})
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if _, err := w.Write(b); err != nil {
			log.Error().Err(err).Msg("could not write response")
		}
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("code", code).
			Float64("duration", time.Since(started).Seconds()).
			Msg("request")
	}
}

func (s *Server) predict(r *http.Request) ([]byte, int, error) {
	started := time.Now()
	name := mux.Vars(r)["name"]

	sv, ok := s.models[name]
	if !ok {
		metrics.Observer.IncrementPredictions(name, strconv.Itoa(http.StatusNotFound))
		return nil, http.StatusNotFound, fmt.Errorf("model '%s' not found", name)
	}

	var request PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		metrics.Observer.IncrementPredictions(name, strconv.Itoa(http.StatusBadRequest))
		return nil, http.StatusBadRequest, fmt.Errorf("could not decode request: %w", err)
	}
	if len(request.Instances) == 0 {
		metrics.Observer.IncrementPredictions(name, strconv.Itoa(http.StatusBadRequest))
		return nil, http.StatusBadRequest, fmt.Errorf("no instances in request")
	}

	predictions := make([]model.Prediction, len(request.Instances))
	for i, instance := range request.Instances {
		weather, ground, err := sv.network.Predict(instance)
		if err != nil {
			metrics.Observer.IncrementPredictions(name, strconv.Itoa(http.StatusBadRequest))
			return nil, http.StatusBadRequest, fmt.Errorf("instance %d: %w", i, err)
		}
		predictions[i] = model.NewPrediction(weather, ground, s.threshold)
	}

	b, err := json.Marshal(PredictResponse{Predictions: predictions})
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("could not encode response: %w", err)
	}

	metrics.Observer.IncrementPredictions(name, strconv.Itoa(http.StatusOK))
	metrics.Observer.ObserveLatency(time.Since(started))
	return b, http.StatusOK, nil
}

func (s *Server) status(r *http.Request) ([]byte, int, error) {
	name := mux.Vars(r)["name"]
	sv, ok := s.models[name]
	if !ok {
		return nil, http.StatusNotFound, fmt.Errorf("model '%s' not found", name)
	}
	b, err := json.Marshal(ModelStatus{
		Name: name,
		Versions: []VersionStatus{
			{Version: sv.version, State: stateAvailable},
		},
	})
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return b, http.StatusOK, nil
}

func (s *Server) metadata(r *http.Request) ([]byte, int, error) {
	name := mux.Vars(r)["name"]
	sv, ok := s.models[name]
	if !ok {
		return nil, http.StatusNotFound, fmt.Errorf("model '%s' not found", name)
	}
	b, err := json.Marshal(Metadata{
		Name:      name,
		Version:   sv.version,
		Signature: sv.signature,
	})
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return b, http.StatusOK, nil
}

func (s *Server) health(r *http.Request) ([]byte, int, error) {
	return []byte(`{"status":"ok"}`), http.StatusOK, nil
}

package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

type segmentFlag struct {
	Name     string     `json:"name"`
	Active   [][2]int64 `json:"active"`
	Coverage [][2]int64 `json:"coverage"`
}

type segmentDocument struct {
	Instrument string        `json:"instrument"`
	Span       [2]int64      `json:"span"`
	Flags      []segmentFlag `json:"flags"`
}

// Canned flag data around the start of the O3 observing run.
var documents = map[string]segmentDocument{
	"H1": {
		Instrument: "H1",
		Span:       [2]int64{1238166018, 1238169618},
		Flags: []segmentFlag{
			{
				Name:     "H1:DMT-OVERFLOW:1",
				Active:   [][2]int64{{1238166100, 1238166160}, {1238167000, 1238167010}},
				Coverage: [][2]int64{{1238166018, 1238169618}},
			},
			{
				Name:     "H1:SUS-SCATTERED_LIGHT:2",
				Active:   [][2]int64{{1238168000, 1238168300}},
				Coverage: [][2]int64{{1238166018, 1238169618}},
			},
		},
	},
	"L1": {
		Instrument: "L1",
		Span:       [2]int64{1238166018, 1238169618},
		Flags: []segmentFlag{
			{
				Name:     "L1:ODC-MASTER:1",
				Active:   [][2]int64{{1238166500, 1238166620}},
				Coverage: [][2]int64{{1238166018, 1238169000}},
			},
		},
	},
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/segments/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		instrument := strings.TrimPrefix(r.URL.Path, "/segments/")
		doc, ok := documents[instrument]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("unknown instrument"))
			return
		}
		writeJSON(w, doc)
	})

	logger := log.New(log.Writer(), "segdb-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8090",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8090")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

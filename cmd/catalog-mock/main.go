// Command catalog-mock serves a fixed poster/genre catalog for local development.
package main

import (
	_ "embed"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/movie-spaces/internal/logging"
)

//go:embed catalog.json
var defaultCatalog []byte

type catalogEntry struct {
	Title      string   `json:"title"`
	Genre      *string  `json:"genre"`
	PosterURL  *string  `json:"posterUrl"`
	LeadActors []string `json:"leadActors"`
}

func main() {
	var (
		port   = flag.String("port", "9099", "port to listen on")
		data   = flag.String("data", "", "path to catalog data file (defaults to the built-in set)")
		apiKey = flag.String("api-key", "", "require this X-API-Key when set")
		level  = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logging.Init(logging.Config{Level: *level, Format: "console", Output: os.Stderr})
	logger := logging.Component("catalog-mock")

	file := defaultCatalog
	if *data != "" {
		var err error
		if file, err = os.ReadFile(*data); err != nil {
			logger.Fatal().Err(err).Msg("read mock data")
		}
	}

	var payload map[string]catalogEntry
	if err := json.Unmarshal(file, &payload); err != nil {
		logger.Fatal().Err(err).Msg("parse mock data")
	}
	byTitle := make(map[string]catalogEntry, len(payload))
	for title, entry := range payload {
		byTitle[strings.ToLower(title)] = entry
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/catalog", func(w http.ResponseWriter, r *http.Request) {
		if *apiKey != "" && r.Header.Get("X-API-Key") != *apiKey {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		title := r.URL.Query().Get("title")
		entry, ok := byTitle[strings.ToLower(strings.TrimSpace(title))]
		logger.Debug().Str("title", title).Bool("hit", ok).Msg("lookup")
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entry); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", srv.Addr).Int("entries", len(byTitle)).Msg("mock catalog listening")
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

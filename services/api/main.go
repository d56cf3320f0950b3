// Package api is a service providing an HTTP API to run node commands.
//
// The endpoints supported are:
//
// http://localhost:5000/run?command=openPorts&arguments=1&arguments=2 - run a command
//
// POST http://localhost:5000/run?command=readSensors with a JSON array body - run a command with the body as arguments
//
// http://localhost:5000/status - node id, uptime and the commands available
//
// ws://localhost:5000/terminal - run commands interactively, streaming their logs
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tamas-pataky/cultiva-node/services"
	"github.com/tamas-pataky/cultiva-node/util"
)

// Service api
type Service struct {
	Addr     string
	Node     string
	Commands services.Commands

	started time.Time
}

// ID of the service
func (service *Service) ID() string {
	return "api"
}

func errorResponse(w http.ResponseWriter, status int, err error) {
	http.Error(w, err.Error(), status)
}

func jsonResponse(w http.ResponseWriter, obj interface{}) {
	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	if err := enc.Encode(obj); err != nil {
		errorResponse(w, http.StatusInternalServerError, err)
	}
}

func (service *Service) apiIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "text/html")
	fmt.Fprintf(w, "<html>Cultiva node %s is listening</html>", service.Node)
}

// toArguments turns a decoded JSON body into command arguments.
func toArguments(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		ret := make([]string, 0, len(t))
		for _, item := range t {
			ret = append(ret, toArguments(item)...)
		}
		return ret
	case string:
		return []string{t}
	default:
		return []string{fmt.Sprint(t)}
	}
}

func (service *Service) apiRun(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	arguments := q["arguments"]

	if r.Method == http.MethodPost {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, err)
			return
		}
		var decoded interface{}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &decoded); err != nil {
				errorResponse(w, http.StatusBadRequest, errors.Wrap(err, "arguments must be JSON"))
				return
			}
		}
		arguments = toArguments(decoded)
	}

	logger := log.With().Str("module", "CommandRunner").Logger()
	result := service.Commands.Run(logger.WithContext(r.Context()), q.Get("command"), arguments)
	jsonResponse(w, result)
}

type status struct {
	Node     string   `json:"node"`
	Uptime   string   `json:"uptime"`
	Commands []string `json:"commands"`
}

func (service *Service) apiStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, status{
		Node:     service.Node,
		Uptime:   util.ShortDuration(time.Since(service.started)),
		Commands: service.Commands.Names(),
	})
}

// Router returns the api routes, allowing cross origin requests as the
// hub's web client is served from elsewhere.
func (service *Service) Router() http.Handler {
	if service.started.IsZero() {
		service.started = time.Now()
	}
	router := mux.NewRouter()
	router.Path("/").HandlerFunc(service.apiIndex)
	router.Path("/run").Methods(http.MethodGet, http.MethodPost).HandlerFunc(service.apiRun)
	router.Path("/status").Methods(http.MethodGet).HandlerFunc(service.apiStatus)
	router.Path("/terminal").HandlerFunc(service.apiTerminal)
	router.Use(loggingMiddleware)

	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})(router)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("method", r.Method).Str("uri", r.RequestURI).Msg("request")
		next.ServeHTTP(w, r)
	})
}

// Run the service until ctx is cancelled.
func (service *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              service.Addr,
		Handler:           service.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdown); err != nil {
			log.Warn().Err(err).Msg("api shutdown")
		}
	}()

	log.Info().Msgf("Listening on %s", service.Addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

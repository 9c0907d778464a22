// Package apitest runs an in-process fake of the market service for tests.
// Every route serves a canned payload unless a test replaces it, and
// responses for a given symbol can be held back to simulate slow calls.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/gorilla/mux"
)

// Route names one of the four service endpoints.
type Route string

const (
	RouteQuote    Route = "quote"
	RouteHistory  Route = "history"
	RouteInsights Route = "insights"
	RoutePredict  Route = "predict"
)

// Responder writes the response for one request.
type Responder func(w http.ResponseWriter, r *http.Request, symbol string)

// Call records one request received by the fake.
type Call struct {
	Route  Route
	Symbol string
	Query  url.Values
}

type holdKey struct {
	route  Route
	symbol string
}

// Server is a fake market service backed by httptest.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[Route]Responder
	holds  map[holdKey]chan struct{}
	calls  []Call
}

// New starts a fake service that answers every route with the default
// fixtures. The server is closed automatically when tb finishes.
func New(tb interface{ Cleanup(func()) }) *Server {
	s := &Server{
		routes: map[Route]Responder{
			RouteQuote:    JSON(http.StatusOK, func(sym string) any { return QuoteFixture(sym) }),
			RouteHistory:  JSON(http.StatusOK, func(sym string) any { return HistoryFixture() }),
			RouteInsights: JSON(http.StatusOK, func(sym string) any { return InsightFixture(sym) }),
			RoutePredict:  JSON(http.StatusOK, func(sym string) any { return PredictionFixture(sym) }),
		},
		holds: make(map[holdKey]chan struct{}),
	}
	s.Server = httptest.NewServer(s.router())
	tb.Cleanup(s.Close)
	// Cleanups run last-in first-out: open gates before Close waits on handlers.
	tb.Cleanup(s.releaseAll)
	return s
}

func (s *Server) releaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, gate := range s.holds {
		close(gate)
		delete(s.holds, key)
	}
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.UseEncodedPath()

	api := r.PathPrefix("/api/v1/market").Subrouter()
	api.HandleFunc("/stocks/{symbol}", s.serve(RouteQuote)).Methods(http.MethodGet)
	api.HandleFunc("/stocks/{symbol}/data", s.serve(RouteHistory)).Methods(http.MethodGet)
	api.HandleFunc("/insights/{symbol}", s.serve(RouteInsights)).Methods(http.MethodPost)
	api.HandleFunc("/predict/{symbol}", s.serve(RoutePredict)).Methods(http.MethodPost)
	return r
}

func (s *Server) serve(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol, err := url.PathUnescape(mux.Vars(r)["symbol"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.calls = append(s.calls, Call{Route: route, Symbol: symbol, Query: r.URL.Query()})
		respond := s.routes[route]
		gate := s.holds[holdKey{route: route, symbol: symbol}]
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		respond(w, r, symbol)
	}
}

// Handle replaces the responder for a route.
func (s *Server) Handle(route Route, fn Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route] = fn
}

// Fail makes a route answer with the given status and a FastAPI-style
// {"detail": ...} body.
func (s *Server) Fail(route Route, status int, detail string) {
	s.Handle(route, JSON(status, func(string) any { return map[string]string{"detail": detail} }))
}

// Raw makes a route answer 200 with the given body verbatim.
func (s *Server) Raw(route Route, body string) {
	s.Handle(route, func(w http.ResponseWriter, _ *http.Request, _ string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

// Hold blocks responses on route for symbol until the returned release
// function is called. Requests whose client goes away return early.
func (s *Server) Hold(route Route, symbol string) (release func()) {
	gate := make(chan struct{})
	key := holdKey{route: route, symbol: symbol}

	s.mu.Lock()
	s.holds[key] = gate
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.holds[key] == gate {
			delete(s.holds, key)
			close(gate)
		}
	}
}

// Calls returns the requests received so far, optionally filtered by route.
func (s *Server) Calls(routes ...Route) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(routes) == 0 {
		out := make([]Call, len(s.calls))
		copy(out, s.calls)
		return out
	}
	var out []Call
	for _, c := range s.calls {
		for _, r := range routes {
			if c.Route == r {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// JSON returns a Responder that encodes body(symbol) with the given status.
func JSON(status int, body func(symbol string) any) Responder {
	return func(w http.ResponseWriter, _ *http.Request, symbol string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body(symbol))
	}
}

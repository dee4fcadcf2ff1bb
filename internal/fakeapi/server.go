// Package fakeapi is an in-memory moneyboard backend for tests and local
// development. It serves the same endpoint shapes as the real backend under
// an /api prefix, issues short-lived HS256 access tokens and rotates refresh
// tokens on every exchange.
package fakeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/tonimelisma/moneyboard/internal/api"
)

// Seeded demo account.
const (
	DemoEmail    = "demo@moneyboard.test"
	DemoPassword = "demo-password"
)

// DefaultAccessTTL is the access token lifetime when Options leaves it zero.
const DefaultAccessTTL = 5 * time.Minute

const dateLayout = "2006-01-02"

// Options configures a Server. The zero value is usable.
type Options struct {
	AccessTTL time.Duration
	// Secret signs access tokens. A random secret is generated when empty.
	Secret []byte
	// KeepRefresh disables refresh token rotation: the refresh endpoint
	// returns only a new access token.
	KeepRefresh bool
	// NoSeed skips the demo user and its sample data.
	NoSeed bool
	Logger *slog.Logger
}

type userRecord struct {
	api.User
	hash []byte
}

// Server is the fake backend. It is an http.Handler.
type Server struct {
	logger *slog.Logger
	tokens *tokenIssuer
	router *mux.Router

	refreshCalls atomic.Int64
	requests     atomic.Int64

	mu           sync.Mutex
	nextID       int
	users        map[int]*userRecord
	accounts     map[int]*api.Account
	categories   map[int]*api.Category
	transactions map[int]*api.Transaction
	budgets      map[int]*api.Budget
	goals        map[int]*api.Goal
	debts        map[int]*api.Debt
	investments  map[int]*api.Investment
}

// New builds a Server, seeding the demo user unless opts.NoSeed is set.
func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttl := opts.AccessTTL
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}

	tokens, err := newTokenIssuer(opts.Secret, ttl, !opts.KeepRefresh)
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:       logger,
		tokens:       tokens,
		users:        make(map[int]*userRecord),
		accounts:     make(map[int]*api.Account),
		categories:   make(map[int]*api.Category),
		transactions: make(map[int]*api.Transaction),
		budgets:      make(map[int]*api.Budget),
		goals:        make(map[int]*api.Goal),
		debts:        make(map[int]*api.Debt),
		investments:  make(map[int]*api.Investment),
	}

	s.seedCategories()

	if !opts.NoSeed {
		if err := s.seedDemo(); err != nil {
			return nil, err
		}
	}

	s.router = s.routes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ExpireAccess invalidates every access token issued so far. The next
// authenticated request with an old token gets a 401.
func (s *Server) ExpireAccess() {
	s.tokens.expireAccess()
}

// RevokeRefresh invalidates refresh tokens, or all of them when none are given.
func (s *Server) RevokeRefresh(tokens ...string) {
	s.tokens.revoke(tokens...)
}

// RefreshCalls returns how many refresh exchanges the server has handled.
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// Requests returns how many requests the server has handled.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// IssueTokens returns a credential pair for the user with the given email,
// bypassing the password check.
func (s *Server) IssueTokens(email string) (access, refresh string, err error) {
	s.mu.Lock()
	u := s.userByEmail(email)
	s.mu.Unlock()

	if u == nil {
		return "", "", fmt.Errorf("fakeapi: no user %q", email)
	}

	return s.tokens.issuePair(u.ID)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	root := r.PathPrefix("/api").Subrouter()
	root.Use(s.withRequestID, s.withLogging)

	root.HandleFunc("/health/", s.health).Methods(http.MethodGet)
	root.HandleFunc("/auth/login/", s.login).Methods(http.MethodPost)
	root.HandleFunc("/auth/register/", s.register).Methods(http.MethodPost)
	root.HandleFunc("/auth/refresh/", s.refresh).Methods(http.MethodPost)

	authed := root.NewRoute().Subrouter()
	authed.Use(s.withBearer)

	authed.HandleFunc("/auth/user/", s.currentUser).Methods(http.MethodGet)
	authed.HandleFunc("/auth/user/", s.updateProfile).Methods(http.MethodPatch)
	authed.HandleFunc("/auth/change-password/", s.changePassword).Methods(http.MethodPost)

	authed.HandleFunc("/accounts/", s.listAccounts).Methods(http.MethodGet)
	authed.HandleFunc("/accounts/", s.createAccount).Methods(http.MethodPost)
	authed.HandleFunc("/accounts/{id:[0-9]+}/", s.getAccount).Methods(http.MethodGet)
	authed.HandleFunc("/accounts/{id:[0-9]+}/", s.updateAccount).Methods(http.MethodPatch)
	authed.HandleFunc("/accounts/{id:[0-9]+}/", s.deleteAccount).Methods(http.MethodDelete)

	authed.HandleFunc("/categories/", s.listCategories).Methods(http.MethodGet)
	authed.HandleFunc("/categories/", s.createCategory).Methods(http.MethodPost)
	authed.HandleFunc("/categories/{id:[0-9]+}/", s.deleteCategory).Methods(http.MethodDelete)

	authed.HandleFunc("/transactions/", s.listTransactions).Methods(http.MethodGet)
	authed.HandleFunc("/transactions/", s.createTransaction).Methods(http.MethodPost)
	authed.HandleFunc("/transactions/{id:[0-9]+}/", s.updateTransaction).Methods(http.MethodPatch)
	authed.HandleFunc("/transactions/{id:[0-9]+}/", s.deleteTransaction).Methods(http.MethodDelete)

	authed.HandleFunc("/budgets/", s.listBudgets).Methods(http.MethodGet)
	authed.HandleFunc("/budgets/", s.createBudget).Methods(http.MethodPost)
	authed.HandleFunc("/budgets/{id:[0-9]+}/toggle_status/", s.toggleBudget).Methods(http.MethodPost)
	authed.HandleFunc("/budgets/{id:[0-9]+}/", s.deleteBudget).Methods(http.MethodDelete)

	authed.HandleFunc("/goals/", s.listGoals).Methods(http.MethodGet)
	authed.HandleFunc("/goals/", s.createGoal).Methods(http.MethodPost)
	authed.HandleFunc("/goals/{id:[0-9]+}/", s.updateGoal).Methods(http.MethodPatch)
	authed.HandleFunc("/goals/{id:[0-9]+}/", s.deleteGoal).Methods(http.MethodDelete)

	authed.HandleFunc("/debts/", s.listDebts).Methods(http.MethodGet)
	authed.HandleFunc("/debts/", s.createDebt).Methods(http.MethodPost)
	authed.HandleFunc("/debts/{id:[0-9]+}/add_payment/", s.addDebtPayment).Methods(http.MethodPost)
	authed.HandleFunc("/debts/{id:[0-9]+}/", s.deleteDebt).Methods(http.MethodDelete)

	authed.HandleFunc("/investments/", s.listInvestments).Methods(http.MethodGet)
	authed.HandleFunc("/investments/{id:[0-9]+}/contribute/", s.contribute).Methods(http.MethodPost)
	authed.HandleFunc("/investments/{id:[0-9]+}/withdraw/", s.withdraw).Methods(http.MethodPost)

	authed.HandleFunc("/dashboard/", s.dashboard).Methods(http.MethodGet)

	return r
}

// --- middleware ---

type ctxKey int

const userIDKey ctxKey = iota

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug("fakeapi request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", w.Header().Get("X-Request-ID")),
		)
	})
}

func (s *Server) withBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")

			return
		}

		userID, err := s.tokens.verifyAccess(raw)
		if err != nil {
			s.logger.Debug("rejecting access token", slog.String("error", err.Error()))
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})

			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(r *http.Request) int {
	id, _ := r.Context().Value(userIDKey).(int)

	return id
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "JSON parse error: "+err.Error())

		return false
	}

	return true
}

func pathID(r *http.Request) int {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	return id
}

// newID returns the next object ID. Callers hold s.mu.
func (s *Server) newID() int {
	s.nextID++

	return s.nextID
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func today() string {
	return time.Now().Format(dateLayout)
}

func percent(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}

	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

// userByEmail finds a user case-insensitively. Callers hold s.mu.
func (s *Server) userByEmail(email string) *userRecord {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}

	return nil
}

// addUser stores a new user with a bcrypt password hash. Callers hold s.mu.
func (s *Server) addUser(email, password, first, last string) (*userRecord, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("fakeapi: hashing password: %w", err)
	}

	u := &userRecord{
		User: api.User{
			ID:        s.newID(),
			Email:     email,
			Username:  strings.SplitN(email, "@", 2)[0],
			FirstName: first,
			LastName:  last,
			CreatedAt: now(),
		},
		hash: hash,
	}
	s.users[u.ID] = u

	return u, nil
}

package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/reelgate/internal/models"
	"github.com/go-chi/chi/v5"
)

// Codes the fake backend emails for registration and password reset.
const (
	RegisterCode = "246810"
	ResetCode    = "135790"
)

// Recorded is one request seen by a [Backend].
type Recorded struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          []byte
}

type account struct {
	name     string
	passwd   string
	verified bool
	profile  models.UserProfile
}

// Backend is an in-process fake of the movie backend.
//
// Guest tokens are issued as g1, g2, ... and user tokens as u1, u2, .... Movie endpoints answer
// HTTP 401 for any token not currently valid.
type Backend struct {
	Server *httptest.Server

	mu         sync.Mutex
	valid      map[string]bool
	accounts   map[string]*account
	resetCodes map[string]string
	movies     []models.Movie
	requests   []Recorded
	guestGate  chan struct{}
	guestFail  string

	guestCalls atomic.Int64
	userSeq    atomic.Int64
}

// NewBackend starts a [Backend] that is closed when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		valid:      map[string]bool{},
		accounts:   map[string]*account{},
		resetCodes: map[string]string{},
		movies: []models.Movie{
			{ID: 1, Title: "Spirited Away", Category: "animation", Year: 2001, Rating: 8.6},
			{ID: 2, Title: "Heat", Category: "crime", Year: 1995, Rating: 8.3},
			{ID: 3, Title: "Arrival", Category: "sci-fi", Year: 2016, Rating: 7.9},
		},
	}
	b.Server = httptest.NewServer(b.router())
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/guest", b.guest)
		r.Post("/login", b.login)
		r.Post("/register", b.register)
		r.Post("/register/verify", b.registerVerify)
		r.Post("/resetPasswd/sendResetCode", b.sendResetCode)
		r.Post("/resetPasswd/verify", b.resetVerify)
		r.Post("/resetPasswd/setNewPasswd", b.setNewPasswd)
	})

	r.Route("/api/movie", func(r chi.Router) {
		r.Use(b.requireToken)
		r.Get("/list", b.movieList)
		r.Get("/detail", b.movieDetail)
	})
	return r
}

// URL is the base URL clients should use.
func (b *Backend) URL() string { return b.Server.URL }

// GuestCalls counts guest mint requests received.
func (b *Backend) GuestCalls() int { return int(b.guestCalls.Load()) }

// Requests returns every recorded request in arrival order.
func (b *Backend) Requests() []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Recorded(nil), b.requests...)
}

// CountPath counts recorded requests to path.
func (b *Backend) CountPath(path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

// HoldGuest makes guest mint requests block until the returned release func is called.
func (b *Backend) HoldGuest() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.guestGate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// FailGuest makes guest minting answer with a non-success envelope carrying message.
// An empty message restores normal behaviour.
func (b *Backend) FailGuest(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.guestFail = message
}

// Accept marks token as valid.
func (b *Backend) Accept(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.valid[token] = true
}

// Revoke invalidates tokens so the movie endpoints answer 401 for them.
func (b *Backend) Revoke(tokens ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range tokens {
		delete(b.valid, t)
	}
}

// AddUser registers a verified account. passwd is the already encoded password.
func (b *Backend) AddUser(email, name, passwd string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[email] = &account{
		name:     name,
		passwd:   passwd,
		verified: true,
		profile:  models.UserProfile{UserID: int64(len(b.accounts) + 1), Username: name, Balance: 10},
	}
}

// Password returns the stored encoded password for email.
func (b *Backend) Password(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.accounts[email]; ok {
		return a.passwd
	}
	return ""
}

// Verified reports whether the account for email has confirmed its registration.
func (b *Backend) Verified(email string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[email]
	return ok && a.verified
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		b.mu.Lock()
		b.requests = append(b.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-Id"),
			Body:          body,
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		ok := b.valid[r.Header.Get("Authorization")]
		b.mu.Unlock()

		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) guest(w http.ResponseWriter, r *http.Request) {
	n := b.guestCalls.Add(1)

	b.mu.Lock()
	gate, fail := b.guestGate, b.guestFail
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}

	var req models.GuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Fingerprint == "" {
		reply(w, 400, "fingerprint is required", nil)
		return
	}
	if fail != "" {
		reply(w, 500, fail, nil)
		return
	}

	token := fmt.Sprintf("g%d", n)
	b.Accept(token)
	reply(w, models.CodeOK, "ok", models.TokenData{Token: token})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Passwd string `json:"passwd"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reply(w, 400, "malformed request", nil)
		return
	}

	b.mu.Lock()
	a, ok := b.accounts[req.Email]
	b.mu.Unlock()
	if !ok || !a.verified || a.passwd != req.Passwd {
		reply(w, 400, "invalid email or password", nil)
		return
	}

	token := "u" + strconv.FormatInt(b.userSeq.Add(1), 10)
	b.Accept(token)
	reply(w, models.CodeOK, "ok", models.LoginData{Token: token, UserInfo: a.profile})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserName string `json:"userName"`
		Email    string `json:"email"`
		Passwd   string `json:"passwd"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reply(w, 400, "malformed request", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[req.Email]; exists {
		reply(w, 409, "email already registered", nil)
		return
	}
	b.accounts[req.Email] = &account{
		name:    req.UserName,
		passwd:  req.Passwd,
		profile: models.UserProfile{UserID: int64(len(b.accounts) + 1), Username: req.UserName},
	}
	reply(w, models.CodeOK, "verification code sent", nil)
}

func (b *Backend) registerVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[req.Email]
	if !ok || req.Code != RegisterCode {
		reply(w, 400, "invalid verification code", nil)
		return
	}
	a.verified = true
	reply(w, models.CodeOK, "ok", nil)
}

func (b *Backend) sendResetCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[req.Email]; !ok {
		reply(w, 404, "no account for that email", nil)
		return
	}
	b.resetCodes[req.Email] = ResetCode
	reply(w, models.CodeOK, "ok", nil)
}

func (b *Backend) resetVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if code, ok := b.resetCodes[req.Email]; !ok || code != req.Code {
		reply(w, 400, "invalid verification code", nil)
		return
	}
	reply(w, models.CodeOK, "ok", nil)
}

func (b *Backend) setNewPasswd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Code   string `json:"code"`
		Passwd string `json:"passwd"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[req.Email]
	if !ok || b.resetCodes[req.Email] != req.Code {
		reply(w, 400, "verification expired", nil)
		return
	}
	a.passwd = req.Passwd
	delete(b.resetCodes, req.Email)
	reply(w, models.CodeOK, "ok", nil)
}

func (b *Backend) movieList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}

	b.mu.Lock()
	var filtered []models.Movie
	for _, m := range b.movies {
		if c := q.Get("category"); c != "" && m.Category != c {
			continue
		}
		filtered = append(filtered, m)
	}
	b.mu.Unlock()

	start := min((page-1)*size, len(filtered))
	end := min(start+size, len(filtered))
	reply(w, models.CodeOK, "ok", models.MoviePage{Total: len(filtered), List: append([]models.Movie{}, filtered[start:end]...)})
}

func (b *Backend) movieDetail(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.movies {
		if m.ID == id {
			reply(w, models.CodeOK, "ok", m)
			return
		}
	}
	reply(w, 404, "movie not found", nil)
}

func reply(w http.ResponseWriter, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(models.Envelope[any]{Code: code, Message: message, Data: data})
}

// Package session owns the authenticated-session state machine.
//
// States:
//
//	Bootstrapping (loading, no user) -> Anonymous (no user) <-> Authenticated (user)
//
// Session is the only component that writes the token store. Successful
// login and register navigate to the landing route; logout always navigates
// to the login route.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/hafizbahtiar/console/internal/client"
	"github.com/hafizbahtiar/console/internal/model"
	"github.com/hafizbahtiar/console/internal/tokens"
)

const (
	DefaultLandingRoute = "/dashboard"
	DefaultLoginRoute   = "/auth/login"
)

const (
	pathLogin    = "/auth/login"
	pathRegister = "/auth/register"
	pathLogout   = "/auth/logout"
	pathRefresh  = "/auth/refresh"
	pathMe       = "/auth/me"
)

var (
	// ErrAuthFailed wraps failures of login/register that did not come from
	// the backend as an APIError.
	ErrAuthFailed = errors.New("authentication failed")
	ErrNoRefresh  = errors.New("no refresh token")
	// ErrSuperseded is returned by Refresh when the session was logged out
	// or replaced while the exchange was in flight. Its result is dropped.
	ErrSuperseded = errors.New("session changed during refresh")
)

type Phase int

const (
	PhaseBootstrapping Phase = iota
	PhaseAnonymous
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is an immutable snapshot handed to observers.
type State struct {
	User      *model.User
	IsLoading bool
}

func (s State) IsAuthenticated() bool {
	return s.User != nil && !s.IsLoading
}

func (s State) Phase() Phase {
	switch {
	case s.IsLoading:
		return PhaseBootstrapping
	case s.User != nil:
		return PhaseAuthenticated
	default:
		return PhaseAnonymous
	}
}

// Navigator receives the redirects the session issues on auth transitions.
type Navigator interface {
	Navigate(route string)
}

type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

type Option func(*Session)

func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

func WithRoutes(landing, login string) Option {
	return func(s *Session) {
		if landing != "" {
			s.landingRoute = landing
		}
		if login != "" {
			s.loginRoute = login
		}
	}
}

type Session struct {
	api    *client.Client
	tokens *tokens.Store
	nav    Navigator
	log    *slog.Logger

	landingRoute string
	loginRoute   string

	mu        sync.RWMutex
	state     State
	gen       uint64 // bumped whenever the token pair is replaced or destroyed
	observers map[int]func(State)
	nextID    int
	closed    bool
}

// New builds the session and installs it as api's refresher. The initial
// phase is Bootstrapping when a token is already stored, Anonymous otherwise.
func New(api *client.Client, store *tokens.Store, nav Navigator, opts ...Option) *Session {
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}
	s := &Session{
		api:          api,
		tokens:       store,
		nav:          nav,
		log:          slog.Default(),
		landingRoute: DefaultLandingRoute,
		loginRoute:   DefaultLoginRoute,
		observers:    make(map[int]func(State)),
		state:        State{IsLoading: store.HasToken()},
	}
	for _, opt := range opts {
		opt(s)
	}
	api.SetRefresher(s)
	return s
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) User() *model.User {
	return s.State().User
}

func (s *Session) IsAuthenticated() bool {
	return s.State().IsAuthenticated()
}

// Subscribe registers fn for every state change and returns its cancel func.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Close drops all observers; later transitions are no longer published.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.observers = map[int]func(State){}
}

// Bootstrap resolves the initial phase. Without a stored token it returns
// immediately; otherwise it asks the backend who the token belongs to.
func (s *Session) Bootstrap(ctx context.Context) {
	if !s.State().IsLoading {
		return
	}
	gen := s.generation()
	user, err := s.fetchMe(ctx)
	if err != nil {
		s.log.Debug("session bootstrap failed", "err", err)
		s.resetFrom(gen, true)
		return
	}
	s.commit(gen, nil, &State{User: user})
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	req := model.LoginRequest{Email: email, Password: password}
	if err := Validate(req); err != nil {
		return err
	}

	var resp model.AuthResponse
	if err := client.UnwrapInto(ctx, s.api, http.MethodPost, pathLogin, req, &resp); err != nil {
		return authError("login", err)
	}
	return s.establish(ctx, resp)
}

type RegisterInput = model.RegisterRequest

func (s *Session) Register(ctx context.Context, in RegisterInput) error {
	if err := Validate(in); err != nil {
		return err
	}

	var resp model.AuthResponse
	if err := client.UnwrapInto(ctx, s.api, http.MethodPost, pathRegister, in, &resp); err != nil {
		return authError("register", err)
	}
	return s.establish(ctx, resp)
}

// Logout tears the local session down whatever the backend answers.
func (s *Session) Logout(ctx context.Context) {
	refresh := s.tokens.RefreshToken()
	bestEffort(s.log, "logout", func() error {
		return s.api.Post(ctx, pathLogout, model.LogoutRequest{RefreshToken: refresh}, nil)
	})
	s.reset(true)
	s.nav.Navigate(s.loginRoute)
}

// RefreshUser re-fetches the principal. Failure demotes to Anonymous.
func (s *Session) RefreshUser(ctx context.Context) {
	gen := s.generation()
	var user *model.User
	ok := bestEffort(s.log, "refresh user", func() error {
		var err error
		user, err = s.fetchMe(ctx)
		return err
	})
	if !ok {
		s.resetFrom(gen, true)
		return
	}
	s.commit(gen, nil, &State{User: user})
}

// Refresh exchanges the refresh token for a new pair. It is called by the
// client on a 401; on failure the tokens are cleared and the session demoted.
// A result that arrives after Logout or a new login is discarded.
func (s *Session) Refresh(ctx context.Context) error {
	gen := s.generation()
	refresh := s.tokens.RefreshToken()
	if refresh == "" {
		s.resetFrom(gen, false)
		return ErrNoRefresh
	}

	var resp model.AuthResponse
	err := client.UnwrapInto(ctx, s.api, http.MethodPost, pathRefresh, model.RefreshRequest{RefreshToken: refresh}, &resp)
	if err == nil && resp.AccessToken == "" {
		err = fmt.Errorf("refresh response without access token")
	}
	if err != nil {
		if !s.resetFrom(gen, false) {
			return ErrSuperseded
		}
		return err
	}

	newRefresh := resp.RefreshToken
	if newRefresh == "" {
		newRefresh = refresh
	}
	var next *State
	if resp.User != nil {
		next = &State{User: resp.User}
	}
	if !s.commit(gen, func() { s.tokens.SetTokens(resp.AccessToken, newRefresh) }, next) {
		s.log.Debug("late token refresh discarded")
		return ErrSuperseded
	}
	return nil
}

func (s *Session) establish(ctx context.Context, resp model.AuthResponse) error {
	if !resp.Tokens().Complete() {
		return fmt.Errorf("%w: incomplete token pair in response", ErrAuthFailed)
	}
	gen := s.replaceTokens(resp.AccessToken, resp.RefreshToken)

	user := resp.User
	if user == nil {
		var err error
		if user, err = s.fetchMe(ctx); err != nil {
			s.resetFrom(gen, false)
			return authError("load user", err)
		}
	}

	if !s.commit(gen, nil, &State{User: user}) {
		return fmt.Errorf("%w: session changed while signing in", ErrAuthFailed)
	}
	s.nav.Navigate(s.landingRoute)
	return nil
}

func (s *Session) fetchMe(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := client.UnwrapInto(ctx, s.api, http.MethodGet, pathMe, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" && user.Email == "" {
		return nil, fmt.Errorf("empty user in response")
	}
	return &user, nil
}

func (s *Session) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// replaceTokens stores a new pair and starts a generation for it.
func (s *Session) replaceTokens(access, refresh string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.tokens.SetTokens(access, refresh)
	return s.gen
}

// commit applies mutate and publishes next as one step, provided no other
// transition started a new generation since gen was read.
func (s *Session) commit(gen uint64, mutate func(), next *State) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	if mutate != nil {
		mutate()
	}
	var notify []func(State)
	if next != nil {
		notify = s.swapState(*next)
	}
	s.mu.Unlock()

	s.publish(notify, next)
	return true
}

// reset destroys the pair and ends in Anonymous unconditionally.
func (s *Session) reset(publish bool) {
	s.mu.Lock()
	s.resetLocked(publish)
}

// resetFrom is reset for a transition that began at gen; it does nothing
// when a newer generation has taken over. Without publish the state only
// changes if it was not already Anonymous.
func (s *Session) resetFrom(gen uint64, publish bool) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.resetLocked(publish || s.state != State{})
	return true
}

func (s *Session) resetLocked(publish bool) {
	s.gen++
	s.tokens.ClearTokens()
	var notify []func(State)
	if publish {
		notify = s.swapState(State{})
	}
	s.mu.Unlock()

	s.publish(notify, &State{})
}

// swapState installs next and returns the observers to notify. Callers hold mu.
func (s *Session) swapState(next State) []func(State) {
	s.state = next
	if s.closed {
		return nil
	}
	observers := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	return observers
}

func (s *Session) publish(observers []func(State), next *State) {
	for _, fn := range observers {
		fn(*next)
	}
}

// authError passes APIErrors through unchanged so callers can show the
// server's message; everything else is wrapped in ErrAuthFailed.
func authError(op string, err error) error {
	if _, ok := client.AsAPIError(err); ok {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrAuthFailed, op, err)
}

package dispatch

import (
	"io"
	"log/slog"
	"math"

	"github.com/born-ml/xform/internal/tensor"
)

// Config tunes a Session.
type Config struct {
	// Seed seeds the backend's random generator.
	Seed uint64 `json:"seed"`
	// FallbackWarnings logs a warning each time a Batched level falls back
	// to slice-and-stack for a primitive without a batching rule.
	FallbackWarnings bool `json:"fallback_warnings"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`
	// Randomness is the default vmap randomness mode.
	Randomness string `json:"randomness"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		LogLevel:   "info",
		Randomness: "error",
	}
}

// Session owns one level stack and the backend executing unwrapped
// primitives. Every transform runs against a Session.
//
// A Session is not safe for concurrent use; separate sessions are fully
// independent.
type Session struct {
	backend tensor.Backend
	stack   *Stack
	logger  *slog.Logger
	config  Config
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithConfig sets the session configuration.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.config = cfg
	}
}

// NewSession creates a session executing kernels on backend.
func NewSession(backend tensor.Backend, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		stack:   NewStack(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		config:  DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the kernel backend.
func (s *Session) Backend() tensor.Backend {
	return s.backend
}

// LevelStack returns the session's level stack.
func (s *Session) LevelStack() *Stack {
	return s.stack
}

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.config
}

// Push activates a level. Pair every Push with a deferred Pop.
func (s *Session) Push(kind Kind, meta Meta) *Level {
	l := s.stack.Push(kind, meta)
	s.logger.Debug("push level", "level", l, "depth", s.stack.Depth())
	return l
}

// Pop deactivates l, which must be the top level.
func (s *Session) Pop(l *Level) error {
	if err := s.stack.Pop(l); err != nil {
		return err
	}
	s.logger.Debug("pop level", "level", l, "depth", s.stack.Depth())
	return nil
}

// Call runs primitive p on args through every active level.
func (s *Session) Call(p *Primitive, args []*Tensor, params Params) *Tensor {
	return s.dispatch(p, args, params, math.MaxInt)
}

// CallBelow runs p as if only the levels below l existed. Interpreters use
// it to forward a call once they have unwrapped their own payloads.
func (s *Session) CallBelow(l *Level, p *Primitive, args []*Tensor, params Params) *Tensor {
	return s.dispatch(p, args, params, l.ID)
}

// dispatch picks the owner of a call: the highest live level below ceiling
// annotating any argument. Random primitives are also owned by the highest
// Batched level on the stack, since the randomness mode applies even when
// no argument is batched.
func (s *Session) dispatch(p *Primitive, args []*Tensor, params Params, ceiling int) *Tensor {
	stripped := make([]*Tensor, len(args))
	var owner *Level
	for i, a := range args {
		stripped[i] = a.below(ceiling)
		if l := stripped[i].level; l != nil && (owner == nil || l.ID > owner.ID) {
			owner = l
		}
	}
	if p.Random {
		if l := s.stack.topBatched(ceiling); l != nil && (owner == nil || l.ID > owner.ID) {
			owner = l
		}
	}
	if owner == nil {
		return s.run(p, stripped, params)
	}
	return owner.Interp.Process(s, owner, p, stripped, params)
}

// run executes the kernel of p on unwrapped values.
func (s *Session) run(p *Primitive, args []*Tensor, params Params) *Tensor {
	raws := make([]*tensor.RawTensor, len(args))
	for i, a := range args {
		raws[i] = a.base().raw
	}
	out := p.Impl(s.backend, raws, params)
	if p.InPlace {
		return args[0]
	}
	return s.newTensor(out)
}

// NoGrad runs fn with gradient recording disabled on every live reverse
// level. Levels pushed inside fn record as usual; forward-mode levels are
// unaffected.
func (s *Session) NoGrad(fn func() error) error {
	var disabled []*Level
	for _, l := range s.stack.Levels() {
		if l.Kind == Gradient && l.Mode == Reverse && l.RecordsGrad {
			l.RecordsGrad = false
			disabled = append(disabled, l)
		}
	}
	defer func() {
		for _, l := range disabled {
			l.RecordsGrad = true
		}
	}()
	return fn()
}

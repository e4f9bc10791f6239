package dispatch

import (
	"fmt"
	"log/slog"
	"slices"
)

// Kind is the transform kind of a level.
type Kind int

// Level kinds.
const (
	Batched Kind = iota
	Gradient
)

func (k Kind) String() string {
	if k == Batched {
		return "Batched"
	}
	return "Gradient"
}

// Mode selects the differentiation direction of a Gradient level.
type Mode int

// Gradient modes.
const (
	Reverse Mode = iota
	Forward
)

func (m Mode) String() string {
	if m == Forward {
		return "forward"
	}
	return "reverse"
}

// Randomness governs random primitives under a Batched level.
type Randomness int

// Randomness modes.
const (
	RandomnessError Randomness = iota
	RandomnessSame
	RandomnessDifferent
)

// ParseRandomness parses "error", "same" or "different".
func ParseRandomness(s string) (Randomness, error) {
	switch s {
	case "error":
		return RandomnessError, nil
	case "same":
		return RandomnessSame, nil
	case "different":
		return RandomnessDifferent, nil
	}
	return 0, fmt.Errorf("%w: Only allowed values for randomness are 'error', 'different', or 'same'. Got %s",
		ErrInvalidArgument, s)
}

func (r Randomness) String() string {
	switch r {
	case RandomnessSame:
		return "same"
	case RandomnessDifferent:
		return "different"
	}
	return "error"
}

// Interpreter processes primitive calls owned by a level.
//
// args are the call's arguments with dead wrappers and wrappers of
// higher levels stripped; some of them are wrapped at l. An interpreter
// unwraps its own payloads, forwards the call to lower levels with
// Session.CallBelow and wraps the result at l when appropriate.
type Interpreter interface {
	Process(s *Session, l *Level, p *Primitive, args []*Tensor, params Params) *Tensor
}

// Meta is the transform-specific metadata of a level.
type Meta struct {
	Mode        Mode       // Gradient only
	RecordsGrad bool       // Gradient only
	BatchSize   int        // Batched only
	Randomness  Randomness // Batched only
	Interp      Interpreter
}

// Level is one pushed activation of a transform.
type Level struct {
	ID   int
	Kind Kind
	Meta

	alive bool
}

// Alive reports whether the level is still on its stack. Values wrapped at
// a dead level behave as their unwrapped inner value.
func (l *Level) Alive() bool {
	return l.alive
}

func (l *Level) String() string {
	if l.Kind == Batched {
		return fmt.Sprintf("Level(%d, Batched, size=%d, randomness=%s)", l.ID, l.BatchSize, l.Randomness)
	}
	return fmt.Sprintf("Level(%d, Gradient, %s, records_grad=%t)", l.ID, l.Mode, l.RecordsGrad)
}

// LogValue implements slog.LogValuer.
func (l *Level) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", l.ID),
		slog.String("kind", l.Kind.String()),
	)
}

// Stack is the ordered stack of active levels of one Session.
type Stack struct {
	levels []*Level
	nextID int
}

// NewStack returns an empty stack whose first level gets ID 1.
func NewStack() *Stack {
	return &Stack{nextID: 1}
}

// Push activates a new level on top of the stack.
func (st *Stack) Push(kind Kind, meta Meta) *Level {
	l := &Level{
		ID:    st.nextID,
		Kind:  kind,
		Meta:  meta,
		alive: true,
	}
	st.nextID++
	st.levels = append(st.levels, l)
	return l
}

// Pop removes l, which must be the top of the stack, and marks it dead.
func (st *Stack) Pop(l *Level) error {
	top := st.Top()
	if top == nil {
		return fmt.Errorf("%w: popping %v from an empty stack", ErrLevelStack, l)
	}
	if top != l {
		return fmt.Errorf("%w: popping %v but the top is %v", ErrLevelStack, l, top)
	}
	st.levels = st.levels[:len(st.levels)-1]
	l.alive = false
	return nil
}

// Top returns the most recently pushed live level, or nil.
func (st *Stack) Top() *Level {
	if len(st.levels) == 0 {
		return nil
	}
	return st.levels[len(st.levels)-1]
}

// Depth returns the number of live levels.
func (st *Stack) Depth() int {
	return len(st.levels)
}

// Levels returns a copy of the live levels, outermost first.
func (st *Stack) Levels() []*Level {
	return slices.Clone(st.levels)
}

// NextID is the ID the next pushed level will receive.
func (st *Stack) NextID() int {
	return st.nextID
}

// topBatched returns the highest live Batched level with ID below ceiling.
func (st *Stack) topBatched(ceiling int) *Level {
	for i := len(st.levels) - 1; i >= 0; i-- {
		l := st.levels[i]
		if l.ID < ceiling && l.Kind == Batched {
			return l
		}
	}
	return nil
}

package host

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/roach88/civil/internal/engine"
	"github.com/roach88/civil/internal/ir"
)

// ExternFunc answers one foreign call.
type ExternFunc func(args []ir.Value) ([]ir.Value, error)

// Names of the built-in foreign calls.
const (
	FuncRand  = "rand"
	FuncPrint = "print"
	FuncLen   = "len"
)

// seedStream is the PCG stream selector. Only the seed varies per run.
const seedStream = 0x636976696c

// Std is an engine.Host backed by a name to ExternFunc table.
//
// The random source is seeded explicitly, so two runs with the same seed
// and the same types produce the same trace.
type Std struct {
	*engine.Instance

	funcs map[string]ExternFunc
	rng   *rand.Rand
	out   io.Writer
	seed  uint64
}

// Option configures a Std host.
type Option func(*Std)

// WithSeed seeds the rand() built-in. The default seed is 0.
func WithSeed(seed uint64) Option {
	return func(s *Std) {
		s.seed = seed
	}
}

// WithOutput sets where print() writes. The default discards output.
func WithOutput(w io.Writer) Option {
	return func(s *Std) {
		s.out = w
	}
}

// New wraps in with the built-in foreign calls.
func New(in *engine.Instance, opts ...Option) *Std {
	s := &Std{
		Instance: in,
		funcs:    make(map[string]ExternFunc),
		out:      io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, seedStream))

	s.Register(FuncRand, s.randInt)
	s.Register(FuncPrint, s.print)
	s.Register(FuncLen, length)
	return s
}

// Register binds name to fn, replacing any earlier binding.
func (s *Std) Register(name string, fn ExternFunc) {
	s.funcs[name] = fn
}

// Names returns the bound foreign call names in sorted order.
func (s *Std) Names() []string {
	names := make([]string, 0, len(s.funcs))
	for n := range s.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Seed returns the seed of the rand() built-in.
func (s *Std) Seed() uint64 {
	return s.seed
}

// ExternCall implements engine.Host.
func (s *Std) ExternCall(name string, args []ir.Value) ([]ir.Value, error) {
	fn, ok := s.funcs[name]
	if !ok {
		return nil, engine.NewUnboundHostError(name)
	}
	slog.Debug("extern call", "func", name, "args", len(args))
	return fn(args)
}

var _ engine.Host = (*Std)(nil)

// rand(n) returns an integer in [0, n).
func (s *Std) randInt(args []ir.Value) ([]ir.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("rand: got %d arguments, want 1", len(args))
	}
	n, ok := args[0].(ir.Int)
	if !ok {
		return nil, fmt.Errorf("rand: bound must be int, got %s", ir.KindOf(args[0]))
	}
	if n <= 0 {
		return nil, fmt.Errorf("rand: bound must be positive, got %d", n)
	}
	return []ir.Value{ir.Int(s.rng.Int64N(int64(n)))}, nil
}

// print(*args) writes the canonical form of each argument, space
// separated. Strings are written bare.
func (s *Std) print(args []ir.Value) ([]ir.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		if str, ok := a.(ir.String); ok {
			parts[i] = string(str)
			continue
		}
		parts[i] = ir.CanonicalString(a)
	}
	if _, err := fmt.Fprintln(s.out, strings.Join(parts, " ")); err != nil {
		return nil, fmt.Errorf("print: %w", err)
	}
	return nil, nil
}

// len(x) returns the length of a list, an object or a string in runes.
func length(args []ir.Value) ([]ir.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len: got %d arguments, want 1", len(args))
	}
	switch v := args[0].(type) {
	case ir.List:
		return []ir.Value{ir.Int(len(v))}, nil
	case ir.Object:
		return []ir.Value{ir.Int(len(v))}, nil
	case ir.String:
		return []ir.Value{ir.Int(utf8.RuneCountInString(string(v)))}, nil
	default:
		return nil, fmt.Errorf("len: unsupported %s", ir.KindOf(v))
	}
}

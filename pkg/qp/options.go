package qp

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/sot/internal/logging"
	"github.com/aretw0/sot/pkg/domain"
)

const (
	// DefaultNWSR bounds the working set changes of one solve.
	DefaultNWSR = 132
	// DefaultEpsRegularisation scales ReferenceEpsilon into the regularisation term.
	DefaultEpsRegularisation = 2e2
	// ReferenceEpsilon is the machine-level epsilon the regularisation factor multiplies.
	ReferenceEpsilon = 1e-10
	// DefaultInfty is the magnitude beyond which a bound counts as absent.
	DefaultInfty = 1e8
)

// HessianType tells the backend what it may assume about H.
type HessianType int

const (
	HessianUnknown HessianType = iota
	HessianSemidef
	HessianPosdef
	HessianIdentity
)

func (t HessianType) String() string {
	switch t {
	case HessianSemidef:
		return "semidef"
	case HessianPosdef:
		return "posdef"
	case HessianIdentity:
		return "identity"
	default:
		return "unknown"
	}
}

// ParseHessianType maps a configuration string to a HessianType.
func ParseHessianType(s string) (HessianType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return HessianUnknown, nil
	case "semidef", "semidefinite":
		return HessianSemidef, nil
	case "posdef", "positive_definite":
		return HessianPosdef, nil
	case "identity":
		return HessianIdentity, nil
	}
	return HessianUnknown, fmt.Errorf("%w: unknown hessian type %q", domain.ErrValidation, s)
}

// regularised reports whether eps*I is added to H before factorisation.
func (t HessianType) regularised() bool {
	return t == HessianUnknown || t == HessianSemidef
}

// Options are the tunables of a Problem.
type Options struct {
	NWSR              int
	EpsRegularisation float64
	Infty             float64
	HessianType       HessianType
}

// DefaultOptions returns the backend defaults.
func DefaultOptions() Options {
	return Options{
		NWSR:              DefaultNWSR,
		EpsRegularisation: DefaultEpsRegularisation,
		Infty:             DefaultInfty,
		HessianType:       HessianSemidef,
	}
}

// Regularisation returns the eps added to the diagonal of H.
func (o Options) Regularisation() float64 {
	return o.EpsRegularisation * ReferenceEpsilon
}

// Option configures a Problem.
type Option func(*Problem)

// WithNWSR sets the working set change budget per solve.
func WithNWSR(n int) Option {
	return func(p *Problem) {
		p.opts.NWSR = n
	}
}

// WithEpsRegularisation sets the regularisation factor.
func WithEpsRegularisation(f float64) Option {
	return func(p *Problem) {
		p.opts.EpsRegularisation = f
	}
}

// WithInfinity sets the bound magnitude treated as infinite.
func WithInfinity(v float64) Option {
	return func(p *Problem) {
		p.opts.Infty = v
	}
}

// WithHessianType sets the initial Hessian hint.
func WithHessianType(t HessianType) Option {
	return func(p *Problem) {
		p.opts.HessianType = t
	}
}

// WithOptions replaces every tunable at once.
func WithOptions(o Options) Option {
	return func(p *Problem) {
		p.opts = o
	}
}

// WithName labels the problem in logs.
func WithName(name string) Option {
	return func(p *Problem) {
		p.name = name
	}
}

// WithLogger sets the logger used for tier fallbacks and infeasibility dumps.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Problem) {
		p.logger = logger
	}
}

func defaultLogger() *slog.Logger {
	return logging.NewNop()
}

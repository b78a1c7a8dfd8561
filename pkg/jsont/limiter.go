package jsont

import (
	"fmt"
	"math"
)

// DefaultLimitResolution is how many instructions pass between limit checks.
const DefaultLimitResolution = 64

// CodeLimiter is consulted before every executed instruction.
type CodeLimiter interface {
	Check(ctx *Context) error
}

type noopLimiter struct{}

func (noopLimiter) Check(*Context) error { return nil }

// LimitType names the limit that was crossed.
type LimitType int

const (
	LimitSoft LimitType = iota
	LimitHard
)

func (l LimitType) String() string {
	if l == LimitHard {
		return "hard"
	}
	return "soft"
}

// LimitHandler is called once per limit when it is first exceeded. A
// returned error aborts execution.
type LimitHandler func(ctx *Context, limiter *HardSoftCodeLimiter, limit LimitType) error

// HardSoftCodeLimiter counts executed instructions and calls its handler the
// first time the count exceeds the soft and the hard limit. The count is
// only compared every Resolution instructions.
type HardSoftCodeLimiter struct {
	softLimit        int
	hardLimit        int
	resolution       int
	softReached      bool
	hardReached      bool
	handler          LimitHandler
	instructionCount int
}

// LimiterOption configures a HardSoftCodeLimiter.
type LimiterOption func(*HardSoftCodeLimiter)

// WithSoftLimit sets the soft limit. Zero or math.MaxInt disables it.
func WithSoftLimit(n int) LimiterOption {
	return func(l *HardSoftCodeLimiter) { l.softLimit = n }
}

// WithHardLimit sets the hard limit. Zero or math.MaxInt disables it.
func WithHardLimit(n int) LimiterOption {
	return func(l *HardSoftCodeLimiter) { l.hardLimit = n }
}

// WithResolution sets the check interval, at least 1.
func WithResolution(n int) LimiterOption {
	return func(l *HardSoftCodeLimiter) { l.resolution = n }
}

// WithLimitHandler replaces DefaultLimitHandler.
func WithLimitHandler(h LimitHandler) LimiterOption {
	return func(l *HardSoftCodeLimiter) { l.handler = h }
}

// NewHardSoftCodeLimiter creates a limiter. Without options both limits are
// disabled.
func NewHardSoftCodeLimiter(opts ...LimiterOption) *HardSoftCodeLimiter {
	l := &HardSoftCodeLimiter{
		softLimit:  math.MaxInt,
		hardLimit:  math.MaxInt,
		resolution: DefaultLimitResolution,
		handler:    DefaultLimitHandler,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.resolution = max(1, l.resolution)
	if l.softLimit <= 0 || l.softLimit == math.MaxInt {
		l.softLimit = math.MaxInt
		l.softReached = true
	}
	if l.hardLimit <= 0 || l.hardLimit == math.MaxInt {
		l.hardLimit = math.MaxInt
		l.hardReached = true
	}
	if l.handler == nil {
		l.handler = DefaultLimitHandler
	}
	return l
}

func (l *HardSoftCodeLimiter) InstructionCount() int { return l.instructionCount }
func (l *HardSoftCodeLimiter) SoftLimit() int        { return l.softLimit }
func (l *HardSoftCodeLimiter) HardLimit() int        { return l.hardLimit }

// Check counts one instruction.
func (l *HardSoftCodeLimiter) Check(ctx *Context) error {
	l.instructionCount++
	if l.instructionCount%l.resolution != 0 {
		return nil
	}
	if !l.softReached && l.instructionCount > l.softLimit {
		l.softReached = true
		if err := l.handler(ctx, l, LimitSoft); err != nil {
			return err
		}
	}
	if !l.hardReached && l.instructionCount > l.hardLimit {
		l.hardReached = true
		return l.handler(ctx, l, LimitHard)
	}
	return nil
}

// DefaultLimitHandler logs the soft limit and fails with CODE_LIMIT_REACHED
// on the hard limit, regardless of safe execution.
func DefaultLimitHandler(ctx *Context, l *HardSoftCodeLimiter, limit LimitType) error {
	if limit == LimitSoft {
		ctx.Logger().WithFields(Fields{
			"limit":        l.softLimit,
			"instructions": l.instructionCount,
		}).Warn("Soft code limit reached")
		return nil
	}
	info := ctx.Error(CodeLimitReached).
		WithName(limit.String()).
		WithData(fmt.Sprintf("after %d instructions", l.instructionCount))
	return NewCodeExecuteError(info, nil)
}

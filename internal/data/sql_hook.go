package data

import (
	"context"
	"time"

	"github.com/fatih/color"
)

type beginKey struct{}

// Hooks 打印慢 SQL。
type Hooks struct {
	Slow time.Duration
}

func (h *Hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	return context.WithValue(ctx, beginKey{}, time.Now()), nil
}

func (h *Hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	begin, ok := ctx.Value(beginKey{}).(time.Time)
	if !ok {
		return ctx, nil
	}
	slow := h.Slow
	if slow <= 0 {
		slow = 500 * time.Millisecond
	}
	if d := time.Since(begin); d > slow {
		color.Red("%v slow  sql: %s %q .took: %s\n", time.Now().Format(time.RFC3339), query, args, d)
	}
	return ctx, nil
}

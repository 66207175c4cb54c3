// Package pagestate applies fetch results to page-scoped view state.
//
// A fetch either replaces the state wholesale or marks it failed while
// keeping the previous data visible. A fetch whose context was cancelled
// before it finished leaves the state untouched.
package pagestate

import (
	"context"
	"errors"
)

// State is the view state of one data-bearing page region.
type State[T any] struct {
	Data    T      `json:"data"`
	Loaded  bool   `json:"loaded"`
	Failed  bool   `json:"failed,omitempty"`
	Message string `json:"message,omitempty"`
}

// Placeholder reports whether nothing has loaded yet.
func (s State[T]) Placeholder() bool { return !s.Loaded }

// Loaded returns a successfully loaded state holding data.
func Loaded[T any](data T) State[T] {
	return State[T]{Data: data, Loaded: true}
}

// Apply runs fetch under ctx and folds the outcome into prev.
// errMsg maps a failure to the message shown to the user; nil leaves it empty.
func Apply[T any](ctx context.Context, prev State[T], fetch func(context.Context) (T, error), errMsg func(error) string) State[T] {
	data, err := fetch(ctx)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return prev
	}
	if err != nil {
		msg := ""
		if errMsg != nil {
			msg = errMsg(err)
		}
		return Fail(prev, msg)
	}
	return Loaded(data)
}

// Fail marks prev failed with msg, keeping its data.
func Fail[T any](prev State[T], msg string) State[T] {
	prev.Failed = true
	prev.Message = msg
	return prev
}

package task

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"study-stream/internal/helper"
)

// Task is a handle to a unit of work running off the interactive thread.
// It resolves exactly once, to either a value or an error; a panic inside
// the work function is recovered into an error instead of crossing the
// goroutine boundary.
type Task[T any] struct {
	ID    string
	done  chan struct{}
	value T
	err   error
}

// Run starts fn on its own goroutine and returns its handle immediately.
func Run[T any](fn func() (T, error)) *Task[T] {
	id, err := helper.GenerateUUID()
	if err != nil {
		id = "task"
	}
	t := &Task[T]{ID: id, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("task %s panicked: %v", t.ID, r)
				log.Error().Str("task", t.ID).Msgf("Recovered panic: %v", r)
			}
		}()
		t.value, t.err = fn()
	}()
	return t
}

// Wait blocks until the task resolves.
func (t *Task[T]) Wait() (T, error) {
	<-t.done
	return t.value, t.err
}

// Done is closed once the task has resolved.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// OnComplete attaches one completion handler pair; exactly one of the two
// callbacks fires, from a separate goroutine. A caller wanting to cancel
// simply drops the handle and ignores the eventual callback.
func (t *Task[T]) OnComplete(onSuccess func(T), onError func(error)) {
	go func() {
		value, err := t.Wait()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(value)
		}
	}()
}

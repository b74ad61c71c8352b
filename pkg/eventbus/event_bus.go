// Package eventbus dispatches in-process events to handlers whose parameter
// list matches the published arguments.
package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoSubscribers        = errors.New("eventbus: no matching subscribers")
	ErrInvalidHandlerReturn = errors.New("eventbus: invalid handler return signature")

	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// EventBus is the publishing side handed to producers.
type EventBus interface {
	Publish(args ...any)
	PublishE(args ...any) error
	Subscribe(handler any) (unsubscribe func())
	SubscribersCount() int
}

type subscriber struct {
	id uint64
	fn reflect.Value
}

type Bus struct {
	log    *logrus.Entry
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber
}

func New(log *logrus.Logger) *Bus {
	b := &Bus{}
	if log != nil {
		b.log = log.WithField("component", "eventbus")
	}
	return b
}

// MatchSignature reports whether handler can be called with args.
func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func {
		return false
	}
	return matchType(t, args)
}

func matchType(t reflect.Type, args []any) bool {
	if t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		paramType := t.In(i)
		if arg == nil {
			if paramType.Kind() != reflect.Interface && paramType.Kind() != reflect.Ptr {
				return false
			}
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(paramType) {
			return false
		}
	}
	return true
}

// Subscribe registers handler and returns a func that removes it again.
func (b *Bus) Subscribe(handler any) func() {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		panic("eventbus: handler must be a function")
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: v})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) matching(args []any) []subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if matchType(s.fn.Type(), args) {
			out = append(out, s)
		}
	}
	return out
}

func values(args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			// Zero value of the parameter type is filled in by call.
			in[i] = reflect.Value{}
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

func call(fn reflect.Value, in []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked: %v", fn.Type().String(), r)
		}
	}()
	t := fn.Type()
	args := make([]reflect.Value, len(in))
	for i, v := range in {
		if !v.IsValid() {
			v = reflect.Zero(t.In(i))
		}
		args[i] = v
	}
	return fn.Call(args), nil
}

// Publish delivers args to every matching handler, logging panics and
// handler errors instead of returning them.
func (b *Bus) Publish(args ...any) {
	in := values(args)
	handled := false
	for _, s := range b.matching(args) {
		out, err := call(s.fn, in)
		if err != nil {
			if b.log != nil {
				b.log.WithField("args", args).Error(err.Error())
			}
			continue
		}
		if herr := handlerError(s.fn, out); herr != nil && b.log != nil {
			b.log.WithError(herr).Warn("eventbus: handler failed")
		}
		handled = true
	}
	if !handled && b.log != nil {
		b.log.Warnf("eventbus.Publish: no matching subscribers for event with args: %v", args)
	}
}

// PublishE delivers args to every matching handler and joins their errors.
// All matching handlers run even if an earlier one fails.
func (b *Bus) PublishE(args ...any) error {
	subs := b.matching(args)
	if len(subs) == 0 {
		return ErrNoSubscribers
	}
	in := values(args)
	var errs []error
	for _, s := range subs {
		out, err := call(s.fn, in)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if herr := handlerError(s.fn, out); herr != nil {
			errs = append(errs, herr)
		}
	}
	return errors.Join(errs...)
}

func handlerError(fn reflect.Value, out []reflect.Value) error {
	switch {
	case len(out) == 0:
		return nil
	case len(out) != 1:
		return fmt.Errorf("%w: handler %s returned %d values", ErrInvalidHandlerReturn, fn.Type().String(), len(out))
	case out[0].Type() != errorType:
		return fmt.Errorf("%w: handler %s return type is %s", ErrInvalidHandlerReturn, fn.Type().String(), out[0].Type().String())
	case out[0].IsNil():
		return nil
	default:
		return out[0].Interface().(error)
	}
}

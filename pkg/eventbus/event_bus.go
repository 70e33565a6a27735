package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/pkg/serrors"
)

// EventBus is an in-process synchronous multicast. Handlers are plain
// functions; a handler receives a publication when its parameter list matches
// the published arguments. Nothing is queued: a publication with no matching
// subscriber is dropped.
type EventBus interface {
	Publish(args ...any)
	Subscribe(handler any) Subscription
	Unsubscribe(sub Subscription)
	SubscribersCount() int
}

// Subscription identifies one Subscribe call. The zero value matches nothing.
type Subscription uint64

type EventBusWithError interface {
	EventBus
	PublishE(args ...any) error
}

var (
	ErrNoSubscribers        = serrors.NewError("EVENTBUS_NO_SUBSCRIBERS", "no matching subscribers", "")
	ErrInvalidHandlerReturn = serrors.NewError("EVENTBUS_INVALID_HANDLER_RETURN", "invalid handler return signature", "")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type subscriber struct {
	id      Subscription
	handler any
	fn      reflect.Value
}

type publisher struct {
	mu          sync.RWMutex
	log         *logrus.Logger
	subscribers []subscriber
	nextID      Subscription
}

func NewEventPublisher(log *logrus.Logger) EventBusWithError {
	return &publisher{log: log}
}

// MatchSignature reports whether handler can be called with args.
func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		paramType := t.In(i)
		if arg == nil {
			k := paramType.Kind()
			if k != reflect.Interface && k != reflect.Ptr && k != reflect.Map && k != reflect.Slice {
				return false
			}
			continue
		}
		argType := reflect.TypeOf(arg)
		if paramType.Kind() == reflect.Interface {
			if !argType.Implements(paramType) {
				return false
			}
			continue
		}
		if !argType.AssignableTo(paramType) {
			return false
		}
	}
	return true
}

func (p *publisher) snapshot() []subscriber {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]subscriber, len(p.subscribers))
	copy(out, p.subscribers)
	return out
}

func callArgs(fn reflect.Value, args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(fn.Type().In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

// invoke calls one handler, converting a panic or a non-nil error return
// into an error so the next handler still runs.
func invoke(s subscriber, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked: %v", s.fn.Type().String(), r)
		}
	}()
	out := s.fn.Call(callArgs(s.fn, args))
	switch len(out) {
	case 0:
		return nil
	case 1:
		if out[0].Type() != errorType {
			return fmt.Errorf("%w: handler %s return type is %s", ErrInvalidHandlerReturn, s.fn.Type().String(), out[0].Type().String())
		}
		if out[0].IsNil() {
			return nil
		}
		return out[0].Interface().(error)
	default:
		return fmt.Errorf("%w: handler %s returned %d values", ErrInvalidHandlerReturn, s.fn.Type().String(), len(out))
	}
}

func (p *publisher) dispatch(args []any) (bool, []error) {
	handled := false
	var errs []error
	for _, s := range p.snapshot() {
		if !MatchSignature(s.handler, args) {
			continue
		}
		handled = true
		if err := invoke(s, args); err != nil {
			errs = append(errs, err)
		}
	}
	return handled, errs
}

// Publish delivers args to every matching subscriber in subscription order.
// Handler failures are logged at error level and never stop delivery.
func (p *publisher) Publish(args ...any) {
	handled, errs := p.dispatch(args)
	if p.log == nil {
		return
	}
	for _, err := range errs {
		p.log.WithError(err).WithField("args", args).Error("eventbus: handler failed")
	}
	if !handled {
		p.log.Debugf("eventbus.Publish: no matching subscribers for event with args: %v", args)
	}
}

// PublishE behaves like Publish but returns the joined handler failures.
func (p *publisher) PublishE(args ...any) error {
	handled, errs := p.dispatch(args)
	if !handled {
		return ErrNoSubscribers
	}
	return errors.Join(errs...)
}

func (p *publisher) Subscribe(handler any) Subscription {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		panic("handler must be a function")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.subscribers = append(p.subscribers, subscriber{id: p.nextID, handler: handler, fn: v})
	return p.nextID
}

// Unsubscribe removes the subscription. Unknown or already removed
// subscriptions are ignored.
func (p *publisher) Unsubscribe(sub Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.subscribers {
		if s.id == sub {
			p.subscribers = append(p.subscribers[:i:i], p.subscribers[i+1:]...)
			return
		}
	}
}

func (p *publisher) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

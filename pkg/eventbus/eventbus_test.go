package eventbus

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/uksf/uksf-api/pkg/logging"
)

type args struct {
	data any
}

func bufferedLogger(level logrus.Level) (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	return log, buf
}

func TestPublisher_DeliversInSubscriptionOrder(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	var order []int
	publisher.Subscribe(func(e *args) { order = append(order, 1) })
	publisher.Subscribe(func(e *args) { order = append(order, 2) })
	publisher.Subscribe(func(e *args) { order = append(order, 3) })

	publisher.Publish(&args{data: "test"})

	require.Equal(t, []int{1, 2, 3}, order)
}

func TestPublisher_SkipsNonMatchingHandlers(t *testing.T) {
	type other struct{}
	log, buf := bufferedLogger(logrus.DebugLevel)
	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *args) {
		t.Error("should not be called")
	})

	publisher.Publish(&other{})

	require.Contains(t, buf.String(), "no matching subscribers")
}

func TestMatchSignature(t *testing.T) {
	type a struct{}
	type b struct{}

	require.True(t, MatchSignature(func(e *a) {}, []any{&a{}}))
	require.False(t, MatchSignature(func(e *a) {}, []any{&b{}}))
	require.False(t, MatchSignature(func(e *a) {}, []any{}))
	require.False(t, MatchSignature(func(e *a) {}, []any{&a{}, &a{}}))
	require.True(t, MatchSignature(func(ctx context.Context) {}, []any{context.Background()}))
	require.True(t, MatchSignature(func(e *a) {}, []any{nil}))
	require.False(t, MatchSignature(func(n int) {}, []any{nil}))
	require.False(t, MatchSignature("not a func", []any{}))
}

func TestPublisher_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	log, buf := bufferedLogger(logrus.ErrorLevel)
	publisher := NewEventPublisher(log)

	first, third := false, false
	publisher.Subscribe(func(e *args) { first = true })
	publisher.Subscribe(func(e *args) { panic("handler 2 panic") })
	publisher.Subscribe(func(e *args) { third = true })

	publisher.Publish(&args{data: "test"})

	require.True(t, first)
	require.True(t, third)
	require.Contains(t, buf.String(), "panicked")
	require.Contains(t, buf.String(), "handler 2 panic")
}

func TestPublisher_HandlerErrorIsLogged(t *testing.T) {
	log, buf := bufferedLogger(logrus.ErrorLevel)
	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *args) error { return errors.New("hub offline") })

	publisher.Publish(&args{data: "x"})

	require.Contains(t, buf.String(), "hub offline")
}

func TestPublisher_NilPointerArgument(t *testing.T) {
	publisher := NewEventPublisher(nil)
	var got *args = &args{}
	publisher.Subscribe(func(e *args) { got = e })

	publisher.Publish(nil)

	require.Nil(t, got)
}

func TestPublisher_PublishE(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrNoSubscribers when none match", func(t *testing.T) {
		publisher := NewEventPublisher(logrus.New())
		err := publisher.PublishE(&args{data: "x"})
		require.ErrorIs(t, err, ErrNoSubscribers)
	})

	t.Run("returns joined errors from multiple handlers", func(t *testing.T) {
		publisher := NewEventPublisher(logrus.New())
		err1 := errors.New("err1")
		err2 := errors.New("err2")
		publisher.Subscribe(func(e *args) error { return err1 })
		publisher.Subscribe(func(e *args) error { return err2 })

		err := publisher.PublishE(&args{data: "x"})
		require.ErrorIs(t, err, err1)
		require.ErrorIs(t, err, err2)
	})

	t.Run("panic is surfaced as error and other handlers still run", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		called := false
		publisher.Subscribe(func(e *args) error { panic("boom") })
		publisher.Subscribe(func(e *args) error { called = true; return nil })

		err := publisher.PublishE(&args{data: "x"})
		require.Error(t, err)
		require.True(t, called)
	})

	t.Run("invalid handler return is surfaced as ErrInvalidHandlerReturn", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		publisher.Subscribe(func(e *args) int { return 1 })

		err := publisher.PublishE(&args{data: "x"})
		require.ErrorIs(t, err, ErrInvalidHandlerReturn)
	})
}

type counter struct{ calls int }

func (c *counter) onArgs(e *args) { c.calls++ }

func TestPublisher_Unsubscribe(t *testing.T) {
	publisher := NewEventPublisher(nil)
	first, second := &counter{}, &counter{}
	subFirst := publisher.Subscribe(first.onArgs)
	publisher.Subscribe(second.onArgs)
	require.Equal(t, 2, publisher.SubscribersCount())

	publisher.Unsubscribe(subFirst)
	require.Equal(t, 1, publisher.SubscribersCount())

	publisher.Publish(&args{data: "x"})
	require.Equal(t, 0, first.calls)
	require.Equal(t, 1, second.calls)

	publisher.Unsubscribe(subFirst)
	publisher.Unsubscribe(Subscription(0))
	require.Equal(t, 1, publisher.SubscribersCount())
}

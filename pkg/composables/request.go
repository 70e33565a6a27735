package composables

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/pkg/constants"
)

var (
	ErrNoActor = errors.New("actor not found")
)

type Params struct {
	IP        string
	UserAgent string
	RequestID string
	Request   *http.Request
	Writer    http.ResponseWriter
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseLogger returns the request logger, or the standard logger outside a
// request.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseActor returns the id of the authenticated account.
func UseActor(ctx context.Context) (string, error) {
	id, ok := ctx.Value(constants.ActorKey).(string)
	if !ok || id == "" {
		return "", ErrNoActor
	}
	return id, nil
}

func WithActor(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, constants.ActorKey, accountID)
}

// UseRequestStart returns when the current request began.
func UseRequestStart(ctx context.Context) (time.Time, bool) {
	start, ok := ctx.Value(constants.RequestStart).(time.Time)
	return start, ok
}

func WithRequestStart(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, constants.RequestStart, start)
}

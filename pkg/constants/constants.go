package constants

import "github.com/go-playground/validator/v10"

type contextKey string

const (
	LoggerKey    contextKey = "logger"
	ParamsKey    contextKey = "params"
	ActorKey     contextKey = "actor"
	RequestStart contextKey = "request_start"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())

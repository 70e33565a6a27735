package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/uksf/uksf-api/pkg/application"
)

type RealtimeController struct {
	path string
	hub  http.Handler
}

func NewRealtimeController(path string, hub http.Handler) application.Controller {
	if path == "" {
		path = "/hub"
	}
	return &RealtimeController{path: path, hub: hub}
}

func (c *RealtimeController) Key() string {
	return c.path
}

func (c *RealtimeController) Register(r *mux.Router) {
	r.Handle(c.path, c.hub).Methods(http.MethodGet)
}

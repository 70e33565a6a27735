package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/uksf/uksf-api/modules/notifications/services"
	"github.com/uksf/uksf-api/pkg/application"
	"github.com/uksf/uksf-api/pkg/composables"
	"github.com/uksf/uksf-api/pkg/httpapi"
	"github.com/uksf/uksf-api/pkg/middleware"
)

type NotificationsController struct {
	basePath string
	service  *services.NotificationsService
}

func NewNotificationsController(app application.Application) application.Controller {
	return &NotificationsController{
		basePath: "/notifications",
		service:  app.Service(services.NotificationsService{}).(*services.NotificationsService),
	}
}

func (c *NotificationsController) Key() string {
	return c.basePath
}

func (c *NotificationsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireActor())

	router.HandleFunc("", c.list).Methods(http.MethodGet)
	router.HandleFunc("/read", c.markRead).Methods(http.MethodPost)
	router.HandleFunc("", c.clear).Methods(http.MethodDelete)
}

func (c *NotificationsController) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := composables.UseActor(r.Context())
	items, err := c.service.GetForOwner(r.Context(), actor)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, items)
}

type markReadDTO struct {
	IDs []string `json:"ids"`
}

func (c *NotificationsController) markRead(w http.ResponseWriter, r *http.Request) {
	var dto markReadDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "NOTIFICATION_INVALID_BODY", "unable to parse request body")
		return
	}
	actor, _ := composables.UseActor(r.Context())
	if err := c.service.MarkRead(r.Context(), actor, dto.IDs...); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *NotificationsController) clear(w http.ResponseWriter, r *http.Request) {
	actor, _ := composables.UseActor(r.Context())
	if err := c.service.Clear(r.Context(), actor); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *NotificationsController) fail(w http.ResponseWriter, r *http.Request, err error) {
	composables.UseLogger(r.Context()).WithError(err).WithField("component", "notifications").Error("notifications request failed")
	_ = httpapi.WriteRequestError(w, r, http.StatusInternalServerError, "NOTIFICATION_ERROR", "internal error")
}

package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/uksf/uksf-api/modules/command/domain/commandrequest"
	"github.com/uksf/uksf-api/modules/command/presentation/controllers/dtos"
	"github.com/uksf/uksf-api/modules/command/services"
	personnel "github.com/uksf/uksf-api/modules/personnel/services"
	"github.com/uksf/uksf-api/pkg/application"
	"github.com/uksf/uksf-api/pkg/composables"
	"github.com/uksf/uksf-api/pkg/httpapi"
	"github.com/uksf/uksf-api/pkg/middleware"
	"github.com/uksf/uksf-api/pkg/serrors"
)

// Path segments accepted by POST /command/requests/{type}.
const (
	KindRank        = "rank"
	KindLoa         = "loa"
	KindDischarge   = "discharge"
	KindRole        = "role"
	KindUnitRole    = "unitrole"
	KindUnitRemoval = "unitremoval"
	KindTransfer    = "transfer"
	KindReinstate   = "reinstate"
)

type createFunc func(r *http.Request, input services.RequestInput) (*commandrequest.CommandRequest, error)

type CommandRequestsController struct {
	basePath string
	requests *services.CommandRequestService
	creation *services.CreationService
	creators map[string]createFunc
}

func NewCommandRequestsController(app application.Application) application.Controller {
	creation := app.Service(services.CreationService{}).(*services.CreationService)
	c := &CommandRequestsController{
		basePath: "/command/requests",
		requests: app.Service(services.CommandRequestService{}).(*services.CommandRequestService),
		creation: creation,
	}
	c.creators = map[string]createFunc{
		KindRank: func(r *http.Request, in services.RequestInput) (*commandrequest.CommandRequest, error) {
			return creation.CreateRank(r.Context(), in)
		},
		KindDischarge: func(r *http.Request, in services.RequestInput) (*commandrequest.CommandRequest, error) {
			return creation.CreateDischarge(r.Context(), in)
		},
		KindRole: func(r *http.Request, in services.RequestInput) (*commandrequest.CommandRequest, error) {
			return creation.CreateIndividualRole(r.Context(), in)
		},
		KindUnitRole: func(r *http.Request, in services.RequestInput) (*commandrequest.CommandRequest, error) {
			return creation.CreateUnitRole(r.Context(), in)
		},
		KindUnitRemoval: func(r *http.Request, in services.RequestInput) (*commandrequest.CommandRequest, error) {
			return creation.CreateUnitRemoval(r.Context(), in)
		},
		KindTransfer: func(r *http.Request, in services.RequestInput) (*commandrequest.CommandRequest, error) {
			return creation.CreateTransfer(r.Context(), in)
		},
		KindReinstate: func(r *http.Request, in services.RequestInput) (*commandrequest.CommandRequest, error) {
			return creation.CreateReinstateMember(r.Context(), in)
		},
	}
	return c
}

func (c *CommandRequestsController) Key() string {
	return c.basePath
}

func (c *CommandRequestsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireActor())

	router.HandleFunc("", c.list).Methods(http.MethodGet)
	router.HandleFunc("/exists", c.exists).Methods(http.MethodGet)
	router.HandleFunc("/{type}", c.create).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.review).Methods(http.MethodPatch)
}

func (c *CommandRequestsController) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := composables.UseActor(r.Context())
	items, err := c.requests.Data().Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewRequestsResponse(items, actor))
}

func (c *CommandRequestsController) exists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("recipient") == "" || q.Get("type") == "" {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "COMMAND_INVALID_QUERY", "recipient and type are required")
		return
	}
	found, err := c.requests.DoesEquivalentRequestExist(r.Context(), &commandrequest.CommandRequest{
		Recipient:   q.Get("recipient"),
		Type:        commandrequest.Type(q.Get("type")),
		Value:       q.Get("value"),
		DisplayFrom: q.Get("displayFrom"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, found)
}

func (c *CommandRequestsController) create(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["type"]
	if kind == KindLoa {
		c.createLoa(w, r)
		return
	}
	create, ok := c.creators[kind]
	if !ok {
		_ = httpapi.WriteRequestError(w, r, http.StatusNotFound, "COMMAND_UNKNOWN_REQUEST_TYPE", "unknown request type "+kind)
		return
	}

	var dto dtos.CreateRequestDTO
	if !decode(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(); !ok {
		writeValidationErrors(w, r, errs)
		return
	}
	req, err := create(r, dto.ToInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, req)
}

func (c *CommandRequestsController) createLoa(w http.ResponseWriter, r *http.Request) {
	var dto dtos.CreateLoaDTO
	if !decode(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(); !ok {
		writeValidationErrors(w, r, errs)
		return
	}
	req, err := c.creation.CreateLoa(r.Context(), dto.ToInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, req)
}

func (c *CommandRequestsController) review(w http.ResponseWriter, r *http.Request) {
	var dto dtos.ReviewDTO
	if !decode(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(); !ok {
		writeValidationErrors(w, r, errs)
		return
	}
	if err := c.requests.UpdateReview(r.Context(), mux.Vars(r)["id"], dto.ReviewState, dto.Overridden); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "COMMAND_INVALID_BODY", "unable to parse request body")
		return false
	}
	return true
}

func writeValidationErrors(w http.ResponseWriter, r *http.Request, errs serrors.ValidationErrors) {
	meta := map[string]string(errs)
	if id := httpapi.RequestID(r); id != "" {
		meta["request_id"] = id
	}
	_ = httpapi.WriteError(w, http.StatusBadRequest, "COMMAND_VALIDATION_FAILED", errs.Error(), meta)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *services.ServiceError
	switch {
	case errors.As(err, &se):
		_ = httpapi.WriteRequestError(w, r, se.Status, se.Code, se.Message)
	case errors.Is(err, services.ErrRequestNotFound):
		_ = httpapi.WriteRequestError(w, r, http.StatusNotFound, "COMMAND_REQUEST_NOT_FOUND", err.Error())
	case errors.Is(err, personnel.ErrAccountNotFound),
		errors.Is(err, personnel.ErrUnitNotFound),
		errors.Is(err, personnel.ErrRankNotFound),
		errors.Is(err, personnel.ErrRoleNotFound):
		_ = httpapi.WriteRequestError(w, r, http.StatusNotFound, "COMMAND_NOT_FOUND", err.Error())
	default:
		composables.UseLogger(r.Context()).WithError(err).WithField("component", "command").Error("command request failed")
		_ = httpapi.WriteRequestError(w, r, http.StatusInternalServerError, "COMMAND_ERROR", "internal error")
	}
}

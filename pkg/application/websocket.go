package application

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/pkg/composables"
	"github.com/uksf/uksf-api/pkg/ws"
)

const (
	ChannelAll      = "all"
	ChannelRequests = "requests"
)

// AccountChannel is the channel every connection of one account joins.
func AccountChannel(accountID string) string {
	return fmt.Sprintf("account/%s", accountID)
}

type HuberOptions struct {
	Logger       *logrus.Logger
	CheckOrigin  func(r *http.Request) bool
	WriteTimeout time.Duration
	SendBuffer   int
}

type Huber interface {
	http.Handler
	Broadcast(channel, method string, payload any) error
	BroadcastAll(method string, payload any) error
}

func NewHub(opts *HuberOptions) Huber {
	appHub := &huber{logger: opts.Logger}
	appHub.hub = ws.NewHub(&ws.HubOptions{
		Logger:       opts.Logger,
		CheckOrigin:  opts.CheckOrigin,
		OnConnect:    appHub.onConnect,
		WriteTimeout: opts.WriteTimeout,
		SendBuffer:   opts.SendBuffer,
	})
	return appHub
}

type huber struct {
	hub    *ws.Hub
	logger *logrus.Logger
}

func (h *huber) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeHTTP(w, r)
}

// onConnect puts authenticated connections into their account channel.
// Anonymous connections still receive channel broadcasts they asked for.
func (h *huber) onConnect(r *http.Request, hub *ws.Hub, conn *ws.Connection) error {
	hub.JoinChannel(ChannelAll, conn)
	accountID, err := composables.UseActor(r.Context())
	if err != nil {
		return nil //nolint:nilerr // anonymous connections are allowed
	}
	hub.JoinChannel(AccountChannel(accountID), conn)
	return nil
}

func (h *huber) Broadcast(channel, method string, payload any) error {
	return h.hub.Broadcast(channel, ws.Message{Method: method, Payload: payload})
}

func (h *huber) BroadcastAll(method string, payload any) error {
	return h.hub.BroadcastAll(ws.Message{Method: method, Payload: payload})
}

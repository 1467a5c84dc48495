// Copyright 2025 EURECOM
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Contributors:
//   Giulio CAROTA
//   Thomas DU
//   Adlen KSENTINI

package oam

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/giuliocarot0/gitc"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

var ErrUnknownSubscription = errors.New("unknown subscription")

// Notifier fans MAC events out to HTTP subscribers.
type Notifier struct {
	TaskName string

	mu            sync.RWMutex
	subscriptions map[string]models.MacEventSubscription
	byEvent       map[models.MacEventType][]string

	client  *http.Client
	pending sync.WaitGroup
	started bool
	logger  *slog.Logger
}

func NewNotifier(simId string, logger *slog.Logger) *Notifier {
	return &Notifier{
		TaskName:      "OAM-" + simId,
		subscriptions: make(map[string]models.MacEventSubscription),
		byEvent:       make(map[models.MacEventType][]string),
		client:        &http.Client{Timeout: 5 * time.Second},
		logger:        logger.With("component", "oam"),
	}
}

// Init starts the gitc task receiving events from the cell.
func (n *Notifier) Init() error {
	err := gitc.StartTask(n.TaskName, func(msg gitc.Message) {
		if msg.Type != models.MacEventMsgType {
			return
		}
		if ev, ok := msg.Payload.(*models.MacEvent); ok {
			n.dispatch(*ev)
		}
	}, 1024)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.started = true
	n.mu.Unlock()
	n.logger.Info("notifier started", "task", n.TaskName)
	return nil
}

// Publish hands an event to the notifier task, or dispatches it inline
// when the task has not been started.
func (n *Notifier) Publish(from string, ev models.MacEvent) {
	n.mu.RLock()
	started := n.started
	n.mu.RUnlock()
	if started {
		err := gitc.Send(from, n.TaskName, models.MacEventMsgType, &ev)
		if err == nil {
			return
		}
		n.logger.Warn("gitc send failed, dispatching inline", "error", err)
	}
	n.dispatch(ev)
}

func (n *Notifier) dispatch(ev models.MacEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, id := range n.byEvent[ev.Type] {
		sub := n.subscriptions[id]
		body, err := json.Marshal(&models.MacEventNotification{
			SubscriptionId: id,
			Events:         []models.MacEvent{ev},
		})
		if err != nil {
			n.logger.Error("could not marshal notification", "error", err)
			continue
		}
		n.pending.Add(1)
		go func(uri string, data []byte) {
			defer n.pending.Done()
			resp, err := n.client.Post(uri, "application/json", bytes.NewReader(data))
			if err != nil {
				n.logger.Warn("error notifying subscriber", "uri", uri, "error", err)
				return
			}
			_ = resp.Body.Close()
		}(sub.CallbackUri, body)
	}
}

// Flush waits for in-flight callbacks.
func (n *Notifier) Flush() {
	n.pending.Wait()
}

func (n *Notifier) Subscribe(sub models.MacEventSubscription) (models.MacEventSubscription, error) {
	if u, err := url.Parse(sub.CallbackUri); err != nil || u.Scheme == "" || u.Host == "" {
		return sub, errors.New("invalid callbackUri")
	}
	if len(sub.Events) == 0 {
		return sub, errors.New("empty event list")
	}
	for _, e := range sub.Events {
		if !e.Valid() {
			return sub, errors.New("unknown event type " + string(e))
		}
	}

	sub.Id = uuid.NewString()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscriptions[sub.Id] = sub
	for _, e := range sub.Events {
		n.byEvent[e] = append(n.byEvent[e], sub.Id)
	}
	n.logger.Info("created new subscription", "id", sub.Id, "callbackUri", sub.CallbackUri)
	return sub, nil
}

func (n *Notifier) Unsubscribe(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	sub, ok := n.subscriptions[id]
	if !ok {
		return ErrUnknownSubscription
	}
	delete(n.subscriptions, id)
	for _, e := range sub.Events {
		ids := n.byEvent[e][:0]
		for _, other := range n.byEvent[e] {
			if other != id {
				ids = append(ids, other)
			}
		}
		n.byEvent[e] = ids
	}
	return nil
}

func (n *Notifier) Subscriptions() []models.MacEventSubscription {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]models.MacEventSubscription, 0, len(n.subscriptions))
	for _, s := range n.subscriptions {
		out = append(out, s)
	}
	return out
}

// NORTHBOUND Definitions

func (n *Notifier) HandleNewSubscription(w http.ResponseWriter, r *http.Request) {
	sub := models.MacEventSubscription{}
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := n.Subscribe(sub)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", r.URL.Path+"/"+created.Id)
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		n.logger.Error("could not encode response", "error", err)
	}
}

func (n *Notifier) HandleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(n.Subscriptions()); err != nil {
		http.Error(w, "could not encode response", http.StatusInternalServerError)
	}
}

func (n *Notifier) HandleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := n.Unsubscribe(mux.Vars(r)["id"]); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (n *Notifier) RegisterNorthboundAPIs(r *mux.Router) {
	r.HandleFunc("/subscriptions", n.HandleNewSubscription).Methods(http.MethodPost)
	r.HandleFunc("/subscriptions", n.HandleListSubscriptions).Methods(http.MethodGet)
	r.HandleFunc("/subscriptions/{id}", n.HandleDeleteSubscription).Methods(http.MethodDelete)
	n.logger.Info("subscription API has been registered")
}

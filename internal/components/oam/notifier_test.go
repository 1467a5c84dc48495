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
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/logging"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

type callbackSink struct {
	mu       sync.Mutex
	received []models.MacEventNotification
}

func (c *callbackSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var n models.MacEventNotification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	c.received = append(c.received, n)
	c.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (c *callbackSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.received)
}

func TestPublishNotifiesMatchingSubscribers(t *testing.T) {
	sink := &callbackSink{}
	srv := httptest.NewServer(sink)
	defer srv.Close()

	n := NewNotifier("test", logging.Discard())
	sub, err := n.Subscribe(models.MacEventSubscription{
		CallbackUri: srv.URL,
		Events:      []models.MacEventType{models.EventUeAttached, models.EventHarqDropped},
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	n.Publish("CELL", models.MacEvent{Type: models.EventUeAttached, Rnti: 61})
	n.Publish("CELL", models.MacEvent{Type: models.EventUeReleased, Rnti: 61})
	n.Publish("CELL", models.MacEvent{Type: models.EventHarqDropped, Rnti: 62})
	n.Flush()

	if got := sink.count(); got != 2 {
		t.Fatalf("callbacks = %d, want 2", got)
	}
	for _, r := range sink.received {
		if r.SubscriptionId != sub.Id {
			t.Fatalf("subscriptionId = %q, want %q", r.SubscriptionId, sub.Id)
		}
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	sink := &callbackSink{}
	srv := httptest.NewServer(sink)
	defer srv.Close()

	n := NewNotifier("test", logging.Discard())
	sub, err := n.Subscribe(models.MacEventSubscription{CallbackUri: srv.URL, Events: []models.MacEventType{models.EventRachExpired}})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := n.Unsubscribe(sub.Id); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	n.Publish("CELL", models.MacEvent{Type: models.EventRachExpired})
	n.Flush()

	if sink.count() != 0 {
		t.Fatalf("received notification after unsubscribe")
	}
	if err := n.Unsubscribe(sub.Id); !errors.Is(err, ErrUnknownSubscription) {
		t.Fatalf("second Unsubscribe err = %v, want ErrUnknownSubscription", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	n := NewNotifier("test", logging.Discard())
	cases := []models.MacEventSubscription{
		{CallbackUri: "not a url", Events: []models.MacEventType{models.EventUeAttached}},
		{CallbackUri: "http://localhost:1/cb"},
		{CallbackUri: "http://localhost:1/cb", Events: []models.MacEventType{"BOGUS"}},
	}
	for i, c := range cases {
		if _, err := n.Subscribe(c); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestSubscriptionApi(t *testing.T) {
	n := NewNotifier("test", logging.Discard())
	r := mux.NewRouter()
	n.RegisterNorthboundAPIs(r)

	body, _ := json.Marshal(models.MacEventSubscription{
		CallbackUri: "http://localhost:9999/cb",
		Events:      []models.MacEventType{models.EventUeReleased},
	})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewReader(body)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201: %s", rr.Code, rr.Body.String())
	}
	var created models.MacEventSubscription
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil || created.Id == "" {
		t.Fatalf("decode created subscription: %v %+v", err, created)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/subscriptions", nil))
	var list []models.MacEventSubscription
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil || len(list) != 1 {
		t.Fatalf("list = %+v, %v", list, err)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/subscriptions/"+created.Id, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewReader([]byte("{"))))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad body status = %d, want 400", rr.Code)
	}
}

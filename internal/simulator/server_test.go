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

package simulator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/logging"
)

func do(t *testing.T, r *mux.Router, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, apiPrefix+path, bytes.NewReader(body)))
	return rr
}

func decodeStatus(t *testing.T, rr *httptest.ResponseRecorder) SimulationStatusResponse {
	t.Helper()
	var s SimulationStatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&s); err != nil {
		t.Fatalf("decode status: %v (%s)", err, rr.Body.String())
	}
	return s
}

func TestOamApiLifecycle(t *testing.T) {
	app := NewSchedulerSimulatorApp(&AppConfig{Phy: PhyLoopback}, logging.Discard())
	r := app.Router()

	if rr := do(t, r, http.MethodPost, "/start", nil); rr.Code != http.StatusConflict {
		t.Fatalf("start before configure = %d, want 409", rr.Code)
	}
	if rr := do(t, r, http.MethodPost, "/configure", []byte(`{"dlBandwidth": 3}`)); rr.Code != http.StatusBadRequest {
		t.Fatalf("configure with bad bandwidth = %d, want 400", rr.Code)
	}

	rr := do(t, r, http.MethodPost, "/configure", []byte(`{"dlBandwidth": 50, "numOfUe": 0, "accelerated": true, "seed": 3}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("configure = %d: %s", rr.Code, rr.Body.String())
	}
	if s := decodeStatus(t, rr); s.Status != CONFIGURED || s.SimulationId == "" {
		t.Fatalf("status after configure = %+v", s)
	}
	defer func() { _ = app.ResetSimulation() }()

	if rr := do(t, r, http.MethodPost, "/configure", []byte(`{"dlBandwidth": 50}`)); rr.Code != http.StatusConflict {
		t.Fatalf("second configure = %d, want 409", rr.Code)
	}

	rr = do(t, r, http.MethodPost, "/ues", []byte(`{"txMode": 3}`))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("add ue = %d: %s", rr.Code, rr.Body.String())
	}
	var added map[string]int
	if err := json.NewDecoder(rr.Body).Decode(&added); err != nil {
		t.Fatalf("decode added ue: %v", err)
	}
	path := fmt.Sprintf("/ues/%d", added["rnti"])

	if rr := do(t, r, http.MethodGet, path, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("ue before boundary = %d, want 404", rr.Code)
	}
	app.instance().Step()
	if rr := do(t, r, http.MethodGet, path, nil); rr.Code != http.StatusOK {
		t.Fatalf("get ue = %d, want 200", rr.Code)
	}

	rr = do(t, r, http.MethodGet, "/ues", nil)
	var list []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil || len(list) != 1 {
		t.Fatalf("list ues = %v, %v", list, err)
	}

	if rr := do(t, r, http.MethodGet, "/ues/70000", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("out of range rnti = %d, want 400", rr.Code)
	}
	if rr := do(t, r, http.MethodDelete, "/ues/12", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("delete unknown ue = %d, want 404", rr.Code)
	}
	if rr := do(t, r, http.MethodDelete, path, nil); rr.Code != http.StatusAccepted {
		t.Fatalf("delete ue = %d, want 202", rr.Code)
	}

	if rr := do(t, r, http.MethodGet, "/summary", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("summary without store = %d, want 503", rr.Code)
	}

	rr = do(t, r, http.MethodPost, "/start", nil)
	if s := decodeStatus(t, rr); s.Status != STARTED {
		t.Fatalf("status after start = %+v", s)
	}
	rr = do(t, r, http.MethodPost, "/stop", nil)
	if s := decodeStatus(t, rr); s.Status != STOPPED {
		t.Fatalf("status after stop = %+v", s)
	}
	if rr := do(t, r, http.MethodPost, "/stop", nil); rr.Code != http.StatusConflict {
		t.Fatalf("second stop = %d, want 409", rr.Code)
	}

	rr = do(t, r, http.MethodGet, "/status", nil)
	if s := decodeStatus(t, rr); s.Status != STOPPED {
		t.Fatalf("status = %+v", s)
	}
	if rr := do(t, r, http.MethodPost, "/reset", nil); rr.Code != http.StatusOK {
		t.Fatalf("reset = %d", rr.Code)
	}
	if rr := do(t, r, http.MethodGet, "/ues", nil); rr.Code != http.StatusConflict {
		t.Fatalf("ues after reset = %d, want 409", rr.Code)
	}
}

func TestSubscriptionRoutesMounted(t *testing.T) {
	app := NewSchedulerSimulatorApp(&AppConfig{Phy: PhyLoopback}, logging.Discard())
	r := app.Router()
	rr := do(t, r, http.MethodPost, "/subscriptions", []byte(`{"callbackUri": "http://localhost:1/cb", "events": ["UE_ATTACHED"]}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("subscribe = %d: %s", rr.Code, rr.Body.String())
	}
}

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

package models

import "time"

type MacEventType string

const (
	EventUeAttached  MacEventType = "UE_ATTACHED"
	EventUeReleased  MacEventType = "UE_RELEASED"
	EventHarqDropped MacEventType = "HARQ_DROPPED"
	EventRachExpired MacEventType = "RACH_EXPIRED"
)

func (t MacEventType) Valid() bool {
	switch t {
	case EventUeAttached, EventUeReleased, EventHarqDropped, EventRachExpired:
		return true
	}
	return false
}

// MacEvent is reported to OAM subscribers.
type MacEvent struct {
	Type         MacEventType `json:"type"`
	SimulationId string       `json:"simulationId"`
	Tti          uint64       `json:"tti"`
	TimeStamp    time.Time    `json:"timeStamp"`
	Rnti         Rnti         `json:"rnti"`
	Imsi         string       `json:"imsi,omitempty"`
	Direction    string       `json:"direction,omitempty"`
	HarqProcess  *uint8       `json:"harqProcess,omitempty"`
}

type MacEventSubscription struct {
	Id          string         `json:"id,omitempty"`
	CallbackUri string         `json:"callbackUri"`
	Events      []MacEventType `json:"events"`
}

type MacEventNotification struct {
	SubscriptionId string     `json:"subscriptionId"`
	Events         []MacEvent `json:"events"`
}

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

import (
	"time"

	"github.com/giuliocarot0/gitc"
)

const (
	MacToPhyType gitc.MessageType = iota
	PhyToMacType
	MacEventMsgType
)

// SubframeIndication carries the decisions of one TTI from MAC to PHY.
type SubframeIndication struct {
	SimulationId string
	Tti          uint64
	TimeStamp    time.Time
	Dl           *DlSchedule
	Ul           *UlSchedule
}

// HarqIndication carries the decoding outcome of a subframe back to MAC.
// DueTti is the TTI at which the MAC may act on it.
type HarqIndication struct {
	SimulationId string
	Tti          uint64
	DueTti       uint64
	Dl           []HarqFeedback
	Ul           []HarqFeedback
	Msg3         []Rnti // successfully decoded Msg3 transmissions
	Msg3Lost     []Rnti
}

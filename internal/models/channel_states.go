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

// UeState is the lifecycle of a simulated UE as seen by the MAC.
type UeState int

const (
	RachPending UeState = iota // preamble sent, waiting for Msg3 grant
	Connected                  // configured in the scheduler
	Released
)

func (s UeState) String() string {
	switch s {
	case RachPending:
		return "RACH_PENDING"
	case Connected:
		return "CONNECTED"
	case Released:
		return "RELEASED"
	default:
		return "UNKNOWN"
	}
}

// ChannelState is the radio condition driving the CQI a UE reports.
type ChannelState int

const (
	ChannelGood ChannelState = iota
	ChannelFair
	ChannelPoor
	ChannelOutage
)

func (c ChannelState) String() string {
	switch c {
	case ChannelGood:
		return "GOOD"
	case ChannelFair:
		return "FAIR"
	case ChannelPoor:
		return "POOR"
	default:
		return "OUTAGE"
	}
}

// CqiRange returns the inclusive CQI bounds reported in the state.
func (c ChannelState) CqiRange() (lo, hi uint8) {
	switch c {
	case ChannelGood:
		return 11, 15
	case ChannelFair:
		return 7, 10
	case ChannelPoor:
		return 2, 6
	default:
		return 0, 1
	}
}

// Bler is the block error rate of a first transmission in the state.
func (c ChannelState) Bler() float64 {
	switch c {
	case ChannelGood:
		return 0.02
	case ChannelFair:
		return 0.08
	case ChannelPoor:
		return 0.2
	default:
		return 0.7
	}
}

type Transition struct {
	To          ChannelState
	Probability float64
}

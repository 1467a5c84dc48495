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

// Rnti is the radio network temporary identifier of an attached UE.
type Rnti uint16

// LcId identifies a logical channel of a UE. For uplink buffer reports it
// carries the logical channel group instead.
type LcId uint8

type Direction uint8

const (
	Downlink Direction = iota
	Uplink
)

func (d Direction) String() string {
	switch d {
	case Downlink:
		return "DL"
	case Uplink:
		return "UL"
	default:
		return "UNKNOWN"
	}
}

type Duplex string

const (
	DuplexFdd Duplex = "FDD"
	DuplexTdd Duplex = "TDD"
)

// CellConfig is fixed for the lifetime of a cell once accepted by the scheduler.
type CellConfig struct {
	DlBandwidth int    `yaml:"dlBandwidth" json:"dlBandwidth"` // resource blocks
	UlBandwidth int    `yaml:"ulBandwidth" json:"ulBandwidth"` // resource blocks
	Duplex      Duplex `yaml:"duplex" json:"duplex"`
	TddConfig   int    `yaml:"tddConfig" json:"tddConfig"` // UL/DL configuration 0..6, TDD only
}

type SubframeKind uint8

const (
	SubframeDownlink SubframeKind = iota
	SubframeUplink
	SubframeSpecial
)

// tddPatterns follows the UL/DL configurations of TS 36.211 table 4.2-2.
var tddPatterns = [7]string{
	"DSUUUDSUUU",
	"DSUUDDSUUD",
	"DSUDDDSUDD",
	"DSUUUDDDDD",
	"DSUUDDDDDD",
	"DSUDDDDDDD",
	"DSUUUDSUUD",
}

// Subframe returns the kind of the given subframe (0..9) for this cell.
// FDD cells carry both directions in every subframe and report SubframeDownlink.
func (c CellConfig) Subframe(sf int) SubframeKind {
	if c.Duplex != DuplexTdd || c.TddConfig < 0 || c.TddConfig >= len(tddPatterns) {
		return SubframeDownlink
	}
	switch tddPatterns[c.TddConfig][sf%10] {
	case 'U':
		return SubframeUplink
	case 'S':
		return SubframeSpecial
	default:
		return SubframeDownlink
	}
}

// CarriesDownlink reports whether a DL pass should run in the subframe.
func (c CellConfig) CarriesDownlink(sf int) bool {
	return c.Duplex != DuplexTdd || c.Subframe(sf) != SubframeUplink
}

// CarriesUplink reports whether an UL pass should run in the subframe.
func (c CellConfig) CarriesUplink(sf int) bool {
	return c.Duplex != DuplexTdd || c.Subframe(sf) == SubframeUplink
}

type UeConfig struct {
	Rnti   Rnti  `json:"rnti"`
	TxMode uint8 `json:"txMode"` // 1..7, modes 3 and 4 carry two spatial layers
}

// Layers returns the number of DL spatial layers implied by the transmission mode.
func (u UeConfig) Layers() int {
	if u.TxMode == 3 || u.TxMode == 4 {
		return 2
	}
	return 1
}

type LcConfig struct {
	LcId  LcId   `json:"lcId"`
	Qci   uint8  `json:"qci"`
	IsGbr bool   `json:"isGbr"`
	GbrDl uint64 `json:"gbrDl"` // bit/s
	GbrUl uint64 `json:"gbrUl"` // bit/s
}

// BufferStatusReport carries RLC queue occupancy for one logical channel.
// Uplink BSRs only fill TxQueueBytes.
type BufferStatusReport struct {
	Rnti           Rnti   `json:"rnti"`
	LcId           LcId   `json:"lcId"`
	TxQueueBytes   uint32 `json:"txQueueBytes"`
	RetxQueueBytes uint32 `json:"retxQueueBytes"`
	StatusPduBytes uint32 `json:"statusPduBytes"`
}

func (b BufferStatusReport) Total() uint32 {
	return b.TxQueueBytes + b.RetxQueueBytes + b.StatusPduBytes
}

// CqiReport carries a wideband value, a per-subband vector, or both.
// A nil Subbands slice leaves the stored subband report untouched.
type CqiReport struct {
	Rnti     Rnti    `json:"rnti"`
	Wideband *uint8  `json:"wideband,omitempty"`
	Subbands []uint8 `json:"subbands,omitempty"`
}

type HarqFeedback struct {
	Rnti      Rnti  `json:"rnti"`
	ProcessId uint8 `json:"processId"`
	Ack       bool  `json:"ack"`
}

type RachRequest struct {
	Rnti           Rnti   `json:"rnti"`
	RequestedBytes uint32 `json:"requestedBytes"`
}

type RlcPdu struct {
	LcId  LcId   `json:"lcId"`
	Bytes uint32 `json:"bytes"`
}

// Descriptor is what a HARQ process needs to retransmit unchanged.
type Descriptor struct {
	Rbgs   []int    `json:"rbgs"`
	Mcs    int      `json:"mcs"`
	TbSize uint32   `json:"tbSize"` // bytes, all layers
	Layers int      `json:"layers"`
	Pdus   []RlcPdu `json:"pdus,omitempty"`
}

func (d Descriptor) Clone() Descriptor {
	c := d
	c.Rbgs = append([]int(nil), d.Rbgs...)
	c.Pdus = append([]RlcPdu(nil), d.Pdus...)
	return c
}

type Allocation struct {
	Rnti             Rnti     `json:"rnti"`
	Rbgs             []int    `json:"rbgs"`
	Mcs              int      `json:"mcs"`
	TbSize           uint32   `json:"tbSize"`
	Layers           int      `json:"layers"`
	HarqProcess      uint8    `json:"harqProcess"`
	IsRetransmission bool     `json:"isRetransmission"`
	Rv               uint8    `json:"rv"`
	Ndi              bool     `json:"ndi"`
	Pdus             []RlcPdu `json:"pdus,omitempty"`
}

// RachGrant is the Msg3 uplink grant answering a random access request.
type RachGrant struct {
	Rnti   Rnti   `json:"rnti"`
	Rbgs   []int  `json:"rbgs"`
	Mcs    int    `json:"mcs"`
	TbSize uint32 `json:"tbSize"`
}

type DeferralReason string

const (
	DeferralNoHarq      DeferralReason = "NO_HARQ_PROCESS"
	DeferralRetxBlocked DeferralReason = "RETX_RBG_BUSY"
	DeferralNoRbg       DeferralReason = "NO_FREE_RBG"
	DeferralRachBudget  DeferralReason = "RACH_BUDGET"
	DeferralRachExpired DeferralReason = "RACH_EXPIRED"
)

// Deferral is an explicit "not granted this TTI" outcome.
type Deferral struct {
	Rnti   Rnti           `json:"rnti"`
	Reason DeferralReason `json:"reason"`
}

type DlSchedule struct {
	Tti         uint64       `json:"tti"`
	Allocations []Allocation `json:"allocations"`
	Deferrals   []Deferral   `json:"deferrals,omitempty"`
}

type UlSchedule struct {
	Tti         uint64       `json:"tti"`
	Allocations []Allocation `json:"allocations"`
	RachGrants  []RachGrant  `json:"rachGrants,omitempty"`
	Deferrals   []Deferral   `json:"deferrals,omitempty"`
}

func PtrUint8(v uint8) *uint8 {
	return &v
}

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
	"errors"
	"log/slog"

	"github.com/giuliocarot0/gitc"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

// HarqDelay is the number of TTIs between a transmission and its feedback.
const HarqDelay = 4

// Decoder draws the decoding outcome of a transport block at the receiver.
type Decoder interface {
	Decode(dir models.Direction, a models.Allocation) bool
	DecodeMsg3(g models.RachGrant) bool
}

// PhyLink carries subframe decisions to the physical layer and HARQ
// indications back to the MAC through the sink it was built with.
type PhyLink interface {
	Deliver(ind *models.SubframeIndication) error
	Close() error
}

// decodeSubframe builds the HARQ indication of a subframe.
func decodeSubframe(ind *models.SubframeIndication, dec Decoder) *models.HarqIndication {
	h := &models.HarqIndication{
		SimulationId: ind.SimulationId,
		Tti:          ind.Tti,
		DueTti:       ind.Tti + HarqDelay,
	}
	if ind.Dl != nil {
		for _, a := range ind.Dl.Allocations {
			h.Dl = append(h.Dl, models.HarqFeedback{Rnti: a.Rnti, ProcessId: a.HarqProcess, Ack: dec.Decode(models.Downlink, a)})
		}
	}
	if ind.Ul != nil {
		for _, a := range ind.Ul.Allocations {
			h.Ul = append(h.Ul, models.HarqFeedback{Rnti: a.Rnti, ProcessId: a.HarqProcess, Ack: dec.Decode(models.Uplink, a)})
		}
		for _, g := range ind.Ul.RachGrants {
			if dec.DecodeMsg3(g) {
				h.Msg3 = append(h.Msg3, g.Rnti)
			} else {
				h.Msg3Lost = append(h.Msg3Lost, g.Rnti)
			}
		}
	}
	return h
}

// LoopbackPhy decodes in the caller's goroutine.
type LoopbackPhy struct {
	dec  Decoder
	sink func(*models.HarqIndication)
}

func NewLoopbackPhy(dec Decoder, sink func(*models.HarqIndication)) *LoopbackPhy {
	return &LoopbackPhy{dec: dec, sink: sink}
}

func (p *LoopbackPhy) Deliver(ind *models.SubframeIndication) error {
	p.sink(decodeSubframe(ind, p.dec))
	return nil
}

func (p *LoopbackPhy) Close() error { return nil }

// GitcPhy runs the MAC and PHY endpoints as gitc tasks: subframes travel
// MAC -> PHY, HARQ indications PHY -> MAC.
type GitcPhy struct {
	MacTask string
	PhyTask string
	logger  *slog.Logger
}

func NewGitcPhy(simId string, dec Decoder, sink func(*models.HarqIndication), logger *slog.Logger) (*GitcPhy, error) {
	p := &GitcPhy{
		MacTask: "MAC-" + simId,
		PhyTask: "PHY-" + simId,
		logger:  logger.With("component", "phy"),
	}

	err := gitc.StartTask(p.PhyTask, func(msg gitc.Message) {
		if msg.Type != models.MacToPhyType {
			return
		}
		ind, ok := msg.Payload.(*models.SubframeIndication)
		if !ok {
			return
		}
		if err := gitc.Send(p.PhyTask, p.MacTask, models.PhyToMacType, decodeSubframe(ind, dec)); err != nil {
			p.logger.Warn("could not send harq indication", "tti", ind.Tti, "error", err)
		}
	}, 1024)
	if err != nil {
		return nil, err
	}

	err = gitc.StartTask(p.MacTask, func(msg gitc.Message) {
		if msg.Type != models.PhyToMacType {
			return
		}
		if h, ok := msg.Payload.(*models.HarqIndication); ok {
			sink(h)
		}
	}, 1024)
	if err != nil {
		return nil, errors.Join(err, gitc.StopTask(p.PhyTask))
	}
	return p, nil
}

func (p *GitcPhy) Deliver(ind *models.SubframeIndication) error {
	return gitc.Send(p.MacTask, p.PhyTask, models.MacToPhyType, ind)
}

// Close stops both tasks so their names can be reused.
func (p *GitcPhy) Close() error {
	return errors.Join(gitc.StopTask(p.PhyTask), gitc.StopTask(p.MacTask))
}

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

package trafficgen

import (
	"math/rand/v2"
	"time"
)

// Mean talk spurt and silence of a conversational voice source.
const (
	talkSpurtMean = 1 * time.Second
	silenceMean   = 1350 * time.Millisecond
)

// VoIPTraffic emits fixed size frames during talk spurts only.
type VoIPTraffic struct {
	PacketSize int
	Interval   time.Duration

	rng      *rand.Rand
	next     time.Time
	talking  bool
	phaseEnd time.Time
}

func NewVoIPTraffic(pktSize int, interval time.Duration, rng *rand.Rand, start time.Time) *VoIPTraffic {
	return &VoIPTraffic{
		PacketSize: pktSize,
		Interval:   interval,
		rng:        rng,
		next:       start,
		talking:    true,
		phaseEnd:   start.Add(expDuration(rng, talkSpurtMean)),
	}
}

func (v *VoIPTraffic) NextPacket(now time.Time) *Packet {
	for !now.Before(v.next) {
		for !v.next.Before(v.phaseEnd) {
			v.switchPhase()
		}
		if !v.talking {
			v.next = v.phaseEnd
			continue
		}
		at := v.next
		v.next = v.next.Add(v.Interval)
		return &Packet{SizeBytes: v.PacketSize, Timestamp: at}
	}
	return nil
}

func (v *VoIPTraffic) switchPhase() {
	v.talking = !v.talking
	mean := silenceMean
	if v.talking {
		mean = talkSpurtMean
	}
	v.phaseEnd = v.phaseEnd.Add(max(expDuration(v.rng, mean), v.Interval))
}

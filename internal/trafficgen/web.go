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

// WebTraffic simulates bursty HTTP traffic: exponentially distributed bursts
// at AvgBitrate separated by exponentially distributed reading times.
type WebTraffic struct {
	AvgBitrate    float64
	PacketSize    int
	BurstDuration time.Duration // mean
	IdleDuration  time.Duration // mean

	rng      *rand.Rand
	next     time.Time
	inBurst  bool
	phaseEnd time.Time
}

func NewWebTraffic(bitrate float64, pktSize int, burst, idle time.Duration, rng *rand.Rand, start time.Time) *WebTraffic {
	return &WebTraffic{
		AvgBitrate:    bitrate,
		PacketSize:    pktSize,
		BurstDuration: burst,
		IdleDuration:  idle,
		rng:           rng,
		next:          start,
		inBurst:       true,
		phaseEnd:      start.Add(expDuration(rng, burst)),
	}
}

func (w *WebTraffic) NextPacket(now time.Time) *Packet {
	interval := packetInterval(w.AvgBitrate, w.PacketSize)
	for !now.Before(w.next) {
		for !w.next.Before(w.phaseEnd) {
			w.inBurst = !w.inBurst
			mean := w.IdleDuration
			if w.inBurst {
				mean = w.BurstDuration
			}
			w.phaseEnd = w.phaseEnd.Add(max(expDuration(w.rng, mean), interval))
		}
		if !w.inBurst {
			w.next = w.phaseEnd
			continue
		}
		at := w.next
		w.next = w.next.Add(interval)
		return &Packet{SizeBytes: w.PacketSize, Timestamp: at}
	}
	return nil
}

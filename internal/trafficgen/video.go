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

// VideoTraffic simulates steady video streaming with packet sizes varying
// around the mean.
type VideoTraffic struct {
	Bitrate    float64
	PacketSize int
	Interval   time.Duration

	rng  *rand.Rand
	next time.Time
}

func NewVideoTraffic(bitrate float64, pktSize int, rng *rand.Rand, start time.Time) *VideoTraffic {
	return &VideoTraffic{
		Bitrate:    bitrate,
		PacketSize: pktSize,
		Interval:   packetInterval(bitrate, pktSize),
		rng:        rng,
		next:       start,
	}
}

func (v *VideoTraffic) NextPacket(now time.Time) *Packet {
	if now.Before(v.next) {
		return nil
	}
	at := v.next
	v.next = v.next.Add(v.Interval)
	// +-20% around the mean keeps the average bitrate.
	size := v.PacketSize + int(float64(v.PacketSize)*0.2*(2*v.rng.Float64()-1))
	return &Packet{SizeBytes: max(size, 1), Timestamp: at}
}

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

// IoTTraffic simulates periodic status updates from IoT devices
type IoTTraffic struct {
	PacketSize        int
	HeartbeatInterval time.Duration

	rng  *rand.Rand
	next time.Time
}

// NewIoTTraffic spreads the first report over one interval so that devices
// started together do not report in the same TTI.
func NewIoTTraffic(pktSize int, interval time.Duration, rng *rand.Rand, start time.Time) *IoTTraffic {
	return &IoTTraffic{
		PacketSize:        pktSize,
		HeartbeatInterval: interval,
		rng:               rng,
		next:              start.Add(time.Duration(rng.Int64N(int64(interval)))),
	}
}

func (i *IoTTraffic) NextPacket(now time.Time) *Packet {
	if now.Before(i.next) {
		return nil
	}
	at := i.next
	i.next = i.next.Add(i.HeartbeatInterval)
	return &Packet{SizeBytes: i.PacketSize, Timestamp: at}
}

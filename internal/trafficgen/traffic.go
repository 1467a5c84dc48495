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
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Packet represents a packet entering a UE's RLC queue
type Packet struct {
	SizeBytes int
	Timestamp time.Time
}

// TrafficGenerator emits packets on a simulated clock. NextPacket returns nil
// once nothing more is due at now; calling it repeatedly drains a backlog.
type TrafficGenerator interface {
	NextPacket(now time.Time) *Packet
}

const (
	KindWeb   = "web"
	KindVideo = "video"
	KindVoip  = "voip"
	KindIot   = "iot"
)

// Profile describes one traffic source. Zero fields take the defaults of the kind.
type Profile struct {
	Kind       string        `yaml:"kind" json:"kind"`
	Bitrate    float64       `yaml:"bitrate" json:"bitrate"` // bit/s, during bursts for web
	PacketSize int           `yaml:"packetSize" json:"packetSize"`
	Burst      time.Duration `yaml:"burst" json:"burst"`
	Idle       time.Duration `yaml:"idle" json:"idle"`
	Interval   time.Duration `yaml:"interval" json:"interval"`
}

// New builds the generator of a profile drawing randomness from rng.
func New(p Profile, rng *rand.Rand, start time.Time) (TrafficGenerator, error) {
	switch strings.ToLower(p.Kind) {
	case KindWeb:
		return NewWebTraffic(or(p.Bitrate, 2e6), orInt(p.PacketSize, 1400), orDur(p.Burst, 2*time.Second), orDur(p.Idle, 5*time.Second), rng, start), nil
	case KindVideo:
		return NewVideoTraffic(or(p.Bitrate, 4e6), orInt(p.PacketSize, 1400), rng, start), nil
	case KindVoip:
		return NewVoIPTraffic(orInt(p.PacketSize, 40), orDur(p.Interval, 20*time.Millisecond), rng, start), nil
	case KindIot:
		return NewIoTTraffic(orInt(p.PacketSize, 100), orDur(p.Interval, 10*time.Second), rng, start), nil
	}
	return nil, fmt.Errorf("unknown traffic kind %q", p.Kind)
}

// Drain collects the bytes of every packet due at now.
func Drain(g TrafficGenerator, now time.Time) uint32 {
	var total uint32
	for i := 0; i < maxPacketsPerCall; i++ {
		p := g.NextPacket(now)
		if p == nil {
			break
		}
		total += uint32(p.SizeBytes)
	}
	return total
}

const maxPacketsPerCall = 1024

// expDuration draws an exponentially distributed duration of the given mean.
func expDuration(rng *rand.Rand, mean time.Duration) time.Duration {
	return time.Duration(rng.ExpFloat64() * float64(mean))
}

func packetInterval(bitrate float64, size int) time.Duration {
	return time.Duration(float64(size*8) / bitrate * float64(time.Second))
}

func or(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orDur(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

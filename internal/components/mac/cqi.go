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

package mac

import "gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"

// DefaultCqiValidity is the number of TTIs a report stays usable.
const DefaultCqiValidity = 1000

// NoSubband asks Effective for the wideband value only.
const NoSubband = -1

// ChannelQuality keeps the last wideband and subband reports of one UE in one
// direction. Entries older than the threshold are masked, never deleted.
type ChannelQuality struct {
	threshold uint32

	wideband    uint8
	hasWideband bool
	widebandAge uint32

	subbands   []uint8
	subbandAge uint32
}

func NewChannelQuality(threshold uint32) *ChannelQuality {
	if threshold == 0 {
		threshold = DefaultCqiValidity
	}
	return &ChannelQuality{threshold: threshold}
}

func (q *ChannelQuality) OnReport(r models.CqiReport) {
	if r.Wideband != nil {
		q.wideband = *r.Wideband
		q.hasWideband = true
		q.widebandAge = 0
	}
	if r.Subbands != nil {
		q.subbands = append(q.subbands[:0], r.Subbands...)
		q.subbandAge = 0
	}
}

func (q *ChannelQuality) Tick() {
	if q.hasWideband && q.widebandAge < q.threshold {
		q.widebandAge++
	}
	if len(q.subbands) > 0 && q.subbandAge < q.threshold {
		q.subbandAge++
	}
}

// Effective returns the subband value when present and fresh, else the
// wideband value when fresh.
func (q *ChannelQuality) Effective(subband int) (uint8, bool) {
	if subband >= 0 && subband < len(q.subbands) && q.subbandAge < q.threshold {
		return q.subbands[subband], true
	}
	if q.hasWideband && q.widebandAge < q.threshold {
		return q.wideband, true
	}
	return 0, false
}

// Reset drops every report.
func (q *ChannelQuality) Reset() {
	q.hasWideband = false
	q.subbands = q.subbands[:0]
	q.widebandAge = 0
	q.subbandAge = 0
}

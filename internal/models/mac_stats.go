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

import "fmt"

// UeMacStats counts what the MAC delivered to one UE.
type UeMacStats struct {
	Rnti         Rnti   `json:"rnti"`
	Imsi         string `json:"imsi"`
	AttachTti    uint64 `json:"attachTti"`
	DlGrants     int64  `json:"dlGrants"`
	UlGrants     int64  `json:"ulGrants"`
	DlRetx       int64  `json:"dlRetx"`
	UlRetx       int64  `json:"ulRetx"`
	DlNacks      int64  `json:"dlNacks"`
	UlNacks      int64  `json:"ulNacks"`
	TotalDlBytes int64  `json:"totalDlBytes"`
	TotalUlBytes int64  `json:"totalUlBytes"`
	LastDlTti    uint64 `json:"lastDlTti"`
	LastUlTti    uint64 `json:"lastUlTti"`
}

type UeMacStatsReport struct {
	UeMacStats
	State     string  `json:"state"`
	Channel   string  `json:"channel"`
	DlBitrate float64 `json:"dlBitrate"` // bit/s since attach
	UlBitrate float64 `json:"ulBitrate"`
	DlBler    float64 `json:"dlBler"`
}

func NewUeMacStats(rnti Rnti, imsi string, tti uint64) *UeMacStats {
	return &UeMacStats{Rnti: rnti, Imsi: imsi, AttachTti: tti}
}

// OnGrant counts a transport block; retransmissions add no new bytes.
func (stats *UeMacStats) OnGrant(dir Direction, bytes uint32, retx bool, tti uint64) {
	switch dir {
	case Downlink:
		stats.DlGrants++
		stats.LastDlTti = tti
		if retx {
			stats.DlRetx++
			return
		}
		stats.TotalDlBytes += int64(bytes)
	case Uplink:
		stats.UlGrants++
		stats.LastUlTti = tti
		if retx {
			stats.UlRetx++
			return
		}
		stats.TotalUlBytes += int64(bytes)
	}
}

func (stats *UeMacStats) OnNack(dir Direction) {
	if dir == Downlink {
		stats.DlNacks++
	} else {
		stats.UlNacks++
	}
}

// GenerateReport computes rates over the TTIs elapsed since attach, a TTI
// lasting one millisecond.
func (stats *UeMacStats) GenerateReport(now uint64) *UeMacStatsReport {
	report := &UeMacStatsReport{UeMacStats: *stats}
	if now > stats.AttachTti {
		seconds := float64(now-stats.AttachTti) / 1000
		report.DlBitrate = float64(stats.TotalDlBytes) * 8 / seconds
		report.UlBitrate = float64(stats.TotalUlBytes) * 8 / seconds
	}
	if stats.DlGrants > 0 {
		report.DlBler = float64(stats.DlNacks) / float64(stats.DlGrants)
	}
	return report
}

func (stats *UeMacStatsReport) Dumps() string {
	return fmt.Sprintf("Rnti:       %d,\nState:      %s,\nChannel:    %s,\nDl Grants:  %d (%d retx),\nUl Grants:  %d (%d retx),\nDl Bitrate: %.2f bps,\nUl Bitrate: %.2f bps,\nDl Bler:    %.3f,\n",
		stats.Rnti, stats.State, stats.Channel, stats.DlGrants, stats.DlRetx, stats.UlGrants, stats.UlRetx, stats.DlBitrate, stats.UlBitrate, stats.DlBler)
}

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

// Package amc implements a table-driven adaptive modulation and coding model.
package amc

// cqiEfficiency is the spectral efficiency (bit/s/Hz) of each CQI index,
// TS 36.213 table 7.2.3-1.
var cqiEfficiency = [16]float64{
	0, 0.1523, 0.2344, 0.3770, 0.6016, 0.8770, 1.1758, 1.4766,
	1.9141, 2.4063, 2.7305, 3.3223, 3.9023, 4.5234, 5.1152, 5.5547,
}

// mcsEfficiency is the spectral efficiency of MCS 0..28.
var mcsEfficiency = [29]float64{
	0.15, 0.19, 0.23, 0.31, 0.38, 0.49, 0.60, 0.74, 0.88, 1.03,
	1.18, 1.33, 1.48, 1.70, 1.91, 2.16, 2.41, 2.57, 2.73, 3.03,
	3.32, 3.61, 3.90, 4.21, 4.52, 4.82, 5.12, 5.33, 5.55,
}

const (
	MaxCqi = 15
	MaxMcs = 28

	// DataRePerRb is the number of resource elements per RB pair left for
	// the shared channel once control and reference signals are removed.
	DataRePerRb = 120
)

// Amc is stateless and safe for concurrent use.
type Amc struct {
	rePerRb int
}

func New() *Amc {
	return &Amc{rePerRb: DataRePerRb}
}

// McsFromCqi returns the highest MCS whose efficiency does not exceed the
// efficiency of the CQI.
func (a *Amc) McsFromCqi(cqi int) int {
	cqi = max(0, min(cqi, MaxCqi))
	eff := cqiEfficiency[cqi]
	mcs := 0
	for i, e := range mcsEfficiency {
		if e <= eff {
			mcs = i
		}
	}
	return mcs
}

// TbSize returns the transport block size in bits of one layer, rounded down
// to whole bytes.
func (a *Amc) TbSize(mcs, nRb int) int {
	if nRb <= 0 {
		return 0
	}
	mcs = max(0, min(mcs, MaxMcs))
	bits := int(mcsEfficiency[mcs]*float64(a.rePerRb*nRb) + 1e-9)
	return bits - bits%8
}

func (a *Amc) Lookup(cqi, nRb int) (int, int) {
	mcs := a.McsFromCqi(cqi)
	return mcs, a.TbSize(mcs, nRb)
}

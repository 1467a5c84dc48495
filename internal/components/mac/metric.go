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

import (
	"fmt"
	"strings"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

// minThroughput keeps the ratio metrics finite for UEs that never received data.
const minThroughput = 1.0

// Candidate is the view of a UE the ranking metrics work on. Rates are in bit/s.
type Candidate struct {
	Rnti             models.Rnti
	PastThroughput   float64
	TargetThroughput float64
	// WidebandRate is the rate the UE would get on one RBG at its wideband quality.
	WidebandRate float64
	QueuedBytes  uint64
}

func (c Candidate) belowTarget() bool {
	return c.TargetThroughput > 0 && c.PastThroughput < c.TargetThroughput
}

func (c Candidate) past() float64 {
	return max(c.PastThroughput, minThroughput)
}

// RankingMetric drives both scheduling stages. TimeDomain ranks by class
// first (higher first), then by score; FrequencyDomain scores one RBG given
// the rate the UE would achieve on it.
type RankingMetric interface {
	Name() string
	TimeDomain(c Candidate) (class int, score float64)
	FrequencyDomain(c Candidate, rbgRate float64) float64
}

const (
	MetricPss      = "pss"
	MetricPssCoita = "pss-coita"
	MetricFdmt     = "fdmt"
	MetricPf       = "pf"
)

// MetricByName resolves the configured metric, "pss" when empty.
func MetricByName(name string) (RankingMetric, error) {
	switch strings.ToLower(name) {
	case "", MetricPss:
		return pss{}, nil
	case MetricPssCoita:
		return pss{coita: true}, nil
	case MetricFdmt:
		return fdmt{}, nil
	case MetricPf:
		return pf{}, nil
	}
	return nil, fmt.Errorf("%w: unknown metric %q", ErrInvalidConfig, name)
}

// pss puts UEs under their guaranteed rate in a first priority set and
// weights them by target/past in the frequency domain.
type pss struct {
	coita bool
}

func (m pss) Name() string {
	if m.coita {
		return MetricPssCoita
	}
	return MetricPss
}

func (pss) TimeDomain(c Candidate) (int, float64) {
	class := 0
	if c.belowTarget() {
		class = 1
	}
	return class, c.WidebandRate / c.past()
}

func (m pss) FrequencyDomain(c Candidate, rbgRate float64) float64 {
	weight := 1.0
	if c.belowTarget() {
		weight = c.TargetThroughput / c.past()
	}
	if m.coita {
		return weight * rbgRate / max(c.WidebandRate, minThroughput)
	}
	return weight * rbgRate / c.past()
}

// fdmt maximises cell throughput and ignores fairness.
type fdmt struct{}

func (fdmt) Name() string { return MetricFdmt }

func (fdmt) TimeDomain(c Candidate) (int, float64) {
	return 0, c.WidebandRate
}

func (fdmt) FrequencyDomain(_ Candidate, rbgRate float64) float64 {
	return rbgRate
}

type pf struct{}

func (pf) Name() string { return MetricPf }

func (pf) TimeDomain(c Candidate) (int, float64) {
	return 0, c.WidebandRate / c.past()
}

func (pf) FrequencyDomain(c Candidate, rbgRate float64) float64 {
	return rbgRate / c.past()
}

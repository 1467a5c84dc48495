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

package ran

import (
	"math"
	"math/rand/v2"
	"testing"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

func TestTransitionTablesAreStochastic(t *testing.T) {
	for from, transitions := range channelTransitions {
		sum := 0.0
		for _, tr := range transitions {
			if tr.Probability < 0 {
				t.Fatalf("%s -> %s has negative probability", from, tr.To)
			}
			sum += tr.Probability
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("transitions from %s sum to %v", from, sum)
		}
	}
}

func TestNextChannelStateFollowsTable(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	allowed := map[models.ChannelState]map[models.ChannelState]bool{}
	for from, transitions := range channelTransitions {
		allowed[from] = map[models.ChannelState]bool{}
		for _, tr := range transitions {
			allowed[from][tr.To] = true
		}
	}

	left := 0
	const draws = 20000
	for i := 0; i < draws; i++ {
		next := NextChannelState(models.ChannelOutage, rng)
		if !allowed[models.ChannelOutage][next] {
			t.Fatalf("outage moved to %s", next)
		}
		if next != models.ChannelOutage {
			left++
		}
	}
	// 2% expected
	if ratio := float64(left) / draws; ratio < 0.01 || ratio > 0.03 {
		t.Fatalf("outage exit ratio = %v", ratio)
	}
}

func TestGoodChannelNeverJumpsToOutage(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 5000; i++ {
		if next := NextChannelState(models.ChannelGood, rng); next != models.ChannelGood && next != models.ChannelFair {
			t.Fatalf("good moved to %s", next)
		}
	}
}

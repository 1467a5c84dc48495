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
	"math/rand/v2"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

// channelTransitions is evaluated once per TTI, hence the sticky diagonal.
var channelTransitions = map[models.ChannelState][]models.Transition{
	models.ChannelGood: {
		{To: models.ChannelGood, Probability: 0.996},
		{To: models.ChannelFair, Probability: 0.004},
	},
	models.ChannelFair: {
		{To: models.ChannelFair, Probability: 0.994},
		{To: models.ChannelGood, Probability: 0.003},
		{To: models.ChannelPoor, Probability: 0.003},
	},
	models.ChannelPoor: {
		{To: models.ChannelPoor, Probability: 0.994},
		{To: models.ChannelFair, Probability: 0.005},
		{To: models.ChannelOutage, Probability: 0.001},
	},
	models.ChannelOutage: {
		{To: models.ChannelOutage, Probability: 0.98},
		{To: models.ChannelPoor, Probability: 0.02},
	},
}

func NextChannelState(current models.ChannelState, rng *rand.Rand) models.ChannelState {
	rnd := rng.Float64()
	cumulative := 0.0
	for _, t := range channelTransitions[current] {
		cumulative += t.Probability
		if rnd < cumulative {
			return t.To
		}
	}
	return current
}

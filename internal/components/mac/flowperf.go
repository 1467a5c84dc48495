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

// DefaultTimeWindow is the EWMA window of the throughput averages, in TTIs.
const DefaultTimeWindow = 99

const ttiSeconds = 0.001

// FlowPerf tracks what a UE has received in one direction. Throughputs are
// in bit/s.
type FlowPerf struct {
	FlowStartTti                 uint64
	TotalBytes                   uint64
	LastTtiBytes                 uint32
	LastAveragedThroughput       float64
	SecondLastAveragedThroughput float64
	TargetThroughput             float64
}

func newFlowPerf(tti uint64) FlowPerf {
	return FlowPerf{
		FlowStartTti:           tti,
		LastAveragedThroughput: 1,
	}
}

// Record adds bytes granted in the current TTI.
func (f *FlowPerf) Record(bytes uint32) {
	f.LastTtiBytes += bytes
	f.TotalBytes += uint64(bytes)
}

// Update closes the TTI: the EWMA decays when nothing was granted.
func (f *FlowPerf) Update(window float64) {
	if window < 1 {
		window = 1
	}
	sample := float64(f.LastTtiBytes) * 8 / ttiSeconds
	f.SecondLastAveragedThroughput = f.LastAveragedThroughput
	f.LastAveragedThroughput = (1-1/window)*f.LastAveragedThroughput + sample/window
	f.LastTtiBytes = 0
}

// BelowTarget reports whether a guaranteed-rate flow is under its target.
func (f *FlowPerf) BelowTarget() bool {
	return f.TargetThroughput > 0 && f.LastAveragedThroughput < f.TargetThroughput
}

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

// type0AllocationRbg holds the upper bandwidth bound (in RBs) of each RBG size
// for resource allocation type 0, TS 36.213 table 7.1.6.1-1.
var type0AllocationRbg = [4]int{10, 26, 63, 110}

// RbgSize returns the number of resource blocks grouped into one RBG for the
// given system bandwidth.
func RbgSize(bandwidth int) int {
	for i, limit := range type0AllocationRbg {
		if bandwidth <= limit {
			return i + 1
		}
	}
	return len(type0AllocationRbg)
}

// RbgCount returns ceil(bandwidth / RbgSize(bandwidth)).
func RbgCount(bandwidth int) int {
	if bandwidth <= 0 {
		return 0
	}
	size := RbgSize(bandwidth)
	return (bandwidth + size - 1) / size
}

// Grid is the RBG layout of one direction of the cell.
type Grid struct {
	Bandwidth int
	RbgSize   int
	Rbgs      int
}

func NewGrid(bandwidth int) Grid {
	return Grid{
		Bandwidth: bandwidth,
		RbgSize:   RbgSize(bandwidth),
		Rbgs:      RbgCount(bandwidth),
	}
}

// RbgRbs returns the number of RBs inside the RBG. The last group is shorter
// when the bandwidth is not a multiple of the RBG size.
func (g Grid) RbgRbs(rbg int) int {
	if rbg < 0 || rbg >= g.Rbgs {
		return 0
	}
	first := rbg * g.RbgSize
	if rest := g.Bandwidth - first; rest < g.RbgSize {
		return rest
	}
	return g.RbgSize
}

// RbsIn sums the RBs of a set of RBGs.
func (g Grid) RbsIn(rbgs []int) int {
	n := 0
	for _, rbg := range rbgs {
		n += g.RbgRbs(rbg)
	}
	return n
}

// findWindow returns the first run of want free, allowed RBGs. When no run is
// long enough the longest shorter run is returned instead.
func findWindow(busy []bool, want int, allowed func(rbg int) bool) []int {
	bestStart, bestLen := -1, 0
	start, run := -1, 0
	for rbg := range busy {
		if busy[rbg] || (allowed != nil && !allowed(rbg)) {
			run = 0
			continue
		}
		if run == 0 {
			start = rbg
		}
		run++
		if run > bestLen {
			bestStart, bestLen = start, run
		}
		if run == want {
			break
		}
	}
	if bestLen == 0 || want <= 0 {
		return nil
	}
	bestLen = min(bestLen, want)
	window := make([]int, bestLen)
	for i := range window {
		window[i] = bestStart + i
	}
	return window
}

func markBusy(busy []bool, rbgs []int) {
	for _, rbg := range rbgs {
		busy[rbg] = true
	}
}

func allFree(busy []bool, rbgs []int) bool {
	for _, rbg := range rbgs {
		if rbg < 0 || rbg >= len(busy) || busy[rbg] {
			return false
		}
	}
	return true
}

func freeCount(busy []bool) int {
	n := 0
	for _, b := range busy {
		if !b {
			n++
		}
	}
	return n
}

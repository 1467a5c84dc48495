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

package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the controller advances the TTI counter.
type Mode int

const (
	// RealTime advances one TTI per Tick of wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as fast as the listeners return.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "real-time"
}

// Listener is invoked once per TTI with the TTI number and its simulated start time.
type Listener func(tti uint64, now time.Time)

// TtiController drives the subframe clock of a cell.
type TtiController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	tti       uint64
	listeners []Listener
	running   bool
}

func NewTtiController(start time.Time, tick time.Duration, mode Mode) *TtiController {
	if tick <= 0 {
		tick = time.Millisecond
	}
	return &TtiController{StartTime: start, Tick: tick, Mode: mode}
}

// Tti returns the number of TTIs elapsed since the start.
func (tc *TtiController) Tti() uint64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.tti
}

// Now returns the simulated time of the current TTI.
func (tc *TtiController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.StartTime.Add(time.Duration(tc.tti) * tc.Tick)
}

func (tc *TtiController) Running() bool {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.running
}

// AddListener registers a callback. Listeners run in registration order.
func (tc *TtiController) AddListener(fn Listener) {
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}

// Step advances exactly one TTI and runs the listeners synchronously.
func (tc *TtiController) Step() uint64 {
	tc.mu.Lock()
	tc.tti++
	tti := tc.tti
	now := tc.StartTime.Add(time.Duration(tti) * tc.Tick)
	listeners := append([]Listener(nil), tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(tti, now)
	}
	return tti
}

// Start runs the controller in a separate goroutine for the given number of
// TTIs, or until ctx is cancelled when ttis is zero. The returned channel is
// closed when the controller stops.
func (tc *TtiController) Start(ctx context.Context, ttis uint64) <-chan struct{} {
	done := make(chan struct{})
	tc.mu.Lock()
	tc.running = true
	tc.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			tc.mu.Lock()
			tc.running = false
			tc.mu.Unlock()
		}()

		var tick <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tc.Tick)
			defer ticker.Stop()
			tick = ticker.C
		}

		for n := uint64(0); ttis == 0 || n < ttis; n++ {
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			} else if ctx.Err() != nil {
				return
			}
			tc.Step()
		}
	}()
	return done
}

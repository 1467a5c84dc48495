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

// Package ffr holds fractional frequency reuse policies that restrict which
// RBGs the MAC scheduler may give to a UE.
package ffr

import (
	"fmt"
	"strings"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

const (
	PolicyNone = "none"
	PolicyHard = "hard"
	PolicySoft = "soft"
)

// Band is a contiguous range of RBGs.
type Band struct {
	Offset int `yaml:"offset" json:"offset"`
	Rbgs   int `yaml:"rbgs" json:"rbgs"`
}

func (b Band) contains(rbg int) bool {
	return rbg >= b.Offset && rbg < b.Offset+b.Rbgs
}

// Config selects a policy. Dl and Ul are the cell sub-band for "hard" and
// the cell-edge sub-band for "soft".
type Config struct {
	Policy string `yaml:"policy" json:"policy"`
	Dl     Band   `yaml:"dl" json:"dl"`
	Ul     Band   `yaml:"ul" json:"ul"`
}

// Policy is implemented by every reuse scheme of this package.
type Policy interface {
	DlRbgAllowed(rnti models.Rnti, rbg int) bool
	UlRbgAllowed(rnti models.Rnti, rbg int) bool
	SetEdge(rnti models.Rnti, edge bool)
	Forget(rnti models.Rnti)
}

// New builds the configured policy for grids of dlRbgs and ulRbgs groups.
func New(cfg Config, dlRbgs, ulRbgs int) (Policy, error) {
	switch strings.ToLower(cfg.Policy) {
	case "", PolicyNone:
		return NoOp{}, nil
	case PolicyHard:
		if err := checkBand(cfg.Dl, dlRbgs); err != nil {
			return nil, err
		}
		if err := checkBand(cfg.Ul, ulRbgs); err != nil {
			return nil, err
		}
		return Hard{Dl: cfg.Dl, Ul: cfg.Ul}, nil
	case PolicySoft:
		if err := checkBand(cfg.Dl, dlRbgs); err != nil {
			return nil, err
		}
		if err := checkBand(cfg.Ul, ulRbgs); err != nil {
			return nil, err
		}
		return NewSoft(cfg.Dl, cfg.Ul), nil
	}
	return nil, fmt.Errorf("unknown ffr policy %q", cfg.Policy)
}

func checkBand(b Band, rbgs int) error {
	if b.Offset < 0 || b.Rbgs <= 0 || b.Offset+b.Rbgs > rbgs {
		return fmt.Errorf("ffr band [%d, %d) does not fit %d rbgs", b.Offset, b.Offset+b.Rbgs, rbgs)
	}
	return nil
}

// NoOp allows every RBG.
type NoOp struct{}

func (NoOp) DlRbgAllowed(models.Rnti, int) bool { return true }
func (NoOp) UlRbgAllowed(models.Rnti, int) bool { return true }
func (NoOp) SetEdge(models.Rnti, bool)          {}
func (NoOp) Forget(models.Rnti)                 {}

// Hard confines the whole cell to one sub-band per direction.
type Hard struct {
	Dl Band
	Ul Band
}

func (h Hard) DlRbgAllowed(_ models.Rnti, rbg int) bool { return h.Dl.contains(rbg) }
func (h Hard) UlRbgAllowed(_ models.Rnti, rbg int) bool { return h.Ul.contains(rbg) }
func (Hard) SetEdge(models.Rnti, bool)                  {}
func (Hard) Forget(models.Rnti)                         {}

// Soft keeps cell-edge UEs inside the edge sub-band and centre UEs outside
// of it. Not safe for concurrent use.
type Soft struct {
	dlEdge Band
	ulEdge Band
	edge   map[models.Rnti]bool
}

func NewSoft(dlEdge, ulEdge Band) *Soft {
	return &Soft{dlEdge: dlEdge, ulEdge: ulEdge, edge: make(map[models.Rnti]bool)}
}

func (s *Soft) SetEdge(rnti models.Rnti, edge bool) {
	if edge {
		s.edge[rnti] = true
		return
	}
	delete(s.edge, rnti)
}

func (s *Soft) Forget(rnti models.Rnti) {
	delete(s.edge, rnti)
}

func (s *Soft) DlRbgAllowed(rnti models.Rnti, rbg int) bool {
	return s.edge[rnti] == s.dlEdge.contains(rbg)
}

func (s *Soft) UlRbgAllowed(rnti models.Rnti, rbg int) bool {
	return s.edge[rnti] == s.ulEdge.contains(rbg)
}

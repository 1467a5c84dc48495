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

package simulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/ffr"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/mac"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/logging"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/monitoring"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/trafficgen"
)

const (
	PhyLoopback = "loopback"
	PhyGitc     = "gitc"
)

type AppConfig struct {
	HttpVersion   uint16                   `yaml:"httpVersion"`
	OamPort       uint16                   `yaml:"oamPort"`
	MetricsPort   uint16                   `yaml:"metricsPort"`
	InitOnStartup bool                     `yaml:"initOnStartup"`
	Log           logging.Config           `yaml:"log"`
	Tracing       monitoring.TracingConfig `yaml:"tracing"`
	StatsDb       string                   `yaml:"statsDb"` // sqlite path, empty disables the store
	Phy           string                   `yaml:"phy"`     // loopback | gitc
	/* Custom configuration parameters */
	SimulationProfile *CellProfile `yaml:"simulationProfile"`
}

// CellProfile describes one simulated cell and its UE population.
type CellProfile struct {
	DlBandwidth    int           `yaml:"dlBandwidth" json:"dlBandwidth"`
	UlBandwidth    int           `yaml:"ulBandwidth" json:"ulBandwidth"`
	Duplex         models.Duplex `yaml:"duplex" json:"duplex"`
	TddConfig      int           `yaml:"tddConfig" json:"tddConfig"`
	TtiDuration    time.Duration `yaml:"ttiDuration" json:"ttiDuration"`
	Accelerated    bool          `yaml:"accelerated" json:"accelerated"`
	NumOfUe        int           `yaml:"numOfUe" json:"numOfUe"`
	ArrivalRate    float64       `yaml:"arrivalRate" json:"arrivalRate"` // UEs per second
	UeLifetimeTtis uint64        `yaml:"ueLifetimeTtis" json:"ueLifetimeTtis"`
	CqiPeriod      uint64        `yaml:"cqiPeriod" json:"cqiPeriod"`
	Scheduler      mac.Config    `yaml:"scheduler" json:"scheduler"`
	Ffr            ffr.Config    `yaml:"ffr" json:"ffr"`
	Traffic        []TrafficMix  `yaml:"traffic" json:"traffic"`
	Seed           uint64        `yaml:"seed" json:"seed"`
}

// TrafficMix is one class of UEs, drawn with probability proportional to Weight.
type TrafficMix struct {
	Name          string             `yaml:"name" json:"name"`
	Weight        float64            `yaml:"weight" json:"weight"`
	TxMode        uint8              `yaml:"txMode" json:"txMode"`
	SubbandPeriod uint64             `yaml:"subbandPeriod" json:"subbandPeriod"`
	EdgeRatio     float64            `yaml:"edgeRatio" json:"edgeRatio"`
	Dl            trafficgen.Profile `yaml:"dl" json:"dl"`
	Ul            trafficgen.Profile `yaml:"ul" json:"ul"`
}

func DefaultCellProfile() CellProfile {
	return CellProfile{
		DlBandwidth: 25,
		Duplex:      models.DuplexFdd,
		TtiDuration: time.Millisecond,
		NumOfUe:     10,
		ArrivalRate: 100,
		CqiPeriod:   5,
		Scheduler:   mac.DefaultConfig(),
		Ffr:         ffr.Config{Policy: ffr.PolicyNone},
		Traffic: []TrafficMix{{
			Name:   "web",
			Weight: 1,
			TxMode: 1,
			Dl:     trafficgen.Profile{Kind: trafficgen.KindWeb},
			Ul:     trafficgen.Profile{Kind: trafficgen.KindIot},
		}},
	}
}

// UnmarshalYAML starts from the default profile so partial documents keep sane values.
func (p *CellProfile) UnmarshalYAML(node *yaml.Node) error {
	*p = DefaultCellProfile()
	type plain CellProfile
	return node.Decode((*plain)(p))
}

func (p *CellProfile) UnmarshalJSON(data []byte) error {
	*p = DefaultCellProfile()
	type plain CellProfile
	return json.Unmarshal(data, (*plain)(p))
}

func (p *CellProfile) Validate() error {
	var errs []error
	if p.DlBandwidth < 6 || p.DlBandwidth > 110 {
		errs = append(errs, fmt.Errorf("dlBandwidth %d outside 6..110", p.DlBandwidth))
	}
	if p.UlBandwidth != 0 && (p.UlBandwidth < 6 || p.UlBandwidth > 110) {
		errs = append(errs, fmt.Errorf("ulBandwidth %d outside 6..110", p.UlBandwidth))
	}
	if p.TtiDuration <= 0 {
		errs = append(errs, errors.New("ttiDuration must be positive"))
	}
	if p.NumOfUe < 0 {
		errs = append(errs, errors.New("numOfUe must not be negative"))
	}
	if p.NumOfUe > 0 && p.ArrivalRate <= 0 {
		errs = append(errs, errors.New("arrivalRate must be positive"))
	}
	if p.CqiPeriod == 0 {
		errs = append(errs, errors.New("cqiPeriod must be positive"))
	}
	if len(p.Traffic) == 0 {
		errs = append(errs, errors.New("at least one traffic mix is required"))
	}
	for i, t := range p.Traffic {
		if t.Weight <= 0 {
			errs = append(errs, fmt.Errorf("traffic[%d]: weight must be positive", i))
		}
		if t.EdgeRatio < 0 || t.EdgeRatio > 1 {
			errs = append(errs, fmt.Errorf("traffic[%d]: edgeRatio outside 0..1", i))
		}
	}
	if err := p.Scheduler.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Cell returns the cell configuration handed to the scheduler.
func (p *CellProfile) Cell() models.CellConfig {
	return models.CellConfig{
		DlBandwidth: p.DlBandwidth,
		UlBandwidth: p.UlBandwidth,
		Duplex:      p.Duplex,
		TddConfig:   p.TddConfig,
	}
}

func InitConfig(configPath string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	cfg := AppConfig{}
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyDefaults()

	if cfg.InitOnStartup && cfg.SimulationProfile == nil {
		return nil, errors.New("when initializing from startup, simulation profile must be defined in config file")
	}
	if cfg.Phy != PhyLoopback && cfg.Phy != PhyGitc {
		return nil, fmt.Errorf("unknown phy %q", cfg.Phy)
	}
	if cfg.SimulationProfile != nil {
		if err := cfg.SimulationProfile.Validate(); err != nil {
			return nil, fmt.Errorf("simulationProfile: %w", err)
		}
	}
	return &cfg, nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.HttpVersion == 0 {
		cfg.HttpVersion = 1
	}
	if cfg.OamPort == 0 {
		cfg.OamPort = 8081
	}
	if cfg.MetricsPort == 0 {
		cfg.MetricsPort = 9090
	}
	if cfg.Phy == "" {
		cfg.Phy = PhyLoopback
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func (cfg *AppConfig) Dumps() string {
	d, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(d)
}

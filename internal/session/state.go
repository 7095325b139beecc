// Package session keeps the deployment session: the single record describing
// the chain being configured, its signers and, once deployed, its contracts.
package session

import (
	"github.com/Bidon15/orbit-setup/internal/orbit"
)

// Storage slots.
const (
	StateKey      = "arbitrum:orbit:state"
	NodeConfigKey = "arbitrum:orbit:nodeConfig"
	L3ConfigKey   = "arbitrum:orbit:l3Config"
)

// SchemaVersion tags the persisted record. Records carrying any other version
// are ignored on load.
const SchemaVersion = 1

// State is the deployment session.
type State struct {
	RollupConfig        orbit.RollupConfig   `json:"rollupConfig"`
	ChainType           *orbit.ChainType     `json:"chainType,omitempty"`
	Validators          []orbit.Wallet       `json:"validators"`
	BatchPoster         *orbit.Wallet        `json:"batchPoster,omitempty"`
	RollupContracts     *orbit.CoreContracts `json:"rollupContracts,omitempty"`
	IsLoading           bool                 `json:"-"`
	IsDownloadCompleted bool                 `json:"isDownloadCompleted"`
}

// record is the persisted form of State.
type record struct {
	Version int `json:"version"`
	State
}

// NewState returns a fresh session built on rollupConfig.
func NewState(rollupConfig orbit.RollupConfig) State {
	return State{RollupConfig: rollupConfig}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	if s.ChainType != nil {
		ct := *s.ChainType
		out.ChainType = &ct
	}
	if s.Validators != nil {
		out.Validators = make([]orbit.Wallet, len(s.Validators))
		copy(out.Validators, s.Validators)
	}
	if s.BatchPoster != nil {
		bp := *s.BatchPoster
		out.BatchPoster = &bp
	}
	if s.RollupContracts != nil {
		rc := *s.RollupContracts
		out.RollupContracts = &rc
	}
	return out
}

// Deployed reports whether the session holds the contracts of a deployment.
func (s State) Deployed() bool {
	return s.RollupContracts != nil
}

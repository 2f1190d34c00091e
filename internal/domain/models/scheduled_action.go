package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ActionStatus describes where a scheduled action sits relative to its window
type ActionStatus string

const (
	ActionStatusPending ActionStatus = "pending"
	ActionStatusReady   ActionStatus = "ready"
	ActionStatusExpired ActionStatus = "expired"
)

// ScheduledAction is one delayed call held by the timelock queue.
// Records are created by schedule and destroyed by execute or abandon.
type ScheduledAction struct {
	Target   common.Address `json:"target"`
	CodeHash common.Hash    `json:"codeHash"`
	Payload  hexutil.Bytes  `json:"payload"`
	ETA      uint64         `json:"eta"`

	// ScheduledAt is the timestamp the record was created; not part of either key
	ScheduledAt uint64 `json:"scheduledAt,omitempty"`
}

// Key is the identity key: hash(target, code hash, payload, eta)
func (a *ScheduledAction) Key() common.Hash {
	return hashPacked(actionKeyArgs, a.Target, [32]byte(a.CodeHash), payloadBytes(a.Payload), u256(a.ETA))
}

// ContentKey ignores the eta so the same logical call cannot be pending twice
func (a *ScheduledAction) ContentKey() common.Hash {
	return hashPacked(contentKeyArgs, a.Target, [32]byte(a.CodeHash), payloadBytes(a.Payload))
}

// ExpiresAt is the first timestamp at which execution is no longer permitted
func (a *ScheduledAction) ExpiresAt(window uint64) uint64 {
	return a.ETA + window
}

// Status classifies the action at the given time
func (a *ScheduledAction) Status(now, window uint64) ActionStatus {
	switch {
	case now < a.ETA:
		return ActionStatusPending
	case now >= a.ExpiresAt(window):
		return ActionStatusExpired
	default:
		return ActionStatusReady
	}
}

// Clone returns a deep copy
func (a *ScheduledAction) Clone() *ScheduledAction {
	c := *a
	c.Payload = append(hexutil.Bytes(nil), a.Payload...)
	return &c
}

func payloadBytes(p hexutil.Bytes) []byte {
	if p == nil {
		return []byte{}
	}
	return p
}

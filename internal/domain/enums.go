package domain

import "strings"

// MovementKind enumerates the ledger movement types.
type MovementKind string

const (
	MovementInbound        MovementKind = "INBOUND"
	MovementOutbound       MovementKind = "OUTBOUND"
	MovementTransferOut    MovementKind = "TRANSFER_OUT"
	MovementTransferIn     MovementKind = "TRANSFER_IN"
	MovementAdjustment     MovementKind = "ADJUSTMENT"
	MovementSyncCorrection MovementKind = "SYNC_CORRECTION"
	MovementInitialLoad    MovementKind = "INITIAL_LOAD"
)

var movementKinds = map[MovementKind]bool{
	MovementInbound:        true,
	MovementOutbound:       true,
	MovementTransferOut:    true,
	MovementTransferIn:     true,
	MovementAdjustment:     true,
	MovementSyncCorrection: true,
	MovementInitialLoad:    true,
}

// ParseMovementKind returns the movement kind for a label (case-insensitive).
func ParseMovementKind(label string) (MovementKind, bool) {
	kind := MovementKind(strings.ToUpper(label))
	return kind, movementKinds[kind]
}

// Valid reports whether the kind is one of the enumerated movement types.
func (k MovementKind) Valid() bool {
	return movementKinds[k]
}

// WarehouseType distinguishes owned locations from channel fulfillment.
type WarehouseType string

const (
	WarehouseOwned              WarehouseType = "OWNED"
	WarehouseChannelFulfillment WarehouseType = "CHANNEL_FF"
)

// ActionCategory buckets a recommendation by urgency.
type ActionCategory string

const (
	ActionOrderToday        ActionCategory = "ORDER_TODAY"
	ActionAlreadyOrdered    ActionCategory = "ALREADY_ORDERED"
	ActionAttentionRequired ActionCategory = "ATTENTION_REQUIRED"
	ActionNormal            ActionCategory = "NORMAL"
)

// Confidence grades a forecast by the depth and stability of its history.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

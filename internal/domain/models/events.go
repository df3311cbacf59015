package models

import (
	"encoding/json"
	"fmt"
)

// PushAction enumerates the actions carried by push channel frames.
type PushAction string

const (
	ActionInventoryDeducted PushAction = "inventory_deducted"
)

// PushMessage mirrors a frame received on the live sync channel.
type PushMessage struct {
	Action    PushAction `json:"action"`
	ProductID int64      `json:"product_id"`
}

// StockDelta asserts that one unit of the product has been sold somewhere.
type StockDelta struct {
	ProductID int64 `json:"product_id"`
}

// ParsePushMessage decodes a UTF-8 JSON frame.
func ParsePushMessage(frame []byte) (PushMessage, error) {
	var msg PushMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return PushMessage{}, fmt.Errorf("decode push frame: %w", err)
	}
	return msg, nil
}

// StockDelta converts the message into a delta. The second return value is
// false for actions that carry no stock change.
func (m PushMessage) StockDelta() (StockDelta, bool) {
	if m.Action != ActionInventoryDeducted {
		return StockDelta{}, false
	}
	return StockDelta{ProductID: m.ProductID}, true
}

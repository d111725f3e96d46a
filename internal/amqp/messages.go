package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"masraf/internal/core"
)

// RowAppendedMessage announces a record that was appended to the primary
// ledger. Cells are positional, in ledger column order.
type RowAppendedMessage struct {
	Backend   string    `json:"backend"`
	Row       int       `json:"row"`
	Cells     []string  `json:"cells"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRowAppendedMessage(backend string, row core.LedgerRow) *RowAppendedMessage {
	cells := row.Raw
	if len(cells) == 0 {
		cells = row.Record.Strings()
	}
	return &RowAppendedMessage{
		Backend:   backend,
		Row:       row.Index,
		Cells:     append([]string(nil), cells...),
		Timestamp: time.Now(),
	}
}

// Record rebuilds the expense record from the message cells.
func (m *RowAppendedMessage) Record() core.ExpenseRecord {
	return core.RecordFromCells(m.Cells)
}

func (m *RowAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RowAppendedMessageFromJSON(data []byte) (*RowAppendedMessage, error) {
	var msg RowAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if len(msg.Cells) != core.ColumnCount {
		return nil, fmt.Errorf("expected %d cells, got %d", core.ColumnCount, len(msg.Cells))
	}
	return &msg, nil
}

package indexer

import (
	"encoding/json"
	"strings"
)

type Operation string

const (
	OperationEtching Operation = "etching"
	OperationMint    Operation = "mint"
	OperationBurn    Operation = "burn"
	OperationSend    Operation = "send"
	OperationReceive Operation = "receive"
	OperationUnknown Operation = "unknown"
)

// UnmarshalJSON maps any operation the bridge does not know to OperationUnknown
func (o *Operation) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch op := Operation(strings.ToLower(raw)); op {
	case OperationEtching, OperationMint, OperationBurn, OperationSend, OperationReceive:
		*o = op
	default:
		*o = OperationUnknown
	}
	return nil
}

type RuneRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SpacedName string `json:"spaced_name"`
}

type Location struct {
	BlockHash   string  `json:"block_hash"`
	BlockHeight uint64  `json:"block_height"`
	TxID        string  `json:"tx_id"`
	TxIndex     uint64  `json:"tx_index"`
	Vout        *uint32 `json:"vout"`
	Output      *string `json:"output"`
	Timestamp   uint64  `json:"timestamp"`
}

// ActivityRecord is one rune movement as reported by the indexer
type ActivityRecord struct {
	Rune            *RuneRef  `json:"rune,omitempty"`
	Address         *string   `json:"address"`
	ReceiverAddress *string   `json:"receiver_address"`
	Amount          *string   `json:"amount"`
	Operation       Operation `json:"operation"`
	Location        Location  `json:"location"`
}

// ActivityPage is the paginated envelope of both activity endpoints
type ActivityPage struct {
	Limit   uint64           `json:"limit"`
	Offset  uint64           `json:"offset"`
	Total   uint64           `json:"total"`
	Results []ActivityRecord `json:"results"`
}

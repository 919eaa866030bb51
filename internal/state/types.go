package state

// BlockHashEvent is published when the bitcoin chain tip moves
type BlockHashEvent struct {
	Hash   string
	Height int32
}

// DepositClaimedEvent is published after a claim signature is handed out
type DepositClaimedEvent struct {
	Identifier      string
	TxID            string
	Vout            uint32
	RuneID          string
	Amount          string
	StarknetAddress string
}

// WithdrawalResolvedEvent is published when a withdrawal status is computed from chain data
type WithdrawalResolvedEvent struct {
	Identifier string
	Status     string
}

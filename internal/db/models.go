package db

import "time"

// Cursor bounds the validity range of a versioned document. A nil To marks the current version.
type Cursor struct {
	From int64  `gorm:"not null" json:"from"`
	To   *int64 `gorm:"index" json:"to"`
}

// DepositAddress model, one derived deposit address per starknet account
type DepositAddress struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	StarknetAddress       string    `gorm:"not null;uniqueIndex" json:"starknet_address"`
	BitcoinDepositAddress string    `gorm:"not null;index" json:"bitcoin_deposit_address"`
	CreatedAt             time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time `gorm:"not null" json:"updated_at"`
}

// SupportedRune model, rune metadata the bridge accepts
type SupportedRune struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"not null;uniqueIndex" json:"name"`
	SpacedName   string `gorm:"not null" json:"spaced_name"`
	Number       uint64 `gorm:"not null" json:"number"`
	Symbol       string `gorm:"not null" json:"symbol"`
	Divisibility uint8  `gorm:"not null" json:"divisibility"`
	Turbo        bool   `gorm:"not null;default:false" json:"turbo"`
	MintTerms    string `gorm:"type:text" json:"mint_terms"`
	Supply       string `gorm:"type:text" json:"supply"`
	Location     string `gorm:"type:text" json:"location"`
}

func (SupportedRune) TableName() string {
	return "runes"
}

// ClaimedDeposit model, one row per signed claim, keyed by "{tx_id}:{vout}"
type ClaimedDeposit struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Identifier         string    `gorm:"not null;uniqueIndex" json:"identifier"`
	TxID               string    `gorm:"not null;index" json:"tx_id"`
	Vout               uint32    `gorm:"not null" json:"vout"`
	RuneID             string    `gorm:"not null" json:"rune_id"`
	RuneName           string    `gorm:"not null" json:"rune_name"`
	RuneSpacedName     string    `gorm:"not null" json:"rune_spaced_name"`
	Amount             string    `gorm:"not null" json:"amount"`
	BitcoinDepositAddr string    `gorm:"not null" json:"bitcoin_deposit_addr"`
	StarknetAddress    string    `gorm:"not null;index" json:"starknet_address"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

func (ClaimedDeposit) TableName() string {
	return CLAIMED_DEPOSIT_TABLE
}

// DepositClaimTx model, starknet claim transaction observed for a deposit (versioned)
type DepositClaimTx struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Identifier      string `gorm:"not null;index" json:"identifier"`
	RuneID          string `gorm:"not null" json:"rune_id"`
	Amount          string `gorm:"not null" json:"amount"`
	CallerAddress   string `gorm:"not null" json:"caller_address"`
	TargetAddress   string `gorm:"not null;index" json:"target_address"`
	TransactionHash string `gorm:"not null" json:"transaction_hash"`
	Cursor          Cursor `gorm:"embedded;embeddedPrefix:cursor_" json:"cursor"`
}

func (DepositClaimTx) TableName() string {
	return DEPOSIT_CLAIM_TABLE
}

// WithdrawalRequest model, starknet-side withdrawal request (versioned)
type WithdrawalRequest struct {
	ID                   uint   `gorm:"primaryKey" json:"id"`
	Identifier           string `gorm:"not null;index" json:"identifier"`
	RuneID               string `gorm:"not null" json:"rune_id"`
	Amount               string `gorm:"not null" json:"amount"`
	TargetBitcoinAddress string `gorm:"not null;index" json:"target_bitcoin_address"`
	CallerAddress        string `gorm:"not null;index" json:"caller_address"`
	TransactionHash      string `gorm:"not null;index" json:"transaction_hash"`
	Cursor               Cursor `gorm:"embedded;embeddedPrefix:cursor_" json:"cursor"`
}

func (WithdrawalRequest) TableName() string {
	return WITHDRAW_REQ_TABLE
}

// WithdrawalSubmission model, the bitcoin-side handling of a withdrawal request
type WithdrawalSubmission struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Identifier     string    `gorm:"not null;uniqueIndex" json:"identifier"`
	RequestID      *string   `json:"request_id"`
	RejectedStatus *string   `json:"rejected_status"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (WithdrawalSubmission) TableName() string {
	return WITHDRAW_SUB_TABLE
}

// BlacklistedDeposit model, deposits excluded from claiming
type BlacklistedDeposit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TxID      string    `gorm:"not null;uniqueIndex" json:"tx_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

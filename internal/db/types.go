package db

const (
	DEPOSIT_STATUS_PENDING   = "pending"
	DEPOSIT_STATUS_CONFIRMED = "confirmed"
	DEPOSIT_STATUS_CLAIMED   = "claimed"

	WITHDRAW_STATUS_IN_REVIEW = "in_review"
	WITHDRAW_STATUS_REJECTED  = "rejected"
	WITHDRAW_STATUS_SUBMITTED = "submitted"

	CLAIMED_DEPOSIT_TABLE = "claimed_runes_deposits"
	DEPOSIT_CLAIM_TABLE   = "deposit_claim_txs"
	WITHDRAW_REQ_TABLE    = "withdrawal_requests"
	WITHDRAW_SUB_TABLE    = "withdrawal_submissions"
)

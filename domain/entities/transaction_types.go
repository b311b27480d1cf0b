package entities

// TransactionType labels why a balance changed
type TransactionType string

const (
	TransactionTypeStartingBalance TransactionType = "starting_balance"
	TransactionTypeDuelStake       TransactionType = "duel_stake"
	TransactionTypeDuelRefund      TransactionType = "duel_refund"
	TransactionTypeDuelPayout      TransactionType = "duel_payout"
	TransactionTypeRaffleBet       TransactionType = "raffle_bet"
	TransactionTypeRaffleRefund    TransactionType = "raffle_refund"
	TransactionTypeRafflePayout    TransactionType = "raffle_payout"
	TransactionTypeCommission      TransactionType = "commission"
	TransactionTypeTransferOut     TransactionType = "transfer_out"
	TransactionTypeTransferIn      TransactionType = "transfer_in"
	TransactionTypeDeposit         TransactionType = "deposit"
	TransactionTypeAdmin           TransactionType = "admin"
)

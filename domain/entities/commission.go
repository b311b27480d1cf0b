package entities

// CommissionPercent is the house share of every settled bank
const CommissionPercent = 1

// Settlement is the split of a bank between the winner and the house
type Settlement struct {
	Bank       int64
	Commission int64
	Prize      int64
}

// SettleBank splits bank into floor(bank/100) commission and the remaining prize
func SettleBank(bank int64) Settlement {
	commission := bank * CommissionPercent / 100
	return Settlement{
		Bank:       bank,
		Commission: commission,
		Prize:      bank - commission,
	}
}

package solana

import "strconv"

// TokenAmount is the value of getTokenSupply.
type TokenAmount struct {
	Amount         string
	Decimals       int
	UIAmount       *float64
	UIAmountString string
}

// Float returns the UI amount. Nodes omit uiAmount for very large values,
// in which case uiAmountString is parsed.
func (a TokenAmount) Float() (float64, bool) {
	if a.UIAmount != nil {
		return *a.UIAmount, true
	}
	if a.UIAmountString == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(a.UIAmountString, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// TokenAccountBalance is one entry of getTokenLargestAccounts.
type TokenAccountBalance struct {
	Address string
	TokenAmount
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

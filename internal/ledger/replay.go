package ledger

import (
	"fmt"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
)

// ChainError points at the first transaction whose balance_after does not
// follow from the ones before it.
type ChainError struct {
	TransactionID int64
	Expected      money.Amount
	Recorded      money.Amount
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("transaction %d: balance_after %s, replay gives %s",
		e.TransactionID, e.Recorded, e.Expected)
}

// Replay folds transactions (oldest first) into a balance, checking every
// balance_after snapshot and that the running balance never dips below zero.
func Replay(txs []Transaction) (money.Amount, error) {
	running := money.Zero
	for _, t := range txs {
		running = running.Add(t.Signed())
		if running.IsNegative() {
			return running, fmt.Errorf("transaction %d drives balance negative (%s)", t.ID, running)
		}
		if !running.Equal(t.BalanceAfter) {
			return running, &ChainError{TransactionID: t.ID, Expected: running, Recorded: t.BalanceAfter}
		}
	}
	return running, nil
}

// Package bootpeer seeds an ascending.Attempt's selection.Set from
// already-persisted state at startup, so a restarted node resumes
// bootstrapping every account it previously knew about instead of
// waiting to rediscover them via forwarding (spec.md §4.5).
package bootpeer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/selection"
	"github.com/tolelom/latticenode/store"
)

// Seed walks st's current state and populates sel: every account ever
// opened becomes a bootstrap candidate (Unblock), and every account with
// at least one pending receive is additionally forwarded, mirroring the
// priority ascending.Attempt's inspection hook gives a send's
// destination once it observes one directly.
func Seed(st store.Store, sel *selection.Set) error {
	snap, err := st.NewSnapshot()
	if err != nil {
		return fmt.Errorf("bootpeer: snapshot: %w", err)
	}

	accounts := 0
	if err := snap.IterateAccounts(func(acct block.Account, _ block.AccountInfo) (bool, error) {
		sel.Unblock(acct)
		accounts++
		return true, nil
	}); err != nil {
		return fmt.Errorf("bootpeer: iterate accounts: %w", err)
	}

	pending := 0
	if err := snap.IteratePendingDestinations(func(dest block.Account) (bool, error) {
		sel.Unblock(dest)
		sel.Forward(dest)
		pending++
		return true, nil
	}); err != nil {
		return fmt.Errorf("bootpeer: iterate pending destinations: %w", err)
	}

	logrus.WithFields(logrus.Fields{"accounts": accounts, "pending_destinations": pending}).Info("bootpeer: seeded selection set")
	return nil
}

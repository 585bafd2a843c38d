package entities

import (
	"errors"
	"fmt"

	"mathops/domain/core/valueobjects"
)

// AccountStatus is the lifecycle state of a user account.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

var (
	ErrAccountInactive     = errors.New("account is inactive")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// Account is a user's credit ledger entry. It is mutated only by debits.
type Account struct {
	identity valueobjects.Identity
	status   AccountStatus
	balance  valueobjects.Credits
}

// NewAccount builds an account, rejecting negative balances and unknown statuses.
func NewAccount(identity valueobjects.Identity, status AccountStatus, balance valueobjects.Credits) (*Account, error) {
	if identity.IsZero() {
		return nil, valueobjects.ErrEmptyIdentity
	}
	if status != AccountActive && status != AccountInactive {
		return nil, fmt.Errorf("unknown account status %q", status)
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("balance cannot be negative: %s", balance)
	}
	return &Account{identity: identity, status: status, balance: balance}, nil
}

func (a *Account) Identity() valueobjects.Identity { return a.identity }
func (a *Account) Status() AccountStatus           { return a.status }
func (a *Account) Balance() valueobjects.Credits   { return a.balance }
func (a *Account) IsActive() bool                  { return a.status == AccountActive }

// CanAfford reports whether an operation of the given cost may run.
func (a *Account) CanAfford(cost valueobjects.Credits) error {
	if !a.IsActive() {
		return ErrAccountInactive
	}
	if a.balance.LessThan(cost) {
		return fmt.Errorf("%w: balance %s, cost %s", ErrInsufficientCredits, a.balance, cost)
	}
	return nil
}

// BalanceAfter returns the balance once cost is debited.
func (a *Account) BalanceAfter(cost valueobjects.Credits) (valueobjects.Credits, error) {
	if err := a.CanAfford(cost); err != nil {
		return valueobjects.Credits{}, err
	}
	return a.balance.Sub(cost), nil
}

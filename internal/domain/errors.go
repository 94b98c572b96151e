package domain

import "errors"

// Errors shared by the ledger, reserve and coordinator. Every failing call
// is atomic: state is exactly as it was before the call.
var (
	// ErrInvalidAmount is returned for zero, negative or missing quantities.
	ErrInvalidAmount = errors.New("must have valid amount")

	// ErrInsufficientBalance is returned when a draw exceeds the holder's
	// available funds (free balance plus warm-up, depending on the operation).
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientShares is returned when a provider redeems more reserve
	// shares than they hold.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrNotEnoughFunds is returned when a token transfer cannot be covered,
	// including reserve payouts against the liquid (non-deployed) balance.
	ErrNotEnoughFunds = errors.New("not enough funds")

	// ErrInvalidAddress is returned when wiring a zero-value address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrAlreadyInitialized is returned when one-time setup is called twice.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrAlreadyEnabled is returned when the liquidity reserve is enabled twice.
	ErrAlreadyEnabled = errors.New("already enabled")

	// ErrNotEnabled is returned when the liquidity reserve is used before
	// being wired to a coordinator.
	ErrNotEnabled = errors.New("liquidity reserve not enabled")

	// ErrOutOfRange is returned when a fee or parameter exceeds its bounds.
	ErrOutOfRange = errors.New("out of range")

	// ErrStakingPaused is returned when staking is administratively halted.
	ErrStakingPaused = errors.New("staking is paused")

	// ErrUnstakingPaused is returned when unstaking is administratively halted.
	ErrUnstakingPaused = errors.New("unstaking is paused")

	// ErrInstantUnstakePaused is returned when instant unstaking is halted.
	ErrInstantUnstakePaused = errors.New("instant unstaking is paused")

	// ErrNotAuthorized is returned when the caller lacks the required authority.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrSupplyZero is returned when a rebase has no circulating supply to
	// distribute over.
	ErrSupplyZero = errors.New("circulating supply is zero")

	// ErrNotEnoughStakingTokens is returned when the reserve is enabled
	// without the minimum initial liquidity seed.
	ErrNotEnoughStakingTokens = errors.New("not enough staking tokens to seed reserve")

	// ErrSlippage is returned when a swap output falls below the caller's
	// minimum.
	ErrSlippage = errors.New("output below minimum")
)

package block

// ProcessResult is the closed set of outcomes check.Context.Check can
// return. There are no ad-hoc string outcomes anywhere in the core.
type ProcessResult uint8

const (
	ResultProgress ProcessResult = iota
	ResultOld
	ResultGapPrevious
	ResultGapSource
	ResultGapEpochOpenPending
	ResultBadSignature
	ResultNegativeSpend
	ResultFork
	ResultUnreceivable
	ResultBlockPosition
	ResultInsufficientWork
	ResultOpenedBurnAccount
	ResultBalanceMismatch
	ResultRepresentativeMismatch
)

func (r ProcessResult) String() string {
	switch r {
	case ResultProgress:
		return "progress"
	case ResultOld:
		return "old"
	case ResultGapPrevious:
		return "gap_previous"
	case ResultGapSource:
		return "gap_source"
	case ResultGapEpochOpenPending:
		return "gap_epoch_open_pending"
	case ResultBadSignature:
		return "bad_signature"
	case ResultNegativeSpend:
		return "negative_spend"
	case ResultFork:
		return "fork"
	case ResultUnreceivable:
		return "unreceivable"
	case ResultBlockPosition:
		return "block_position"
	case ResultInsufficientWork:
		return "insufficient_work"
	case ResultOpenedBurnAccount:
		return "opened_burn_account"
	case ResultBalanceMismatch:
		return "balance_mismatch"
	case ResultRepresentativeMismatch:
		return "representative_mismatch"
	default:
		return "unknown"
	}
}

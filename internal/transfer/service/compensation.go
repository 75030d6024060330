package service

import "crossrail/internal/transfer/models"

// CompensationPlan names the recovery action owed after a saga failure.
type CompensationPlan int

const (
	// PlanNone: nothing moved, the transfer simply failed.
	PlanNone CompensationPlan = iota

	// PlanRefund: the debit landed but the value never entered the bridge;
	// push the money back to the source account.
	PlanRefund

	// PlanMintStranded: value sits in the bridge asset with no completed
	// redemption. No automatic recovery is attempted; a redeem retry against
	// a possibly-wrong destination risks sending funds to the wrong place.
	PlanMintStranded

	// PlanPayoutFailed: fiat reached the destination custodial account but
	// not the recipient. Flagged for manual payout retry; a blind retry
	// would repeat whatever rejected the recipient details.
	PlanPayoutFailed
)

// PlanFor derives the compensation plan purely from which steps succeeded.
// It inspects the outcome's recorded steps and nothing else, so replaying
// the same step history always yields the same plan.
func PlanFor(outcome *models.TransferOutcome) CompensationPlan {
	switch {
	case outcome.StepSucceeded(models.StepRedeem):
		if outcome.StepSucceeded(models.StepPayout) {
			return PlanNone
		}
		return PlanPayoutFailed
	case outcome.StepSucceeded(models.StepMint):
		return PlanMintStranded
	case outcome.StepSucceeded(models.StepDebit):
		return PlanRefund
	default:
		return PlanNone
	}
}

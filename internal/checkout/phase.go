package checkout

type Phase string

const (
	PhaseIdle                        Phase = "IDLE"
	PhasePreviewing                  Phase = "PREVIEWING"
	PhaseReady                       Phase = "READY"
	PhasePreviewFailed               Phase = "PREVIEW_FAILED"
	PhasePlacingOrder                Phase = "PLACING_ORDER"
	PhaseInitiatingPayment           Phase = "INITIATING_PAYMENT"
	PhaseAwaitingPaymentConfirmation Phase = "AWAITING_PAYMENT_CONFIRMATION"
	PhaseCompleted                   Phase = "COMPLETED"
	PhasePaymentFailed               Phase = "PAYMENT_FAILED"
	PhaseVerificationFailed          Phase = "VERIFICATION_FAILED"
)

func (p Phase) String() string {
	return string(p)
}

func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseCompleted, PhasePaymentFailed, PhaseVerificationFailed, PhasePreviewFailed:
		return true
	default:
		return false
	}
}

// InFlight reports phases that wait on a backend call started by PlaceOrder.
func (p Phase) InFlight() bool {
	return p == PhasePlacingOrder || p == PhaseInitiatingPayment
}

// Pending reports phases whose outcome is still open on the backend or the payment provider.
func (p Phase) Pending() bool {
	return p.InFlight() || p == PhaseAwaitingPaymentConfirmation
}

type FailureReason string

const (
	ReasonNone      FailureReason = ""
	ReasonDeclined  FailureReason = "declined"
	ReasonCancelled FailureReason = "cancelled"
)

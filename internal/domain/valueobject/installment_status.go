package valueobject

import "fmt"

// InstallmentStatus is the state of one scheduled obligation.
type InstallmentStatus struct {
	value string
}

const (
	installmentUpcoming      = "UPCOMING"
	installmentPending       = "PENDING"
	installmentPaid          = "PAID"
	installmentPartiallyPaid = "PARTIALLY_PAID"
	installmentOverdue       = "OVERDUE"
	installmentWaived        = "WAIVED"
)

var (
	InstallmentUpcoming      = InstallmentStatus{value: installmentUpcoming}
	InstallmentPending       = InstallmentStatus{value: installmentPending}
	InstallmentPaid          = InstallmentStatus{value: installmentPaid}
	InstallmentPartiallyPaid = InstallmentStatus{value: installmentPartiallyPaid}
	InstallmentOverdue       = InstallmentStatus{value: installmentOverdue}
	InstallmentWaived        = InstallmentStatus{value: installmentWaived}
)

var validInstallmentStatuses = map[string]InstallmentStatus{
	installmentUpcoming:      InstallmentUpcoming,
	installmentPending:       InstallmentPending,
	installmentPaid:          InstallmentPaid,
	installmentPartiallyPaid: InstallmentPartiallyPaid,
	installmentOverdue:       InstallmentOverdue,
	installmentWaived:        InstallmentWaived,
}

// NewInstallmentStatus creates an InstallmentStatus from a raw string.
func NewInstallmentStatus(s string) (InstallmentStatus, error) {
	v, ok := validInstallmentStatuses[s]
	if !ok {
		return InstallmentStatus{}, fmt.Errorf("invalid installment status: %q", s)
	}
	return v, nil
}

func (s InstallmentStatus) String() string { return s.value }

func (s InstallmentStatus) IsZero() bool { return s.value == "" }

func (s InstallmentStatus) Equal(other InstallmentStatus) bool { return s.value == other.value }

// IsResolved is true for PAID and WAIVED: nothing more is owed.
func (s InstallmentStatus) IsResolved() bool {
	return s.value == installmentPaid || s.value == installmentWaived
}

package classifier

import "github.com/m4n5ter/ownership-cache-killer/notification"

type Action int

const (
	// Unsupported notifications are logged and never reported.
	Unsupported Action = iota
	// SkipWithSuccess reports DONE without touching the cache.
	SkipWithSuccess
	// PurgeThenReport purges the account's cached ownership data, then reports.
	PurgeThenReport
)

func (a Action) String() string {
	switch a {
	case SkipWithSuccess:
		return "skip"
	case PurgeThenReport:
		return "purge"
	default:
		return "unsupported"
	}
}

// Decision is the outcome of classifying a notification.
// AccountIdentifier is only set for PurgeThenReport.
type Decision struct {
	Action            Action
	AccountIdentifier string
}

// Classify maps a notification to a decision. It never performs I/O.
func Classify(n notification.Notification) Decision {
	switch n.Type {
	case notification.TypeHeartbeat:
		return Decision{Action: SkipWithSuccess}
	case notification.TypeDelete:
		// Non-child deletions are completed upstream.
		if n.AccountType() != notification.AccountChild {
			return Decision{Action: SkipWithSuccess}
		}
		if isChildDataDeletionRequestedByParent(n) {
			return Decision{Action: SkipWithSuccess}
		}
		return Decision{Action: PurgeThenReport, AccountIdentifier: n.AccountIdentifier}
	default:
		return Decision{Action: Unsupported}
	}
}

// A parent asking to remove only child-directed data keeps the child account active,
// so the ownership cache stays valid.
func isChildDataDeletionRequestedByParent(n notification.Notification) bool {
	return n.Obligation == notification.ObligationPartialKeepActive &&
		n.EligibleDataTypes.Only(notification.DataChildDirected)
}

package compliance

import (
	"context"

	"github.com/m4n5ter/ownership-cache-killer/notification"
)

// Status is the deletion status reported to the compliance authority.
//
// DONE means all data was purged from this system, NOT_DONE means it was not.
type Status string

const (
	StatusDone    Status = "DONE"
	StatusNotDone Status = "NOT_DONE"
)

type Reporter interface {
	// ReportDeleteStatus reports the status of a deletion case identified by caseID.
	ReportDeleteStatus(ctx context.Context, caseID, requestType, serviceName string, status Status) error

	// ReportNotificationStatus reports the status of a classified notification.
	ReportNotificationStatus(ctx context.Context, n notification.Notification, serviceName string, status Status) error
}

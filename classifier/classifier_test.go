package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4n5ter/ownership-cache-killer/notification"
)

func child() *notification.Metadata {
	return &notification.Metadata{AccountType: notification.AccountChild}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		n    notification.Notification
		want Decision
	}{
		{
			name: "heartbeat",
			n:    notification.Notification{Type: notification.TypeHeartbeat},
			want: Decision{Action: SkipWithSuccess},
		},
		{
			name: "heartbeat ignores child metadata",
			n: notification.Notification{
				Type:              notification.TypeHeartbeat,
				AccountIdentifier: "acc-1",
				Metadata:          child(),
				Obligation:        notification.ObligationFullDeletion,
			},
			want: Decision{Action: SkipWithSuccess},
		},
		{
			name: "delete without metadata",
			n:    notification.Notification{Type: notification.TypeDelete, AccountIdentifier: "acc-1"},
			want: Decision{Action: SkipWithSuccess},
		},
		{
			name: "delete for parent account",
			n: notification.Notification{
				Type:              notification.TypeDelete,
				AccountIdentifier: "acc-1",
				Metadata:          &notification.Metadata{AccountType: notification.AccountParent},
				Obligation:        notification.ObligationFullDeletion,
			},
			want: Decision{Action: SkipWithSuccess},
		},
		{
			name: "delete with unset account type",
			n: notification.Notification{
				Type:              notification.TypeDelete,
				AccountIdentifier: "acc-1",
				Metadata:          &notification.Metadata{},
			},
			want: Decision{Action: SkipWithSuccess},
		},
		{
			name: "parent removing child-directed data only",
			n: notification.Notification{
				Type:              notification.TypeDelete,
				AccountIdentifier: "acc-1",
				Metadata:          child(),
				Obligation:        notification.ObligationPartialKeepActive,
				EligibleDataTypes: notification.NewDataTypeSet(notification.DataChildDirected),
			},
			want: Decision{Action: SkipWithSuccess},
		},
		{
			name: "child full deletion",
			n: notification.Notification{
				Type:              notification.TypeDelete,
				AccountIdentifier: "acc-1",
				Metadata:          child(),
				Obligation:        notification.ObligationFullDeletion,
			},
			want: Decision{Action: PurgeThenReport, AccountIdentifier: "acc-1"},
		},
		{
			name: "child without obligation",
			n: notification.Notification{
				Type:              notification.TypeDelete,
				AccountIdentifier: "acc-1",
				Metadata:          child(),
				EligibleDataTypes: notification.NewDataTypeSet(notification.DataChildDirected),
			},
			want: Decision{Action: PurgeThenReport, AccountIdentifier: "acc-1"},
		},
		{
			name: "partial deletion with extra data types",
			n: notification.Notification{
				Type:              notification.TypeDelete,
				AccountIdentifier: "acc-1",
				Metadata:          child(),
				Obligation:        notification.ObligationPartialKeepActive,
				EligibleDataTypes: notification.NewDataTypeSet(notification.DataChildDirected, "OTHER"),
			},
			want: Decision{Action: PurgeThenReport, AccountIdentifier: "acc-1"},
		},
		{
			name: "partial deletion with no data types",
			n: notification.Notification{
				Type:              notification.TypeDelete,
				AccountIdentifier: "acc-1",
				Metadata:          child(),
				Obligation:        notification.ObligationPartialKeepActive,
			},
			want: Decision{Action: PurgeThenReport, AccountIdentifier: "acc-1"},
		},
		{
			name: "partial deletion of another single data type",
			n: notification.Notification{
				Type:              notification.TypeDelete,
				AccountIdentifier: "acc-1",
				Metadata:          child(),
				Obligation:        notification.ObligationPartialKeepActive,
				EligibleDataTypes: notification.NewDataTypeSet("VOICE_RECORDINGS"),
			},
			want: Decision{Action: PurgeThenReport, AccountIdentifier: "acc-1"},
		},
		{
			name: "portability",
			n:    notification.Notification{Type: notification.TypePortability, Metadata: child()},
			want: Decision{Action: Unsupported},
		},
		{
			name: "unknown",
			n:    notification.Notification{Type: notification.TypeUnknown},
			want: Decision{Action: Unsupported},
		},
		{
			name: "unrecognized value",
			n:    notification.Notification{Type: "RECTIFICATION", AccountIdentifier: "acc-1", Metadata: child()},
			want: Decision{Action: Unsupported},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.n))
		})
	}
}

func TestClassifyLowercasePayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Decision
	}{
		{
			name: "child full deletion",
			raw: `{"notificationId": "n-1", "notificationType": "delete", "accountIdentifier": "child-acc",
				"notificationObligation": "delete_all_and_close_customer_account",
				"additionalMetadata": {"accountType": "child"}}`,
			want: Decision{Action: PurgeThenReport, AccountIdentifier: "child-acc"},
		},
		{
			name: "child data requested by parent",
			raw: `{"notificationId": "n-2", "notificationType": "delete", "accountIdentifier": "child-acc",
				"notificationObligation": "delete_partial_and_leave_customer_account_active",
				"additionalMetadata": {"accountType": "Child"}, "eligibleDataTypes": ["child_directed"]}`,
			want: Decision{Action: SkipWithSuccess},
		},
		{
			name: "parent deletion",
			raw: `{"notificationId": "n-3", "notificationType": "delete", "accountIdentifier": "parent-acc",
				"additionalMetadata": {"accountType": "parent"}}`,
			want: Decision{Action: SkipWithSuccess},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := notification.Parse([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, Classify(n))
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "skip", SkipWithSuccess.String())
	assert.Equal(t, "purge", PurgeThenReport.String())
	assert.Equal(t, "unsupported", Unsupported.String())
}

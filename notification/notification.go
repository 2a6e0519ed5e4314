package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Type string

const (
	TypeHeartbeat   Type = "HEARTBEAT"
	TypeDelete      Type = "DELETE"
	TypePortability Type = "PORTABILITY"
	TypeUnknown     Type = "UNKNOWN"
)

type AccountType string

const (
	AccountParent AccountType = "PARENT"
	AccountChild  AccountType = "CHILD"
)

// Obligation describes the scope of deletion requested by the compliance authority.
type Obligation string

const (
	ObligationFullDeletion Obligation = "DELETE_ALL_AND_CLOSE_CUSTOMER_ACCOUNT"
	// Only a restricted subset of data is deleted, the account stays active.
	ObligationPartialKeepActive Obligation = "DELETE_PARTIAL_AND_LEAVE_CUSTOMER_ACCOUNT_ACTIVE"
)

type DataType string

const (
	DataChildDirected DataType = "CHILD_DIRECTED"
)

// ErrMalformed is returned when a message body can not be turned into a Notification.
var ErrMalformed = errors.New("malformed notification")

// Metadata is the optional additionalMetadata block of a notification.
type Metadata struct {
	AccountType AccountType
}

// DataTypeSet is an immutable set of data category tags.
type DataTypeSet struct {
	members map[DataType]struct{}
}

func NewDataTypeSet(types ...DataType) DataTypeSet {
	members := make(map[DataType]struct{}, len(types))
	for _, t := range types {
		members[t] = struct{}{}
	}
	return DataTypeSet{members: members}
}

func (s DataTypeSet) Has(t DataType) bool {
	_, ok := s.members[t]
	return ok
}

func (s DataTypeSet) Len() int {
	return len(s.members)
}

// Only reports whether t is the one and only member of the set.
func (s DataTypeSet) Only(t DataType) bool {
	return s.Len() == 1 && s.Has(t)
}

// Notification is a single compliance event. It is read-only once parsed.
type Notification struct {
	ID                string
	Type              Type
	AccountIdentifier string
	Obligation        Obligation // empty when absent
	Metadata          *Metadata  // nil when absent
	EligibleDataTypes DataTypeSet
}

// AccountType returns the account type carried in the metadata, or "" when absent.
func (n Notification) AccountType() AccountType {
	if n.Metadata == nil {
		return ""
	}
	return n.Metadata.AccountType
}

type wireMetadata struct {
	AccountType string `json:"accountType"`
}

type wireNotification struct {
	NotificationID         string        `json:"notificationId"`
	NotificationType       string        `json:"notificationType"`
	AccountIdentifier      string        `json:"accountIdentifier"`
	NotificationObligation string        `json:"notificationObligation"`
	AdditionalMetadata     *wireMetadata `json:"additionalMetadata"`
	EligibleDataTypes      []string      `json:"eligibleDataTypes"`
}

// Parse decodes a raw message body into a Notification.
// Every enumerated field is trimmed and upper-cased. Unrecognized values are kept
// so classification can reject them.
func Parse(raw []byte) (Notification, error) {
	var w wireNotification
	if err := json.Unmarshal(raw, &w); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	t := Type(normalize(w.NotificationType))
	if t == "" {
		return Notification{}, fmt.Errorf("%w: missing notificationType", ErrMalformed)
	}

	n := Notification{
		ID:                w.NotificationID,
		Type:              t,
		AccountIdentifier: strings.TrimSpace(w.AccountIdentifier),
		Obligation:        Obligation(normalize(w.NotificationObligation)),
	}
	if t == TypeDelete && n.AccountIdentifier == "" {
		return Notification{}, fmt.Errorf("%w: DELETE notification %q without accountIdentifier", ErrMalformed, n.ID)
	}

	if w.AdditionalMetadata != nil {
		n.Metadata = &Metadata{AccountType: AccountType(normalize(w.AdditionalMetadata.AccountType))}
	}

	types := make([]DataType, 0, len(w.EligibleDataTypes))
	for _, dt := range w.EligibleDataTypes {
		types = append(types, DataType(normalize(dt)))
	}
	n.EligibleDataTypes = NewDataTypeSet(types...)

	return n, nil
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

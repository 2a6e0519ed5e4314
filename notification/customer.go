package notification

import (
	"encoding/json"
	"strings"
)

// ValidationError marks a structurally invalid single-event deletion request.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return "invalid deletion request: " + e.Reason + ": " + e.Err.Error()
	}
	return "invalid deletion request: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type deletionRequest struct {
	CustomerID string `json:"customerId"`
}

// ParseCustomerID extracts the customer identifier from a single-event deletion request.
func ParseCustomerID(raw []byte) (string, error) {
	var req deletionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return "", &ValidationError{Reason: "undecodable body", Err: err}
	}

	id := strings.TrimSpace(req.CustomerID)
	if id == "" {
		return "", &ValidationError{Reason: "missing customerId"}
	}
	return id, nil
}

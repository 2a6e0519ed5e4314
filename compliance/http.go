package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m4n5ter/ownership-cache-killer/notification"
)

const statusPath = "/v1/deletion-status"

type statusRequest struct {
	CaseID            string `json:"caseId"`
	RequestType       string `json:"requestType"`
	ServiceName       string `json:"serviceName"`
	Status            Status `json:"status"`
	AccountIdentifier string `json:"accountIdentifier,omitempty"`
}

// HTTPReporter posts deletion statuses to the compliance authority's HTTP endpoint.
type HTTPReporter struct {
	baseURL string
	client  *http.Client
}

func NewHTTPReporter(baseURL string, timeout time.Duration) *HTTPReporter {
	return &HTTPReporter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *HTTPReporter) ReportDeleteStatus(ctx context.Context, caseID, requestType, serviceName string, status Status) error {
	return r.post(ctx, statusRequest{
		CaseID:      caseID,
		RequestType: requestType,
		ServiceName: serviceName,
		Status:      status,
	})
}

// The notification id is the case id, the notification type is the request type.
func (r *HTTPReporter) ReportNotificationStatus(ctx context.Context, n notification.Notification, serviceName string, status Status) error {
	return r.post(ctx, statusRequest{
		CaseID:            n.ID,
		RequestType:       string(n.Type),
		ServiceName:       serviceName,
		Status:            status,
		AccountIdentifier: n.AccountIdentifier,
	})
}

func (r *HTTPReporter) post(ctx context.Context, body statusRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode status request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+statusPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("send status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("compliance authority returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

var _ Reporter = (*HTTPReporter)(nil)

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/domain"
)

// Client talks to the hosted checkout API of the payment processor.
type Client struct {
	baseURL   string
	secretKey string
	frontend  string
	http      *http.Client
}

func NewClient(baseURL, secretKey, frontend string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		frontend:  strings.TrimRight(frontend, "/"),
		http:      &http.Client{Timeout: timeout},
	}
}

type checkoutRequest struct {
	ClientReference string `json:"client_reference"`
	StudentID       string `json:"student_id"`
	CourseID        string `json:"course_id"`
	Amount          int64  `json:"amount"` // minor units
	Currency        string `json:"currency"`
	SuccessURL      string `json:"success_url"`
	CancelURL       string `json:"cancel_url"`
}

type checkoutResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (c *Client) CreateCheckout(ctx context.Context, req application.CheckoutRequest) (*application.CheckoutResponse, error) {
	body := checkoutRequest{
		ClientReference: req.SessionRef,
		StudentID:       req.StudentID,
		CourseID:        req.CourseID.String(),
		Amount:          req.Amount.Shift(2).Round(0).IntPart(),
		Currency:        strings.ToLower(req.Currency),
		SuccessURL:      fmt.Sprintf("%s/my-enrollments?session=%s", c.frontend, req.SessionRef),
		CancelURL:       fmt.Sprintf("%s/courses/%s", c.frontend, req.CourseID),
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	// Retries of the same session must not create a second checkout
	httpReq.Header.Set("Idempotency-Key", req.SessionRef)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: processor status=%d body=%s", domain.ErrUpstream, resp.StatusCode, msg)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: processor status=%d body=%s", domain.ErrPaymentRejected, resp.StatusCode, msg)
	}

	var out checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: malformed processor response: %v", domain.ErrUpstream, err)
	}
	if out.ID == "" || out.URL == "" {
		return nil, fmt.Errorf("%w: processor response without session", domain.ErrUpstream)
	}
	return &application.CheckoutResponse{ProcessorSessionID: out.ID, RedirectURL: out.URL}, nil
}

var _ application.PaymentProcessor = (*Client)(nil)

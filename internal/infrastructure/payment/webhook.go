package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/waste3d/course-marketplace/internal/domain"
)

const SignatureHeader = "X-Signature"

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Verifier checks webhook deliveries signed with the shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns the header value for body, "sha256=<hex>".
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (v *Verifier) Verify(body []byte, header string) error {
	if len(v.secret) == 0 {
		return ErrInvalidSignature
	}
	got, ok := strings.CutPrefix(strings.TrimSpace(header), "sha256=")
	if !ok {
		return ErrInvalidSignature
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

type webhookEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ClientReference  string `json:"client_reference"`
		PaymentReference string `json:"payment_reference"`
	} `json:"data"`
}

// ParseEvent decodes a verified delivery. The raw body is kept as payload.
func ParseEvent(body []byte, receivedAt time.Time) (domain.PaymentEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: malformed webhook body", domain.ErrValidation)
	}
	return domain.PaymentEvent{
		ID:         env.ID,
		Type:       env.Type,
		SessionRef: env.Data.ClientReference,
		PaymentRef: env.Data.PaymentReference,
		Payload:    datatypes.JSON(body),
		ReceivedAt: receivedAt.UTC(),
	}, nil
}

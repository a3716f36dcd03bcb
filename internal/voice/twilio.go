package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soyeahso/matrix/internal/logging"
	"github.com/soyeahso/matrix/internal/version"
)

// Caller places outbound calls.
type Caller interface {
	CreateCall(ctx context.Context, to, from string, twiml []byte) (string, error)
}

// TwilioError is an error response from the Twilio REST API.
type TwilioError struct {
	Status  int    `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *TwilioError) Error() string {
	return fmt.Sprintf("twilio: %d (code %d) %s", e.Status, e.Code, e.Message)
}

// TwilioClient is a minimal client for the Twilio Calls resource.
type TwilioClient struct {
	accountSID string
	authToken  string
	apiBase    string
	client     *http.Client
	log        *logging.Logger
}

// NewTwilioClient creates a REST client. An empty apiBase uses the public API.
func NewTwilioClient(accountSID, authToken, apiBase string, log *logging.Logger) *TwilioClient {
	if apiBase == "" {
		apiBase = "https://api.twilio.com"
	}
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		apiBase:    strings.TrimRight(apiBase, "/"),
		client:     &http.Client{Timeout: 15 * time.Second},
		log:        log.Sub("voice.twilio"),
	}
}

// CreateCall dials to from the number from and runs twiml when answered.
// It returns the new call's SID.
func (c *TwilioClient) CreateCall(ctx context.Context, to, from string, twiml []byte) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Twiml", string(twiml))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.apiBase, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading twilio response: %w", err)
	}

	if resp.StatusCode >= 300 {
		terr := &TwilioError{Status: resp.StatusCode}
		if json.Unmarshal(body, terr) != nil || terr.Message == "" {
			terr.Message = strings.TrimSpace(string(body))
		}
		terr.Status = resp.StatusCode
		return "", terr
	}

	var call struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &call); err != nil {
		return "", fmt.Errorf("decoding twilio response: %w", err)
	}

	c.log.Info().Str("sid", call.SID).Str("status", call.Status).Str("to", to).Msg("call created")
	return call.SID, nil
}

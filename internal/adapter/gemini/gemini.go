// Package gemini reads fuel receipts with the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fuellog/internal/domain"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
)

// DefaultBaseURL is the public Generative Language endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

const prompt = `You are an expert at reading and parsing fuel receipts. Extract the total liters, total price, and the date from the provided receipt image. Provide the date in 'yyyy-MM-dd' format.

If you cannot find a value for a field, leave it out.`

// maxResponseBytes caps how much of a reply is read.
const maxResponseBytes = 1 << 20

// Config configures the extractor.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Extractor implements domain.ReceiptExtractor.
type Extractor struct {
	cfg    Config
	client *http.Client
}

var _ domain.ReceiptExtractor = (*Extractor)(nil)

// New creates an Extractor. APIKey and Model are required.
func New(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, errors.New("gemini: api key and model are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Extractor{cfg: cfg, client: client}, nil
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content      `json:"contents"`
	GenerationConfig map[string]any `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// fields mirrors the JSON schema requested from the model.
type fields struct {
	Liters *float64 `json:"liters"`
	Price  *float64 `json:"price"`
	Date   *string  `json:"date"`
}

var responseSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"liters": map[string]any{"type": "NUMBER", "description": "The total volume of fuel in liters. e.g., 45.5"},
		"price":  map[string]any{"type": "NUMBER", "description": "The total price of the fuel. e.g., 60000"},
		"date":   map[string]any{"type": "STRING", "description": "The date of the transaction in 'yyyy-MM-dd' format."},
	},
}

// statusError is a non-200 reply from the API.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %s", e.Code, e.Body)
}

// retryable reports whether another attempt could succeed.
func (e *statusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// ExtractReceipt sends the image to the model, retrying once on transport
// errors, 429 and 5xx replies, bounded by the configured timeout.
func (e *Extractor) ExtractReceipt(ctx context.Context, img domain.Image) (domain.ReceiptFields, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{
			{Text: prompt},
			{InlineData: &inlineData{MIMEType: img.MIMEType, Data: base64.StdEncoding.EncodeToString(img.Data)}},
		}}},
		GenerationConfig: map[string]any{
			"response_mime_type": "application/json",
			"response_schema":    responseSchema,
		},
	})
	if err != nil {
		return domain.ReceiptFields{}, fmt.Errorf("gemini: encode request: %w", err)
	}

	r := retry.New[domain.ReceiptFields](retry.Config{
		MaxAttempts:   2,
		InitialDelay:  e.cfg.RetryDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	t := timeout.New[domain.ReceiptFields](timeout.Config{
		DefaultTimeout: e.cfg.Timeout,
	})

	// A permanent failure ends the retry loop as a success and is surfaced
	// after it returns.
	var permanent error
	got, err := t.Execute(ctx, e.cfg.Timeout, func(ctx context.Context) (domain.ReceiptFields, error) {
		return r.Do(ctx, func(ctx context.Context) (domain.ReceiptFields, error) {
			f, err := e.call(ctx, body)
			var se *statusError
			if errors.As(err, &se) && !se.retryable() {
				permanent = err
				return domain.ReceiptFields{}, nil
			}
			return f, err
		})
	})
	if permanent != nil {
		return domain.ReceiptFields{}, permanent
	}
	return got, err
}

func (e *Extractor) call(ctx context.Context, body []byte) (domain.ReceiptFields, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(e.cfg.BaseURL, "/"), url.PathEscape(e.cfg.Model))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ReceiptFields{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.ReceiptFields{}, fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.ReceiptFields{}, fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.ReceiptFields{}, &statusError{Code: resp.StatusCode, Body: truncate(string(raw), 200)}
	}
	return decode(raw)
}

// decode pulls the model's JSON answer out of a generateContent response.
func decode(raw []byte) (domain.ReceiptFields, error) {
	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return domain.ReceiptFields{}, fmt.Errorf("gemini: decode response: %w", err)
	}
	var text strings.Builder
	for _, c := range gr.Candidates {
		for _, p := range c.Content.Parts {
			text.WriteString(p.Text)
		}
		if text.Len() > 0 {
			break
		}
	}
	if text.Len() == 0 {
		return domain.ReceiptFields{}, errors.New("gemini: empty response")
	}

	answer := strings.TrimSpace(text.String())
	answer = strings.TrimPrefix(answer, "```json")
	answer = strings.TrimSuffix(strings.TrimPrefix(answer, "```"), "```")

	var f fields
	if err := json.Unmarshal([]byte(strings.TrimSpace(answer)), &f); err != nil {
		return domain.ReceiptFields{}, fmt.Errorf("gemini: decode answer: %w", err)
	}
	return domain.ReceiptFields{Liters: f.Liters, Price: f.Price, Date: f.Date}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tair/marketplace-payments/internal/payment/domain"
)

type callbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

type callbackBody struct {
	MerchantRequestID string      `json:"MerchantRequestID"`
	CheckoutRequestID string      `json:"CheckoutRequestID"`
	ResultCode        *flexString `json:"ResultCode"`
	ResultDesc        string      `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []callbackItem `json:"Item"`
	} `json:"CallbackMetadata"`
	MetadataItems []callbackItem `json:"metadataItems"`
}

type callbackEnvelope struct {
	Body *struct {
		StkCallback *callbackBody `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback accepts the nested {"Body":{"stkCallback":{...}}} envelope and
// the flattened one, and returns the same normalized result for both.
func ParseCallback(raw []byte) (*domain.CallbackResult, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCallback, err)
	}

	var body callbackBody
	if env.Body != nil && env.Body.StkCallback != nil {
		body = *env.Body.StkCallback
	} else if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCallback, err)
	}

	if strings.TrimSpace(body.MerchantRequestID) == "" {
		return nil, fmt.Errorf("%w: missing merchant request id", domain.ErrMalformedCallback)
	}
	if body.ResultCode == nil || *body.ResultCode == "" {
		return nil, fmt.Errorf("%w: missing result code", domain.ErrMalformedCallback)
	}
	code, err := strconv.Atoi(string(*body.ResultCode))
	if err != nil {
		return nil, fmt.Errorf("%w: result code %q", domain.ErrMalformedCallback, string(*body.ResultCode))
	}

	items := body.MetadataItems
	if body.CallbackMetadata != nil && len(body.CallbackMetadata.Item) > 0 {
		items = body.CallbackMetadata.Item
	}

	result := &domain.CallbackResult{
		ResultCode:        code,
		ResultDesc:        body.ResultDesc,
		MerchantRequestID: strings.TrimSpace(body.MerchantRequestID),
		CheckoutRequestID: strings.TrimSpace(body.CheckoutRequestID),
		MetadataItems:     make([]domain.MetadataItem, 0, len(items)),
	}
	for _, it := range items {
		result.MetadataItems = append(result.MetadataItems, domain.MetadataItem{
			Name:  it.Name,
			Value: rawText(it.Value),
		})
	}
	return result, nil
}

// rawText renders a JSON scalar without float formatting, so 254712345678
// stays 254712345678.
func rawText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || string(v) == "null" {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	return string(v)
}

// Package cardnetwork simulates the card-scheme leg of a bridged payment.
// Authorization requests are built and parsed as real ISO 8583 messages,
// but they never leave the process and every request is approved: this is
// a demonstration bridge, not a money-movement system.
package cardnetwork

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/moov-io/iso8583"
	"github.com/moov-io/iso8583/specs"
	"github.com/shopspring/decimal"

	"github.com/touristpay/bridge/types"
)

const (
	mtiAuthRequest  = "0100"
	mtiAuthResponse = "0110"

	respApproved = "00"

	// demo PAN for the simulated card leg; real card data never reaches
	// the core (field collection is a presentation concern).
	demoPAN = "4242424242424242"

	terminalID = "TPBRIDGE"
)

var currencyNumeric = map[string]string{
	"SGD": "702",
	"USD": "840",
}

// Authorization is the outcome of a simulated card authorization.
type Authorization struct {
	Approved     bool   `json:"approved"`
	AuthCode     string `json:"authCode"`
	RRN          string `json:"rrn"`
	ResponseCode string `json:"responseCode"`
}

// Authorizer builds ISO 8583 authorization requests and answers them with
// an in-process approver.
type Authorizer struct {
	stan uint32
}

// NewAuthorizer creates a simulated card network authorizer.
func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// Authorize runs one authorization round trip for the given merchant and
// amount. The request always approves; errors only surface when message
// construction itself fails.
func (a *Authorizer) Authorize(ctx context.Context, merchant *types.MerchantSnapshot, amount decimal.Decimal, src types.FundingSource) (*Authorization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, fmt.Errorf("merchant snapshot is required")
	}

	stan := atomic.AddUint32(&a.stan, 1) % 1000000
	rrn := fmt.Sprintf("%012d", time.Now().Unix()%1000000*1000000+int64(stan))

	req := iso8583.NewMessage(specs.Spec87ASCII)
	req.MTI(mtiAuthRequest)
	fields := map[int]string{
		2:  demoPAN,
		3:  "000000",
		4:  fmt.Sprintf("%012d", amount.Shift(2).IntPart()),
		7:  time.Now().UTC().Format("0102150405"),
		11: fmt.Sprintf("%06d", stan),
		37: rrn,
		41: fmt.Sprintf("%-8s", terminalID),
		42: fmt.Sprintf("%-15.15s", merchant.RegistrationID),
		43: fmt.Sprintf("%-40.40s", merchant.DisplayName),
	}
	if code, ok := currencyNumeric[merchant.CurrencyCode]; ok {
		fields[49] = code
	}
	for idx, value := range fields {
		if err := req.Field(idx, value); err != nil {
			return nil, fmt.Errorf("set field %d: %w", idx, err)
		}
	}

	packed, err := req.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack authorization request: %w", err)
	}

	respPacked, err := approve(packed)
	if err != nil {
		return nil, fmt.Errorf("authorization round trip: %w", err)
	}

	resp := iso8583.NewMessage(specs.Spec87ASCII)
	if err := resp.Unpack(respPacked); err != nil {
		return nil, fmt.Errorf("unpack authorization response: %w", err)
	}

	mti, err := resp.GetMTI()
	if err != nil || mti != mtiAuthResponse {
		return nil, fmt.Errorf("unexpected response MTI %q", mti)
	}
	code, err := resp.GetString(39)
	if err != nil {
		return nil, fmt.Errorf("read response code: %w", err)
	}
	authCode, err := resp.GetString(38)
	if err != nil {
		return nil, fmt.Errorf("read auth code: %w", err)
	}
	respRRN, err := resp.GetString(37)
	if err != nil {
		return nil, fmt.Errorf("read rrn: %w", err)
	}

	return &Authorization{
		Approved:     code == respApproved,
		AuthCode:     authCode,
		RRN:          respRRN,
		ResponseCode: code,
	}, nil
}

// approve is the in-process stand-in for an acquirer: it echoes the request
// back as an approved 0110.
func approve(packed []byte) ([]byte, error) {
	req := iso8583.NewMessage(specs.Spec87ASCII)
	if err := req.Unpack(packed); err != nil {
		return nil, fmt.Errorf("unpack request: %w", err)
	}

	mti, err := req.GetMTI()
	if err != nil {
		return nil, err
	}
	if mti != mtiAuthRequest {
		return nil, fmt.Errorf("unsupported MTI %q", mti)
	}

	stan, err := req.GetString(11)
	if err != nil {
		return nil, fmt.Errorf("read stan: %w", err)
	}
	rrn, err := req.GetString(37)
	if err != nil {
		return nil, fmt.Errorf("read rrn: %w", err)
	}

	resp := iso8583.NewMessage(specs.Spec87ASCII)
	resp.MTI(mtiAuthResponse)
	respFields := map[int]string{
		11: stan,
		37: rrn,
		38: fmt.Sprintf("%06d", rand.Intn(1000000)),
		39: respApproved,
	}
	for idx, value := range respFields {
		if err := resp.Field(idx, value); err != nil {
			return nil, fmt.Errorf("set response field %d: %w", idx, err)
		}
	}

	return resp.Pack()
}

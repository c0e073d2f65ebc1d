package bkash

import (
	"errors"

	"github.com/dmitrijs2005/bkashgate/internal/gateway"
)

// Kind names the operation an Error belongs to.
type Kind string

const (
	KindTokenGeneration Kind = "TokenGeneration"
	KindRefreshToken    Kind = "RefreshToken"
	KindPaymentCreate   Kind = "PaymentCreate"
	KindPaymentExecute  Kind = "PaymentExecute"
	KindPaymentQuery    Kind = "PaymentQuery"
	KindRefund          Kind = "Refund"
)

// DefaultCode is used when upstream did not send a numeric statusCode.
const DefaultCode = 500

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrTokenGeneration = errors.New("bkash: token generation failed")
	ErrRefreshToken    = errors.New("bkash: token refresh failed")
	ErrPaymentCreate   = errors.New("bkash: payment create failed")
	ErrPaymentExecute  = errors.New("bkash: payment execute failed")
	ErrPaymentQuery    = errors.New("bkash: payment query failed")
	ErrRefund          = errors.New("bkash: refund failed")
)

var sentinels = map[Kind]error{
	KindTokenGeneration: ErrTokenGeneration,
	KindRefreshToken:    ErrRefreshToken,
	KindPaymentCreate:   ErrPaymentCreate,
	KindPaymentExecute:  ErrPaymentExecute,
	KindPaymentQuery:    ErrPaymentQuery,
	KindRefund:          ErrRefund,
}

// Error is returned by every Service operation.
//
// Message is the upstream statusMessage when one was sent, otherwise a fixed
// default per operation. Code is upstream's numeric statusCode or DefaultCode.
// Err holds the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// upstreamError builds an Error from a rejected upstream response.
func upstreamError(kind Kind, resp *gateway.Response, fallback string) *Error {
	msg := resp.String("statusMessage")
	if msg == "" {
		msg = fallback
	}
	return &Error{Kind: kind, Message: msg, Code: upstreamCode(resp)}
}

func upstreamCode(resp *gateway.Response) int {
	// "0000" is the provider's success code and never describes a failure.
	if code, ok := resp.Int("statusCode"); ok && code != 0 {
		return code
	}
	return DefaultCode
}

// wrap converts err into an Error of kind. An *Error that already has kind is
// returned as is; anything else, other kinds included, is prefixed.
func wrap(kind Kind, prefix string, err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == kind {
		return err
	}
	return &Error{Kind: kind, Message: prefix + ": " + err.Error(), Code: DefaultCode, Err: err}
}

func validationError(kind Kind, prefix string, err error) error {
	return &Error{Kind: kind, Message: prefix + ": " + err.Error(), Code: 400, Err: err}
}

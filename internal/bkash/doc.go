// Package bkash orchestrates the bKash tokenized checkout flow.
//
// A Service obtains and caches bearer tokens, sequences the dependent API calls
// (token, create, execute, query, refund) and keeps the local payment ledger in
// step with what upstream reports. It is the only writer of payment and refund
// records.
//
// Every call takes an explicit tenant. The empty tenant is the default,
// unscoped merchant; other tenants get their own token cache entries.
//
// A call succeeds only when upstream answers 2xx and the operation's marker
// field is present:
//
//	GetToken, RefreshToken   id_token
//	CreatePayment            paymentID
//	ExecutePayment           trxID
//	QueryPayment             paymentID
//	RefundPayment            refundTrxID
//
// Every failure is an *Error whose Kind names the operation.
package bkash

// Package export writes ledger snapshots to S3-compatible object storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/bkashgate/internal/config"
	"github.com/dmitrijs2005/bkashgate/internal/logging"
	"github.com/dmitrijs2005/bkashgate/internal/models"
)

const (
	pageSize      = 500
	contentType   = "application/x-ndjson"
	presignExpiry = 15 * time.Minute
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Source pages through the ledger, newest first.
type Source interface {
	ListPayments(ctx context.Context, limit, offset int) ([]*models.PaymentRecord, error)
	ListRefunds(ctx context.Context, limit, offset int) ([]*models.RefundRecord, error)
}

// Result describes one finished export.
type Result struct {
	Prefix      string
	Payments    int
	Refunds     int
	PaymentsURL string
	RefundsURL  string
}

type Exporter struct {
	source Source
	config *config.Config
	logger logging.Logger
	now    func() time.Time
}

func NewExporter(source Source, cfg *config.Config, l logging.Logger) *Exporter {
	return &Exporter{
		source: source,
		config: cfg,
		logger: l.With("module", "export"),
		now:    time.Now,
	}
}

func (e *Exporter) prefix() string {
	d := e.now().UTC()
	return fmt.Sprintf("ledger/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (e *Exporter) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(e.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			e.config.S3RootUser,
			e.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if e.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(e.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Export uploads every payment and refund as two JSON Lines objects under a
// fresh prefix and returns presigned download URLs for both.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	payments, np, err := collect(ctx, e.source.ListPayments)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	refunds, nr, err := collect(ctx, e.source.ListRefunds)
	if err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}

	client, err := e.client(ctx)
	if err != nil {
		return nil, err
	}
	presigner := newS3PresignClient(client)

	res := &Result{Prefix: e.prefix(), Payments: np, Refunds: nr}

	res.PaymentsURL, err = e.upload(ctx, client, presigner, res.Prefix+"/payments.jsonl", payments)
	if err != nil {
		return nil, err
	}
	res.RefundsURL, err = e.upload(ctx, client, presigner, res.Prefix+"/refunds.jsonl", refunds)
	if err != nil {
		return nil, err
	}

	e.logger.Info(ctx, "ledger exported", "bucket", e.config.S3Bucket, "prefix", res.Prefix,
		"payments", res.Payments, "refunds", res.Refunds)
	return res, nil
}

func (e *Exporter) upload(ctx context.Context, c *s3.Client, pc *s3.PresignClient, key string, body []byte) (string, error) {
	bucket := e.config.S3Bucket

	_, err := putObject(c, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// collect drains a paged listing into JSON Lines.
func collect[T any](ctx context.Context, list func(ctx context.Context, limit, offset int) ([]T, error)) ([]byte, int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	n := 0
	for {
		page, err := list(ctx, pageSize, n)
		if err != nil {
			return nil, 0, err
		}
		for _, item := range page {
			if err := enc.Encode(item); err != nil {
				return nil, 0, err
			}
		}
		n += len(page)
		if len(page) < pageSize {
			return buf.Bytes(), n, nil
		}
	}
}

package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3InvoiceArchive stores generated invoice PDFs in an S3 bucket so the back
// office can re-download them later.
type S3InvoiceArchive struct {
	Bucket string
}

// NewS3InvoiceArchive returns nil when INVOICE_BUCKET is not configured, in
// which case invoices stay generate-on-demand only.
func NewS3InvoiceArchive() *S3InvoiceArchive {
	bucket := os.Getenv("INVOICE_BUCKET")
	if bucket == "" {
		return nil
	}
	return &S3InvoiceArchive{Bucket: bucket}
}

func (a *S3InvoiceArchive) Put(filename string, data []byte) (string, error) {
	uploader, err := getAWSUploader()
	if err != nil {
		return "", err
	}

	key := "invoices/" + filename
	result, err := uploader.Upload(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading invoice to S3: %w", err)
	}

	return result.Location, nil
}

// getAWSUploader returns a configured AWS S3 uploader
func getAWSUploader() (*manager.Uploader, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return manager.NewUploader(client), nil
}

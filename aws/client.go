// Package aws defines functions used to interact with the AWS API
package aws

import (
	"context"
	"errors"
	"fmt"
	"io"

	"bitwise74/recipe-api/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3 can delete at most 1000 objects in one batch request
const maxDeleteBatch = 1000

type S3Client struct {
	C        *s3.Client
	Bucket   *string
	uploader *manager.Uploader
}

// NewS3 creates the client and makes sure the bucket exists. Setting
// aws.endpoint points it at any S3 compatible API like Cloudflare R2.
func NewS3(ctx context.Context, c config.AWSConfig) (*S3Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx,
		awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(c.Bucket)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.Region = c.Region
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			if c.Region == "" {
				o.Region = "auto"
			}
		}
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", c.Bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3Client{
		C:        client,
		Bucket:   bucket,
		uploader: manager.NewUploader(client),
	}, nil
}

func (s *S3Client) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      s.Bucket,
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object, %w", err)
	}

	return nil
}

func (s *S3Client) Delete(ctx context.Context, keys ...string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		if _, err := s.C.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: s.Bucket,
			Delete: &types.Delete{Objects: objects},
		}); err != nil {
			return fmt.Errorf("failed to delete objects, %w", err)
		}
	}

	return nil
}

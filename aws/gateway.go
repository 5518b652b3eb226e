package aws

import (
	"bitwise74/drive-api/internal/model"
	"bitwise74/drive-api/internal/service"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Error codes S3 returns for problems on its side. Anything else coming back
// from the API is treated as a refusal of the request.
var transientCodes = map[string]struct{}{
	"InternalError":      {},
	"ServiceUnavailable": {},
	"SlowDown":           {},
	"RequestTimeout":     {},
}

// Gateway implements service.Gateway over the S3 multipart API
type Gateway struct {
	c       *s3.Client
	presign *s3.PresignClient
	bucket  *string
}

func NewGateway(c *S3Client) *Gateway {
	return &Gateway{
		c:       c.C,
		presign: s3.NewPresignClient(c.C),
		bucket:  c.Bucket,
	}
}

var _ service.Gateway = (*Gateway)(nil)

func (g *Gateway) CreateMultipartSession(ctx context.Context, key string, contentType *string) (string, error) {
	out, err := g.c.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      g.bucket,
		Key:         aws.String(key),
		ContentType: contentType,
	})
	if err != nil {
		return "", classify("create multipart upload", err)
	}

	if out.UploadId == nil || *out.UploadId == "" {
		return "", fmt.Errorf("%w: storage returned no upload id", service.ErrStorageRejected)
	}

	return *out.UploadId, nil
}

func (g *Gateway) PresignPartUpload(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error) {
	req, err := g.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     g.bucket,
		Key:        aws.String(key),
		UploadId:   aws.String(sessionID),
		PartNumber: aws.Int32(partNumber),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", classify("presign upload part", err)
	}

	return req.URL, nil
}

func (g *Gateway) CompleteMultipartSession(ctx context.Context, key, sessionID string, parts []model.CompletedPart) error {
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		}
	}

	_, err := g.c.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   g.bucket,
		Key:      aws.String(key),
		UploadId: aws.String(sessionID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return classify("complete multipart upload", err)
	}

	return nil
}

func (g *Gateway) AbortMultipartSession(ctx context.Context, key, sessionID string) error {
	_, err := g.c.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   g.bucket,
		Key:      aws.String(key),
		UploadId: aws.String(sessionID),
	})
	if err != nil {
		// Already aborted or completed, either way it's gone
		var nsu *types.NoSuchUpload
		if errors.As(err, &nsu) {
			return nil
		}

		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchUpload" {
			return nil
		}

		return classify("abort multipart upload", err)
	}

	return nil
}

func (g *Gateway) DeleteObject(ctx context.Context, key string) error {
	_, err := g.c.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: g.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return classify("delete object", err)
	}

	return nil
}

func (g *Gateway) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := g.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: g.bucket,
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", classify("presign get object", err)
	}

	return req.URL, nil
}

// classify wraps err with service.ErrStorageRejected when S3 answered with a
// definitive error and with service.ErrStorageUnavailable otherwise
func classify(op string, err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: failed to %s, %w", service.ErrStorageUnavailable, op, err)
	}

	if _, ok := transientCodes[apiErr.ErrorCode()]; ok || apiErr.ErrorFault() == smithy.FaultServer {
		return fmt.Errorf("%w: failed to %s, %w", service.ErrStorageUnavailable, op, err)
	}

	return fmt.Errorf("%w: failed to %s, %w", service.ErrStorageRejected, op, err)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pollbox/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	minPartSize  = 5 << 20
	textMimeType = "text/plain; charset=utf-8"
)

// MultipartAPI is the part of *s3.Client the exporter needs.
type MultipartAPI interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

type Client struct {
	bucket     string
	publicBase string
	acl        types.ObjectCannedACL
	partSize   int
	s3         MultipartAPI
}

func NewClient(ctx context.Context, cfg config.S3Config) (*Client, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}
	acl, err := ValidateACL(cfg.ObjectACL)
	if err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := cfg.PublicBase
	if publicBase == "" {
		publicBase = DefaultPublicBase(cfg.Bucket, cfg.Region, cfg.Endpoint)
	}
	return newClient(s3Client, cfg.Bucket, publicBase, acl, cfg.PartSizeMB<<20), nil
}

// DefaultPublicBase is where objects are readable when no CDN or public base
// is configured: path style under a custom endpoint, virtual-hosted on AWS.
func DefaultPublicBase(bucket, region, endpoint string) string {
	if endpoint != "" {
		return strings.TrimRight(endpoint, "/") + "/" + bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

func newClient(api MultipartAPI, bucket, publicBase string, acl types.ObjectCannedACL, partSize int) *Client {
	if partSize < minPartSize {
		partSize = minPartSize
	}
	return &Client{
		bucket:     bucket,
		publicBase: publicBase,
		acl:        acl,
		partSize:   partSize,
		s3:         api,
	}
}

func (c *Client) FileURL(key string) string {
	if c == nil || key == "" {
		return ""
	}
	if c.publicBase == "" {
		return ""
	}
	return strings.TrimRight(c.publicBase, "/") + "/" + key
}

// ValidateACL maps a configured canned ACL. Empty means the bucket policy decides.
func ValidateACL(acl string) (types.ObjectCannedACL, error) {
	switch acl {
	case "":
		return "", nil
	case "private":
		return types.ObjectCannedACLPrivate, nil
	case "public-read":
		return types.ObjectCannedACLPublicRead, nil
	default:
		return "", errors.New("invalid acl")
	}
}

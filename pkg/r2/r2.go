// Package r2 implements object.ObjectStorage for Cloudflare R2 and other
// S3-compatible object stores.
package r2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Acr4niu5/beatsync-local/pkg/object"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Config holds R2 connection details.
type Config struct {
	AccountID        string
	AccessKey        string
	SecretAccessKey  string
	Bucket           string
	Region           string
	EndpointOverride string
	// PublicURL is the base clients download objects from, e.g. a bucket
	// custom domain. Empty means objects have no public URL.
	PublicURL string
}

// Storage implements object.ObjectStorage for Cloudflare R2.
type Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// Init bootstraps the S3 client using static credentials.
func (s *Storage) Init(ctx context.Context, param any) error {
	cfg, ok := param.(Config)
	if !ok {
		if p, ok := param.(*Config); ok && p != nil {
			cfg = *p
		} else {
			return fmt.Errorf("r2: unexpected config type %T", param)
		}
	}

	if cfg.AccountID == "" && cfg.EndpointOverride == "" {
		return errors.New("r2: AccountID or EndpointOverride required")
	}
	if cfg.AccessKey == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return errors.New("r2: AccessKey, SecretAccessKey, and Bucket are required")
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return fmt.Errorf("r2: load config: %w", err)
	}

	base := cfg.EndpointOverride
	if base == "" {
		base = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}
	s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(base)
		// Self-hosted S3 endpoints (MinIO and friends) rarely support virtual hosts.
		o.UsePathStyle = cfg.EndpointOverride != ""
	})
	s.bucket = cfg.Bucket
	s.publicURL = strings.TrimRight(cfg.PublicURL, "/")
	return nil
}

// Close cleans up resources; no-op for R2.
func (s *Storage) Close(_ context.Context) error {
	return nil
}

// Mode reports object.ModeRemote.
func (s *Storage) Mode() object.Mode { return object.ModeRemote }

// PublicURL joins the configured public base with the escaped key.
func (s *Storage) PublicURL(key string) string {
	if s.publicURL == "" {
		return ""
	}
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.publicURL + "/" + strings.Join(segs, "/")
}

// Put uploads the full object body.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, sizeHint int64, contentType string, meta map[string]string) (object.Object, error) {
	if err := s.ensureClient(); err != nil {
		return object.Object{}, err
	}

	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     r,
		Metadata: cloneMeta(meta),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if sizeHint >= 0 {
		input.ContentLength = aws.Int64(sizeHint)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return object.Object{}, mapError(err)
	}
	return s.Stat(ctx, key)
}

// Get fetches metadata plus a streaming reader. Size always reports the
// whole object, even when rng limits the stream.
func (s *Storage) Get(ctx context.Context, key string, rng *object.Range) (object.Object, io.ReadCloser, error) {
	if err := s.ensureClient(); err != nil {
		return object.Object{}, nil, err
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if rng != nil {
		input.Range = aws.String(rangeHeader(*rng))
	}

	resp, err := s.client.GetObject(ctx, input)
	if err != nil {
		return object.Object{}, nil, mapError(err)
	}

	obj := object.Object{
		Key:          key,
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         aws.ToString(resp.ETag),
		ContentType:  aws.ToString(resp.ContentType),
		LastModified: aws.ToTime(resp.LastModified),
		CustomMeta:   cloneMeta(resp.Metadata),
	}
	if total, ok := totalFromContentRange(aws.ToString(resp.ContentRange)); ok {
		obj.Size = total
	}
	return obj, resp.Body, nil
}

// Stat returns metadata only.
func (s *Storage) Stat(ctx context.Context, key string) (object.Object, error) {
	if err := s.ensureClient(); err != nil {
		return object.Object{}, err
	}

	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return object.Object{}, mapError(err)
	}

	return object.Object{
		Key:          key,
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         aws.ToString(resp.ETag),
		ContentType:  aws.ToString(resp.ContentType),
		LastModified: aws.ToTime(resp.LastModified),
		CustomMeta:   cloneMeta(resp.Metadata),
	}, nil
}

// List pages through every object under prefix.
func (s *Storage) List(ctx context.Context, prefix string) ([]object.Object, error) {
	if err := s.ensureClient(); err != nil {
		return nil, err
	}

	var objects []object.Object
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		for _, item := range page.Contents {
			key := aws.ToString(item.Key)
			// Directory placeholders created by some consoles.
			if strings.HasSuffix(key, "/") {
				continue
			}
			objects = append(objects, object.Object{
				Key:          key,
				Size:         aws.ToInt64(item.Size),
				ETag:         aws.ToString(item.ETag),
				LastModified: aws.ToTime(item.LastModified),
			})
		}
	}
	return objects, nil
}

// Delete removes an object.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.ensureClient(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return mapError(err)
}

func (s *Storage) ensureClient() error {
	if s.client == nil {
		return errors.New("r2: client not initialized")
	}
	return nil
}

func cloneMeta(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	maps.Copy(out, in)
	return out
}

func rangeHeader(rng object.Range) string {
	if rng.End >= 0 {
		return fmt.Sprintf("bytes=%d-%d", rng.Start, rng.End)
	}
	return fmt.Sprintf("bytes=%d-", rng.Start)
}

// totalFromContentRange extracts the complete length from "bytes 0-9/1234".
func totalFromContentRange(v string) (int64, bool) {
	_, total, found := strings.Cut(v, "/")
	if !found || total == "*" {
		return 0, false
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return object.ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch strings.ToLower(apiErr.ErrorCode()) {
		case "nosuchkey", "notfound", "404":
			return object.ErrNotFound
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return object.ErrNotFound
	}

	return fmt.Errorf("r2: %w", err)
}

// Ensure Storage implements ObjectStorage interface.
var _ object.ObjectStorage = (*Storage)(nil)

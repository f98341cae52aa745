// Package s3 implements the datasource.Bucket contract on top of the AWS SDK
// v2. Discovery is a paginated ListObjectsV2 under the table's search prefix
// with client-side pattern and last-modified filtering; fetch is a plain
// GetObject.
package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"s3tap/internal/config"
	"s3tap/internal/datasource"
)

// api is the subset of the S3 client the bucket uses; narrowed for tests.
type api interface {
	ListObjectsV2(ctx context.Context, in *awss3.ListObjectsV2Input, opts ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Bucket is an S3-backed data source.
type Bucket struct {
	client api
	name   string
}

// New builds a Bucket from the tap config. Credentials fall back to the
// SDK's default chain (env, shared profile, instance role) unless the config
// pins a static key pair. Endpoint/ForcePathStyle support S3-compatible
// stores such as MinIO.
func New(ctx context.Context, cfg *config.Config) (*Bucket, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &Bucket{client: client, name: cfg.Bucket}, nil
}

// newWithClient is the test seam.
func newWithClient(client api, name string) *Bucket {
	return &Bucket{client: client, name: name}
}

// List pages through ListObjectsV2 under spec.SearchPrefix and keeps keys
// matching spec.SearchPattern with LastModified strictly after since.
// Ordering carries no contract; S3 returns keys lexically, not by mtime.
func (b *Bucket) List(ctx context.Context, spec config.TableSpec, since time.Time) ([]datasource.FileInfo, error) {
	re, err := spec.Pattern()
	if err != nil {
		return nil, err
	}

	in := &awss3.ListObjectsV2Input{
		Bucket: aws.String(b.name),
	}
	if spec.SearchPrefix != "" {
		in.Prefix = aws.String(spec.SearchPrefix)
	}

	var (
		out     []datasource.FileInfo
		scanned int
	)
	for {
		page, err := b.client.ListObjectsV2(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s/%s: %w", b.name, spec.SearchPrefix, err)
		}
		for _, obj := range page.Contents {
			scanned++
			if obj.Key == nil || obj.LastModified == nil {
				continue
			}
			if !re.MatchString(*obj.Key) {
				continue
			}
			if !obj.LastModified.After(since) {
				continue
			}
			out = append(out, datasource.FileInfo{
				Key:          *obj.Key,
				LastModified: obj.LastModified.UTC(),
			})
		}
		if page.IsTruncated == nil || !*page.IsTruncated {
			break
		}
		in.ContinuationToken = page.NextContinuationToken
	}

	logrus.Debugf("s3: scanned %d objects under %q, %d eligible", scanned, spec.SearchPrefix, len(out))
	return out, nil
}

// Open fetches the object body. The caller owns closing it.
func (b *Bucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: get %s/%s: %w", b.name, key, err)
	}
	return obj.Body, nil
}

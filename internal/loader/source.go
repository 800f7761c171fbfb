package loader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"

	"datamart/config"
)

// Opener opens a load source by URI.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Sources opens local files and objects on S3 (s3://bucket/key), Google Cloud
// Storage (gs://bucket/key) and Azure Blob Storage (az://container/blob).
type Sources struct {
	cfg config.LoaderConfig
}

var _ Opener = (*Sources)(nil)

func NewSources(cfg config.LoaderConfig) *Sources {
	return &Sources{cfg: cfg}
}

func (s *Sources) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	scheme, bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "file":
		return os.Open(key)
	case "s3":
		return s.openS3(ctx, bucket, key)
	case "gs":
		return s.openGCS(ctx, bucket, key)
	case "az":
		return s.openAzure(ctx, bucket, key)
	default:
		return nil, fmt.Errorf("unsupported source scheme %q", scheme)
	}
}

// ParseURI splits a source URI into scheme, bucket and key. Plain paths and file://
// URIs yield scheme "file" with the path as key.
func ParseURI(uri string) (scheme, bucket, key string, err error) {
	if !strings.Contains(uri, "://") {
		if uri == "" {
			return "", "", "", fmt.Errorf("empty source")
		}
		return "file", "", uri, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", "", "", fmt.Errorf("parse source %q: %w", uri, err)
	}
	if u.Scheme == "file" {
		return "file", "", u.Path, nil
	}

	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", "", fmt.Errorf("source %q needs both bucket and key", uri)
	}
	return u.Scheme, bucket, key, nil
}

func (s *Sources) openS3(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	opts := s3.Options{Region: s.cfg.S3Region}
	if s.cfg.S3KeyID != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(s.cfg.S3KeyID, s.cfg.S3Secret, "")
	}
	if s.cfg.S3Endpoint != "" {
		endpoint := s.cfg.S3Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}

	out, err := s3.New(opts).GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func (s *Sources) openGCS(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	var opts []option.ClientOption
	if s.cfg.GCSCredentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, s.cfg.GCSCredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	r, err := client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read gs://%s/%s: %w", bucket, key, err)
	}
	return &closeBoth{ReadCloser: r, also: client}, nil
}

func (s *Sources) openAzure(ctx context.Context, container, blob string) (io.ReadCloser, error) {
	if s.cfg.AzureConnectionString == "" {
		return nil, fmt.Errorf("LOADER_AZURE_CONNECTION_STRING is required for az:// sources")
	}
	client, err := azblob.NewClientFromConnectionString(s.cfg.AzureConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}

	resp, err := client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, fmt.Errorf("download az://%s/%s: %w", container, blob, err)
	}
	return resp.Body, nil
}

type closeBoth struct {
	io.ReadCloser
	also io.Closer
}

func (c *closeBoth) Close() error {
	err := c.ReadCloser.Close()
	if cerr := c.also.Close(); err == nil {
		err = cerr
	}
	return err
}

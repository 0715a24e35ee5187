package sources

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// textExtensions lists object suffixes treated as readable knowledge
// content. Everything else in the bucket is ignored.
var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
}

// S3Source reads knowledge content from text objects in an S3 bucket.
// Each object becomes one section named after its key.
type S3Source struct {
	client  *s3.Client
	bucket  string
	prefix  string
	maxKeys int
	logger  arbor.ILogger
}

// NewS3Source creates an S3 knowledge source. Explicit credentials are
// optional; the default chain is used when they are absent.
func NewS3Source(ctx context.Context, config *common.S3Config, logger arbor.ILogger) (interfaces.KnowledgeSource, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 source requires a bucket")
	}

	region := config.Region
	if region == "" {
		region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error
	if config.AccessKey != "" && config.SecretKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKey,
				config.SecretKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if config.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true // Required for most S3-compatible storage
		})
	}

	maxKeys := config.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 100
	}

	return &S3Source{
		client:  s3.NewFromConfig(awsCfg, s3Opts...),
		bucket:  config.Bucket,
		prefix:  config.Prefix,
		maxKeys: maxKeys,
		logger:  logger,
	}, nil
}

// Name returns the source name used in priority ordering and logs.
func (s *S3Source) Name() string {
	return "s3"
}

// FetchAll lists the bucket and concatenates every text object.
func (s *S3Source) FetchAll(ctx context.Context) (string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(int32(s.maxKeys)),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	output, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to list objects: %w", err)
	}

	var sb strings.Builder
	fetched := 0
	for _, obj := range output.Contents {
		key := aws.ToString(obj.Key)
		if !textExtensions[strings.ToLower(path.Ext(key))] {
			continue
		}

		body, err := s.getObject(ctx, key)
		if err != nil {
			s.logger.Warn().Str("key", key).Err(err).Msg("Skipping object")
			continue
		}
		if strings.TrimSpace(body) == "" {
			continue
		}

		sb.WriteString(models.SectionMarker)
		sb.WriteString(strings.ToUpper(sectionNameFromKey(key)))
		sb.WriteString(" ===\n")
		sb.WriteString(strings.TrimSpace(body))
		sb.WriteString("\n\n")
		fetched++
	}

	if fetched == 0 {
		return "", fmt.Errorf("no text objects found in bucket %s", s.bucket)
	}
	return strings.TrimSpace(sb.String()), nil
}

func (s *S3Source) getObject(ctx context.Context, key string) (string, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// sectionNameFromKey strips the directory part and extension from an
// object key: "kb/campus_map.txt" becomes "campus_map".
func sectionNameFromKey(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}

// internal/config/s3.go
package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds S3 configuration
type S3Config struct {
	Client        *s3.Client
	Bucket        string
	PublicBaseURL string
}

// LoadAWSConfig builds the shared AWS configuration used by S3 and SES.
// Static credentials are only used when both keys are set; otherwise the
// default provider chain applies.
func LoadAWSConfig(ctx context.Context, cfg *Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// NewS3Config creates a new S3 configuration
func NewS3Config(awsCfg aws.Config, cfg *Config) *S3Config {
	publicBaseURL := cfg.S3PublicBaseURL
	if publicBaseURL == "" && cfg.S3Bucket != "" {
		publicBaseURL = "https://" + cfg.S3Bucket + ".s3." + cfg.AWSRegion + ".amazonaws.com"
	}
	return &S3Config{
		Client:        s3.NewFromConfig(awsCfg),
		Bucket:        cfg.S3Bucket,
		PublicBaseURL: publicBaseURL,
	}
}

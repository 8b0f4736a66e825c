// Package backup copies the encrypted vault container to and from
// S3-compatible object storage. Only the sealed container bytes travel;
// the credential and keys never leave the machine.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/netx"
)

const presignExpiry = 15 * time.Minute

// Config holds S3 connection settings. Endpoint may point at any
// S3-compatible store (MinIO included).
type Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// presigner is the subset of the S3 presign client the service needs; tests
// substitute a local HTTP server through it.
type presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4PresignedRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4PresignedRequest, error)
}

// v4PresignedRequest mirrors the URL field of the SDK's presigned request.
type v4PresignedRequest struct {
	URL string
}

// sdkPresigner adapts *s3.PresignClient to the presigner interface.
type sdkPresigner struct {
	pc *s3.PresignClient
}

func (p *sdkPresigner) PresignPutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4PresignedRequest, error) {
	req, err := p.pc.PresignPutObject(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return &v4PresignedRequest{URL: req.URL}, nil
}

func (p *sdkPresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4PresignedRequest, error) {
	req, err := p.pc.PresignGetObject(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return &v4PresignedRequest{URL: req.URL}, nil
}

// Service uploads and restores container snapshots.
type Service struct {
	cfg      Config
	log      logging.Logger
	presign  presigner
	presignF func(ctx context.Context) (presigner, error)
}

func NewService(cfg Config, log logging.Logger) *Service {
	s := &Service{cfg: cfg, log: log.With("component", "backup")}
	s.presignF = s.newPresigner
	return s
}

func (s *Service) newPresigner(ctx context.Context) (presigner, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(s.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKey,
			s.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
		}
		o.UsePathStyle = true
	})
	return &sdkPresigner{pc: s3.NewPresignClient(client)}, nil
}

func (s *Service) presignClient(ctx context.Context) (presigner, error) {
	if s.presign != nil {
		return s.presign, nil
	}
	return s.presignF(ctx)
}

// storageKey builds a date-partitioned object key for a container snapshot.
// The random suffix keeps snapshots taken on the same day from colliding.
func storageKey(containerPath string) (string, error) {
	suffix, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	d := time.Now().UTC()
	return fmt.Sprintf("vaults/%d/%02d/%02d/%s-%s",
		d.Year(), d.Month(), d.Day(), filepath.Base(containerPath), suffix), nil
}

// Backup uploads the container file as-is and returns the object key.
func (s *Service) Backup(ctx context.Context, containerPath string) (string, error) {
	data, err := os.ReadFile(containerPath)
	if err != nil {
		return "", fmt.Errorf("read container: %w", err)
	}

	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 client: %w", err)
	}

	key, err := storageKey(containerPath)
	if err != nil {
		return "", fmt.Errorf("storage key: %w", err)
	}
	req, err := pc.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.cfg.Bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}

	if err := netx.UploadPresignedURL(ctx, req.URL, data); err != nil {
		return "", err
	}

	s.log.Info(ctx, "container backed up", "key", key, "bytes", len(data))
	return key, nil
}

// Restore downloads a container snapshot and writes it to destPath
// atomically. The snapshot stays encrypted; opening it still requires the
// credential.
func (s *Service) Restore(ctx context.Context, key, destPath string) error {
	pc, err := s.presignClient(ctx)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}

	req, err := pc.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.cfg.Bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return fmt.Errorf("presign get: %w", err)
	}

	data, err := netx.DownloadPresignedURL(ctx, req.URL)
	if err != nil {
		return err
	}

	if err := filex.WriteAtomic(destPath, data, 0o600); err != nil {
		return fmt.Errorf("write container: %w", err)
	}

	s.log.Info(ctx, "container restored", "key", key, "path", destPath, "bytes", len(data))
	return nil
}

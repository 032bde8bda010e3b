// Package storage backs up issuance artifacts to S3. Uploads are best
// effort: a failed backup never fails the issuance that produced it.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Backup key prefixes, one per issuance flow.
const (
	PrefixSingleIssuance = "bulkbackup/Single Issuance"
	PrefixBatchIssuance  = "bulkbackup/Batch Issuance"
)

// S3API is the slice of the S3 client the backup store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3aws.ListObjectsV2Input, optFns ...func(*s3aws.Options)) (*s3aws.ListObjectsV2Output, error)
}

// Store uploads bulk issuance result archives to a bucket.
type Store struct {
	client  S3API
	presign *s3aws.PresignClient
	bucket  string
}

// New builds a Store from the ambient AWS configuration.
func New(ctx context.Context, bucket string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3aws.NewFromConfig(cfg)
	return &Store{client: client, presign: s3aws.NewPresignClient(client), bucket: bucket}, nil
}

// NewWithClient builds a Store around an existing client.
func NewWithClient(client S3API, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Backup uploads data under prefix, keyed by the original filename with
// a timestamp to keep repeated runs from overwriting each other.
func (s *Store) Backup(ctx context.Context, prefix, filename string, data []byte) (string, error) {
	key := path.Join(prefix, time.Now().UTC().Format("20060102T150405Z")+"-"+filename)
	_, err := s.client.PutObject(ctx, &s3aws.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return "", fmt.Errorf("backup %s: %w", key, err)
	}
	return key, nil
}

// BackupAsync runs Backup in the background with its own deadline and
// only logs the outcome. Issuance responses never wait on S3.
func (s *Store) BackupAsync(prefix, filename string, data []byte) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		key, err := s.Backup(ctx, prefix, filename, data)
		if err != nil {
			log.Warn().Err(err).Str("filename", filename).Msg("issuance backup failed")
			return
		}
		log.Info().Str("key", key).Msg("issuance backup stored")
	}()
}

// PresignGet returns a time-limited download URL for a stored backup.
func (s *Store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if s.presign == nil {
		return "", errors.New("storage: presigning not configured")
	}
	req, err := s.presign.PresignGetObject(ctx, &s3aws.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3aws.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// ListBackups returns the object keys stored under prefix.
func (s *Store) ListBackups(ctx context.Context, prefix string) ([]string, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3aws.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix + "/"),
	})
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}

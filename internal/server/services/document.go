package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/dmitrijs2005/docvault/internal/server/config"
)

// presignExpiry bounds how long an upload or download URL stays usable.
const presignExpiry = 15 * time.Minute

// Indirections over the AWS SDK so tests can stub presigning without an
// object store.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// DocumentService stores document metadata in the database and file bodies
// in S3-compatible object storage, handing out presigned URLs to clients.
type DocumentService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	config *sc.Config
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config) *DocumentService {
	return &DocumentService{
		db:     db,
		repos:  m,
		config: cfg,
	}
}

// randomStorageKey produces a date-partitioned object key with a uuid leaf.
func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("documents/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *DocumentService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

func (s *DocumentService) presignPut(ctx context.Context, key string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

func (s *DocumentService) presignGet(ctx context.Context, key string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// Upload records document metadata under a fresh storage key and returns the
// document together with a presigned PUT URL the client uses to upload the
// file body directly to object storage.
func (s *DocumentService) Upload(ctx context.Context, title, ocrText string) (*models.Document, string, error) {
	doc := &models.Document{
		Title:      title,
		OCRText:    ocrText,
		StorageKey: randomStorageKey(),
	}

	repo := s.repos.Documents(s.db)
	doc, err := repo.Create(ctx, doc)
	if err != nil {
		return nil, "", err
	}

	uploadURL, err := s.presignPut(ctx, doc.StorageKey)
	if err != nil {
		return nil, "", err
	}

	return doc, uploadURL, nil
}

// Get returns the document metadata and a presigned GET URL for its file body.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, string, error) {
	repo := s.repos.Documents(s.db)

	doc, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	fileURL, err := s.presignGet(ctx, doc.StorageKey)
	if err != nil {
		return nil, "", err
	}

	return doc, fileURL, nil
}

func (s *DocumentService) List(ctx context.Context) ([]models.Document, error) {
	return s.repos.Documents(s.db).List(ctx)
}

func (s *DocumentService) Count(ctx context.Context) (int64, error) {
	return s.repos.Documents(s.db).Count(ctx)
}

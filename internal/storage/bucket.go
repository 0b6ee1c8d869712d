package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

// BucketStore implements ObjectStore on any S3-compatible backend
// (MinIO locally, AWS S3 or a compatible provider in production). Objects are
// written under "images/<id>_<filename>" and served from a public base URL.
type BucketStore struct {
	client     *minio.Client
	httpClient *http.Client
	bucket     string
	publicBase string
	log        *zap.Logger
}

// NewBucketStore creates the MinIO client, ensures the bucket exists with a
// public-read policy, and returns a ready-to-use BucketStore.
func NewBucketStore(endpoint, accessKey, secretKey, bucket, publicBase string, useSSL bool, log *zap.Logger) (*BucketStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx := context.Background()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Info("created bucket", zap.String("bucket", bucket))
	}

	if err := client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	return &BucketStore{
		client:     client,
		httpClient: http.DefaultClient,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		log:        log,
	}, nil
}

// Upload writes the image under a unique key and returns its public URL.
// When req.Progress is set it is invoked with percentages in [0,100] as
// bytes go over the wire.
func (s *BucketStore) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	data, contentType, err := payload(ctx, s.httpClient, req)
	if err != nil {
		return nil, err
	}

	key := objectKey(req.FileName)
	size := int64(len(data))

	opts := minio.PutObjectOptions{ContentType: contentType}
	if req.Progress != nil {
		opts.Progress = &progressReader{total: size, callback: req.Progress}
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), size, opts); err != nil {
		return nil, &Error{Kind: KindNetwork, Msg: fmt.Sprintf("put object %q", key), Err: err}
	}

	s.log.Info("image uploaded",
		zap.String("backend", "bucket"),
		zap.String("key", key),
		zap.Int64("bytes", size))

	return &UploadResult{
		SecureURL: s.publicBase + "/" + key,
		AssetID:   key,
		Format:    strings.TrimPrefix(path.Ext(req.FileName), "."),
		Bytes:     size,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// URLFor returns the public URL for a stored object. The bucket serves
// originals only, so transformation options are ignored.
func (s *BucketStore) URLFor(assetID string, _ TransformOptions) string {
	return s.publicBase + "/" + assetID
}

// objectKey builds "images/<id>_<filename>". The xid prefix keeps keys unique
// under rapid concurrent uploads of the same file.
func objectKey(fileName string) string {
	name := strings.ReplaceAll(path.Base(fileName), " ", "_")
	if name == "" || name == "." {
		name = "image"
	}
	return "images/" + xid.New().String() + "_" + name
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET
// on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}

package s3

import (
	"bytes"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"UrbanScout/pkg/response"
)

type ItfS3 interface {
	UploadBytes(key string, data []byte, contentType string) (string, error)
}

type s3Client struct {
	session    *session.Session
	bucketName string
}

func New() (ItfS3, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}

	bucketName := os.Getenv("AWS_BUCKET_NAME")
	if bucketName == "" {
		bucketName = "street-view-images"
	}

	return &s3Client{
		session:    sess,
		bucketName: bucketName,
	}, nil
}

// UploadBytes stores an object and returns its public location.
func (s *s3Client) UploadBytes(key string, data []byte, contentType string) (string, error) {
	uploader := s3manager.NewUploader(s.session)

	uploadOutput, err := uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		if reqErr, ok := err.(awserr.RequestFailure); ok {
			return "", response.NewError(reqErr.StatusCode(), reqErr.Message())
		}
		return "", err
	}

	return uploadOutput.Location, nil
}

func newSession() (*session.Session, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
		Credentials: credentials.NewStaticCredentials(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			"",
		),
	})
	if err != nil {
		return nil, err
	}

	return sess, nil
}

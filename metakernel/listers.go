package metakernel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// DirLister lists regular files of a local directory.
type DirLister struct{}

// List returns dir joined with the name of each non-directory entry.
func (DirLister) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

// S3Lister lists objects directly under an s3://bucket/prefix directory.
type S3Lister struct {
	api s3iface.S3API
}

// NewS3Lister wraps an S3 client.
func NewS3Lister(api s3iface.S3API) *S3Lister {
	return &S3Lister{api: api}
}

// List calls ListObjectsV2 with a "/" delimiter, following continuation
// tokens, and returns s3:// URLs of the objects found.
func (l *S3Lister) List(dir string) ([]string, error) {
	bucket, prefix, err := SplitS3URL(dir)
	if err != nil {
		return nil, err
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	params := s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}

	var out []string
	for {
		listing, err := l.api.ListObjectsV2(&params)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range listing.Contents {
			key := aws.StringValue(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			out = append(out, "s3://"+bucket+"/"+key)
		}

		if aws.BoolValue(listing.IsTruncated) && listing.NextContinuationToken != nil {
			params.ContinuationToken = listing.NextContinuationToken
			continue
		}
		break
	}
	return out, nil
}

// SplitS3URL separates s3://bucket/prefix into its bucket and prefix.
func SplitS3URL(url string) (string, string, error) {
	if !strings.HasPrefix(url, "s3://") {
		return "", "", fmt.Errorf("not an s3 url: %q", url)
	}
	trimmed := strings.TrimPrefix(url, "s3://")
	bucket, prefix, _ := strings.Cut(trimmed, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 url %q has no bucket", url)
	}
	return bucket, prefix, nil
}

// ListerFor picks the S3 lister for s3:// directories when one is available
// and the local filesystem otherwise.
func ListerFor(dir string, s3l *S3Lister) Lister {
	if s3l != nil && strings.HasPrefix(dir, "s3://") {
		return s3l
	}
	return DirLister{}
}

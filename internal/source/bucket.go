package source

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectClient is the subset of *s3.Client the bucket source uses.
type ObjectClient interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// HourPrefixes returns root + "YYYY/MM/DD/HH/" for every UTC hour from
// from to to, inclusive. Both ends are truncated to the hour.
func HourPrefixes(root string, from, to time.Time) []string {
	if root != "" && !strings.HasSuffix(root, "/") {
		root += "/"
	}
	from, to = from.UTC().Truncate(time.Hour), to.UTC().Truncate(time.Hour)
	var out []string
	for h := from; !h.After(to); h = h.Add(time.Hour) {
		out = append(out, root+h.Format("2006/01/02/15")+"/")
	}
	return out
}

// Bucket yields one batch per object under each hour prefix, in prefix
// then key order. Listing is lazy: one prefix page is held at a time.
type Bucket struct {
	client   ObjectClient
	bucket   string
	prefixes []string

	pager *s3.ListObjectsV2Paginator
	keys  []string
}

func NewBucket(client ObjectClient, bucket, root string, from, to time.Time) *Bucket {
	return &Bucket{
		client:   client,
		bucket:   bucket,
		prefixes: HourPrefixes(root, from, to),
	}
}

func (b *Bucket) Next(ctx context.Context) (Batch, error) {
	for len(b.keys) == 0 {
		if b.pager == nil || !b.pager.HasMorePages() {
			if len(b.prefixes) == 0 {
				return Batch{}, io.EOF
			}
			b.pager = s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
				Bucket: aws.String(b.bucket),
				Prefix: aws.String(b.prefixes[0]),
			})
			b.prefixes = b.prefixes[1:]
			continue
		}
		page, err := b.pager.NextPage(ctx)
		if err != nil {
			return Batch{}, fmt.Errorf("list s3://%s: %w", b.bucket, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			b.keys = append(b.keys, key)
		}
	}

	key := b.keys[0]
	b.keys = b.keys[1:]
	lines, err := b.read(ctx, key)
	if err != nil {
		return Batch{}, fmt.Errorf("s3://%s/%s: %w", b.bucket, key, err)
	}
	return Batch{Name: "s3://" + b.bucket + "/" + key, Lines: lines}, nil
}

func (b *Bucket) read(ctx context.Context, key string) ([][]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()
	return ReadLines(out.Body)
}

package metakernel

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/go-cmp/cmp"
)

var start2011 = time.Date(2011, 4, 3, 14, 27, 56, 0, time.UTC)

type countingLister struct {
	calls   int
	entries []string
	err     error
}

func (c *countingLister) List(dir string) ([]string, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = dir + "/" + e
	}
	return out, nil
}

func TestResolveLastMatchWins(t *testing.T) {
	l := &countingLister{entries: []string{
		"msgr_2011_v02.tm",
		"msgr_2012_v01.tm",
		"msgr_2011_v10.tm",
		"msgr_2011_v01.tm",
		"msgr_2011_v99.txt",
		".msgr_2011_v99.tm",
	}}
	got, err := Resolve(start2011, "/kernels/mdis", l)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if want := "/kernels/mdis/msgr_2011_v10.tm"; got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveNotFound(t *testing.T) {
	cases := [][]string{
		nil,
		{"msgr_2012_v01.tm"},
		{"msgr_2011.bsp", "msgr_2011.tm.bak"},
	}
	for _, entries := range cases {
		_, err := Resolve(start2011, "/kernels/mdis", &countingLister{entries: entries})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Resolve(%v) error = %v, want ErrNotFound", entries, err)
		}
	}

	listErr := errors.New("permission denied")
	if _, err := Resolve(start2011, "/x", &countingLister{err: listErr}); !errors.Is(err, listErr) {
		t.Fatalf("Resolve lister error = %v, want %v", err, listErr)
	}
}

func TestRefMemoizes(t *testing.T) {
	l := &countingLister{entries: []string{"msgr_2011_v01.tm"}}
	rec := &scanLog{}
	ref := NewRef("/kernels/mdis", l, WithScanRecorder(rec))

	first, err := ref.Get(start2011)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	l.entries = []string{"msgr_2011_v99.tm"}
	second, err := ref.Get(start2011.AddDate(1, 0, 0))
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if first != second {
		t.Fatalf("Get() changed after first success: %q then %q", first, second)
	}
	if l.calls != 1 {
		t.Fatalf("lister called %d times, want 1", l.calls)
	}
	if diff := cmp.Diff([]bool{true}, rec.ok); diff != "" {
		t.Fatalf("scan outcomes mismatch (-want +got):\n%s", diff)
	}
}

func TestRefDoesNotCacheFailures(t *testing.T) {
	l := &countingLister{}
	ref := NewRef("/kernels/mdis", l)

	if _, err := ref.Get(start2011); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}
	l.entries = []string{"msgr_2011_v01.tm"}
	got, err := ref.Get(start2011)
	if err != nil {
		t.Fatalf("Get after fix error: %v", err)
	}
	if got != "/kernels/mdis/msgr_2011_v01.tm" || l.calls != 2 {
		t.Fatalf("Get() = %q after %d calls", got, l.calls)
	}
}

func TestDirLister(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"mdis_2011_v02.tm", "mdis_2011_v01.tm", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("\\begindata\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "old_2011.tm"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	ref := NewRef(dir, nil)
	got, err := ref.Get(start2011)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if want := filepath.Join(dir, "mdis_2011_v02.tm"); got != want {
		t.Fatalf("Get() = %q, want %q", got, want)
	}

	if _, err := (DirLister{}).List(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error listing a missing directory")
	}
}

type scanLog struct {
	ok []bool
}

func (s *scanLog) RecordMetakernelScan(err error) { s.ok = append(s.ok, err == nil) }

type fakeS3 struct {
	s3iface.S3API

	inputs  []s3.ListObjectsV2Input
	outputs []*s3.ListObjectsV2Output
}

func (f *fakeS3) ListObjectsV2(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	f.inputs = append(f.inputs, *in)
	if len(f.outputs) == 0 {
		return nil, errors.New("no queued output")
	}
	out := f.outputs[0]
	f.outputs = f.outputs[1:]
	return out, nil
}

func TestS3ListerPaginates(t *testing.T) {
	api := &fakeS3{outputs: []*s3.ListObjectsV2Output{
		{
			Contents: []*s3.Object{
				{Key: aws.String("spice/mdis/msgr_2011_v01.tm")},
				{Key: aws.String("spice/mdis/")},
			},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("page-2"),
		},
		{
			Contents: []*s3.Object{
				{Key: aws.String("spice/mdis/msgr_2011_v03.tm")},
				{Key: aws.String("spice/mdis/msgr_2012_v01.tm")},
			},
			IsTruncated: aws.Bool(false),
		},
	}}

	ref := NewRef("s3://planetary/spice/mdis", ListerFor("s3://planetary/spice/mdis", NewS3Lister(api)))
	got, err := ref.Get(start2011)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if want := "s3://planetary/spice/mdis/msgr_2011_v03.tm"; got != want {
		t.Fatalf("Get() = %q, want %q", got, want)
	}

	if len(api.inputs) != 2 {
		t.Fatalf("ListObjectsV2 called %d times, want 2", len(api.inputs))
	}
	first := api.inputs[0]
	if aws.StringValue(first.Bucket) != "planetary" || aws.StringValue(first.Prefix) != "spice/mdis/" || aws.StringValue(first.Delimiter) != "/" {
		t.Fatalf("unexpected first request: %s", first.String())
	}
	if first.ContinuationToken != nil {
		t.Fatalf("first request carried a continuation token")
	}
	if aws.StringValue(api.inputs[1].ContinuationToken) != "page-2" {
		t.Fatalf("second request token = %q", aws.StringValue(api.inputs[1].ContinuationToken))
	}
}

func TestSplitS3URL(t *testing.T) {
	bucket, prefix, err := SplitS3URL("s3://planetary/spice/mdis")
	if err != nil || bucket != "planetary" || prefix != "spice/mdis" {
		t.Fatalf("SplitS3URL() = %q, %q, %v", bucket, prefix, err)
	}
	for _, bad := range []string{"/local/dir", "s3://", "s3:///prefix"} {
		if _, _, err := SplitS3URL(bad); err == nil {
			t.Fatalf("SplitS3URL(%q) expected error", bad)
		}
	}
	if _, ok := ListerFor("/local", NewS3Lister(&fakeS3{})).(DirLister); !ok {
		t.Fatalf("ListerFor(local) should use DirLister")
	}
}

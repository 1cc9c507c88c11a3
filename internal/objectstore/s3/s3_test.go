package s3

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/m3rciful/reviewbot/internal/photos"
)

type fakeAPI struct {
	put    *awss3.PutObjectInput
	body   string
	acl    *awss3.PutObjectAclInput
	del    *awss3.DeleteObjectInput
	putErr error
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	f.del = in
	return &awss3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.put = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &awss3.PutObjectOutput{}, nil
}

func (f *fakeAPI) PutObjectAcl(_ context.Context, in *awss3.PutObjectAclInput, _ ...func(*awss3.Options)) (*awss3.PutObjectAclOutput, error) {
	f.acl = in
	return &awss3.PutObjectAclOutput{}, nil
}

func tempPhoto(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "p.jpg")
	if err := os.WriteFile(p, []byte("img"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestUploadPublishWithACL(t *testing.T) {
	api := &fakeAPI{}
	s := &Store{api: api, opts: Options{
		Bucket:        "reviews",
		PublicBaseURL: "https://cdn.example.com/",
		PublicACL:     true,
		KeyPrefix:     "/photos/",
	}}

	obj, err := s.Upload(context.Background(), tempPhoto(t), "1_x.jpg", photos.JPEGMime)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if *api.put.Bucket != "reviews" || *api.put.Key != "photos/1_x.jpg" || *api.put.ContentType != "image/jpeg" {
		t.Fatalf("put = %+v", api.put)
	}
	if api.body != "img" {
		t.Fatalf("body = %q", api.body)
	}
	pub, err := s.Publish(context.Background(), obj)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if api.acl == nil || api.acl.ACL != types.ObjectCannedACLPublicRead {
		t.Fatalf("acl = %+v", api.acl)
	}
	if pub.URL != "https://cdn.example.com/photos/1_x.jpg" {
		t.Fatalf("url = %q", pub.URL)
	}
}

func TestPublishWithoutACL(t *testing.T) {
	api := &fakeAPI{}
	s := &Store{api: api, opts: Options{PublicBaseURL: "https://pub.r2.dev"}}
	pub, err := s.Publish(context.Background(), photos.Object{ID: "a.jpg"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if api.acl != nil {
		t.Fatal("acl applied although disabled")
	}
	if pub.URL != "https://pub.r2.dev/a.jpg" {
		t.Fatalf("url = %q", pub.URL)
	}
}

func TestUploadFailure(t *testing.T) {
	boom := errors.New("AccessDenied")
	s := &Store{api: &fakeAPI{putErr: boom}, opts: Options{Bucket: "b"}}
	if _, err := s.Upload(context.Background(), tempPhoto(t), "n.jpg", "image/jpeg"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	api := &fakeAPI{}
	s := &Store{api: api, opts: Options{Bucket: "photos"}}
	if err := s.Delete(context.Background(), photos.Object{ID: "feedback/a.jpg"}); err != nil {
		t.Fatal(err)
	}
	if api.del == nil || *api.del.Bucket != "photos" || *api.del.Key != "feedback/a.jpg" {
		t.Fatalf("delete input = %+v", api.del)
	}
}

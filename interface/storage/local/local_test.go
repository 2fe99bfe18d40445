package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/ee-ingester/service"
)

func TestLocalStager(t *testing.T) {
	ctx := context.Background()
	srcdir, distdir := t.TempDir(), filepath.Join(t.TempDir(), "bucket")

	file := filepath.Join(srcdir, "image.tif")
	if err := os.WriteFile(file, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	bucket, err := New(distdir)
	if err != nil {
		t.Fatal(err)
	}
	if err := service.EnsureBucket(ctx, bucket); err != nil {
		t.Fatal(err)
	}
	stager := service.NewStager(bucket, 1)

	objects, err := stager.Stage(ctx, []string{file}, "staging")
	if err != nil {
		t.Fatal(err)
	}
	if expected := bucket.Prefix() + "staging/image.tif"; objects[0].URI != expected {
		t.Errorf("expected %s, got %s", expected, objects[0].URI)
	}
	if _, err := os.Stat(filepath.Join(distdir, "staging", "image.tif")); err != nil {
		t.Error(err)
	}

	if err := stager.Remove(ctx, service.URIs(objects)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(distdir, "staging", "image.tif")); !os.IsNotExist(err) {
		t.Errorf("expected file to be deleted, got %v", err)
	}
	if err := bucket.Delete(ctx, "staging/image.tif"); err == nil {
		t.Error("expected ErrFileNotFound")
	}
}

func TestBlobOutsideBucket(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	secret := filepath.Join(root, "secret.json")
	if err := os.WriteFile(secret, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	bucket, err := New(filepath.Join(root, "bucket"))
	if err != nil {
		t.Fatal(err)
	}
	if err := service.EnsureBucket(ctx, bucket); err != nil {
		t.Fatal(err)
	}
	stager := service.NewStager(bucket, 1)
	if err := stager.Remove(ctx, []string{bucket.Prefix() + "../secret.json"}); err == nil || !service.Fatal(err) {
		t.Errorf("expected a fatal error, got %v", err)
	}
	if _, err := os.Stat(secret); err != nil {
		t.Errorf("file outside of the bucket must not be deleted: %v", err)
	}

	f, err := os.Open(secret)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := bucket.UploadFile(ctx, "a/../../b.json", f); err == nil {
		t.Error("expected an error")
	}
	if _, err := os.Stat(filepath.Join(root, "b.json")); !os.IsNotExist(err) {
		t.Errorf("expected no file outside of the bucket, got %v", err)
	}
}

package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"registercore/internal/archive/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	info, err := store.Put(ctx, "contracts/2024/source.csv", strings.NewReader("a,b\n1,2\n"),
		core.PutOptions{ContentType: "text/csv", Metadata: map[string]string{"register": "contract"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 8 || info.ContentType != "text/csv" || info.ETag == "" {
		t.Fatalf("put info: %+v", info)
	}

	got, rc, err := store.Get(ctx, "contracts/2024/source.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "a,b\n1,2\n" {
		t.Fatalf("body = %q", body)
	}
	if got.Metadata["register"] != "contract" {
		t.Fatalf("metadata lost: %+v", got)
	}
	if got.ETag != info.ETag {
		t.Fatalf("etag drift: %q vs %q", got.ETag, info.ETag)
	}
}

func TestPutRefusesOverwrite(t *testing.T) {
	store, _ := New(t.TempDir())
	ctx := context.Background()
	if _, err := store.Put(ctx, "backup.csv", strings.NewReader("v1"), core.PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "backup.csv", strings.NewReader("v2"), core.PutOptions{}); err == nil {
		t.Fatalf("second put on same key must fail")
	}
	_, rc, err := store.Get(ctx, "backup.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	if body, _ := io.ReadAll(rc); string(body) != "v1" {
		t.Fatalf("original overwritten: %q", body)
	}
}

func TestSanitizeKey(t *testing.T) {
	store, _ := New(t.TempDir())
	ctx := context.Background()
	for _, key := range []string{"", "  ", "/etc/passwd", "../escape", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestDeleteAndList(t *testing.T) {
	store, _ := New(t.TempDir())
	ctx := context.Background()
	for _, key := range []string{"contracts/a.csv", "contracts/b.csv", "permits/c.csv"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "contracts/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "contracts/a.csv" || infos[1].Key != "contracts/b.csv" {
		t.Fatalf("list = %+v", infos)
	}

	ok, err := store.Delete(ctx, "contracts/a.csv")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := store.Delete(ctx, "contracts/a.csv"); ok {
		t.Fatalf("second delete reported existing")
	}
	if _, err := store.Head(ctx, "contracts/a.csv"); err == nil {
		t.Fatalf("head after delete succeeded")
	}
}

func TestPresignURLIsFileURL(t *testing.T) {
	store, _ := New(t.TempDir())
	ctx := context.Background()
	if _, err := store.Put(ctx, "export.csv", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	u, err := store.PresignURL(ctx, "export.csv", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/export.csv") {
		t.Fatalf("url = %q", u)
	}
}

package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/airbusgeo/ee-ingester/common"
	"github.com/airbusgeo/ee-ingester/interface/catalog/catalogtest"
)

func TestResolvePath(t *testing.T) {
	home := "users/me"
	for p, expected := range map[string]string{
		"":                      "users/me",
		"/users/other/a":        "users/other/a",
		"users/other/a":         "users/other/a",
		"projects/p/assets/a":   "projects/p/assets/a",
		"col/a":                 "users/me/col/a",
		"a":                     "users/me/a",
		"/relative/to/root":     "relative/to/root",
	} {
		if got := ResolvePath(home, p); got != expected {
			t.Errorf("ResolvePath(%s): expected %s, got %s", p, expected, got)
		}
	}
}

func TestHomeIsCached(t *testing.T) {
	ctx := context.Background()
	svc := catalogtest.New("users/me")
	c := New(svc, "")

	p, err := c.Path(ctx, "a")
	if err != nil || p != "users/me/a" {
		t.Fatalf("Path: %s %v", p, err)
	}
	svc.Roots = []string{"users/other"}
	if p, _ := c.Path(ctx, "a"); p != "users/me/a" {
		t.Errorf("expected the cached home, got %s", p)
	}
	if home, _ := c.Home(ctx); home != "users/other" {
		t.Errorf("expected a refreshed home, got %s", home)
	}
	if p, _ := c.Path(ctx, "a"); p != "users/other/a" {
		t.Errorf("expected the refreshed home, got %s", p)
	}
}

func TestFixedHome(t *testing.T) {
	c := New(catalogtest.New("users/me"), "projects/p/assets/")
	if p, _ := c.Path(context.Background(), "a"); p != "projects/p/assets/a" {
		t.Errorf("unexpected path %s", p)
	}
}

func TestNoRoot(t *testing.T) {
	svc := catalogtest.New("users/me")
	svc.Roots = nil
	if _, err := New(svc, "").Path(context.Background(), "a"); err == nil {
		t.Error("expected an error")
	}
}

func TestNamespace(t *testing.T) {
	ctx := context.Background()
	svc := catalogtest.New("users/me")
	c := New(svc, "")

	if err := c.CreateFolder(ctx, "col", true, false, true); err != nil {
		t.Fatal(err)
	}
	info, err := c.Info(ctx, "col")
	if err != nil || info == nil || info.Type != common.AssetTypeImageCollection {
		t.Fatalf("Info: %+v %v", info, err)
	}
	if acl, _ := c.ACL(ctx, "col"); !acl.AllUsersCanRead {
		t.Error("expected a public collection")
	}
	if err := c.CreateFolder(ctx, "col", false, false, false); err == nil {
		t.Error("expected an error without overwrite")
	}

	svc.Put(common.Asset{ID: "users/me/col/b", Type: common.AssetTypeImage})
	svc.Put(common.Asset{ID: "users/me/col/a", Type: common.AssetTypeImage})
	names, err := c.Ls(ctx, "col", false)
	if err != nil || len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Ls: %v %v", names, err)
	}
	names, _ = c.Ls(ctx, "/users/me/col", true)
	if len(names) != 2 || names[0] != "users/me/col/a" {
		t.Errorf("Ls(abspath): %v", names)
	}

	if ok, _ := c.Exists(ctx, "col/a"); !ok {
		t.Error("expected col/a to exist")
	}
	if ok, _ := c.Exists(ctx, "col/c"); ok {
		t.Error("expected col/c not to exist")
	}

	if err := c.SetProperties(ctx, "col/a", map[string]interface{}{"cloud": 10}); err != nil {
		t.Fatal(err)
	}
	if info, _ := c.Info(ctx, "col/a"); info.Properties["cloud"] != 10 {
		t.Errorf("unexpected properties %v", info.Properties)
	}

	if err := c.Copy(ctx, "col/a", "col/c"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.Exists(ctx, "users/me/col/c"); !ok {
		t.Error("expected col/c to exist")
	}

	quota, err := c.Quota(ctx)
	if err != nil || quota.AssetCount != 4 {
		t.Errorf("Quota: %+v %v", quota, err)
	}
}

func TestSetACL(t *testing.T) {
	ctx := context.Background()
	svc := catalogtest.New("users/me")
	c := New(svc, "")
	svc.Put(common.Asset{ID: "users/me/a", Type: common.AssetTypeImage})
	svc.ACLs["users/me/a"] = common.ACL{Owners: []string{"me"}, Readers: []string{"friend"}}

	if err := c.SetACL(ctx, "a", common.ACLPublic(), false); err != nil {
		t.Fatal(err)
	}
	acl, _ := c.ACL(ctx, "a")
	if !acl.AllUsersCanRead || len(acl.Readers) != 1 || len(acl.Owners) != 1 {
		t.Errorf("unexpected acl %+v", acl)
	}

	writers := []string{"colleague"}
	if err := c.SetACL(ctx, "a", common.ACLChange{Writers: &writers}, true); err != nil {
		t.Fatal(err)
	}
	acl, _ = c.ACL(ctx, "a")
	if acl.AllUsersCanRead || len(acl.Readers) != 0 || len(acl.Writers) != 1 {
		t.Errorf("unexpected acl %+v", acl)
	}
}

func TestParseACLChange(t *testing.T) {
	change, err := ParseACLChange("public")
	if err != nil || change.AllUsersCanRead == nil || !*change.AllUsersCanRead {
		t.Errorf("public: %+v %v", change, err)
	}
	change, err = ParseACLChange("private")
	if err != nil || change.AllUsersCanRead == nil || *change.AllUsersCanRead {
		t.Errorf("private: %+v %v", change, err)
	}
	change, err = ParseACLChange(`{"readers":["a","b"]}`)
	if err != nil || change.Readers == nil || len(*change.Readers) != 2 || change.AllUsersCanRead != nil {
		t.Errorf("json: %+v %v", change, err)
	}
	if _, err := ParseACLChange("{"); err == nil {
		t.Error("expected an error")
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc := catalogtest.New("users/me")
	c := New(svc, "")
	svc.Put(common.Asset{ID: "users/me/f", Type: common.AssetTypeFolder})
	svc.Put(common.Asset{ID: "users/me/f/col", Type: common.AssetTypeImageCollection})
	svc.Put(common.Asset{ID: "users/me/f/col/a", Type: common.AssetTypeImage})
	svc.Put(common.Asset{ID: "users/me/f/b", Type: common.AssetTypeImage})

	if err := c.Remove(ctx, "f", false); err == nil {
		t.Error("expected an error on a non-empty folder")
	}
	if err := c.Remove(ctx, "f", true); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"users/me/f", "users/me/f/col", "users/me/f/col/a", "users/me/f/b"} {
		if ok, _ := c.Exists(ctx, "/"+id); ok {
			t.Errorf("expected %s to be deleted", id)
		}
	}
	var errNotFound ErrAssetNotFound
	if err := c.Remove(ctx, "f", true); !errors.As(err, &errNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

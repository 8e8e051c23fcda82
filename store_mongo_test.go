package statsync

import (
	"context"
	"testing"
	"time"
)

func TestMongoStore_RequiresCollection(t *testing.T) {
	store := &MongoStore{ExpireAfter: time.Hour}

	if err := store.Setup(context.Background()); err == nil {
		t.Fatalf("expected setup error without collection")
	}
	if err := store.Setup(nil); err == nil {
		t.Fatalf("expected setup error with nil context")
	}
	if err := store.Save("u1", []byte("blob")); err == nil {
		t.Fatalf("expected save error without collection")
	}
	if _, _, err := store.Load("u1"); err == nil {
		t.Fatalf("expected load error without collection")
	}
	if err := store.Delete("u1"); err == nil {
		t.Fatalf("expected delete error without collection")
	}
}

func TestMongoStore_Description(t *testing.T) {
	if got := NewMongoStore(nil).Description(); got != "MongoStore" {
		t.Fatalf("unexpected description: %s", got)
	}
}

package gormstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/store"
)

func TestTranslate(t *testing.T) {
	boom := errors.New("connection reset")
	tests := []struct {
		name     string
		err      error
		entity   store.Entity
		wantKind domain.Kind
		wantCode string
	}{
		{"missing row", gorm.ErrRecordNotFound, store.EntityOrder, domain.KindNotFound, ""},
		{"wrapped missing row", fmt.Errorf("first: %w", gorm.ErrRecordNotFound), store.EntityTable, domain.KindNotFound, ""},
		{"duplicate employee", gorm.ErrDuplicatedKey, store.EntityEmployee, domain.KindConflict, domain.ErrEmailTaken.Code},
		{"duplicate row", gorm.ErrDuplicatedKey, store.EntityMenuCategory, domain.KindConflict, "DUPLICATE"},
		{"driver failure", boom, store.EntityPayment, domain.KindInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate(tt.err, tt.entity, "id-1")
			if got := domain.KindOf(err); got != tt.wantKind {
				t.Fatalf("kind = %s, want %s", got, tt.wantKind)
			}
			var de *domain.Error
			if tt.wantCode != "" && (!errors.As(err, &de) || de.Code != tt.wantCode) {
				t.Fatalf("err = %v, want code %s", err, tt.wantCode)
			}
		})
	}

	if translate(nil, store.EntityOrder, "id-1") != nil {
		t.Fatal("translate(nil) != nil")
	}
	if err := translate(boom, store.EntityPayment, "p1"); !errors.Is(err, boom) {
		t.Fatalf("driver error not wrapped: %v", err)
	}
}

func TestEveryLockableEntityHasATarget(t *testing.T) {
	for entity := range store.LockRank {
		if _, ok := lockTargets[entity]; !ok {
			t.Errorf("no lock target for %s", entity)
		}
	}
}

func TestNewIDKeepsExplicitIDs(t *testing.T) {
	if got := newID("fixed"); got != "fixed" {
		t.Fatalf("newID(fixed) = %q", got)
	}
	a, b := newID(""), newID("")
	if a == "" || a == b {
		t.Fatalf("generated ids %q and %q", a, b)
	}
}

func TestMenuCacheWithoutRedis(t *testing.T) {
	c := newMenuCache(nil)
	ctx := context.Background()
	c.set(ctx, models.MenuItem{ID: "m1", Name: "Soup"})
	if _, ok := c.get(ctx, "m1"); ok {
		t.Fatal("cache without redis returned a hit")
	}
	c.evict(ctx, "m1")
}

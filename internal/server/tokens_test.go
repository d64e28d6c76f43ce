package server

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTokenRedeemOnce(t *testing.T) {
	registry := newTokenRegistry(nil)
	store := NewStore()
	game := store.OpenEntry(4)

	record, err := registry.Issue(game, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := registry.Lookup(record.Token); err != nil {
		t.Fatalf("lookup before redemption: %v", err)
	}
	if err := registry.Redeem(record.Token, "alpha", 0); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if err := registry.Redeem(record.Token, "beta", 0); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Fatalf("expected already-used error, got %v", err)
	}
	if _, err := registry.Lookup(record.Token); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Fatalf("expected already-used on lookup, got %v", err)
	}
}

func TestTokenUnknown(t *testing.T) {
	registry := newTokenRegistry(nil)
	if _, err := registry.Lookup("nope"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if err := registry.Redeem("nope", "alpha", 0); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	registry := newTokenRegistry(nil)
	store := NewStore()
	game := store.OpenEntry(4)

	record, err := registry.Issue(game, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := registry.Lookup(record.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestTokenUnredeemRestoresUse(t *testing.T) {
	registry := newTokenRegistry(nil)
	store := NewStore()
	game := store.OpenEntry(4)

	record, err := registry.Issue(game, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := registry.Redeem(record.Token, "alpha", 0); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	registry.Unredeem(record.Token)
	if err := registry.Redeem(record.Token, "beta", 0); err != nil {
		t.Fatalf("expected redemption after rollback, got %v", err)
	}
}

func TestTokenValuesAreUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		value := newTokenValue()
		if len(value) != 64 {
			t.Fatalf("expected 64-char token, got %d", len(value))
		}
		if _, dup := seen[value]; dup {
			t.Fatalf("token collision: %s", value)
		}
		seen[value] = struct{}{}
	}
}

func TestTokenRedeemConcurrent(t *testing.T) {
	registry := newTokenRegistry(nil)
	store := NewStore()
	game := store.OpenEntry(4)

	record, err := registry.Issue(game, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const callers = 32
	var wg sync.WaitGroup
	var won int32
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			if err := registry.Redeem(record.Token, fmt.Sprintf("caller-%d", i), 0); err == nil {
				atomic.AddInt32(&won, 1)
			}
		}(i)
	}
	wg.Wait()

	if won != 1 {
		t.Fatalf("expected exactly one winning redemption, got %d", won)
	}
}

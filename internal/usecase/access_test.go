package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/totegamma/curatorgate"
	"github.com/totegamma/curatorgate/internal/domain"
)

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newTestAccess(store *memoryStore, limiter RateLimiter, signal SignalPublisher, mode domain.ScopeMode) *AccessUsecase {
	uc := NewAccessUsecase(store, store, limiter, signal, domain.Config{
		ScopeMode:      mode,
		StorageTimeout: time.Second,
	})
	uc.now = func() time.Time { return testNow }
	return uc
}

func TestVerifyInvalidInput(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{Code: "WELCOME10", MaxUses: 1})
	limiter := &mockLimiter{}
	uc := newTestAccess(store, limiter, nil, domain.ScopeModeCurator)

	for _, code := range []string{"", "   ", "has space", "semi;colon"} {
		result := uc.Verify(context.Background(), VerifyInput{Code: code, SubjectID: "user-1", ClientIP: "10.0.0.1"})
		if result.OK || result.Reason != curatorgate.ReasonInvalid {
			t.Fatalf("code %q: expected invalid got %+v", code, result)
		}
	}

	if store.redeemCalls != 0 {
		t.Fatalf("expected no storage calls, got %d", store.redeemCalls)
	}
	if len(limiter.calls) != 0 {
		t.Fatalf("expected limiter untouched, got %v", limiter.calls)
	}
	if store.code("WELCOME10").UsedCount != 0 {
		t.Fatalf("code must not be mutated")
	}
}

func TestVerifyConcurrentSingleUse(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{Code: "ONCE", MaxUses: 1})
	uc := newTestAccess(store, nil, nil, domain.ScopeModeCurator)

	results := make([]VerifyResult, 2)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = uc.Verify(context.Background(), VerifyInput{
				Code:      "once",
				SubjectID: []string{"user-a", "user-b"}[i],
			})
		}(i)
	}
	close(start)
	wg.Wait()

	okCount, usedCount := 0, 0
	for _, r := range results {
		switch {
		case r.OK:
			okCount++
		case r.Reason == curatorgate.ReasonAlreadyUsed:
			usedCount++
		default:
			t.Fatalf("unexpected result %+v", r)
		}
	}
	if okCount != 1 || usedCount != 1 {
		t.Fatalf("expected one success and one already_used, got %d/%d", okCount, usedCount)
	}
	if s := store.code("ONCE").Status(testNow); s != domain.CodeStatusConsumed {
		t.Fatalf("expected CONSUMED got %s", s)
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{Code: "CURATOR1", MaxUses: 5, ScopeID: "curator-1"})
	signal := &mockSignal{}
	uc := newTestAccess(store, nil, signal, domain.ScopeModeCurator)
	ctx := context.Background()

	if uc.HasAccess(ctx, "user-1", "curator-1") {
		t.Fatalf("expected no access before verification")
	}

	result := uc.Verify(ctx, VerifyInput{Code: " curator1 ", SubjectID: "user-1"})
	if !result.OK {
		t.Fatalf("verify failed: %+v", result)
	}
	if result.Grant == nil || result.Grant.ScopeID != "curator-1" {
		t.Fatalf("unexpected grant %+v", result.Grant)
	}

	if !uc.HasAccess(ctx, "user-1", "curator-1") {
		t.Fatalf("expected access to curator-1")
	}
	if !uc.HasAccess(ctx, "user-1", "") {
		t.Fatalf("expected unscoped access check to pass")
	}
	if uc.HasAccess(ctx, "user-1", "curator-2") {
		t.Fatalf("grant must not leak to other curators")
	}
	if uc.HasAccess(ctx, "user-2", "curator-1") {
		t.Fatalf("grant must not leak to other subjects")
	}

	if len(signal.events) != 1 || signal.events[0].SubjectID != "user-1" {
		t.Fatalf("expected one grant event, got %+v", signal.events)
	}
}

func TestVerifyGlobalScopeMode(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{Code: "EVERYWHERE", MaxUses: 1, ScopeID: "curator-1"})
	uc := newTestAccess(store, nil, nil, domain.ScopeModeGlobal)
	ctx := context.Background()

	if r := uc.Verify(ctx, VerifyInput{Code: "everywhere", SubjectID: "user-1"}); !r.OK {
		t.Fatalf("verify failed: %+v", r)
	}
	if !uc.HasAccess(ctx, "user-1", "curator-9") {
		t.Fatalf("global grant should cover every curator")
	}
}

func TestVerifyEmailMismatch(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{
		Code:       "WELCOME10",
		BoundEmail: ptr("alice@example.com"),
		MaxUses:    1,
	})
	uc := newTestAccess(store, nil, nil, domain.ScopeModeCurator)

	result := uc.Verify(context.Background(), VerifyInput{Code: "WELCOME10", Email: "bob@example.com", SubjectID: "user-1"})
	if result.OK || result.Reason != curatorgate.ReasonEmailMismatch {
		t.Fatalf("expected email_mismatch got %+v", result)
	}
	if store.code("WELCOME10").UsedCount != 0 {
		t.Fatalf("mismatched email must not consume the code")
	}
}

func TestVerifyExpired(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{
		Code:      "LATE",
		MaxUses:   100,
		ExpiresAt: ptr(testNow.Add(-time.Second)),
	})
	uc := newTestAccess(store, nil, nil, domain.ScopeModeCurator)

	result := uc.Verify(context.Background(), VerifyInput{Code: "LATE", SubjectID: "user-1"})
	if result.OK || result.Reason != curatorgate.ReasonExpired {
		t.Fatalf("expected expired got %+v", result)
	}
}

func TestVerifyNotFound(t *testing.T) {
	uc := newTestAccess(newMemoryStore(), nil, nil, domain.ScopeModeCurator)

	result := uc.Verify(context.Background(), VerifyInput{Code: "MISSING", SubjectID: "user-1"})
	if result.OK || result.Reason != curatorgate.ReasonNotFound {
		t.Fatalf("expected not_found got %+v", result)
	}
}

func TestVerifyStorageError(t *testing.T) {
	store := newMemoryStore()
	store.redeemErr = errors.New("connection refused")
	uc := newTestAccess(store, nil, nil, domain.ScopeModeCurator)

	result := uc.Verify(context.Background(), VerifyInput{Code: "ANY", SubjectID: "user-1"})
	if result.OK || result.Reason != curatorgate.ReasonServerError {
		t.Fatalf("expected server_error got %+v", result)
	}
}

func TestVerifyStorePanic(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{Code: "WELCOME10", MaxUses: 1})
	store.redeemPanic = true
	uc := newTestAccess(store, nil, nil, domain.ScopeModeCurator)
	uc.config.MinLatency = 20 * time.Millisecond

	start := time.Now()
	result := uc.Verify(context.Background(), VerifyInput{Code: "WELCOME10", SubjectID: "user-1"})
	if result.OK || result.Reason != curatorgate.ReasonServerError {
		t.Fatalf("expected server_error got %+v", result)
	}
	if elapsed := time.Since(start); elapsed < uc.config.MinLatency {
		t.Fatalf("panic path answered in %s, below the floor", elapsed)
	}
}

func TestVerifyRateLimited(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{Code: "WELCOME10", MaxUses: 1})
	limiter := &mockLimiter{deny: map[string]bool{"email:spam@example.com": true}}
	uc := newTestAccess(store, limiter, nil, domain.ScopeModeCurator)

	result := uc.Verify(context.Background(), VerifyInput{
		Code:      "WELCOME10",
		Email:     " Spam@Example.com",
		SubjectID: "user-1",
		ClientIP:  "10.0.0.1",
	})
	if result.OK || result.Reason != curatorgate.ReasonRateLimited {
		t.Fatalf("expected rate_limited got %+v", result)
	}
	if store.redeemCalls != 0 {
		t.Fatalf("rate limited request reached the code store")
	}
	if len(limiter.calls) != 2 || limiter.calls[0] != "ip:10.0.0.1" {
		t.Fatalf("unexpected limiter keys %v", limiter.calls)
	}
}

func TestVerifyLimiterErrorFailsOpen(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{Code: "WELCOME10", MaxUses: 1})
	limiter := &mockLimiter{err: errors.New("redis down")}
	uc := newTestAccess(store, limiter, nil, domain.ScopeModeCurator)

	result := uc.Verify(context.Background(), VerifyInput{Code: "WELCOME10", SubjectID: "user-1", ClientIP: "10.0.0.1"})
	if !result.OK {
		t.Fatalf("expected success when limiter is unavailable, got %+v", result)
	}
}

func TestVerifyMintsAnonymousSubject(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{Code: "WELCOME10", MaxUses: 1})
	uc := newTestAccess(store, nil, nil, domain.ScopeModeCurator)
	uc.newSubject = func() string { return "anon:fixed" }

	result := uc.Verify(context.Background(), VerifyInput{Code: "WELCOME10"})
	if !result.OK || !result.Minted || result.SubjectID != "anon:fixed" {
		t.Fatalf("expected minted anonymous subject, got %+v", result)
	}
	if !uc.HasAccess(context.Background(), "anon:fixed", "") {
		t.Fatalf("expected anonymous subject to hold the grant")
	}
}

func TestVerifyLatencyFloor(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{Code: "WELCOME10", MaxUses: 1})
	uc := newTestAccess(store, nil, nil, domain.ScopeModeCurator)
	uc.config.MinLatency = 40 * time.Millisecond

	for _, code := range []string{"", "MISSING", "WELCOME10"} {
		start := time.Now()
		uc.Verify(context.Background(), VerifyInput{Code: code, SubjectID: "user-1"})
		if elapsed := time.Since(start); elapsed < uc.config.MinLatency {
			t.Fatalf("code %q answered in %s, below the floor", code, elapsed)
		}
	}
}

func TestHasAccessAnonymousSkipsStorage(t *testing.T) {
	store := newMemoryStore()
	uc := newTestAccess(store, nil, nil, domain.ScopeModeCurator)

	if uc.HasAccess(context.Background(), "", "curator-1") {
		t.Fatalf("anonymous requester must be denied")
	}
	if store.existsCalls != 0 {
		t.Fatalf("expected no storage call, got %d", store.existsCalls)
	}
}

func TestHasAccessIdempotent(t *testing.T) {
	store := newMemoryStore(domain.InviteCode{Code: "WELCOME10", MaxUses: 1})
	uc := newTestAccess(store, nil, nil, domain.ScopeModeCurator)
	ctx := context.Background()

	first := uc.HasAccess(ctx, "user-1", "")
	for i := 0; i < 3; i++ {
		if uc.HasAccess(ctx, "user-1", "") != first {
			t.Fatalf("repeated checks diverged")
		}
	}
}

func TestCheckFailClosed(t *testing.T) {
	store := newMemoryStore()
	store.existsErr = errors.New("connection reset")
	uc := newTestAccess(store, nil, nil, domain.ScopeModeCurator)

	decision := uc.Check(context.Background(), "user-1", "")
	if decision.Allowed || !decision.Indeterminate || decision.Err == nil {
		t.Fatalf("expected indeterminate denial, got %+v", decision)
	}
	if uc.HasAccess(context.Background(), "user-1", "") {
		t.Fatalf("expected fail-closed")
	}
}

func TestCheckStorageDeadline(t *testing.T) {
	store := newMemoryStore()
	store.blockExists = true
	uc := newTestAccess(store, nil, nil, domain.ScopeModeCurator)
	uc.config.StorageTimeout = 20 * time.Millisecond

	decision := uc.Check(context.Background(), "user-1", "")
	if decision.Allowed || !decision.Indeterminate {
		t.Fatalf("expected deadline to produce an indeterminate denial, got %+v", decision)
	}
	if !errors.Is(decision.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", decision.Err)
	}
}

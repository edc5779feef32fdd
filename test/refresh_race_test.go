//go:build integration
// +build integration

package test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goBlog/session"
)

// TestHandoffRaceSingleWinner: every replica claiming one refresh token
// ends up with the first writer's tokens.
func TestHandoffRaceSingleWinner(t *testing.T) {
	store, _, _ := newIntegrationStore(t)
	ctx := context.Background()

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			got, err := store.ClaimHandoff(ctx, "refresh-race", session.Handoff{
				AccessToken:  fmt.Sprintf("access-%d", i),
				RefreshToken: fmt.Sprintf("refresh-%d", i),
				ExpiresAt:    time.Now().Add(time.Hour),
			}, time.Minute)
			if err != nil {
				errs <- err
				return
			}
			results <- got.AccessToken
		}(i)
	}

	close(start)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("claim failed: %v", err)
	}
	winners := map[string]int{}
	for token := range results {
		winners[token]++
	}
	if len(winners) != 1 {
		t.Fatalf("expected one winning hand-off, got %v", winners)
	}

	loaded, err := store.LoadHandoff(ctx, "refresh-race")
	if err != nil || loaded == nil {
		t.Fatalf("load handoff: %+v %v", loaded, err)
	}
	if winners[loaded.AccessToken] != workers {
		t.Fatalf("stored hand-off %q differs from claimed %v", loaded.AccessToken, winners)
	}
}

// Command loadtest hammers a running server with pairs of users exchanging
// messages concurrently, then pages every conversation back with the keyset
// cursor and checks that ids are strictly ascending with no duplicates.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"

	"chatsync/internal/chat"
	"chatsync/internal/client"
)

var (
	baseURL   = flag.String("base", "http://localhost:8080", "server base URL")
	pairCount = flag.Int("pairs", 50, "number of user pairs")
	msgCount  = flag.Int("messages", 20, "messages per user")
)

func main() {
	flag.Parse()
	log.Printf("starting load test: %d pairs, %d messages each", *pairCount, *msgCount)

	var wg sync.WaitGroup
	errs := make(chan error, *pairCount)

	for i := 0; i < *pairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			if err := runPair(pairID); err != nil {
				errs <- fmt.Errorf("pair %d: %w", pairID, err)
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		failed++
		log.Printf("FAIL %v", err)
	}
	if failed > 0 {
		log.Fatalf("load test finished with %d failed pairs", failed)
	}
	log.Println("load test complete, all histories consistent")
}

func runPair(pairID int) error {
	ctx := context.Background()

	a := client.New(*baseURL)
	b := client.New(*baseURL)

	if _, err := a.Login(ctx, fmt.Sprintf("lt_%d_a", pairID)); err != nil {
		return fmt.Errorf("login a: %w", err)
	}
	if _, err := b.Login(ctx, fmt.Sprintf("lt_%d_b", pairID)); err != nil {
		return fmt.Errorf("login b: %w", err)
	}

	c, err := a.CreateChat(ctx, fmt.Sprintf("loadtest-%d", pairID), []int64{b.UserID})
	if err != nil {
		return fmt.Errorf("create chat: %w", err)
	}

	// Both sides append concurrently; the store must never lose a write or
	// hand out a non-monotonic id.
	var wg sync.WaitGroup
	sendErrs := make(chan error, 2)
	for _, side := range []*client.Client{a, b} {
		wg.Add(1)
		go func(cl *client.Client) {
			defer wg.Done()
			for i := 0; i < *msgCount; i++ {
				body := fmt.Sprintf("msg %d from %s", i, cl.Username)
				if _, err := cl.Send(ctx, c.ID, body); err != nil {
					sendErrs <- err
					return
				}
			}
		}(side)
	}
	wg.Wait()
	close(sendErrs)
	for err := range sendErrs {
		return fmt.Errorf("send: %w", err)
	}

	return verifyHistory(ctx, a, c.ID, 2*(*msgCount))
}

// verifyHistory walks the cursor chain oldest-first and checks the full log
// comes back exactly once, strictly ascending.
func verifyHistory(ctx context.Context, cl *client.Client, chatID int64, want int) error {
	var all []chat.Message
	var before int64

	for {
		page, err := cl.Page(ctx, chatID, before, chat.DefaultPageSize)
		if err != nil {
			return fmt.Errorf("page: %w", err)
		}
		all = append(page.Messages, all...)
		if page.NextCursor == nil {
			break
		}
		before = *page.NextCursor
	}

	if len(all) != want {
		return fmt.Errorf("expected %d messages, got %d", want, len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].ID <= all[i-1].ID {
			return fmt.Errorf("ids not strictly ascending at index %d: %d after %d", i, all[i].ID, all[i-1].ID)
		}
	}
	return nil
}

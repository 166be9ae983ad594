package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// User represents the structure of a user document to insert
type User struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

var roles = []string{"admin", "editor", "viewer"}

// generateRandomName generates a random 6-letter name
func generateRandomName(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	name := make([]byte, 6)
	for i := range name {
		name[i] = letters[rng.Intn(len(letters))]
	}
	// Capitalize first letter
	name[0] = name[0] - 32
	return string(name)
}

// generateRandomAge generates a random age between 18 and 99
func generateRandomAge(rng *rand.Rand) int {
	return rng.Intn(82) + 18
}

type loadTest struct {
	client     *http.Client
	serverURL  string
	collection string
	users      int
	workers    int
	readBack   bool

	inserted atomic.Int64
	read     atomic.Int64
	failed   atomic.Int64
}

func (lt *loadTest) do(ctx context.Context, method, path string, body []byte, want ...int) error {
	req, err := http.NewRequestWithContext(ctx, method, lt.serverURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := lt.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	for _, code := range want {
		if resp.StatusCode == code {
			return nil
		}
	}
	return fmt.Errorf("%s %s: unexpected status code: %d", method, path, resp.StatusCode)
}

// setup creates the target collection with a role index. An existing
// collection is reused.
func (lt *loadTest) setup(ctx context.Context) error {
	body := []byte(`{"indexes":[{"name":"byRole","key":"role"}]}`)
	return lt.do(ctx, "POST", "/collections/"+lt.collection, body, http.StatusCreated, http.StatusConflict)
}

// insertUser stores one user under id and optionally reads it back
func (lt *loadTest) insertUser(ctx context.Context, id string, user User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	path := "/collections/" + lt.collection + "/documents/" + id
	if err := lt.do(ctx, "POST", path, userJSON, http.StatusCreated); err != nil {
		return err
	}
	lt.inserted.Add(1)

	if lt.readBack {
		if err := lt.do(ctx, "GET", path, nil, http.StatusOK); err != nil {
			return err
		}
		lt.read.Add(1)
	}
	return nil
}

func (lt *loadTest) run(ctx context.Context) error {
	if err := lt.setup(ctx); err != nil {
		return err
	}

	fmt.Printf("Starting load test: inserting %d users to %s with %d workers\n", lt.users, lt.serverURL, lt.workers)
	fmt.Println("Press Ctrl+C to stop early")

	startTime := time.Now()
	ids := make(chan int)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ids)
		for i := 0; i < lt.users; i++ {
			select {
			case ids <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	reportInterval := max(1, lt.users/10) // Report every 10%
	for w := 0; w < lt.workers; w++ {
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)))
		g.Go(func() error {
			for i := range ids {
				name := generateRandomName(rng)
				user := User{
					Name:  name,
					Age:   generateRandomAge(rng),
					Email: fmt.Sprintf("%s@example.com", strings.ToLower(name)),
					Role:  roles[rng.Intn(len(roles))],
				}
				if err := lt.insertUser(ctx, fmt.Sprintf("user-%d", i), user); err != nil {
					lt.failed.Add(1)
					fmt.Printf("Error on user %d (%s): %v\n", i+1, user.Name, err)
				}

				done := lt.inserted.Load() + lt.failed.Load()
				if done%int64(reportInterval) == 0 {
					rate := float64(done) / time.Since(startTime).Seconds()
					fmt.Printf("Progress: %d/%d users (%.1f%%) - Rate: %.1f users/sec - Errors: %d\n",
						done, lt.users, float64(done)/float64(lt.users)*100, rate, lt.failed.Load())
				}
			}
			return nil
		})
	}

	err := g.Wait()
	lt.report(time.Since(startTime))
	if err != nil {
		return err
	}
	if n := lt.failed.Load(); n > 0 {
		return fmt.Errorf("%d errors occurred during the load test", n)
	}
	return nil
}

func (lt *loadTest) report(totalTime time.Duration) {
	inserted := lt.inserted.Load()

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LOAD TEST COMPLETE")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total users attempted: %d\n", lt.users)
	fmt.Printf("Successful inserts:    %d\n", inserted)
	fmt.Printf("Successful reads:      %d\n", lt.read.Load())
	fmt.Printf("Failed users:          %d\n", lt.failed.Load())
	fmt.Printf("Total time:            %v\n", totalTime)
	if inserted > 0 {
		fmt.Printf("Average rate:          %.2f users/sec\n", float64(inserted)/totalTime.Seconds())
		fmt.Printf("Average time per user: %v\n", totalTime/time.Duration(inserted))
	}
}

func main() {
	lt := &loadTest{client: &http.Client{Timeout: 10 * time.Second}}

	cmd := &cobra.Command{
		Use:          "insert_docs_load",
		Short:        "Insert random users into a running go-jsondb server and read them back",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lt.users <= 0 {
				return fmt.Errorf("number of users must be greater than 0")
			}
			if lt.workers <= 0 {
				lt.workers = 1
			}
			return lt.run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&lt.users, "users", "n", 1000, "number of users to insert")
	cmd.Flags().IntVarP(&lt.workers, "workers", "w", 4, "concurrent clients")
	cmd.Flags().StringVar(&lt.serverURL, "url", "http://localhost:7999", "server base URL")
	cmd.Flags().StringVar(&lt.collection, "collection", "users", "target collection")
	cmd.Flags().BoolVar(&lt.readBack, "read", true, "retrieve every document after inserting it")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	fmt.Println("\nLoad test completed successfully!")
}

// README: Bench cases for rideline-api; env, migration, HTTP surface, offer race and perf checks.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		dbCase("Env: Postgres connect", func(r *Runner, ctx context.Context) error {
			return r.db.Ping(ctx)
		}),
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis not set"}
				}
				return errResult(withTimeout(ctx, func(ctx context.Context) error { return r.redis.Ping(ctx).Err() }))
			},
		},
		dbCase("Migration: apply (optional)", (*Runner).applyMigration),
		dbCase("Migration: tables exist", (*Runner).checkTables),

		httpCase("API: health", http.MethodGet, base+"/health", nil, "", []int{200}),
		{
			Name: "API: metrics exposed",
			Run: func(ctx context.Context, r *Runner) Result {
				code, body, latency, err := r.do(ctx, http.MethodGet, base+"/metrics", nil, "")
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				if code != http.StatusOK || !strings.Contains(body, "rideline_") {
					return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", code)}
				}
				return Result{Status: statusPass, Latency: latency}
			},
		},
		httpCase("API: token required", http.MethodPost, base+"/api/quote", map[string]any{}, "", []int{401}),

		authCase("Quote: coordinates", http.MethodPost, base+"/api/quote", map[string]any{
			"origin":      map[string]float64{"lat": 25.033, "lng": 121.565},
			"destination": map[string]float64{"lat": 25.0478, "lng": 121.5318},
		}, []int{200}),
		authCase("Quote: malformed endpoint -> 400", http.MethodPost, base+"/api/quote", map[string]any{
			"origin":      map[string]any{},
			"destination": map[string]float64{"lat": 25.0478, "lng": 121.5318},
		}, []int{400}),

		authCase("Presence: location update", http.MethodPut, base+"/api/drivers/"+r.cfg.DriverID+"/location", map[string]any{
			"lat": 25.033, "lng": 121.565,
		}, []int{200}),
		authCase("Presence: invalid coords -> 400", http.MethodPut, base+"/api/drivers/"+r.cfg.DriverID+"/location", map[string]any{
			"lat": 123.0, "lng": 456.0,
		}, []int{400}),

		{
			Name: "Offer: concurrent accept, one winner",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentAccept(ctx, r, base+"/api/rides/accept")
			},
		},
		{
			Name: "Offer: decline after accept -> 409",
			Run: func(ctx context.Context, r *Runner) Result {
				if res, ok := r.requireSeed(); !ok {
					return res
				}
				code, _, latency, err := r.do(ctx, http.MethodPost, base+"/api/rides/decline", r.rideBody(), r.cfg.Token)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return statusResult(code, latency, []int{409})
			},
		},

		{
			Name: "Perf: location update throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.cfg.Token == "" {
					return Result{Status: statusSkip, Note: "token not set"}
				}
				return perfLoad(ctx, r, http.MethodPut, base+"/api/drivers/"+r.cfg.DriverID+"/location", map[string]any{
					"lat": 25.033, "lng": 121.565,
				})
			},
		},
	}
}

// dbCase skips when no DSN was given and bounds fn by a short timeout.
func dbCase(name string, fn func(r *Runner, ctx context.Context) error) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: statusSkip, Note: "dsn not set"}
			}
			return errResult(withTimeout(ctx, func(ctx context.Context) error { return fn(r, ctx) }))
		},
	}
}

func withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return fn(ctx)
}

func errResult(err error) Result {
	switch {
	case errors.Is(err, errSkipped):
		return Result{Status: statusSkip, Note: err.Error()}
	case err != nil:
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

var errSkipped = errors.New("apply-migration=false")

func (r *Runner) applyMigration(ctx context.Context) error {
	if !r.cfg.ApplyMigration {
		return errSkipped
	}
	sql, err := os.ReadFile(r.cfg.MigrationPath)
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(string(sql)) {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func (r *Runner) checkTables(ctx context.Context) error {
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return err
	}
	var missing []string
	for _, table := range tables {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}

func (r *Runner) rideBody() map[string]any {
	return map[string]any{"rideId": r.cfg.RideID, "driverId": r.cfg.DriverID}
}

func (r *Runner) requireSeed() (Result, bool) {
	if r.cfg.Token == "" {
		return Result{Status: statusSkip, Note: "token not set"}, false
	}
	if r.db == nil {
		return Result{Status: statusSkip, Note: "needs the postgres offer backend"}, false
	}
	return Result{}, true
}

// seedRide resets the bench ride to requested, targeted at the bench driver.
func (r *Runner) seedRide(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO rides (id, status, driver_id, requested_at)
		VALUES ($1, 'requested', $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			status = 'requested', driver_id = $2, declined_driver_ids = '{}', driver_acceptance = '',
			accepted_at = NULL, processed_at = NULL, started_at = NULL, completed_at = NULL,
			cancelled_at = NULL, cancel_reason = ''`,
		r.cfg.RideID, r.cfg.DriverID)
	return err
}

func (r *Runner) do(ctx context.Context, method, url string, body any, token string) (int, string, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, "", 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b), time.Since(start), nil
}

func httpCase(name, method, url string, body any, token string, okStatuses []int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			code, _, latency, err := r.do(ctx, method, url, body, token)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			return statusResult(code, latency, okStatuses)
		},
	}
}

// authCase sends the request with the bench token, skipping when none is set.
func authCase(name, method, url string, body any, okStatuses []int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			if r.cfg.Token == "" {
				return Result{Status: statusSkip, Note: "token not set"}
			}
			return httpCase(name, method, url, body, r.cfg.Token, okStatuses).Run(ctx, r)
		},
	}
}

func statusResult(code int, latency time.Duration, okStatuses []int) Result {
	note := fmt.Sprintf("status=%d", code)
	if contains(okStatuses, code) {
		return Result{Status: statusPass, Latency: latency, Note: note}
	}
	return Result{Status: statusFail, Latency: latency, Note: note}
}

func concurrentAccept(ctx context.Context, r *Runner, url string) Result {
	if res, ok := r.requireSeed(); !ok {
		return res
	}
	if err := r.seedRide(ctx); err != nil {
		return Result{Status: statusFail, Note: "seed ride: " + err.Error()}
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succ      int
		conflicts int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _, _, err := r.do(ctx, http.MethodPost, url, r.rideBody(), r.cfg.Token)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case code >= 200 && code < 300:
				succ++
			case code == http.StatusConflict:
				conflicts++
			}
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d", succ, conflicts)
	if succ == 1 && conflicts == r.cfg.Concurrency-1 {
		return Result{Status: statusPass, Note: note}
	}
	return Result{Status: statusFail, Note: note}
}

func perfLoad(ctx context.Context, r *Runner, method, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		count    int64
		errCount int64
		mu       sync.Mutex
		wg       sync.WaitGroup
	)

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				code, _, _, err := r.do(ctx, method, url, payload, r.cfg.Token)
				mu.Lock()
				if err != nil || code >= 500 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

var createTableRe = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	matches := createTableRe.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

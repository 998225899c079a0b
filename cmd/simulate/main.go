// simulate drives concurrent booking traffic against a running
// api-server to observe admission behavior under contention: several
// workers repeatedly try to book overlapping windows for a small set of
// doctors, so most requests should be rejected with slot_taken or
// booking_in_progress while exactly one booking per window succeeds.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/clinic-scheduler/internal/db"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Str("component", "simulate").Logger()

type simConfig struct {
	APIBaseURL  string
	PostgresDSN string
	Duration    time.Duration
	Workers     int
	DoctorLimit int
	CancelRatio float64 // share of iterations that cancel a prior booking
}

func loadSimConfig() simConfig {
	cfg := simConfig{
		APIBaseURL:  getEnv("SIM_API_URL", "http://127.0.0.1:8080"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		Duration:    30 * time.Second,
		Workers:     8,
		DoctorLimit: 5,
		CancelRatio: 0.1,
	}
	if v := os.Getenv("SIM_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Duration = d
		}
	}
	if v := os.Getenv("SIM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("SIM_DOCTORS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DoctorLimit = n
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type opMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *opMetrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&m.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *opMetrics) percentiles() (p50, p95 time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0, 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := func(p int) int {
		i := len(sorted) * p / 100
		if i >= len(sorted) {
			i = len(sorted) - 1
		}
		return i
	}
	return sorted[idx(50)], sorted[idx(95)]
}

type bookingPool struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (p *bookingPool) add(id uuid.UUID) {
	p.mu.Lock()
	p.ids = append(p.ids, id)
	p.mu.Unlock()
}

func (p *bookingPool) random() (uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ids) == 0 {
		return uuid.Nil, false
	}
	return p.ids[rand.Intn(len(p.ids))], true
}

func main() {
	cfg := loadSimConfig()
	if cfg.PostgresDSN == "" {
		log.Fatal().Msg("POSTGRES_DSN is required to discover doctors")
	}

	doctors, err := loadDoctors(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("load doctors")
	}
	if len(doctors) == 0 {
		log.Fatal().Msg("no active doctors found, run the seed first")
	}
	log.Info().Int("doctors", len(doctors)).Int("workers", cfg.Workers).
		Dur("duration", cfg.Duration).Msg("starting simulation")

	var (
		book    opMetrics
		cancel  opMetrics
		created bookingPool
	)

	client := &http.Client{Timeout: 10 * time.Second}
	deadline := time.Now().Add(cfg.Duration)

	// A narrow set of target windows so workers collide on purpose.
	windows := candidateWindows()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				if rand.Float64() < cfg.CancelRatio {
					if id, ok := created.random(); ok {
						doCancel(client, cfg.APIBaseURL, id, &cancel)
						continue
					}
				}
				doctorID := doctors[rand.Intn(len(doctors))]
				start := windows[rand.Intn(len(windows))]
				doBook(client, cfg.APIBaseURL, doctorID, start, &book, &created)
			}
		}()
	}
	wg.Wait()

	report("book", &book)
	report("cancel", &cancel)
}

// candidateWindows returns next week's Monday to Friday mornings on the
// half hour, inside the seeded 09:00-12:30 shift.
func candidateWindows() []time.Time {
	now := time.Now()
	daysAhead := int((7 + time.Monday - now.Weekday()) % 7)
	if daysAhead == 0 {
		daysAhead = 7
	}
	monday := now.AddDate(0, 0, daysAhead)

	var out []time.Time
	for day := 0; day < 5; day++ {
		date := monday.AddDate(0, 0, day)
		for halfHour := 0; halfHour < 6; halfHour++ {
			hour := 9 + halfHour/2
			minute := 30 * (halfHour % 2)
			out = append(out, time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.Local))
		}
	}
	return out
}

func loadDoctors(cfg simConfig) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `SELECT id FROM doctors WHERE is_active LIMIT $1`, cfg.DoctorLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func doBook(client *http.Client, baseURL string, doctorID uuid.UUID, start time.Time, m *opMetrics, created *bookingPool) {
	payload, _ := json.Marshal(map[string]any{
		"doctor_id":        doctorID.String(),
		"patient_name":     gofakeit.Name(),
		"start_time":       start.Format(time.RFC3339),
		"duration_minutes": 30,
	})

	t0 := time.Now()
	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(payload))
	if err != nil {
		m.record(time.Since(t0), 0)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		var body struct {
			ID uuid.UUID `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			created.add(body.ID)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	m.record(time.Since(t0), resp.StatusCode)
}

func doCancel(client *http.Client, baseURL string, id uuid.UUID, m *opMetrics) {
	payload := []byte(`{"status":"cancelled"}`)

	t0 := time.Now()
	resp, err := client.Post(
		fmt.Sprintf("%s/appointments/%s/status", baseURL, id),
		"application/json", bytes.NewReader(payload))
	if err != nil {
		m.record(time.Since(t0), 0)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	m.record(time.Since(t0), resp.StatusCode)
}

func report(name string, m *opMetrics) {
	p50, p95 := m.percentiles()
	log.Info().
		Str("op", name).
		Int64("total", m.Total).
		Int64("success", m.Success).
		Int64("conflict", m.Conflict).
		Int64("error", m.Error).
		Dur("p50", p50).
		Dur("p95", p95).
		Msg("simulation result")
}

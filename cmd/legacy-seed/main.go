package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/kkkkikiki/quizgift/internal/config"
	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/repository"
	"github.com/kkkkikiki/quizgift/internal/settings"
	"github.com/kkkkikiki/quizgift/internal/ui"
)

// SeedResult gathers counters for the run.
// Atomic counters are used to avoid lock-contention on hot paths.
// LatencySum is in nanoseconds.
type SeedResult struct {
	Batches    int64
	Users      int64
	Sessions   int64
	Errors     int64
	LatencySum int64
}

type options struct {
	users         int
	campaigns     int
	batch         int
	workers       int
	rps           int
	seed          uint64
	duplicateRate float64
	orphanRate    float64
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "legacy-seed",
	Short: "Fill the pre-2.0 quiz tables with realistic data to rehearse the migration",
	Long: `legacy-seed creates the legacy quiz tables when missing and inserts campaigns,
gifts, users and quiz sessions. A share of users repeat an email or have no
campaign, so the migration's de-duplication and default campaign paths run.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), opts)
	},
}

func init() {
	f := rootCmd.Flags()
	f.IntVar(&opts.users, "users", 10000, "Number of legacy users to insert")
	f.IntVar(&opts.campaigns, "campaigns", 3, "Number of legacy campaigns")
	f.IntVar(&opts.batch, "batch", 250, "Users per transaction")
	f.IntVar(&opts.workers, "workers", 4, "Concurrent writers")
	f.IntVar(&opts.rps, "rps", 20, "Maximum batches per second")
	f.Uint64Var(&opts.seed, "seed", 1, "Random seed")
	f.Float64Var(&opts.duplicateRate, "duplicates", 0.05, "Share of users reusing an earlier email")
	f.Float64Var(&opts.orphanRate, "orphans", 0.1, "Share of users without a campaign")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	if o.users <= 0 || o.batch <= 0 || o.workers <= 0 || o.rps <= 0 || o.campaigns <= 0 {
		return fmt.Errorf("users, campaigns, batch, workers and rps must be positive")
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InstallLegacySchema(ctx); err != nil {
		return err
	}
	repo := repository.NewLegacyRepository(db.Tables, db.Dialect)

	before, err := repo.CountLegacyUsers(ctx, db.Conn)
	if err != nil {
		return err
	}

	// ─── Campaigns and gifts ────────────────────────────────────
	campaignIDs := make([]int64, 0, o.campaigns)
	for i := range o.campaigns {
		id, err := repo.CreateLegacyCampaign(ctx, db.Conn, fmt.Sprintf("Legacy campaign %d", i+1), i == 0)
		if err != nil {
			return err
		}
		for _, g := range model.GiftTypes[:2] {
			if err := repo.CreateLegacyGift(ctx, db.Conn, id, g.Label, g.Type); err != nil {
				return err
			}
		}
		campaignIDs = append(campaignIDs, id)
	}

	fmt.Println(ui.RenderCategory("Legacy seed"))
	fmt.Printf("Database    : %s (%s)\n", cfg.Database.Driver, db.Tables.LegacyQuizUsers())
	fmt.Printf("Campaigns   : %v\n", campaignIDs)
	fmt.Printf("Users       : %d in batches of %d\n", o.users, o.batch)
	fmt.Printf("Workers/RPS : %d / %d\n", o.workers, o.rps)
	fmt.Println(ui.RenderSeparator())

	// ─── Users follow the seed; sessions vary with worker order ─
	gen := newGenerator(o, campaignIDs)
	batches := make(chan []model.LegacyUser, o.workers*2)
	go func() {
		defer close(batches)
		for start := 0; start < o.users; start += o.batch {
			n := min(o.batch, o.users-start)
			select {
			case batches <- gen.users(start, n):
			case <-ctx.Done():
				return
			}
		}
	}()

	burst := max(o.rps/o.workers, 1)
	limiter := rate.NewLimiter(rate.Limit(o.rps), burst)

	var result SeedResult
	var wg sync.WaitGroup
	start := time.Now()

	// ─── Workers ────────────────────────────────────────────────
	for w := range o.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(o.seed, uint64(w)+1))
			for users := range batches {
				if err := limiter.Wait(ctx); err != nil { // context cancelled → exit
					return
				}
				insertBatch(ctx, db, repo, rng, users, &result)
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)

	// ─── Report ─────────────────────────────────────────────────
	fmt.Printf("Elapsed     : %.2fs\n", total.Seconds())
	fmt.Printf("Batches     : %d (%d failed)\n", result.Batches, result.Errors)
	fmt.Printf("Users       : %d\n", result.Users)
	fmt.Printf("Sessions    : %d\n", result.Sessions)
	if ok := result.Batches - result.Errors; ok > 0 {
		fmt.Printf("Avg batch   : %v\n", time.Duration(result.LatencySum/ok))
	}
	fmt.Println(ui.RenderSeparator())

	// ─── Data consistency check ─────────────────────────────────
	after, err := repo.CountLegacyUsers(ctx, db.Conn)
	if err != nil {
		return err
	}
	if err := verifyCount(before, after, result.Users); err != nil {
		fmt.Println(ui.RenderFail(err.Error()))
		return err
	}
	fmt.Println(ui.RenderPass(fmt.Sprintf("%d legacy users in %s", after, db.Tables.LegacyQuizUsers())))
	return nil
}

// insertBatch writes one batch of users and their sessions in a transaction
func insertBatch(ctx context.Context, db *database.DB, repo *repository.LegacyRepository, rng *rand.Rand, users []model.LegacyUser, result *SeedResult) {
	start := time.Now()
	atomic.AddInt64(&result.Batches, 1)

	sessions, err := func() (int, error) {
		tx, err := db.Conn.BeginTxx(ctx, nil)
		if err != nil {
			return 0, err
		}
		defer tx.Rollback()

		ids, err := repo.InsertLegacyUsers(ctx, tx, users)
		if err != nil {
			return 0, err
		}
		sessions := sessionsFor(rng, users, ids)
		if err := repo.InsertLegacySessions(ctx, tx, sessions); err != nil {
			return 0, err
		}
		return len(sessions), tx.Commit()
	}()
	if err != nil {
		atomic.AddInt64(&result.Errors, 1)
		slog.Error("batch failed", "users", len(users), "error", err)
		return
	}

	atomic.AddInt64(&result.Users, int64(len(users)))
	atomic.AddInt64(&result.Sessions, int64(sessions))
	atomic.AddInt64(&result.LatencySum, time.Since(start).Nanoseconds())
}

// verifyCount checks that the table grew by exactly the number of inserted users
func verifyCount(before, after, inserted int64) error {
	if after-before != inserted {
		return fmt.Errorf("data mismatch: table grew by %d, inserted %d", after-before, inserted)
	}
	return nil
}

var (
	familyNames = []string{"Nguyễn", "Trần", "Lê", "Phạm", "Hoàng", "Huỳnh", "Phan", "Vũ", "Võ", "Đặng", "Bùi", "Đỗ"}
	middleNames = []string{"Văn", "Thị", "Hữu", "Minh", "Ngọc", "Thanh", "Đức", "Quang"}
	givenNames  = []string{"An", "Bình", "Cường", "Dũng", "Giang", "Hà", "Hùng", "Lan", "Linh", "Mai", "Nam", "Phương", "Quân", "Sơn", "Thảo", "Trang", "Tuấn", "Yến"}
)

// generator produces deterministic legacy users
type generator struct {
	o         options
	campaigns []int64
	rng       *rand.Rand
	now       time.Time
}

func newGenerator(o options, campaigns []int64) *generator {
	return &generator{o: o, campaigns: campaigns, rng: rand.New(rand.NewPCG(o.seed, 0)), now: time.Now()}
}

// users returns n users numbered from start
func (g *generator) users(start, n int) []model.LegacyUser {
	out := make([]model.LegacyUser, 0, n)
	for i := start; i < start+n; i++ {
		name := fmt.Sprintf("%s %s %s",
			familyNames[g.rng.IntN(len(familyNames))],
			middleNames[g.rng.IntN(len(middleNames))],
			givenNames[g.rng.IntN(len(givenNames))])

		email := fmt.Sprintf("user%06d@example.com", i)
		if i > 0 && g.rng.Float64() < g.o.duplicateRate {
			email = fmt.Sprintf("user%06d@example.com", g.rng.IntN(i))
		}

		u := model.LegacyUser{
			FullName:  name,
			Email:     email,
			Phone:     sql.NullString{String: fmt.Sprintf("09%08d", g.rng.IntN(100000000)), Valid: true},
			Province:  sql.NullString{String: settings.Provinces[g.rng.IntN(len(settings.Provinces))].Name, Valid: true},
			Address:   sql.NullString{String: fmt.Sprintf("%d Lê Lợi", 1+g.rng.IntN(300)), Valid: true},
			CreatedAt: g.now.Add(-time.Duration(g.rng.IntN(90*24)) * time.Hour),
		}
		if g.rng.Float64() >= g.o.orphanRate {
			u.CampaignID = sql.NullInt64{Int64: g.campaigns[g.rng.IntN(len(g.campaigns))], Valid: true}
		}
		out = append(out, u)
	}
	return out
}

// sessionsFor gives each user zero to two sessions; the last may be completed
func sessionsFor(rng *rand.Rand, users []model.LegacyUser, ids map[string]int64) []model.LegacySession {
	const questions = 10
	var out []model.LegacySession
	seen := make(map[int64]bool, len(users))
	for _, u := range users {
		id, ok := ids[u.Email]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true

		for range rng.IntN(3) {
			started := u.CreatedAt.Add(time.Duration(rng.IntN(48)) * time.Hour)
			correct := rng.IntN(questions + 1)
			s := model.LegacySession{
				UserID:         id,
				Score:          correct,
				TotalQuestions: questions,
				CorrectAnswers: correct,
				Answers:        sql.NullString{String: `{"q1":"a","q2":"c"}`, Valid: true},
				StartedAt:      started,
			}
			if rng.IntN(3) > 0 {
				s.IsCompleted = true
				s.CompletedAt = sql.NullTime{Time: started.Add(time.Duration(1+rng.IntN(9)) * time.Minute), Valid: true}
			}
			out = append(out, s)
		}
	}
	return out
}

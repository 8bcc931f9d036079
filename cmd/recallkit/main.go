package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/recallkit/recallkit/internal/config"
	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/evaluate"
	"github.com/recallkit/recallkit/internal/importer"
	"github.com/recallkit/recallkit/internal/logger"
	"github.com/recallkit/recallkit/internal/review"
	"github.com/recallkit/recallkit/internal/sm2"
	"github.com/recallkit/recallkit/internal/storage"
)

const usage = `Usage: recallkit [flags] <command>

Commands:
  add-source <path|git-url>   register a card source
  sync                        import and reconcile all sources
  overview                    show progress across all cards
  review                      run an interactive review session

Flags:
`

func main() {
	flags := pflag.NewFlagSet("recallkit", pflag.ExitOnError)
	cfgPath := flags.String("config", "recallkit.yaml", "path to the configuration file")
	flags.String("database.path", "recallkit.db", "path to the sqlite database")
	flags.String("log.mode", "dev", "log encoder: dev or prod")
	flags.Int("session.max_cards", 0, "cap on cards per session, 0 for unlimited")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recallkit: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recallkit: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		log.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	switch cmd := flags.Arg(0); cmd {
	case "add-source":
		if flags.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "recallkit: add-source needs a path or git URL")
			os.Exit(2)
		}
		err = addSource(ctx, db, cfg, log, flags.Arg(1))
	case "sync":
		err = runSync(ctx, db, cfg, log)
	case "overview":
		err = printOverview(ctx, db)
	case "review":
		err = runReview(ctx, db, cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "recallkit: unknown command %q\n", cmd)
		flags.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "command", flags.Arg(0), "error", err)
		os.Exit(1)
	}
}

func addSource(ctx context.Context, db *storage.DB, cfg config.Config, log *logger.Logger, path string) error {
	imp := importer.New(db, cfg.Importer.ReposDir, log)
	id, err := imp.AddSource(ctx, path)
	if err != nil {
		return err
	}
	fmt.Printf("Registered source %d: %s\n", id, path)
	return nil
}

func runSync(ctx context.Context, db *storage.DB, cfg config.Config, log *logger.Logger) error {
	imp := importer.New(db, cfg.Importer.ReposDir, log)
	stats, err := imp.SyncAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Parsed %d cards: %d created, %d reactivated, %d deactivated, %d errors.\n",
		stats.Parsed, stats.Created, stats.Reactivated, stats.Deactivated, len(stats.Errors))
	for _, e := range stats.Errors {
		fmt.Printf("- %v\n", e)
	}
	return nil
}

func printOverview(ctx context.Context, db *storage.DB) error {
	o, err := db.Overview(ctx, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Cards: %d total, %d new, %d learning, %d mastered\n",
		o.TotalCards, o.CardsNew, o.CardsLearning, o.CardsMastered)
	fmt.Printf("Due: %d today, %d overdue\n", o.CardsDueToday, o.CardsOverdue)
	return nil
}

func runReview(ctx context.Context, db *storage.DB, cfg config.Config, log *logger.Logger) error {
	scheduler, err := sm2.NewScheduler(sm2.Params{
		DefaultEase:     cfg.Scheduler.DefaultEase,
		MinEase:         cfg.Scheduler.MinEase,
		MaxIntervalDays: cfg.Scheduler.MaxIntervalDays,
	})
	if err != nil {
		return err
	}
	matcher, err := evaluate.NewMatcher(cfg.Evaluate.Threshold)
	if err != nil {
		return err
	}

	ctrl := review.NewController(db, db, scheduler, matcher, review.Options{
		Logger:       log,
		MaxRetries:   cfg.Session.MaxRetries,
		RetryBackoff: cfg.Session.RetryBackoff,
	})
	filters := review.Filters{IncludeNew: true, MaxCount: cfg.Session.MaxCards}
	if err := ctrl.Start(ctx, filters, domain.ModeReview, ""); err != nil {
		if errors.Is(err, domain.ErrEmptyQueue) {
			fmt.Println("Nothing due. Come back later.")
			return nil
		}
		return err
	}

	stdin := bufio.NewScanner(os.Stdin)
	for {
		item, err := ctrl.NextCard(ctx)
		if errors.Is(err, domain.ErrQueueExhausted) {
			break
		}
		if err != nil {
			return err
		}

		fmt.Printf("\nQ: %s\n> ", item.Question.QuestionText)
		started := time.Now()
		if !stdin.Scan() {
			if err := ctrl.Abort(ctx, "input closed"); err != nil {
				return err
			}
			return stdin.Err()
		}
		answer := strings.TrimSpace(stdin.Text())

		rev, err := ctrl.SubmitAnswer(ctx, review.Answer{
			QuestionID:     item.Question.ID,
			Response:       answer,
			LatencySeconds: time.Since(started).Seconds(),
		})
		if errors.Is(err, domain.ErrEvaluationUnavailable) {
			fmt.Println("Could not grade that answer, the card will come back.")
			continue
		}
		if err != nil {
			return err
		}
		if rev.IsCorrect {
			fmt.Printf("Correct. %s\n", rev.Feedback)
		} else {
			fmt.Printf("Incorrect. %s\nExpected: %s\n", rev.Feedback, item.Question.AnswerText)
		}
	}

	summary, err := ctrl.Complete(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nSession done: %d cards, %.0f%% correct in %s.\n",
		summary.CardsReviewed, summary.Accuracy*100, summary.Duration.Round(time.Second))
	return nil
}

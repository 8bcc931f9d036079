// Package importer loads cards from markdown sources, local directories or
// git repositories, and reconciles them against the store. Card identity is
// the content fingerprint: new fingerprints create cards, vanished ones
// deactivate them, and returning ones reactivate the original record with
// its progress history intact.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/logger"
	"github.com/recallkit/recallkit/internal/storage"
	"github.com/recallkit/recallkit/internal/textnorm"
)

// DefaultDifficulty is assigned to imported cards; the scheduler refines
// priority from review history, not from this initial estimate.
const DefaultDifficulty = domain.Medium

// Stats counts what one reconciliation pass did.
type Stats struct {
	Parsed      int
	Created     int
	Reactivated int
	Deactivated int
	Errors      []error
}

// Importer syncs registered sources into the store.
type Importer struct {
	db       *storage.DB
	log      *logger.Logger
	reposDir string
}

// New builds an importer. reposDir is where git sources are checked out.
func New(db *storage.DB, reposDir string, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Importer{db: db, log: log, reposDir: reposDir}
}

// AddSource registers a source path or git URL, returning its ID. Adding an
// already-registered source returns the existing ID.
func (imp *Importer) AddSource(ctx context.Context, path string) (int64, error) {
	existing, err := imp.db.FindSourceByPath(ctx, path)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	return imp.db.CreateSource(ctx, path)
}

// SyncAll reconciles every registered source. Per-source failures are
// logged and collected; one broken source never stops the others.
func (imp *Importer) SyncAll(ctx context.Context) (Stats, error) {
	sources, err := imp.db.ListSources(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("sync: %w", err)
	}
	if len(sources) == 0 {
		imp.log.Info("no sources registered")
		return Stats{}, nil
	}

	var total Stats
	for _, src := range sources {
		stats, err := imp.SyncSource(ctx, src)
		if err != nil {
			imp.log.Error("source sync failed", "source_id", src.ID, "path", src.Path, "error", err)
			total.Errors = append(total.Errors, fmt.Errorf("source %s: %w", src.Path, err))
			continue
		}
		total.Parsed += stats.Parsed
		total.Created += stats.Created
		total.Reactivated += stats.Reactivated
		total.Deactivated += stats.Deactivated
		total.Errors = append(total.Errors, stats.Errors...)
	}
	return total, nil
}

// SyncSource reconciles one source. Git sources are cloned or pulled first.
func (imp *Importer) SyncSource(ctx context.Context, src storage.Source) (Stats, error) {
	dir := src.Path
	if isGitSource(src.Path) {
		localPath, err := gitURLToLocalPath(imp.reposDir, src.Path)
		if err != nil {
			return Stats{}, err
		}
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return Stats{}, fmt.Errorf("failed to create repos directory: %w", err)
		}
		if err := syncRepo(src.Path, localPath, imp.log); err != nil {
			return Stats{}, err
		}
		dir = localPath
	}

	stats, err := imp.reconcile(ctx, src, dir)
	if err != nil {
		return stats, err
	}
	if err := imp.db.TouchSource(ctx, src.ID); err != nil {
		imp.log.Warn("failed to record scan time", "source_id", src.ID, "error", err)
	}
	imp.log.Info("source reconciled",
		"source_id", src.ID,
		"path", src.Path,
		"parsed", stats.Parsed,
		"created", stats.Created,
		"reactivated", stats.Reactivated,
		"deactivated", stats.Deactivated,
		"errors", len(stats.Errors))
	return stats, nil
}

// reconcile walks dir for markdown files and aligns the store with their
// contents.
func (imp *Importer) reconcile(ctx context.Context, src storage.Source, dir string) (Stats, error) {
	var stats Stats
	found := make(map[string]bool)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		cards, parseErr := ParseFile(path)
		if parseErr != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		for _, parsed := range cards {
			stats.Parsed++
			if err := imp.upsertCard(ctx, src, parsed, found, &stats); err != nil {
				stats.Errors = append(stats.Errors, err)
			}
		}
		return nil
	})
	if walkErr != nil {
		return stats, fmt.Errorf("failed to walk %s: %w", dir, walkErr)
	}

	// Deactivate cards that vanished from the source. Their progress stays.
	existing, err := imp.db.CardsBySource(ctx, src.ID)
	if err != nil {
		return stats, err
	}
	for _, card := range existing {
		if card.IsActive && !found[card.Fingerprint] {
			imp.log.Info("card vanished from source, deactivating",
				"card_id", card.ID, "fingerprint", card.Fingerprint)
			if err := imp.db.DeactivateCard(ctx, card.ID); err != nil {
				stats.Errors = append(stats.Errors, fmt.Errorf("deactivating card %d: %w", card.ID, err))
				continue
			}
			stats.Deactivated++
		}
	}
	return stats, nil
}

// upsertCard inserts one parsed card or revives the card that already owns
// its fingerprint.
func (imp *Importer) upsertCard(ctx context.Context, src storage.Source, parsed ParsedCard, found map[string]bool, stats *Stats) error {
	if parsed.Answer == "" {
		return fmt.Errorf("card %q has no answer", parsed.Question)
	}
	fingerprint := textnorm.Fingerprint(parsed.Question, parsed.Answer, parsed.Context)
	found[fingerprint] = true

	existing, err := imp.db.FindCardByFingerprint(ctx, fingerprint)
	switch {
	case err == nil:
		if !existing.IsActive {
			existing.IsActive = true
			if err := imp.db.UpdateCard(ctx, existing); err != nil {
				return fmt.Errorf("reactivating card %d: %w", existing.ID, err)
			}
			stats.Reactivated++
		}
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("fingerprint lookup %s: %w", fingerprint, err)
	}

	card := domain.Card{
		Content:        parsed.Answer,
		SourceMaterial: parsed.Context,
		Tags:           parsed.Tags,
		Difficulty:     DefaultDifficulty,
		IsActive:       true,
		SourceID:       &src.ID,
		Fingerprint:    fingerprint,
	}
	created, err := imp.db.CreateCard(ctx, card)
	if err != nil {
		return fmt.Errorf("inserting card %s: %w", fingerprint, err)
	}

	question := domain.Question{
		CardID:       created.ID,
		QuestionText: parsed.Question,
		AnswerText:   parsed.Answer,
		Type:         domain.QuestionStandard,
		Difficulty:   DefaultDifficulty,
	}
	if _, err := imp.db.CreateQuestion(ctx, question); err != nil {
		return fmt.Errorf("inserting question for card %d: %w", created.ID, err)
	}

	imp.log.Debug("card imported", "card_id", created.ID, "fingerprint", fingerprint)
	stats.Created++
	return nil
}

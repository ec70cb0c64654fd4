// Sweeper reclaims attachments that were staged for a wizard draft but never
// bound to a message: cancelled drafts and sessions that hit their redis TTL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelierhq/commission-platform/internal/blob"
	"github.com/atelierhq/commission-platform/internal/config"
	"github.com/atelierhq/commission-platform/internal/db"
	"github.com/atelierhq/commission-platform/internal/revision"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	repo := revision.NewRepo(gdb)

	blobs, err := blob.NewFSStore(cfg.BlobRoot)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// an attachment is fair game once its draft session cannot exist anymore
	maxAge := cfg.WizardTTL + cfg.SweepGrace

	log.Printf("sweeper started, interval=%s max_age=%s", cfg.SweepInterval, maxAge)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	sweep(ctx, repo, blobs, maxAge, cfg.SweepBatchLimit)
	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper shutting down")
			return
		case <-ticker.C:
			sweep(ctx, repo, blobs, maxAge, cfg.SweepBatchLimit)
		}
	}
}

func sweep(ctx context.Context, repo *revision.Repo, blobs blob.Store, maxAge time.Duration, limit int) {
	cutoff := time.Now().UTC().Add(-maxAge)
	atts, err := repo.ListOrphanedAttachments(ctx, cutoff, limit)
	if err != nil {
		log.Printf("sweep list failed: %v", err)
		return
	}
	if len(atts) == 0 {
		return
	}

	removed := 0
	for _, att := range atts {
		// blob first; a leftover row is retried next pass, a leftover blob
		// with no row would never be
		if err := blobs.Delete(ctx, att.StorageRef); err != nil {
			log.Printf("sweep blob delete id=%d ref=%s failed: %v", att.ID, att.StorageRef, err)
			continue
		}
		if err := repo.DeleteAttachment(ctx, att.ID); err != nil {
			log.Printf("sweep row delete id=%d failed: %v", att.ID, err)
			continue
		}
		removed++
	}
	log.Printf("sweep pass: %d orphaned attachments removed (of %d candidates)", removed, len(atts))
}

package jobs

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/ModawnAI/everything-backend-sub023/internal/services"
)

// PointSweepJob periodically advances point ledger entries:
// pending -> available once the availability delay has elapsed, and
// available -> expired once past expiry.
type PointSweepJob struct {
	db      *gorm.DB
	service *services.PointService
}

func NewPointSweepJob(db *gorm.DB, service *services.PointService) *PointSweepJob {
	return &PointSweepJob{db: db, service: service}
}

// Start begins the periodic sweep.
func (j *PointSweepJob) Start(interval time.Duration) {
	go func() {
		// Run immediately on start
		ctx := context.Background()
		j.sweep(ctx)

		// Then run periodically
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			j.sweep(ctx)
		}
	}()
}

func (j *PointSweepJob) sweep(ctx context.Context) {
	now := time.Now()

	activated, err := j.service.ActivateDuePoints(ctx, now)
	if err != nil {
		log.Printf("Point sweep activation error: %v", err)
	} else if activated > 0 {
		log.Printf("Point sweep: %d transactions became available", activated)
	}

	expired, err := j.service.ExpireDuePoints(ctx, now)
	if err != nil {
		log.Printf("Point sweep expiry error: %v", err)
	} else if expired > 0 {
		log.Printf("Point sweep: %d transactions expired", expired)
	}
}

package service

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
)

// WorkerService runs the periodic maintenance loops: the legacy code
// sweep and a database keep-alive ping. Neither runs on the request path.
type WorkerService struct {
	kiosk *KioskService
	db    *gorm.DB
}

func NewWorkerService(kiosk *KioskService, db *gorm.DB) *WorkerService {
	return &WorkerService{
		kiosk: kiosk,
		db:    db,
	}
}

// Start begins the background loops and blocks until ctx is cancelled
func (w *WorkerService) Start(ctx context.Context) {
	sweep := time.NewTicker(10 * time.Minute)
	defer sweep.Stop()
	keepAlive := time.NewTicker(5 * time.Minute)
	defer keepAlive.Stop()

	log.Println("Background worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("Background worker stopped")
			return
		case <-sweep.C:
			w.sweepLegacyCodes()
		case <-keepAlive.C:
			w.pingDatabase()
		}
	}
}

func (w *WorkerService) sweepLegacyCodes() {
	removed, err := w.kiosk.SweepLegacyCodes()
	if err != nil {
		log.Printf("Error sweeping kiosk codes: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Kiosk code sweep removed %d stale rows", removed)
	}
}

func (w *WorkerService) pingDatabase() {
	if err := w.db.Exec("SELECT 1").Error; err != nil {
		log.Printf("Database keep-alive failed: %v", err)
	}
}

package services

import (
	"log"

	"gorm.io/gorm"

	"github.com/ModawnAI/everything-backend-sub023/internal/models"
)

// NotificationService hands outbound payloads to the delivery collaborator.
// Enqueue never blocks the caller; the worker goroutine persists the handoff
// row and logs failures. A full queue drops the payload with a log line
// rather than stalling a booking request.
type NotificationService struct {
	db    *gorm.DB
	queue chan models.Notification
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		db:    db,
		queue: make(chan models.Notification, 1000),
	}
}

// StartDispatcher launches the background dispatch worker.
func (s *NotificationService) StartDispatcher() {
	go s.dispatchLoop()
}

// Enqueue queues a notification for dispatch without blocking.
func (s *NotificationService) Enqueue(n models.Notification) {
	n.Status = models.NotificationQueued
	select {
	case s.queue <- n:
	default:
		log.Printf("Warning: notification queue full, dropping %s for user %d", n.Type, n.UserID)
	}
}

func (s *NotificationService) dispatchLoop() {
	for n := range s.queue {
		if err := s.db.Create(&n).Error; err != nil {
			log.Printf("Error persisting notification %s for user %d: %v", n.Type, n.UserID, err)
			continue
		}
		log.Printf("Notification queued: %s for user %d", n.Type, n.UserID)
	}
}

// EnqueueSync persists a notification immediately. Used by tests and by
// callers that need the row before returning.
func (s *NotificationService) EnqueueSync(n models.Notification) error {
	n.Status = models.NotificationQueued
	return s.db.Create(&n).Error
}

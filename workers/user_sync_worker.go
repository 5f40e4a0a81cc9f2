// workers/user_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"treasure-hunt-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetProfileChangesResponse is the top-level structure of the profile
// service response.
type GetProfileChangesResponse struct {
	Users []models.RemoteProfile `json:"users"`
}

// HuntUserSyncWorker mirrors user identities from the profile service into
// hunt_users. Identity columns only: crown_balance is owned by the ledger
// and is never written by sync.
type HuntUserSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewHuntUserSyncWorker(db *gorm.DB, syncServiceBaseURL, endpointPath, serviceToken string) *HuntUserSyncWorker {
	return &HuntUserSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      syncServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *HuntUserSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Hunt User Sync Worker (profile service → hunt_users)…")

	// Initial backfill from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("❌ Sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Hunt User Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local mirror.
func (w *HuntUserSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM hunt_users WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches profile changes since the given time and upserts them.
func (w *HuntUserSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call profile service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("profile service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response GetProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode profile changes: %w", err)
	}
	if len(response.Users) == 0 {
		return nil
	}

	for _, profile := range response.Users {
		role := profile.Role
		if role == "" {
			role = "user"
		}
		user := models.HuntUser{
			ID:             uuid.NewString(),
			ExternalUserID: profile.ExternalID,
			Pseudo:         profile.Username,
			Email:          profile.Email,
			Role:           role,
			CrownBalance:   models.DefaultCrownBalance,
			LastName:       profile.LastName,
			SurName:        profile.SurName,
		}
		// Upsert identity columns only: an existing row keeps its id and,
		// critically, its crown_balance.
		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"pseudo", "email", "role", "last_name", "sur_name", "updated_at",
			}),
		}).Create(&user).Error; err != nil {
			log.Printf("❌ Failed to upsert hunt user %s: %v", profile.ExternalID, err)
			continue
		}

		if profile.DeletedAt != nil {
			if err := w.db.Delete(&models.HuntUser{}, "external_user_id = ?", profile.ExternalID).Error; err != nil {
				log.Printf("❌ Failed to soft-delete hunt user %s: %v", profile.ExternalID, err)
			}
		}
	}

	log.Printf("[SYNC] ✅ Upserted %d hunt users", len(response.Users))
	return nil
}

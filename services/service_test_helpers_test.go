package services

import (
	"fmt"
	"testing"

	"treasure-hunt-system/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database migrated from the real models.
// TranslateError matches the production gorm config so unique-constraint
// violations surface as gorm.ErrDuplicatedKey here too.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.HuntUser{},
		&models.TreasureHunt{},
		&models.Step{},
		&models.HuntParticipation{},
		&models.StepCompletion{},
		&models.Winner{},
		&models.CrownTransaction{},
		&models.Artefact{},
		&models.UserArtefact{},
		&models.MarketplaceItem{},
		&models.HuntReward{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, balance int64) string {
	t.Helper()
	externalID := uuid.NewString()
	user := models.HuntUser{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Pseudo:         "hunter-" + externalID[:8],
		Role:           "user",
		CrownBalance:   balance,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return externalID
}

func seedArtefact(t *testing.T, db *gorm.DB, tradeable bool) *models.Artefact {
	t.Helper()
	artefact := models.Artefact{
		ID:          uuid.NewString(),
		Name:        "Golden Compass",
		Rarity:      "rare",
		BaseValue:   100,
		IsTradeable: tradeable,
	}
	if err := db.Create(&artefact).Error; err != nil {
		t.Fatalf("failed to seed artefact: %v", err)
	}
	return &artefact
}

func seedUserArtefact(t *testing.T, db *gorm.DB, userID, artefactID string) *models.UserArtefact {
	t.Helper()
	instance := models.UserArtefact{
		ID:           uuid.NewString(),
		UserID:       userID,
		ArtefactID:   artefactID,
		ObtainedFrom: "test-seed",
	}
	if err := db.Create(&instance).Error; err != nil {
		t.Fatalf("failed to seed user artefact: %v", err)
	}
	return &instance
}

// seedTextHunt creates a published hunt with text-validated steps named
// answer-1..answer-n, one per ascending order.
func seedTextHunt(t *testing.T, svc *HuntService, plannerID string, entryCost, crownReward int64, stepCount int) *models.TreasureHunt {
	t.Helper()
	steps := make([]StepInput, 0, stepCount)
	for i := 1; i <= stepCount; i++ {
		steps = append(steps, StepInput{
			Title:           fmt.Sprintf("Step %d", i),
			ValidationType:  models.ValidationTypeText,
			ValidationValue: fmt.Sprintf("answer-%d", i),
			Order:           i,
		})
	}
	hunt, err := svc.CreateHunt(plannerID, "planner", CreateHuntInput{
		Name:        "Test Hunt " + uuid.NewString()[:8],
		EntryCost:   entryCost,
		CrownReward: crownReward,
		Steps:       steps,
	})
	if err != nil {
		t.Fatalf("failed to seed hunt: %v", err)
	}
	return hunt
}

func textProof(answer string) ProofPayload {
	return ProofPayload{Answer: answer}
}

// completeAllSteps submits every step of a seeded text hunt in order and
// returns the final submission result.
func completeAllSteps(t *testing.T, svc *HuntService, userID string, hunt *models.TreasureHunt) *StepSubmissionResult {
	t.Helper()
	var result *StepSubmissionResult
	for i, step := range hunt.Steps {
		var err error
		result, err = svc.SubmitStepCompletion(userID, hunt.ID, step.ID, textProof(fmt.Sprintf("answer-%d", i+1)))
		if err != nil {
			t.Fatalf("failed to complete step %d: %v", i+1, err)
		}
	}
	return result
}

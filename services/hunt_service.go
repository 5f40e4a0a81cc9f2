package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"treasure-hunt-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Position bonus schedule: rank 1 → +50%, rank 2 → +25%, rank 3 → +10%,
// floored to whole crowns. Everyone later gets the base reward only.
func positionBonus(position int, baseReward int64) int64 {
	switch position {
	case 1:
		return baseReward * 50 / 100
	case 2:
		return baseReward * 25 / 100
	case 3:
		return baseReward * 10 / 100
	default:
		return 0
	}
}

// HuntState is the per-(user, hunt) progression state.
type HuntState string

const (
	HuntStateNotJoined  HuntState = "not_joined"
	HuntStateJoined     HuntState = "joined"
	HuntStateInProgress HuntState = "in_progress"
	HuntStateCompleted  HuntState = "completed"
)

// DeriveHuntState derives the progression state from the participation row
// and completion counts. Pure; transitions happen only through JoinHunt and
// SubmitStepCompletion.
func DeriveHuntState(participation *models.HuntParticipation, completedSteps, totalSteps int64) HuntState {
	switch {
	case participation == nil:
		return HuntStateNotJoined
	case participation.IsCompleted || (totalSteps > 0 && completedSteps >= totalSteps):
		return HuntStateCompleted
	case completedSteps > 0:
		return HuntStateInProgress
	default:
		return HuntStateJoined
	}
}

type HuntService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewHuntService(db *gorm.DB, ledger *LedgerService) *HuntService {
	return &HuntService{DB: db, Ledger: ledger}
}

// StepInput is a step definition supplied at hunt authoring time.
type StepInput struct {
	Title           string                    `json:"title"`
	Description     string                    `json:"description"`
	ValidationType  models.StepValidationType `json:"validation_type"`
	ValidationValue string                    `json:"validation_value"`
	Order           int                       `json:"order"`
}

// CreateHuntInput carries everything needed to author a hunt.
type CreateHuntInput struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	EntryCost   int64       `json:"entry_cost"`
	CrownReward int64       `json:"crown_reward"`
	ImageURL    *string     `json:"image_url"`
	PublishAt   *time.Time  `json:"publish_at"`
	Steps       []StepInput `json:"steps"`
}

// CreateHunt creates a hunt with its inline steps. A future PublishAt leaves
// the hunt scheduled; the publish scheduler flips it later. Duplicate step
// orders are rejected at authoring time so runtime ordering never sees ties.
func (s *HuntService) CreateHunt(plannerID, plannerName string, input CreateHuntInput) (*models.TreasureHunt, error) {
	if input.CrownReward <= 0 {
		input.CrownReward = 100
	}
	seen := make(map[int]bool, len(input.Steps))
	for _, st := range input.Steps {
		if seen[st.Order] {
			return nil, ErrDuplicateStepOrder
		}
		seen[st.Order] = true
	}

	hunt := &models.TreasureHunt{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Planner:     plannerID,
		PlannerName: plannerName,
		EntryCost:   input.EntryCost,
		CrownReward: input.CrownReward,
		ImageURL:    input.ImageURL,
		Status:      models.HuntStatusPublished,
		PublishAt:   input.PublishAt,
	}
	if input.PublishAt != nil && input.PublishAt.After(time.Now()) {
		hunt.Status = models.HuntStatusScheduled
	}
	hunt.Slug = s.uniqueSlug(input.Name)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(hunt).Error; err != nil {
			return err
		}
		for _, st := range input.Steps {
			step := models.Step{
				ID:              uuid.NewString(),
				TreasureHuntID:  hunt.ID,
				Title:           st.Title,
				Description:     st.Description,
				ValidationType:  st.ValidationType,
				ValidationValue: st.ValidationValue,
				StepOrder:       st.Order,
			}
			if err := tx.Create(&step).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrDuplicateStepOrder
				}
				return err
			}
			hunt.Steps = append(hunt.Steps, step)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hunt, nil
}

func (s *HuntService) uniqueSlug(name string) string {
	base := slug.Make(name)
	candidate := base
	for i := 2; ; i++ {
		var count int64
		if err := s.DB.Model(&models.TreasureHunt{}).Where("slug = ?", candidate).Count(&count).Error; err != nil || count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// JoinHunt creates the participation row and charges the entry fee, all in
// one transaction. The (user, hunt) unique index makes a racing double-join
// fail on insert; an entry fee the user cannot afford rolls the join back.
func (s *HuntService) JoinHunt(userID, huntID string) (*models.HuntParticipation, error) {
	var participation *models.HuntParticipation
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var hunt models.TreasureHunt
		if err := tx.First(&hunt, "id = ?", huntID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHuntNotFound
			}
			return err
		}
		if hunt.Status != models.HuntStatusPublished {
			return ErrHuntNotPublished
		}

		var existing int64
		if err := tx.Model(&models.HuntParticipation{}).
			Where("user_id = ? AND treasure_hunt_id = ?", userID, huntID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyJoined
		}

		participation = &models.HuntParticipation{
			ID:             uuid.NewString(),
			UserID:         userID,
			TreasureHuntID: huntID,
			EntryFeePaid:   hunt.EntryCost,
		}
		if err := tx.Create(participation).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyJoined
			}
			return err
		}

		if err := tx.Model(&models.TreasureHunt{}).Where("id = ?", huntID).
			UpdateColumn("participants_count", gorm.Expr("participants_count + 1")).Error; err != nil {
			return err
		}

		if hunt.EntryCost > 0 {
			_, err := s.Ledger.Debit(tx, userID, hunt.EntryCost,
				fmt.Sprintf("Entry fee for %q", hunt.Name),
				models.ReferenceHuntEntry, huntID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participation, nil
}

// HuntProgress is the per-user progress report for a hunt.
type HuntProgress struct {
	TreasureHuntID       string       `json:"treasure_hunt_id"`
	TotalSteps           int64        `json:"total_steps"`
	CompletedSteps       int64        `json:"completed_steps"`
	CompletionPercentage float64      `json:"completion_percentage"`
	IsCompleted          bool         `json:"is_completed"`
	CompletedAt          *time.Time   `json:"completed_at,omitempty"`
	CompletionPosition   *int         `json:"completion_position,omitempty"`
	CrownRewardEarned    int64        `json:"crown_reward_earned"`
	State                HuntState    `json:"state"`
	NextStep             *models.Step `json:"next_step,omitempty"`
}

// StepSubmissionResult is returned after a successful step completion.
type StepSubmissionResult struct {
	Completion    *models.StepCompletion `json:"step_completion"`
	Message       string                 `json:"message"`
	HuntCompleted bool                   `json:"treasure_hunt_completed"`
	Position      int                    `json:"position,omitempty"`
	RewardTotal   int64                  `json:"crown_reward,omitempty"`
	Progress      *HuntProgress          `json:"progress"`
}

// SubmitStepCompletion validates the proof, enforces sequential order, and
// records the completion. If this was the user's last missing step it also
// assigns the completion rank and disburses the rank-adjusted reward. The
// whole flow is one transaction: a conflicting concurrent completion makes
// the unique index reject the insert and everything rolls back.
func (s *HuntService) SubmitStepCompletion(userID, huntID, stepID string, proof ProofPayload) (*StepSubmissionResult, error) {
	result := &StepSubmissionResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var participation models.HuntParticipation
		if err := tx.Where("user_id = ? AND treasure_hunt_id = ?", userID, huntID).
			First(&participation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotJoined
			}
			return err
		}

		var step models.Step
		if err := tx.Where("id = ? AND treasure_hunt_id = ?", stepID, huntID).
			First(&step).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStepNotFound
			}
			return err
		}

		var already int64
		if err := tx.Model(&models.StepCompletion{}).
			Where("user_id = ? AND step_id = ?", userID, stepID).
			Count(&already).Error; err != nil {
			return err
		}
		if already > 0 {
			return ErrStepAlreadyCompleted
		}

		message, err := ValidateStepProof(step.ValidationType, step.ValidationValue, proof)
		if err != nil {
			return err
		}
		result.Message = message

		if err := s.checkPriorSteps(tx, userID, huntID, step.StepOrder); err != nil {
			return err
		}

		payload, err := json.Marshal(proof)
		if err != nil {
			return err
		}
		completion := &models.StepCompletion{
			ID:             uuid.NewString(),
			UserID:         userID,
			StepID:         stepID,
			TreasureHuntID: huntID,
			ValidationData: string(payload),
		}
		if err := tx.Create(completion).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrStepAlreadyCompleted
			}
			return err
		}
		result.Completion = completion

		totalSteps, completedSteps, err := s.countProgress(tx, userID, huntID)
		if err != nil {
			return err
		}

		if completedSteps == totalSteps {
			position, rewardTotal, err := s.disburseCompletion(tx, userID, huntID, &participation)
			if err != nil {
				return err
			}
			result.HuntCompleted = true
			result.Position = position
			result.RewardTotal = rewardTotal
		}

		result.Progress, err = s.buildProgress(tx, userID, huntID, totalSteps, completedSteps)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkPriorSteps enforces the sequential gate: every step with a smaller
// order must already be completed by this user.
func (s *HuntService) checkPriorSteps(tx *gorm.DB, userID, huntID string, order int) error {
	var prior []models.Step
	if err := tx.Where("treasure_hunt_id = ? AND step_order < ?", huntID, order).
		Order("step_order ASC").Find(&prior).Error; err != nil {
		return err
	}
	if len(prior) == 0 {
		return nil
	}

	ids := make([]string, len(prior))
	for i, p := range prior {
		ids[i] = p.ID
	}
	var completions []models.StepCompletion
	if err := tx.Where("user_id = ? AND step_id IN ?", userID, ids).Find(&completions).Error; err != nil {
		return err
	}
	done := make(map[string]bool, len(completions))
	for _, c := range completions {
		done[c.StepID] = true
	}
	for _, p := range prior {
		if !done[p.ID] {
			return &PriorStepsIncompleteError{RequiredStepID: p.ID}
		}
	}
	return nil
}

// disburseCompletion fires at most once per (user, hunt): the Winner row's
// unique index is the authoritative lock, so a racing duplicate fails its
// insert and rolls the whole submission back. Rank assignment is serialized
// per hunt: the hunt row is write-locked before winners are counted, so two
// users finishing concurrently cannot both read the same count and claim the
// same position. The (hunt, position) unique index backstops that invariant.
func (s *HuntService) disburseCompletion(tx *gorm.DB, userID, huntID string, participation *models.HuntParticipation) (int, int64, error) {
	if err := tx.Model(&models.TreasureHunt{}).Where("id = ?", huntID).
		UpdateColumn("updated_at", time.Now()).Error; err != nil {
		return 0, 0, err
	}

	var existing int64
	if err := tx.Model(&models.Winner{}).
		Where("user_id = ? AND treasure_hunt_id = ?", userID, huntID).
		Count(&existing).Error; err != nil {
		return 0, 0, err
	}
	if existing > 0 {
		return 0, 0, ErrHuntAlreadyCompleted
	}

	var hunt models.TreasureHunt
	if err := tx.First(&hunt, "id = ?", huntID).Error; err != nil {
		return 0, 0, err
	}

	var winnerCount int64
	if err := tx.Model(&models.Winner{}).
		Where("treasure_hunt_id = ?", huntID).
		Count(&winnerCount).Error; err != nil {
		return 0, 0, err
	}
	position := int(winnerCount) + 1
	bonus := positionBonus(position, hunt.CrownReward)
	rewardTotal := hunt.CrownReward + bonus

	now := time.Now()
	winner := &models.Winner{
		ID:             uuid.NewString(),
		UserID:         userID,
		TreasureHuntID: huntID,
		CompletedAt:    now,
		Position:       position,
		CrownReward:    rewardTotal,
	}
	if err := tx.Create(winner).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, 0, ErrHuntAlreadyCompleted
		}
		return 0, 0, err
	}

	if err := tx.Model(&models.HuntParticipation{}).
		Where("id = ?", participation.ID).
		Updates(map[string]interface{}{
			"completed_at":        now,
			"completion_position": position,
			"is_completed":        true,
			"crown_reward_earned": rewardTotal,
		}).Error; err != nil {
		return 0, 0, err
	}

	description := fmt.Sprintf("Hunt completion reward (Position #%d)", position)
	if bonus > 0 {
		description += fmt.Sprintf(" + %d position bonus", bonus)
	}
	if _, err := s.Ledger.Credit(tx, userID, rewardTotal, description,
		models.ReferenceHuntCompletion, huntID); err != nil {
		return 0, 0, err
	}

	var rewards []models.HuntReward
	if err := tx.Where("treasure_hunt_id = ? AND type = ?", huntID, models.HuntRewardTypeArtefact).
		Find(&rewards).Error; err != nil {
		return 0, 0, err
	}
	for _, reward := range rewards {
		if reward.ArtefactID == nil {
			continue
		}
		instance := models.UserArtefact{
			ID:           uuid.NewString(),
			UserID:       userID,
			ArtefactID:   *reward.ArtefactID,
			ObtainedAt:   now,
			ObtainedFrom: huntID,
		}
		if err := tx.Create(&instance).Error; err != nil {
			return 0, 0, err
		}
	}

	log.Printf("🏆 Hunt %s completed by %s at position %d (reward: %d crowns)", huntID, userID, position, rewardTotal)
	return position, rewardTotal, nil
}

func (s *HuntService) countProgress(tx *gorm.DB, userID, huntID string) (total, completed int64, err error) {
	if err = tx.Model(&models.Step{}).Where("treasure_hunt_id = ?", huntID).Count(&total).Error; err != nil {
		return
	}
	err = tx.Model(&models.StepCompletion{}).
		Where("user_id = ? AND treasure_hunt_id = ?", userID, huntID).
		Count(&completed).Error
	return
}

func (s *HuntService) buildProgress(tx *gorm.DB, userID, huntID string, totalSteps, completedSteps int64) (*HuntProgress, error) {
	var participation models.HuntParticipation
	if err := tx.Where("user_id = ? AND treasure_hunt_id = ?", userID, huntID).
		First(&participation).Error; err != nil {
		return nil, err
	}

	progress := &HuntProgress{
		TreasureHuntID:     huntID,
		TotalSteps:         totalSteps,
		CompletedSteps:     completedSteps,
		IsCompleted:        participation.IsCompleted,
		CompletedAt:        participation.CompletedAt,
		CompletionPosition: participation.CompletionPosition,
		CrownRewardEarned:  participation.CrownRewardEarned,
		State:              DeriveHuntState(&participation, completedSteps, totalSteps),
	}
	if totalSteps > 0 {
		progress.CompletionPercentage = 100 * float64(completedSteps) / float64(totalSteps)
	}

	if !participation.IsCompleted && completedSteps < totalSteps {
		next, err := s.nextStep(tx, userID, huntID)
		if err != nil {
			return nil, err
		}
		progress.NextStep = next
	}
	return progress, nil
}

func (s *HuntService) nextStep(tx *gorm.DB, userID, huntID string) (*models.Step, error) {
	var completedIDs []string
	if err := tx.Model(&models.StepCompletion{}).
		Where("user_id = ? AND treasure_hunt_id = ?", userID, huntID).
		Pluck("step_id", &completedIDs).Error; err != nil {
		return nil, err
	}

	query := tx.Where("treasure_hunt_id = ?", huntID)
	if len(completedIDs) > 0 {
		query = query.Where("id NOT IN ?", completedIDs)
	}
	var next models.Step
	err := query.Order("step_order ASC").First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &next, nil
}

// GetProgress reports the caller's progress in a hunt.
func (s *HuntService) GetProgress(userID, huntID string) (*HuntProgress, error) {
	var progress *HuntProgress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var participation int64
		if err := tx.Model(&models.HuntParticipation{}).
			Where("user_id = ? AND treasure_hunt_id = ?", userID, huntID).
			Count(&participation).Error; err != nil {
			return err
		}
		if participation == 0 {
			return ErrNotJoined
		}
		total, completed, err := s.countProgress(tx, userID, huntID)
		if err != nil {
			return err
		}
		progress, err = s.buildProgress(tx, userID, huntID, total, completed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// ListHunts returns non-deleted hunts, newest first, with pagination.
func (s *HuntService) ListHunts(page, limit int) ([]models.TreasureHunt, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var total int64
	if err := s.DB.Model(&models.TreasureHunt{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var hunts []models.TreasureHunt
	err := s.DB.Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&hunts).Error
	return hunts, total, err
}

// GetHunt returns a single hunt by id.
func (s *HuntService) GetHunt(huntID string) (*models.TreasureHunt, error) {
	var hunt models.TreasureHunt
	err := s.DB.First(&hunt, "id = ?", huntID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHuntNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hunt, nil
}

// DeleteHunt soft-deletes a hunt. Planner only.
func (s *HuntService) DeleteHunt(plannerID, huntID string) error {
	hunt, err := s.GetHunt(huntID)
	if err != nil {
		return err
	}
	if hunt.Planner != plannerID {
		return ErrNotPlanner
	}
	return s.DB.Delete(&models.TreasureHunt{}, "id = ?", huntID).Error
}

// StepWithProgress is a step annotated with the caller's completion state.
type StepWithProgress struct {
	models.Step
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ValidationData string     `json:"validation_data,omitempty"`
}

// ListSteps returns a hunt's steps in order, annotated with the caller's
// completions.
func (s *HuntService) ListSteps(userID, huntID string) ([]StepWithProgress, error) {
	var steps []models.Step
	if err := s.DB.Where("treasure_hunt_id = ?", huntID).
		Order("step_order ASC").Find(&steps).Error; err != nil {
		return nil, err
	}

	var completions []models.StepCompletion
	if err := s.DB.Where("user_id = ? AND treasure_hunt_id = ?", userID, huntID).
		Find(&completions).Error; err != nil {
		return nil, err
	}
	byStep := make(map[string]*models.StepCompletion, len(completions))
	for i := range completions {
		byStep[completions[i].StepID] = &completions[i]
	}

	annotated := make([]StepWithProgress, 0, len(steps))
	for _, st := range steps {
		entry := StepWithProgress{Step: st}
		if c, ok := byStep[st.ID]; ok {
			entry.Completed = true
			entry.CompletedAt = &c.CompletedAt
			entry.ValidationData = c.ValidationData
		}
		annotated = append(annotated, entry)
	}
	return annotated, nil
}

// CompletedHunts returns hunts the user has fully completed, newest first.
func (s *HuntService) CompletedHunts(userID string) ([]models.HuntParticipation, error) {
	var participations []models.HuntParticipation
	err := s.DB.Where("user_id = ? AND is_completed = ?", userID, true).
		Order("completed_at DESC").
		Find(&participations).Error
	return participations, err
}

// AddStep appends a step to an existing hunt. Planner only; duplicate orders
// are rejected.
func (s *HuntService) AddStep(plannerID, huntID string, input StepInput) (*models.Step, error) {
	hunt, err := s.GetHunt(huntID)
	if err != nil {
		return nil, err
	}
	if hunt.Planner != plannerID {
		return nil, ErrNotPlanner
	}

	step := &models.Step{
		ID:              uuid.NewString(),
		TreasureHuntID:  huntID,
		Title:           input.Title,
		Description:     input.Description,
		ValidationType:  input.ValidationType,
		ValidationValue: input.ValidationValue,
		StepOrder:       input.Order,
	}
	if err := s.DB.Create(step).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateStepOrder
		}
		return nil, err
	}
	return step, nil
}

// StepUpdate holds optional step fields; nil means leave unchanged.
type StepUpdate struct {
	Title           *string                    `json:"title"`
	Description     *string                    `json:"description"`
	ValidationType  *models.StepValidationType `json:"validation_type"`
	ValidationValue *string                    `json:"validation_value"`
	Order           *int                       `json:"order"`
}

// UpdateStep edits a step. Planner only; moving to an occupied order is
// rejected.
func (s *HuntService) UpdateStep(plannerID, stepID string, update StepUpdate) (*models.Step, error) {
	var step models.Step
	if err := s.DB.First(&step, "id = ?", stepID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStepNotFound
		}
		return nil, err
	}
	hunt, err := s.GetHunt(step.TreasureHuntID)
	if err != nil {
		return nil, err
	}
	if hunt.Planner != plannerID {
		return nil, ErrNotPlanner
	}

	if update.Title != nil {
		step.Title = *update.Title
	}
	if update.Description != nil {
		step.Description = *update.Description
	}
	if update.ValidationType != nil {
		step.ValidationType = *update.ValidationType
	}
	if update.ValidationValue != nil {
		step.ValidationValue = *update.ValidationValue
	}
	if update.Order != nil {
		step.StepOrder = *update.Order
	}
	if err := s.DB.Save(&step).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateStepOrder
		}
		return nil, err
	}
	return &step, nil
}

// DeleteStep removes a step. Planner only.
func (s *HuntService) DeleteStep(plannerID, stepID string) error {
	var step models.Step
	if err := s.DB.First(&step, "id = ?", stepID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStepNotFound
		}
		return err
	}
	hunt, err := s.GetHunt(step.TreasureHuntID)
	if err != nil {
		return err
	}
	if hunt.Planner != plannerID {
		return ErrNotPlanner
	}
	return s.DB.Delete(&models.Step{}, "id = ?", stepID).Error
}

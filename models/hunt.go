package models

import (
	"time"

	"gorm.io/gorm"
)

// HuntStatus is the publishing status of a treasure hunt
type HuntStatus string

const (
	HuntStatusDraft     HuntStatus = "draft"
	HuntStatusScheduled HuntStatus = "scheduled"
	HuntStatusPublished HuntStatus = "published"
)

// StepValidationType decides which proof a step requires
type StepValidationType string

const (
	ValidationTypeLocation StepValidationType = "location"
	ValidationTypeText     StepValidationType = "text"
	ValidationTypeQRCode   StepValidationType = "qr_code"
)

// TreasureHunt is a named sequence of steps users join and progress through.
type TreasureHunt struct {
	ID                string     `gorm:"primaryKey;type:uuid" json:"id"`
	Name              string     `gorm:"not null" json:"name"`
	Slug              string     `gorm:"uniqueIndex;not null" json:"slug"`
	Description       string     `gorm:"type:text" json:"description"`
	Planner           string     `gorm:"index;not null" json:"planner"` // external user id of the creator
	PlannerName       string     `json:"planner_name"`
	ParticipantsCount int64      `gorm:"default:0" json:"participants_count"`
	EntryCost         int64      `gorm:"default:0" json:"entry_cost"`
	CrownReward       int64      `gorm:"default:100" json:"crown_reward"`
	ImageURL          *string    `gorm:"type:text" json:"image_url,omitempty"`
	Status            HuntStatus `gorm:"type:varchar(16);default:'published'" json:"status"`
	PublishAt         *time.Time `json:"publish_at,omitempty"`

	Steps []Step `gorm:"foreignKey:TreasureHuntID" json:"steps,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Step is one checkpoint in a hunt. StepOrder defines the required completion
// sequence (ascending, gaps allowed); a given order is unique within a hunt so
// runtime ordering never sees ties.
type Step struct {
	ID              string             `gorm:"primaryKey;type:uuid" json:"id"`
	TreasureHuntID  string             `gorm:"not null;uniqueIndex:idx_steps_hunt_order" json:"treasure_hunt_id"`
	Title           string             `gorm:"not null" json:"title"`
	Description     string             `gorm:"type:text" json:"description"`
	ValidationType  StepValidationType `gorm:"type:varchar(16);not null" json:"validation_type"`
	ValidationValue string             `gorm:"not null" json:"validation_value"`
	StepOrder       int                `gorm:"not null;uniqueIndex:idx_steps_hunt_order" json:"step_order"`
	CreatedAt       time.Time          `json:"created_at" gorm:"autoCreateTime"`
}

// HuntParticipation records that a user joined a hunt. Unique per
// (user, hunt): a user may join a hunt at most once.
type HuntParticipation struct {
	ID                 string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID             string     `gorm:"not null;uniqueIndex:idx_participations_user_hunt" json:"user_id"`
	TreasureHuntID     string     `gorm:"not null;uniqueIndex:idx_participations_user_hunt;index" json:"treasure_hunt_id"`
	JoinedAt           time.Time  `json:"joined_at" gorm:"autoCreateTime"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CompletionPosition *int       `json:"completion_position,omitempty"`
	IsCompleted        bool       `gorm:"default:false" json:"is_completed"`
	EntryFeePaid       int64      `gorm:"default:0" json:"entry_fee_paid"`
	CrownRewardEarned  int64      `gorm:"default:0" json:"crown_reward_earned"`
}

// StepCompletion is created exactly once per (user, step) on first successful
// validation and is immutable thereafter. ValidationData keeps the raw proof
// payload for audit.
type StepCompletion struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string    `gorm:"not null;uniqueIndex:idx_completions_user_step" json:"user_id"`
	StepID         string    `gorm:"not null;uniqueIndex:idx_completions_user_step" json:"step_id"`
	TreasureHuntID string    `gorm:"index;not null" json:"treasure_hunt_id"`
	ValidationData string    `gorm:"type:text" json:"validation_data"`
	CompletedAt    time.Time `json:"completed_at" gorm:"autoCreateTime"`
}

// Winner is the permanent record that a user fully completed a hunt.
// The (user, hunt) unique index is the idempotency guard against duplicate
// reward disbursement; the (hunt, position) unique index keeps completion
// ranks a gapless permutation even if rank assignment were ever to race.
type Winner struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string    `gorm:"not null;uniqueIndex:idx_winners_user_hunt" json:"user_id"`
	TreasureHuntID string    `gorm:"not null;uniqueIndex:idx_winners_user_hunt;uniqueIndex:idx_winners_hunt_position" json:"treasure_hunt_id"`
	CompletedAt    time.Time `json:"completed_at" gorm:"autoCreateTime"`
	Position       int       `gorm:"not null;uniqueIndex:idx_winners_hunt_position" json:"position"`
	CrownReward    int64     `gorm:"default:0" json:"crown_reward"`
}

// HuntRewardType distinguishes crown payouts from artefact drops
type HuntRewardType string

const (
	HuntRewardTypeArtefact HuntRewardType = "artefact"
	HuntRewardTypeCrowns   HuntRewardType = "crowns"
)

// HuntReward is a reward definition attached to a hunt. Artefact-type rewards
// mint a UserArtefact instance for every finisher.
type HuntReward struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	TreasureHuntID string         `gorm:"index;not null" json:"treasure_hunt_id"`
	Type           HuntRewardType `gorm:"type:varchar(16);not null" json:"type"`
	Name           string         `json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	Value          int64          `json:"value"`
	Rarity         string         `gorm:"type:varchar(16)" json:"rarity"`
	ArtefactID     *string        `gorm:"type:uuid;index" json:"artefact_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Challenge struct {
	Model
	Title           string
	GoalPrompt      string
	ImprovementTags datatypes.JSONSlice[string]
	OwnerID         uuid.UUID `gorm:"type:uuid"`
	RequiredTakes   int
	AutoTopics      bool
}

func (Challenge) TableName() string {
	return "challenge"
}

func (c Challenge) GetID() uuid.UUID {
	return c.ID
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// IDHookFunc defines the signature for the NewID test hook.
// It returns an ID and a boolean indicating whether to override the default generation.
type IDHookFunc func() (id string, override bool)

// NewIDHook is a package-level variable that tests can set to override NewID behavior.
var NewIDHook IDHookFunc

// NewID returns a new random document ID.
func NewID() string {
	if NewIDHook != nil {
		if id, override := NewIDHook(); override {
			return id
		}
	}
	return uuid.NewString()
}

type IBase interface {
	GenIDIfEmpty()
	GenID()
	SetID(id string)
}

type Base struct {
	ID string `bson:"_id,omitempty" json:"id,omitempty"`
}

func (m *Base) GenIDIfEmpty() {
	if m.ID == "" {
		m.GenID()
	}
}

func (m *Base) GenID() {
	m.ID = NewID()
}

func (m *Base) SetID(id string) {
	m.ID = id
}

func NewBase() Base {
	return Base{
		ID: NewID(),
	}
}

// Timestamps are set by the services on create and update.
type Timestamps struct {
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Touch sets UpdatedAt, and CreatedAt when it is still zero.
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

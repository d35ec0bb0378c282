package model

import "time"

type ActorKind string

const (
	ActorKindHuman ActorKind = "human"
	ActorKindAgent ActorKind = "agent"
)

type Actor struct {
	ID     string    `json:"id" yaml:"id"`
	Kind   ActorKind `json:"kind" yaml:"kind"`
	Name   string    `json:"name" yaml:"name"`
	UserID *string   `json:"userId,omitempty" yaml:"userId,omitempty"`
}

// ReusableBlock is a named fragment of serialized block content that documents
// reference by id.
type ReusableBlock struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`

	// IsTemporary is true for blocks created locally that have never been persisted.
	IsTemporary bool `json:"isTemporary,omitempty" yaml:"isTemporary,omitempty"`

	OwnerActorID string    `json:"ownerActorId" yaml:"ownerActorId"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Block is one parsed node of a block tree.
//
// ClientID identifies the node inside an editing session only; it is never serialized.
type Block struct {
	ClientID    string         `json:"clientId,omitempty" yaml:"clientId,omitempty"`
	Name        string         `json:"name" yaml:"name"`
	Attributes  map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	InnerBlocks []Block        `json:"innerBlocks,omitempty" yaml:"innerBlocks,omitempty"`
	InnerHTML   string         `json:"innerHTML,omitempty" yaml:"innerHTML,omitempty"`
}

// Document is a persisted block tree edited in the TUI.
type Document struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// InserterItem is one entry offered by the block inserter.
type InserterItem struct {
	ID                string         `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	Title             string         `json:"title" yaml:"title"`
	Icon              string         `json:"icon,omitempty" yaml:"icon,omitempty"`
	Category          string         `json:"category" yaml:"category"`
	InitialAttributes map[string]any `json:"initialAttributes,omitempty" yaml:"initialAttributes,omitempty"`
	InnerBlocks       []Block        `json:"innerBlocks,omitempty" yaml:"innerBlocks,omitempty"`
}

type Event struct {
	ID       string    `json:"id" yaml:"id"`
	TS       time.Time `json:"ts" yaml:"ts"`
	ActorID  string    `json:"actorId" yaml:"actorId"`
	Type     string    `json:"type" yaml:"type"`
	EntityID string    `json:"entityId" yaml:"entityId"`
	Payload  any       `json:"payload" yaml:"payload"`
}

package models

import "github.com/google/uuid"

// assignID fills a zero primary key before insert so rows never depend on a
// database-side uuid default.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every model, in dependency order, for sqlite AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&InventoryItem{},
		&Order{},
		&OrderLineItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}

package models

// All lists every persisted model in dependency order. Tests pass it to
// AutoMigrate; production schemas come from the goose migrations.
func All() []any {
	return []any{
		&User{},
		&Tag{},
		&MenuItem{},
		&Inventory{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}

package models

// All lists every model that needs a table, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Question{},
		&QuestionTag{},
		&Answer{},
		&Comment{},
		&Vote{},
		&ReputationEvent{},
		&SagaLog{},
	}
}

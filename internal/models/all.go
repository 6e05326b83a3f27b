package models

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&Clinic{},
		&User{},
		&Doctor{},
		&Patient{},
		&Service{},
		&Appointment{},
		&Consultation{},
		&Prescription{},
		&Invoice{},
		&AuditLog{},
		&OutboxEvent{},
		&DeviceToken{},
		&WorkingHours{},
	}
}

package models

// All returns every model in dependency-free order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&MemberModel{},
		&ConsentRecordModel{},
		&AdminModel{},
		&ProcessedPaymentEventModel{},
		&PaymentModel{},
		&AuditLogModel{},
		&SupportTicketModel{},
	}
}

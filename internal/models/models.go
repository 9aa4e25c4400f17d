package models

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Trade{},
		&EliteTrade{},
		&SetupType{},
		&DailyRiskTracker{},
		&Affiliate{},
		&Referral{},
		&Commission{},
		&PayoutRequest{},
		&PaymentTransaction{},
	}
}

// Package model declares the persisted records of the booking platform.
package model

// All lists every record migrated by the SQL store.
func All() []any {
	return []any{
		&Business{},
		&Location{},
		&Service{},
		&BusinessHours{},
		&User{},
		&Activity{},
		&Booking{},
		&Reward{},
		&UserReward{},
		&Referral{},
		&PushSubscription{},
	}
}

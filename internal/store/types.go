package store

// Branding holds the editable look-and-feel fields of a business.
type Branding struct {
	Name           *string `json:"name"`
	LogoURL        *string `json:"logoUrl"`
	PrimaryColor   *string `json:"primaryColor"`
	SecondaryColor *string `json:"secondaryColor"`
	Tagline        *string `json:"tagline"`
}

// ReferralGrant describes the points exchanged when a new user signs up
// with another user's referral code.
type ReferralGrant struct {
	ReferrerID     string
	ReferrerPoints int
	RefereePoints  int
}

// BookingStats summarises a user's booking history.
type BookingStats struct {
	Total         int64   `json:"total"`
	Confirmed     int64   `json:"confirmed"`
	Completed     int64   `json:"completed"`
	Cancelled     int64   `json:"cancelled"`
	AverageRating float64 `json:"averageRating"`
	TotalSpent    int64   `json:"totalSpentCents"`
}

// ReferralStats summarises the referrals made by one user.
type ReferralStats struct {
	Count        int64 `json:"count"`
	PointsEarned int64 `json:"pointsEarned"`
}

// LeaderboardEntry is one row of the referral leaderboard.
type LeaderboardEntry struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Referrals int64  `json:"referrals"`
	Points    int64  `json:"points"`
}

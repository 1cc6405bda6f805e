package model

// Tables resolves plugin table names for a WordPress table prefix
type Tables struct {
	Prefix string
}

// NewTables returns table names for the given prefix (e.g. "wp_")
func NewTables(prefix string) Tables {
	return Tables{Prefix: prefix}
}

func (t Tables) Campaigns() string    { return t.Prefix + "qcm_campaigns" }
func (t Tables) Gifts() string        { return t.Prefix + "qcm_gifts" }
func (t Tables) QuizUsers() string    { return t.Prefix + "qcm_quiz_users" }
func (t Tables) QuizSessions() string { return t.Prefix + "qcm_quiz_sessions" }
func (t Tables) Participants() string { return t.Prefix + "qcm_participants" }

// Options is the WordPress options table that persists settings
func (t Tables) Options() string { return t.Prefix + "options" }

// LegacyCampaigns and friends name the tables of the pre-2.0 schema
func (t Tables) LegacyCampaigns() string    { return t.Prefix + "quiz_campaigns" }
func (t Tables) LegacyGifts() string        { return t.Prefix + "quiz_gifts" }
func (t Tables) LegacyQuizUsers() string    { return t.Prefix + "quiz_users" }
func (t Tables) LegacyQuizSessions() string { return t.Prefix + "quiz_sessions" }

// RenamePair maps a legacy table to its new name
type RenamePair struct {
	Old string
	New string
}

// RenamePairs returns the fixed legacy→new mapping
func (t Tables) RenamePairs() []RenamePair {
	return []RenamePair{
		{Old: t.LegacyCampaigns(), New: t.Campaigns()},
		{Old: t.LegacyGifts(), New: t.Gifts()},
		{Old: t.LegacyQuizUsers(), New: t.QuizUsers()},
		{Old: t.LegacyQuizSessions(), New: t.QuizSessions()},
	}
}

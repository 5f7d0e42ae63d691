package orchestratorqueue

// CounterFlushJob drains the in-memory message counter into the store.
type CounterFlushJob struct{}

// Kind returns the job type identifier for River
func (CounterFlushJob) Kind() string { return "club_counter_flush" }

// ScheduledPassJob runs the recurring reorganization pass.
type ScheduledPassJob struct{}

// Kind returns the job type identifier for River
func (ScheduledPassJob) Kind() string { return "club_scheduled_pass" }

// LeaderboardRefreshJob rewrites the permanent ranking message.
type LeaderboardRefreshJob struct{}

// Kind returns the job type identifier for River
func (LeaderboardRefreshJob) Kind() string { return "club_leaderboard_refresh" }

// WeeklyRolloverJob closes the scoring window at the Monday boundary.
type WeeklyRolloverJob struct{}

// Kind returns the job type identifier for River
func (WeeklyRolloverJob) Kind() string { return "club_weekly_rollover" }

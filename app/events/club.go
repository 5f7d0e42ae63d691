package clubevents

import "time"

// Stream is the JetStream stream carrying all club subjects.
const Stream = "club"

// Versioned subjects.
const (
	// MessageCountedV1 is published by the gateway handler for every non-bot
	// message in a club channel.
	MessageCountedV1 = "club.message.counted.v1"

	// ResortRequestedV1 triggers a full flush -> sweep -> reorganize pass.
	// Single-consumer: this subscription is what serializes manual passes.
	ResortRequestedV1 = "club.resort.requested.v1"

	// DryRunRequestedV1 triggers scoring and planning without applying anything.
	DryRunRequestedV1 = "club.ranking.dryrun.requested.v1"

	// DryRunResultV1 carries the projected plan back to the requester.
	DryRunResultV1 = "club.ranking.dryrun.result.v1"

	// PassSummaryV1 is published after every applied pass. Dry runs answer
	// with DryRunResultV1 instead.
	PassSummaryV1 = "club.pass.summary.v1"
)

// MessageCountedPayloadV1 is one gateway message observation.
type MessageCountedPayloadV1 struct {
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ResortRequestedPayloadV1 is a manual pass trigger.
type ResortRequestedPayloadV1 struct {
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason,omitempty"`
}

// DryRunRequestedPayloadV1 asks for a projected plan.
type DryRunRequestedPayloadV1 struct {
	RequestedBy string `json:"requested_by"`
	ReplyTo     string `json:"reply_to,omitempty"`
}

// PlannedMoveV1 is one row of a projected or applied plan.
type PlannedMoveV1 struct {
	ChannelID        string `json:"channel_id"`
	ActivityScore    int    `json:"activity_score"`
	PointChange      int    `json:"point_change"`
	TargetCategoryID string `json:"target_category_id"`
	Position         int    `json:"position"`
	NewName          string `json:"new_name"`
}

// DryRunResultPayloadV1 carries the projected plan.
type DryRunResultPayloadV1 struct {
	RequestedBy string          `json:"requested_by"`
	Entries     []PlannedMoveV1 `json:"entries"`
	Warnings    []string        `json:"warnings,omitempty"`
	ComputedAt  time.Time       `json:"computed_at"`
}

// PassSummaryPayloadV1 summarizes a finished pass.
type PassSummaryPayloadV1 struct {
	PassID      string    `json:"pass_id"`
	TriggeredBy string    `json:"triggered_by"`
	Ranked      int       `json:"ranked"`
	Moved       int       `json:"moved"`
	Renamed     int       `json:"renamed"`
	Archived    int       `json:"archived"`
	Revived     int       `json:"revived"`
	Skipped     int       `json:"skipped"`
	Errors      []string  `json:"errors,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}

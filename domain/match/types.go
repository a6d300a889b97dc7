package match

import (
	"fmt"
	"strings"

	"metapanel/domain/core"
	"metapanel/domain/patch"
)

// Role is the position an entity was played in
type Role string

const (
	RoleTop     Role = "TOP"
	RoleJungle  Role = "JUNGLE"
	RoleMid     Role = "MID"
	RoleBottom  Role = "BOTTOM"
	RoleSupport Role = "SUPPORT"
)

// knownRoles is the closed set of valid roles
var knownRoles = map[Role]bool{
	RoleTop:     true,
	RoleJungle:  true,
	RoleMid:     true,
	RoleBottom:  true,
	RoleSupport: true,
}

// Queue identifies the matchmaking queue a record came from
type Queue string

const (
	QueueRankedSolo Queue = "RANKED_SOLO"
	QueueRankedFlex Queue = "RANKED_FLEX"
	QueueNormal     Queue = "NORMAL"
)

var knownQueues = map[Queue]bool{
	QueueRankedSolo: true,
	QueueRankedFlex: true,
	QueueNormal:     true,
}

// Counters holds the raw per-match performance counters. All counters are
// mandatory at ingestion; downstream winsorization handles outliers, not
// silent defaults.
type Counters struct {
	Kills       int     `json:"kills"`
	Deaths      int     `json:"deaths"`
	Assists     int     `json:"assists"`
	GoldEarned  int     `json:"gold_earned"`
	DamageDealt int     `json:"damage_dealt"`
	CreepScore  int     `json:"creep_score"`
	DurationSec float64 `json:"duration_sec"`
}

// KDA returns the (kills+assists)/deaths ratio with the conventional
// deaths-floor of 1
func (c Counters) KDA() float64 {
	deaths := c.Deaths
	if deaths < 1 {
		deaths = 1
	}
	return float64(c.Kills+c.Assists) / float64(deaths)
}

// PlayerRecord is one player's performance in one match. Immutable once
// ingested; only the aggregation engine consumes it.
type PlayerRecord struct {
	MatchID   core.MatchID   `json:"match_id"`
	PlayerKey core.PlayerKey `json:"player_key"`
	Patch     patch.Version  `json:"patch"`
	EntityID  core.EntityID  `json:"entity_id"`
	Role      Role           `json:"role"`
	Queue     Queue          `json:"queue"`
	Win       bool           `json:"win"`
	Counters  Counters       `json:"counters"`
	PlayedAt  core.Timestamp `json:"played_at"`
}

// Validate checks every mandatory field and returns a named error for the
// first missing or malformed one. Malformed records are rejected at the
// ingestion boundary, never silently defaulted.
func (r PlayerRecord) Validate() error {
	if core.ID(r.MatchID).IsEmpty() {
		return core.NewMissingFieldError(r.identity(), "match_id")
	}
	if core.ID(r.PlayerKey).IsEmpty() {
		return core.NewMissingFieldError(r.identity(), "player_key")
	}
	if r.Patch.IsZero() {
		return core.NewMissingFieldError(r.identity(), "patch")
	}
	if core.ID(r.EntityID).IsEmpty() {
		return core.NewMissingFieldError(r.identity(), "entity_id")
	}
	if !knownRoles[r.Role] {
		return fmt.Errorf("%w: unknown role %q in record %s", core.ErrMissingField, r.Role, r.identity())
	}
	if !knownQueues[r.Queue] {
		return fmt.Errorf("%w: unknown queue %q in record %s", core.ErrMissingField, r.Queue, r.identity())
	}
	if r.PlayedAt.IsZero() {
		return core.NewMissingFieldError(r.identity(), "played_at")
	}
	if r.Counters.DurationSec <= 0 {
		return fmt.Errorf("%w: non-positive duration in record %s", core.ErrMissingField, r.identity())
	}
	return nil
}

// identity returns the record identity used in rejection logs
func (r PlayerRecord) identity() string {
	var b strings.Builder
	b.WriteString(r.MatchID.String())
	b.WriteString("/")
	b.WriteString(r.PlayerKey.String())
	return b.String()
}

// Identity exposes the record identity for rejection reports
func (r PlayerRecord) Identity() string {
	return r.identity()
}

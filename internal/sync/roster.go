package sync

import (
	"context"
	"regexp"
	"strings"

	"github.com/gridstats/nfldb/internal/entity"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/query"
	"github.com/gridstats/nfldb/internal/store"
)

// RosterManager syncs current roster rows and maintains the append-only
// previous-teams history on each player record.
type RosterManager struct {
	manager
	teams *TeamManager
}

func NewRosterManager(st store.Store, api Client, teams *TeamManager, logger *logging.Logger) *RosterManager {
	return &RosterManager{
		manager: newManager(entity.Roster, st, api, logger),
		teams:   teams,
	}
}

func (r *RosterManager) Sync(ctx context.Context) ([]store.Record, error) {
	ctx, span := startSyncSpan(ctx, "sync.RosterManager.Sync")
	defer span.End()

	teams, err := r.store.Find(ctx, entity.Team, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		if teams, err = r.teams.Sync(ctx); err != nil {
			return nil, err
		}
	}

	fetched, err := r.api.Rosters(ctx, teams)
	if err != nil {
		return nil, err
	}

	saved, err := r.Save(ctx, fetched)
	if err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "roster sync complete", "written", len(saved))
	return saved, nil
}

// Save enriches incoming records with team history before upserting: when a
// player's team differs from the stored record, the old team joins the
// previous-teams set on the new record.
func (r *RosterManager) Save(ctx context.Context, records []store.Record) ([]store.Record, error) {
	if err := applyPreviousTeams(ctx, r.store, r.entity, records); err != nil {
		return nil, err
	}
	return r.manager.Save(ctx, records)
}

// PlayerFilter narrows roster lookups. Abbreviations expand to OR-of-AND
// name-pattern groups; IncludePreviousTeams widens the team match to the
// history field.
type PlayerFilter struct {
	Teams                []string
	LastNames            []string
	LastNamePatterns     []string
	FirstNames           []string
	Abbreviations        []string
	IncludePreviousTeams bool
}

// FindPlayers returns roster records matching the filter.
func (r *RosterManager) FindPlayers(ctx context.Context, f PlayerFilter) ([]store.Record, error) {
	return r.Find(ctx, playerConstraint(f), nil)
}

func playerConstraint(f PlayerFilter) query.M {
	qm := query.New()
	if len(f.Teams) > 0 {
		if f.IncludePreviousTeams {
			qm.AndModel(query.New().
				Start("team", f.Teams, query.In).
				Or("previous_teams", f.Teams, query.In))
		} else {
			qm.And("team", f.Teams, query.In)
		}
	}
	if len(f.LastNames) > 0 {
		qm.And("last_name", f.LastNames, query.In)
	}
	if len(f.LastNamePatterns) > 0 {
		sub := query.New()
		for _, pattern := range f.LastNamePatterns {
			sub.Or("last_name", "^"+regexp.QuoteMeta(pattern), query.Regex("i"))
		}
		qm.AndModel(sub)
	}
	if len(f.FirstNames) > 0 {
		qm.And("first_name", f.FirstNames, query.In)
	}
	if len(f.Abbreviations) > 0 {
		sub := query.New()
		for _, abbrev := range f.Abbreviations {
			sub.OrModel(abbreviationModel(abbrev))
		}
		qm.AndModel(sub)
	}
	return qm.Constraint()
}

// abbreviationModel expands one "F.Last [Suffix]" label into name-pattern
// predicates. An unparseable label yields a constraint matching nothing, so
// a bad abbreviation never widens the result set.
func abbreviationModel(abbrev string) *query.Model {
	firstPat, lastPat, ok := abbreviationPatterns(abbrev)
	if !ok {
		return query.New().Start("last_name", []string{}, query.In)
	}
	return query.New().
		Start("last_name", lastPat, query.Regex("i")).
		And("first_name", firstPat, query.Regex("i"))
}

// abbreviationPatterns parses "F.Last" or "F.Last Suffix" into prefix
// anchored patterns. Suffix tokens become optional trailing groups on the
// last-name pattern.
func abbreviationPatterns(abbrev string) (firstPat, lastPat string, ok bool) {
	s := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(abbrev))), " ")
	dot := strings.Index(s, ".")
	if dot <= 0 {
		return "", "", false
	}

	initial := strings.TrimSpace(s[:dot])
	rest := strings.TrimSpace(s[dot+1:])
	if initial == "" || rest == "" {
		return "", "", false
	}

	tokens := strings.Fields(rest)
	lastPat = "^" + regexp.QuoteMeta(tokens[0])
	for _, suffix := range tokens[1:] {
		lastPat += "( " + regexp.QuoteMeta(suffix) + ")?"
	}
	firstPat = "^" + regexp.QuoteMeta(initial)
	return firstPat, lastPat, true
}

// applyPreviousTeams merges each incoming record's team history with the
// stored record sharing its profile id. A team change appends the old team;
// an unchanged team still carries the stored history forward.
func applyPreviousTeams(ctx context.Context, st store.Store, entityName string, records []store.Record) error {
	ids := make([]any, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		key, ok := profileKey(rec)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ids = append(ids, rec["profile_id"])
	}
	if len(ids) == 0 {
		return nil
	}

	existing, err := st.Find(ctx, entityName,
		query.New().Start("profile_id", ids, query.In).Constraint(),
		query.New().Include("profile_id", "team", "previous_teams").Select())
	if err != nil {
		return err
	}

	byProfile := make(map[string]store.Record, len(existing))
	for _, rec := range existing {
		if key, ok := profileKey(rec); ok {
			byProfile[key] = rec
		}
	}

	for _, rec := range records {
		key, ok := profileKey(rec)
		if !ok {
			continue
		}
		prior, ok := byProfile[key]
		if !ok {
			continue
		}

		history := unionTeams(toStringSlice(prior["previous_teams"]), toStringSlice(rec["previous_teams"])...)
		oldTeam := stringField(prior, "team")
		if oldTeam != "" && oldTeam != stringField(rec, "team") {
			history = unionTeams(history, oldTeam)
		}
		if len(history) > 0 {
			rec["previous_teams"] = history
		}
	}
	return nil
}

package sync

import (
	"context"
	stdsync "sync"
	"strings"

	"github.com/gridstats/nfldb/internal/platform/cache"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/store"
)

const abbrevField = "player_abrv_name"

// Resolver matches free-text "F.Last" player labels against roster records
// to recover stable profile ids. Unresolvable labels never abort a batch;
// they land in the miss or ambiguity set, keyed "abbreviation/team", for
// offline review.
type Resolver struct {
	rosters *RosterManager
	cache   *cache.Store
	logger  *logging.Logger

	mu        stdsync.Mutex
	misses    map[string]store.Record
	ambiguous map[string]store.Record
}

func NewResolver(rosters *RosterManager, lookupCache *cache.Store, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		rosters:   rosters,
		cache:     lookupCache,
		logger:    logger,
		misses:    make(map[string]store.Record),
		ambiguous: make(map[string]store.Record),
	}
}

// Resolve attempts to set profile_id on the record from its abbreviation and
// team. It reports whether a unique match was found; lookup errors from the
// store propagate, resolution failures do not.
func (r *Resolver) Resolve(ctx context.Context, rec store.Record) (bool, error) {
	abbrev := strings.TrimSpace(stringField(rec, abbrevField))
	team := strings.TrimSpace(stringField(rec, "team"))
	if abbrev == "" {
		return false, nil
	}

	passes := []PlayerFilter{
		{Teams: teamList(team), Abbreviations: []string{abbrev}},
		{Teams: teamList(team), Abbreviations: []string{abbrev}, IncludePreviousTeams: true},
	}
	if last, ok := bareLastName(abbrev); ok {
		passes = append(passes, PlayerFilter{
			Teams:                teamList(team),
			LastNamePatterns:     []string{last},
			IncludePreviousTeams: true,
		})
	}

	for _, filter := range passes {
		matches, err := r.lookup(ctx, filter)
		if err != nil {
			return false, err
		}
		switch len(matches) {
		case 0:
			continue
		case 1:
			rec["profile_id"] = matches[0]["profile_id"]
			return true, nil
		default:
			r.record(r.ambiguous, abbrev, team, rec)
			return false, nil
		}
	}

	r.record(r.misses, abbrev, team, rec)
	return false, nil
}

// Misses returns a copy of the unresolved-abbreviation set.
func (r *Resolver) Misses() map[string]store.Record {
	return r.snapshot(r.misses)
}

// Ambiguous returns a copy of the multi-match abbreviation set.
func (r *Resolver) Ambiguous() map[string]store.Record {
	return r.snapshot(r.ambiguous)
}

func (r *Resolver) lookup(ctx context.Context, filter PlayerFilter) ([]store.Record, error) {
	if r.cache == nil {
		return r.rosters.FindPlayers(ctx, filter)
	}

	out, err := r.cache.GetOrLoad(ctx, filterKey(filter), func(ctx context.Context) (any, error) {
		return r.rosters.FindPlayers(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	records, _ := out.([]store.Record)
	return records, nil
}

func (r *Resolver) record(set map[string]store.Record, abbrev, team string, rec store.Record) {
	key := abbrev + "/" + team
	r.mu.Lock()
	if _, ok := set[key]; !ok {
		set[key] = rec
	}
	r.mu.Unlock()
}

func (r *Resolver) snapshot(set map[string]store.Record) map[string]store.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]store.Record, len(set))
	for k, v := range set {
		out[k] = v
	}
	return out
}

func teamList(team string) []string {
	if team == "" {
		return nil
	}
	return []string{team}
}

// bareLastName strips the leading initial from an abbreviation, leaving the
// last-name token for the final lookup pass.
func bareLastName(abbrev string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(abbrev))
	if dot := strings.Index(s, "."); dot >= 0 {
		s = s[dot+1:]
	}
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return "", false
	}
	return tokens[0], true
}

func filterKey(f PlayerFilter) string {
	parts := []string{
		strings.Join(f.Teams, ","),
		strings.Join(f.LastNames, ","),
		strings.Join(f.LastNamePatterns, ","),
		strings.Join(f.FirstNames, ","),
		strings.Join(f.Abbreviations, ","),
	}
	key := strings.Join(parts, "|")
	if f.IncludePreviousTeams {
		key += "|prev"
	}
	return key
}

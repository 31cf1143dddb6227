package entity

// Type is the semantic column type used for value coercion at save time.
type Type string

const (
	Int      Type = "int"
	Float    Type = "float"
	DateTime Type = "datetime"
	String   Type = "string"
	List     Type = "list"
	Bool     Type = "bool"
)

// Entity names. The process entities hold sync cursor documents and carry no
// descriptor.
const (
	Team                 = "team"
	Schedule             = "schedule"
	Roster               = "roster"
	PlayerProfile        = "player_profile"
	PlayerGamelog        = "player_gamelog"
	GameSummary          = "game_summary"
	GameScore            = "game_score"
	GameDrive            = "game_drive"
	GamePlay             = "game_play"
	ScheduleProcess      = "schedule_process"
	PlayerGamelogProcess = "player_gamelog_process"
)

// Descriptor declares an entity's primary key, secondary indexes and typed
// columns. Key order is preserved: the physical unique index is created over
// Key in declared order, and key discovery must reproduce it.
type Descriptor struct {
	Name    string
	Key     []string
	Indexed []string
	Columns map[string]Type
}

// ColumnType reports the declared type of a column, if any.
func (d *Descriptor) ColumnType(name string) (Type, bool) {
	t, ok := d.Columns[name]
	return t, ok
}

var registry = map[string]*Descriptor{
	Schedule: {
		Name:    Schedule,
		Key:     []string{"gsis_id"},
		Indexed: []string{"season", "season_type", "week", "finished"},
		Columns: map[string]Type{
			"gsis_id":         String,
			"season":          Int,
			"season_type":     String,
			"week":            Int,
			"finished":        Bool,
			"home_team_score": Int,
			"away_team_score": Int,
			"date":            DateTime,
		},
	},
	Roster: {
		Name:    Roster,
		Key:     []string{"profile_id"},
		Indexed: []string{"last_name", "first_name", "team", "position", "previous_teams"},
		Columns: map[string]Type{
			"profile_id":     Int,
			"last_name":      String,
			"first_name":     String,
			"team":           String,
			"position":       String,
			"number":         Int,
			"weight":         Int,
			"birthdate":      DateTime,
			"exp":            Int,
			"previous_teams": List,
		},
	},
	PlayerProfile: {
		Name:    PlayerProfile,
		Key:     []string{"profile_id"},
		Indexed: []string{"last_name", "first_name", "team", "position", "previous_teams"},
		Columns: map[string]Type{
			"profile_id":     Int,
			"last_name":      String,
			"first_name":     String,
			"team":           String,
			"position":       String,
			"number":         Int,
			"weight":         Int,
			"age":            Int,
			"previous_teams": List,
		},
	},
	PlayerGamelog: {
		Name:    PlayerGamelog,
		Key:     []string{"profile_id", "season", "season_type", "wk"},
		Indexed: []string{"previous_teams"},
		Columns: map[string]Type{
			"profile_id":     Int,
			"season":         Int,
			"season_type":    String,
			"wk":             Int,
			"game_date":      DateTime,
			"previous_teams": List,
		},
	},
	GamePlay: {
		Name:    GamePlay,
		Key:     []string{"gsis_id", "drive_id", "play_id", "sequence"},
		Indexed: []string{"team", "player_id", "profile_id", "stat_id", "stat_cat"},
		Columns: map[string]Type{
			"gsis_id":    String,
			"drive_id":   Int,
			"play_id":    Int,
			"sequence":   Int,
			"team":       String,
			"player_id":  String,
			"profile_id": Int,
			"stat_id":    Int,
			"stat_cat":   String,
		},
	},
}

// Lookup returns the descriptor for an entity name, or nil when the entity
// carries no declared metadata. Callers must treat a nil descriptor as
// "no coercion, natural key from the store's index catalog".
func Lookup(name string) *Descriptor {
	return registry[name]
}

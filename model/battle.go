package model

// 对战状态
const (
	BattleStatusWaiting   int8 = 0
	BattleStatusActive    int8 = 1
	BattleStatusCompleted int8 = 2
)

// 获胜策略
const (
	WinConditionFirstSolve  = "first_solve"
	WinConditionTotalSolves = "total_solves"
)

// 题目确定方式
const (
	ProblemModeCustom = "custom"
	ProblemModeRating = "rating"
)

const (
	TeamA = "A"
	TeamB = "B"

	MaxTeamSize      = 4
	MaxBattlePlayers = 8
)

type Battle struct {
	CommonModel
	JoinCode        string `gorm:"column:join_code;type:varchar(16);not null;uniqueIndex:uk_battle_join_code;comment:加入码"`
	DurationSeconds int64  `gorm:"column:duration_seconds;type:bigint;not null;comment:时长(秒)"`
	ProblemCount    int    `gorm:"column:problem_count;type:int;not null;comment:题目数量"`
	WinCondition    string `gorm:"column:win_condition;type:varchar(32);not null;comment:获胜策略"`
	Status          int8   `gorm:"column:status;type:tinyint;default:0;index:idx_battle_status;comment:状态(0等待,1进行中,2已结束)"`
	StartTime       int64  `gorm:"column:start_time;type:bigint;default:0;comment:开始时间戳"`
	EndTime         int64  `gorm:"column:end_time;type:bigint;default:0;index:idx_battle_end_time;comment:结束时间戳(开始时固定)"`
	WinningTeam     string `gorm:"column:winning_team;type:varchar(4);default:'';comment:获胜队伍(A/B/空为平局或未定)"`
	CreatorID       int64  `gorm:"column:creator_id;type:bigint;not null;index:idx_battle_creator_id;comment:创建人ID"`
}

func (b *Battle) TableName() string {
	return "battles"
}

type BattlePlayer struct {
	CommonModel
	BattleID  int64  `gorm:"column:battle_id;type:bigint;not null;uniqueIndex:uk_battle_player_user,priority:1;uniqueIndex:uk_battle_player_slot,priority:1;index:idx_battle_player_battle_id;comment:对战ID"`
	UserID    int64  `gorm:"column:user_id;type:bigint;not null;uniqueIndex:uk_battle_player_user,priority:2;index:idx_battle_player_user_id;comment:玩家ID"`
	Username  string `gorm:"column:username;type:varchar(100);not null;comment:昵称"`
	Handle    string `gorm:"column:handle;type:varchar(100);not null;comment:Codeforces账号"`
	Rating    int    `gorm:"column:rating;type:int;default:0;comment:加入时rating快照"`
	Team      string `gorm:"column:team;type:varchar(4);not null;uniqueIndex:uk_battle_player_slot,priority:2;comment:队伍(A/B)"`
	Position  int    `gorm:"column:position;type:int;not null;uniqueIndex:uk_battle_player_slot,priority:3;comment:队内位置(0-3)"`
	IsCreator bool   `gorm:"column:is_creator;type:tinyint(1);default:0;comment:是否创建者"`
}

func (p *BattlePlayer) TableName() string {
	return "battle_players"
}

type BattleProblem struct {
	CommonModel
	BattleID     int64  `gorm:"column:battle_id;type:bigint;not null;uniqueIndex:uk_battle_problem_index,priority:1;comment:对战ID"`
	ProblemIndex int    `gorm:"column:problem_index;type:int;not null;uniqueIndex:uk_battle_problem_index,priority:2;comment:题目序号(0起)"`
	Points       int    `gorm:"column:points;type:int;not null;comment:分值"`
	ResolveMode  string `gorm:"column:resolve_mode;type:varchar(16);not null;comment:选题方式(custom/rating)"`
	CustomURL    string `gorm:"column:custom_url;type:varchar(255);default:'';comment:自选题目链接"`
	MinRating    int    `gorm:"column:min_rating;type:int;default:0;comment:随机选题难度下限"`
	MaxRating    int    `gorm:"column:max_rating;type:int;default:0;comment:随机选题难度上限"`
	ContestID    int    `gorm:"column:contest_id;type:int;default:0;index:idx_battle_problem_contest;comment:CF比赛ID"`
	ProblemKey   string `gorm:"column:problem_key;type:varchar(16);default:'';comment:CF题目编号(如A,B1)"`
	Name         string `gorm:"column:name;type:varchar(255);default:'';comment:题目名称缓存"`
	Rating       int    `gorm:"column:rating;type:int;default:0;comment:题目难度缓存"`
	SolvedBy     string `gorm:"column:solved_by;type:varchar(4);default:'';comment:首个解出队伍(A/B/空)"`
	SolverID     int64  `gorm:"column:solver_id;type:bigint;default:0;comment:解出者ID"`
	SolverName   string `gorm:"column:solver_name;type:varchar(100);default:'';comment:解出者昵称"`
	SolvedAt     int64  `gorm:"column:solved_at;type:bigint;default:0;comment:解出时间戳"`
}

func (p *BattleProblem) TableName() string {
	return "battle_problems"
}

type BattleAttempt struct {
	CommonModel
	BattleID     int64  `gorm:"column:battle_id;type:bigint;not null;uniqueIndex:uk_battle_attempt_submission,priority:1;comment:对战ID"`
	UserID       int64  `gorm:"column:user_id;type:bigint;not null;index:idx_battle_attempt_user_id;comment:玩家ID"`
	ProblemIndex int    `gorm:"column:problem_index;type:int;not null;comment:题目序号"`
	SubmissionID int64  `gorm:"column:submission_id;type:bigint;not null;uniqueIndex:uk_battle_attempt_submission,priority:2;comment:CF提交ID"`
	Verdict      string `gorm:"column:verdict;type:varchar(64);not null;comment:评测结果"`
	SubmittedAt  int64  `gorm:"column:submitted_at;type:bigint;not null;comment:提交时间戳"`
}

func (a *BattleAttempt) TableName() string {
	return "battle_attempts"
}

// BattleSolve 个人过题记录，仅total_solves策略使用
type BattleSolve struct {
	CommonModel
	BattleID     int64  `gorm:"column:battle_id;type:bigint;not null;uniqueIndex:uk_battle_solve_player,priority:1;comment:对战ID"`
	ProblemIndex int    `gorm:"column:problem_index;type:int;not null;uniqueIndex:uk_battle_solve_player,priority:2;comment:题目序号"`
	UserID       int64  `gorm:"column:user_id;type:bigint;not null;uniqueIndex:uk_battle_solve_player,priority:3;comment:玩家ID"`
	Team         string `gorm:"column:team;type:varchar(4);not null;index:idx_battle_solve_team;comment:队伍"`
	Points       int    `gorm:"column:points;type:int;not null;comment:分值"`
	SolvedAt     int64  `gorm:"column:solved_at;type:bigint;not null;comment:解出时间戳"`
}

func (s *BattleSolve) TableName() string {
	return "battle_solves"
}

package types

import "time"

// BattleSnapshot 内存镜像中的对战快照，只允许通过镜像操作修改。
// Version在每次变更时自增，用于前端与调试判断新旧。
type BattleSnapshot struct {
	Version         int64                 `json:"version"`
	BattleID        int64                 `json:"battle_id,string"`
	JoinCode        string                `json:"join_code"`
	Status          int8                  `json:"status"`
	WinCondition    string                `json:"win_condition"`
	DurationSeconds int64                 `json:"duration_seconds"`
	StartTime       int64                 `json:"start_time"`
	EndTime         int64                 `json:"end_time"`
	WinningTeam     string                `json:"winning_team"`
	CreatorID       int64                 `json:"creator_id,string"`
	CreatedAt       time.Time             `json:"created_at"`
	Players         []BattlePlayerInfo    `json:"players"`
	Problems        []BattleProblemInfo   `json:"problems"`
}

type BattlePlayerInfo struct {
	UserID    int64  `json:"user_id,string"`
	Username  string `json:"username"`
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	Team      string `json:"team"`
	Position  int    `json:"position"`
	IsCreator bool   `json:"is_creator"`
	JoinAt    int64  `json:"join_at"`
}

type BattleProblemInfo struct {
	ProblemIndex int    `json:"problem_index"`
	Points       int    `json:"points"`
	ResolveMode  string `json:"resolve_mode"`
	CustomURL    string `json:"custom_url,omitempty"`
	MinRating    int    `json:"min_rating,omitempty"`
	MaxRating    int    `json:"max_rating,omitempty"`
	ContestID    int    `json:"contest_id"`
	ProblemKey   string `json:"problem_key"`
	Name         string `json:"name"`
	Rating       int    `json:"rating"`
	SolvedBy     string `json:"solved_by"`
	SolverID     int64  `json:"solver_id,string"`
	SolverName   string `json:"solver_name"`
	SolvedAt     int64  `json:"solved_at"`
}

// Clone 深拷贝快照，镜像对外只暴露副本
func (s *BattleSnapshot) Clone() *BattleSnapshot {
	if s == nil {
		return nil
	}
	copied := *s
	copied.Players = make([]BattlePlayerInfo, len(s.Players))
	copy(copied.Players, s.Players)
	copied.Problems = make([]BattleProblemInfo, len(s.Problems))
	copy(copied.Problems, s.Problems)
	return &copied
}

// TeamCounts 双方当前人数
func (s *BattleSnapshot) TeamCounts() (int, int) {
	var aCount, bCount int
	for _, p := range s.Players {
		if p.Team == "A" {
			aCount++
		} else {
			bCount++
		}
	}
	return aCount, bCount
}

// UnsolvedCount 尚无归属的题目数
func (s *BattleSnapshot) UnsolvedCount() int {
	count := 0
	for _, p := range s.Problems {
		if p.SolvedBy == "" {
			count++
		}
	}
	return count
}

type BattleProblemSpec struct {
	Points    int    `json:"points" form:"points"`
	Mode      string `json:"mode" form:"mode"`
	CustomURL string `json:"custom_url" form:"custom_url"`
	MinRating int    `json:"min_rating" form:"min_rating"`
	MaxRating int    `json:"max_rating" form:"max_rating"`
}

type BattleCreateReq struct {
	DurationMinutes int                 `json:"duration_minutes" form:"duration_minutes"`
	WinCondition    string              `json:"win_condition" form:"win_condition"`
	Problems        []BattleProblemSpec `json:"problems"`
}

type BattleCreateResp struct {
	Battle BattleSnapshot `json:"battle"`
}

type BattleInfoReq struct {
	BattleID string `form:"battle_id" json:"battle_id"`
	JoinCode string `form:"join_code" json:"join_code"`
}

type BattleInfoResp struct {
	Battle BattleSnapshot `json:"battle"`
}

type BattleListReq struct {
	Page   int   `form:"page" json:"page"`
	Limit  int   `form:"limit" json:"limit"`
	Status *int8 `form:"status" json:"status"`
}

type BattleListItem struct {
	BattleID     int64     `json:"battle_id,string"`
	JoinCode     string    `json:"join_code"`
	Status       int8      `json:"status"`
	WinCondition string    `json:"win_condition"`
	CreatedAt    time.Time `json:"created_at"`
	EndTime      int64     `json:"end_time"`
	PlayerCount  int       `json:"player_count"`
	ProblemCount int       `json:"problem_count"`
}

type BattleListResp struct {
	Total   int64            `json:"total"`
	Battles []BattleListItem `json:"battles"`
}

type BattleJoinReq struct {
	JoinCode string `json:"join_code" form:"join_code"`
}

type BattleActionReq struct {
	BattleID string `json:"battle_id" form:"battle_id"`
}

type BattleMoveReq struct {
	BattleID string `json:"battle_id" form:"battle_id"`
	Team     string `json:"team" form:"team"`
	Position int    `json:"position" form:"position"`
}

type BattleRemoveReq struct {
	BattleID     string `json:"battle_id" form:"battle_id"`
	TargetUserID string `json:"target_user_id" form:"target_user_id"`
}

type BattleStats struct {
	TeamAScore       int   `json:"team_a_score"`
	TeamBScore       int   `json:"team_b_score"`
	TeamASolved      int   `json:"team_a_solved"`
	TeamBSolved      int   `json:"team_b_solved"`
	TeamALastSolveAt int64 `json:"team_a_last_solve_at,omitempty"`
	TeamBLastSolveAt int64 `json:"team_b_last_solve_at,omitempty"`
}

type BattleStatsResp struct {
	Stats BattleStats `json:"stats"`
}

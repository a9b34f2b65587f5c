package logic

import (
	"context"

	"cfbattle/model"
	"cfbattle/types"
)

// BattleStore 持久层接口，由repo.BattleRepo实现。
// 逻辑层只依赖接口，测试注入内存假实现。
type BattleStore interface {
	Create(battle *model.Battle, creator *model.BattlePlayer, problems []model.BattleProblem) error
	GetByID(id int64) (model.Battle, error)
	GetByJoinCode(code string) (model.Battle, error)
	GetFull(id int64) (model.Battle, []model.BattlePlayer, []model.BattleProblem, error)
	GetActiveByUser(userID int64) (model.Battle, error)
	List(offset, limit int, status *int8) ([]model.Battle, int64, error)
	ListActive() ([]model.Battle, error)
	CreatePlayer(player *model.BattlePlayer) error
	DeletePlayer(battleID, userID int64) (int64, error)
	ListPlayers(battleID int64) ([]model.BattlePlayer, error)
	CountTeamPlayers(battleID int64) (int64, int64, error)
	UpdatePlayerSlot(battleID, userID int64, team string, position int) error
	TransferCreator(battleID, newCreatorID int64) error
	Activate(id, startTime, endTime int64) (bool, error)
	SaveProblem(problem *model.BattleProblem) error
	Complete(id int64, winningTeam string) (bool, error)
	Delete(id int64) error
	MarkProblemSolved(battleID int64, problemIndex int, team string, solverID int64, solverName string, solvedAt int64) (bool, error)
	CreateAttempt(attempt *model.BattleAttempt) (bool, error)
	CreateSolve(solve *model.BattleSolve) (bool, error)
	ListSolves(battleID int64) ([]model.BattleSolve, error)
	ListAttempts(battleID int64) ([]model.BattleAttempt, error)
}

// UserStore 用户查询接口，由repo.UserRepo实现
type UserStore interface {
	GetByID(id int64) (model.User, error)
}

// ProblemPicker 题库接口，由repo.CodeforcesProblemRepo实现
type ProblemPicker interface {
	GetRandomByDifficulty(minDifficulty, maxDifficulty int, excludeIDs []string) (model.CodeforcesProblem, error)
	GetByID(id string) (model.CodeforcesProblem, error)
}

// SubmissionFetcher 提交查询接口，由CfGateway实现
type SubmissionFetcher interface {
	UserStatus(ctx context.Context, handle string, count int, opts CfRequestOpts) ([]CfSubmission, error)
	ContestStatus(ctx context.Context, contestID int, count int, opts CfRequestOpts) ([]CfSubmission, error)
}

// Publisher 实时推送接口，由WsHub实现
type Publisher interface {
	SendToBattle(battleID int64, resp types.WsResponse)
	SendToUser(userID int64, resp types.WsResponse)
}

package repo

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cfbattle/model"
)

type BattleRepo struct {
	DB *gorm.DB
}

func NewBattleRepo(db *gorm.DB) *BattleRepo {
	return &BattleRepo{DB: db}
}

// Create 事务内写入对战及其子记录
func (r *BattleRepo) Create(battle *model.Battle, creator *model.BattlePlayer, problems []model.BattleProblem) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(battle).Error; err != nil {
			return err
		}
		creator.BattleID = battle.ID
		if err := tx.Create(creator).Error; err != nil {
			return err
		}
		for i := range problems {
			problems[i].BattleID = battle.ID
		}
		if len(problems) > 0 {
			if err := tx.Create(&problems).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *BattleRepo) GetByID(id int64) (model.Battle, error) {
	var battle model.Battle
	err := r.DB.Where("id = ?", id).First(&battle).Error
	return battle, err
}

func (r *BattleRepo) GetByJoinCode(code string) (model.Battle, error) {
	var battle model.Battle
	err := r.DB.Where("join_code = ?", code).First(&battle).Error
	return battle, err
}

// GetFull 取对战聚合（对战+玩家+题目）
func (r *BattleRepo) GetFull(id int64) (model.Battle, []model.BattlePlayer, []model.BattleProblem, error) {
	battle, err := r.GetByID(id)
	if err != nil {
		return battle, nil, nil, err
	}
	var players []model.BattlePlayer
	if err := r.DB.Where("battle_id = ?", id).Order("team asc, position asc").Find(&players).Error; err != nil {
		return battle, nil, nil, err
	}
	var problems []model.BattleProblem
	if err := r.DB.Where("battle_id = ?", id).Order("problem_index asc").Find(&problems).Error; err != nil {
		return battle, players, nil, err
	}
	return battle, players, problems, nil
}

// GetActiveByUser 取用户所在的未结束对战
func (r *BattleRepo) GetActiveByUser(userID int64) (model.Battle, error) {
	var battle model.Battle
	err := r.DB.
		Joins("JOIN battle_players ON battle_players.battle_id = battles.id").
		Where("battle_players.user_id = ? AND battles.status <> ?", userID, model.BattleStatusCompleted).
		Order("battles.created_at desc").
		First(&battle).Error
	return battle, err
}

func (r *BattleRepo) List(offset, limit int, status *int8) ([]model.Battle, int64, error) {
	query := r.DB.Model(&model.Battle{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	var battles []model.Battle
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&battles).Error
	return battles, count, err
}

func (r *BattleRepo) ListActive() ([]model.Battle, error) {
	var battles []model.Battle
	err := r.DB.Where("status = ?", model.BattleStatusActive).Order("created_at asc").Find(&battles).Error
	return battles, err
}

func (r *BattleRepo) CreatePlayer(player *model.BattlePlayer) error {
	return r.DB.Create(player).Error
}

// DeletePlayer 返回实际删除的行数，0表示玩家本就不在对战中
func (r *BattleRepo) DeletePlayer(battleID, userID int64) (int64, error) {
	result := r.DB.Where("battle_id = ? AND user_id = ?", battleID, userID).Delete(&model.BattlePlayer{})
	return result.RowsAffected, result.Error
}

func (r *BattleRepo) ListPlayers(battleID int64) ([]model.BattlePlayer, error) {
	var players []model.BattlePlayer
	err := r.DB.Where("battle_id = ?", battleID).Order("team asc, position asc").Find(&players).Error
	return players, err
}

// CountTeamPlayers 统计双方队伍当前人数
func (r *BattleRepo) CountTeamPlayers(battleID int64) (int64, int64, error) {
	var aCount, bCount int64
	if err := r.DB.Model(&model.BattlePlayer{}).
		Where("battle_id = ? AND team = ?", battleID, model.TeamA).Count(&aCount).Error; err != nil {
		return 0, 0, err
	}
	if err := r.DB.Model(&model.BattlePlayer{}).
		Where("battle_id = ? AND team = ?", battleID, model.TeamB).Count(&bCount).Error; err != nil {
		return 0, 0, err
	}
	return aCount, bCount, nil
}

func (r *BattleRepo) UpdatePlayerSlot(battleID, userID int64, team string, position int) error {
	return r.DB.Model(&model.BattlePlayer{}).
		Where("battle_id = ? AND user_id = ?", battleID, userID).
		Updates(map[string]interface{}{
			"team":     team,
			"position": position,
		}).Error
}

// TransferCreator 创建者离开后移交房主
func (r *BattleRepo) TransferCreator(battleID, newCreatorID int64) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Battle{}).Where("id = ?", battleID).
			Update("creator_id", newCreatorID).Error; err != nil {
			return err
		}
		return tx.Model(&model.BattlePlayer{}).
			Where("battle_id = ? AND user_id = ?", battleID, newCreatorID).
			Update("is_creator", true).Error
	})
}

// Activate 等待中的对战转为进行中，end_time只在此处写入一次
func (r *BattleRepo) Activate(id, startTime, endTime int64) (bool, error) {
	result := r.DB.Model(&model.Battle{}).
		Where("id = ? AND status = ?", id, model.BattleStatusWaiting).
		Updates(map[string]interface{}{
			"status":     model.BattleStatusActive,
			"start_time": startTime,
			"end_time":   endTime,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *BattleRepo) SaveProblem(problem *model.BattleProblem) error {
	return r.DB.Model(&model.BattleProblem{}).
		Where("id = ?", problem.ID).
		Updates(map[string]interface{}{
			"contest_id":  problem.ContestID,
			"problem_key": problem.ProblemKey,
			"name":        problem.Name,
			"rating":      problem.Rating,
		}).Error
}

// Complete 进行中的对战转为已结束，返回是否由本次调用完成。end_time在开始时已固定，此处不改写
func (r *BattleRepo) Complete(id int64, winningTeam string) (bool, error) {
	result := r.DB.Model(&model.Battle{}).
		Where("id = ? AND status = ?", id, model.BattleStatusActive).
		Updates(map[string]interface{}{
			"status":       model.BattleStatusCompleted,
			"winning_team": winningTeam,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete 级联删除对战及全部子记录
func (r *BattleRepo) Delete(id int64) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("battle_id = ?", id).Delete(&model.BattlePlayer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("battle_id = ?", id).Delete(&model.BattleProblem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("battle_id = ?", id).Delete(&model.BattleAttempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("battle_id = ?", id).Delete(&model.BattleSolve{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Battle{}).Error
	})
}

// MarkProblemSolved 条件更新：仅当solved_by仍为空时写入，保证一题只记一队
func (r *BattleRepo) MarkProblemSolved(battleID int64, problemIndex int, team string, solverID int64, solverName string, solvedAt int64) (bool, error) {
	result := r.DB.Model(&model.BattleProblem{}).
		Where("battle_id = ? AND problem_index = ? AND solved_by = ''", battleID, problemIndex).
		Updates(map[string]interface{}{
			"solved_by":   team,
			"solver_id":   solverID,
			"solver_name": solverName,
			"solved_at":   solvedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateAttempt 依赖(battle_id,submission_id)唯一索引去重，重复轮询幂等
func (r *BattleRepo) CreateAttempt(attempt *model.BattleAttempt) (bool, error) {
	result := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(attempt)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateSolve 依赖(battle_id,problem_index,user_id)唯一索引，一人一题只记一次
func (r *BattleRepo) CreateSolve(solve *model.BattleSolve) (bool, error) {
	result := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(solve)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *BattleRepo) ListSolves(battleID int64) ([]model.BattleSolve, error) {
	var solves []model.BattleSolve
	err := r.DB.Where("battle_id = ?", battleID).Order("solved_at asc").Find(&solves).Error
	return solves, err
}

func (r *BattleRepo) ListAttempts(battleID int64) ([]model.BattleAttempt, error) {
	var attempts []model.BattleAttempt
	err := r.DB.Where("battle_id = ?", battleID).Order("submitted_at asc").Find(&attempts).Error
	return attempts, err
}

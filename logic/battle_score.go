package logic

import (
	"cfbattle/model"
	"cfbattle/types"
)

// ComputeBattleStats 按当前状态计算双方得分，任何生命周期阶段均可调用。
// first_solve策略按题目归属计分；total_solves策略按个人过题记录计分。
func ComputeBattleStats(snapshot *types.BattleSnapshot, solves []model.BattleSolve) types.BattleStats {
	var stats types.BattleStats
	if snapshot == nil {
		return stats
	}
	switch snapshot.WinCondition {
	case model.WinConditionTotalSolves:
		for _, s := range solves {
			if s.Team == model.TeamA {
				stats.TeamAScore += s.Points
				stats.TeamASolved++
				if s.SolvedAt > stats.TeamALastSolveAt {
					stats.TeamALastSolveAt = s.SolvedAt
				}
			} else {
				stats.TeamBScore += s.Points
				stats.TeamBSolved++
				if s.SolvedAt > stats.TeamBLastSolveAt {
					stats.TeamBLastSolveAt = s.SolvedAt
				}
			}
		}
	default:
		for _, p := range snapshot.Problems {
			switch p.SolvedBy {
			case model.TeamA:
				stats.TeamAScore += p.Points
				stats.TeamASolved++
				if p.SolvedAt > stats.TeamALastSolveAt {
					stats.TeamALastSolveAt = p.SolvedAt
				}
			case model.TeamB:
				stats.TeamBScore += p.Points
				stats.TeamBSolved++
				if p.SolvedAt > stats.TeamBLastSolveAt {
					stats.TeamBLastSolveAt = p.SolvedAt
				}
			}
		}
	}
	return stats
}

// ResolveWinner 结算获胜队伍，返回空串表示平局。
// total_solves同分时比较双方最近一次过题时间，更早者胜；
// 一方有过题另一方没有时，有过题的一方胜。
func ResolveWinner(snapshot *types.BattleSnapshot, solves []model.BattleSolve) string {
	stats := ComputeBattleStats(snapshot, solves)
	if stats.TeamAScore > stats.TeamBScore {
		return model.TeamA
	}
	if stats.TeamBScore > stats.TeamAScore {
		return model.TeamB
	}
	if snapshot != nil && snapshot.WinCondition == model.WinConditionTotalSolves {
		if stats.TeamASolved > 0 && stats.TeamBSolved == 0 {
			return model.TeamA
		}
		if stats.TeamBSolved > 0 && stats.TeamASolved == 0 {
			return model.TeamB
		}
		if stats.TeamASolved == 0 && stats.TeamBSolved == 0 {
			return ""
		}
		if stats.TeamALastSolveAt < stats.TeamBLastSolveAt {
			return model.TeamA
		}
		if stats.TeamBLastSolveAt < stats.TeamALastSolveAt {
			return model.TeamB
		}
	}
	return ""
}

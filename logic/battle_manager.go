package logic

import (
	"context"
	"strings"
	"sync"
	"time"

	"cfbattle/global"
	"cfbattle/log/zlog"
	"cfbattle/model"
	"cfbattle/repo"
	"cfbattle/response"
	"cfbattle/types"
)

// 结束原因
const (
	FinishReasonExpiry     = "expiry"
	FinishReasonExhaustion = "exhaustion"
	FinishReasonForfeit    = "forfeit"
)

// BattleManager 活跃对战的轮询引擎：每场活跃对战一个定时worker，
// 从网关拉取提交并把新检测到的过题原子地写入持久层，再反映到镜像。
type BattleManager struct {
	mu      sync.Mutex
	workers map[int64]*battleWorker

	store        BattleStore
	mirror       *BattleMirror
	fetcher      SubmissionFetcher
	hub          Publisher
	cache        *BattleCache
	pollInterval time.Duration
}

type battleWorker struct {
	manager  *BattleManager
	battleID int64
	stopCh   chan struct{}
}

var battleManagerOnce sync.Once
var battleManager *BattleManager

func GetBattleManager() *BattleManager {
	battleManagerOnce.Do(func() {
		interval := 10 * time.Second
		if global.Config != nil {
			interval = global.Config.Battle.PollInterval()
		}
		battleManager = NewBattleManager(
			repo.NewBattleRepo(global.DB),
			GetBattleMirror(),
			GetCfGateway(),
			GetWsHub(),
			GetBattleCache(),
			interval,
		)
	})
	return battleManager
}

func NewBattleManager(store BattleStore, mirror *BattleMirror, fetcher SubmissionFetcher, hub Publisher, cache *BattleCache, pollInterval time.Duration) *BattleManager {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &BattleManager{
		workers:      make(map[int64]*battleWorker),
		store:        store,
		mirror:       mirror,
		fetcher:      fetcher,
		hub:          hub,
		cache:        cache,
		pollInterval: pollInterval,
	}
}

// StartBattle 为对战挂起轮询worker，重复启动无效果
func (m *BattleManager) StartBattle(battleID int64) {
	m.mu.Lock()
	if _, ok := m.workers[battleID]; ok {
		m.mu.Unlock()
		return
	}
	worker := &battleWorker{
		manager:  m,
		battleID: battleID,
		stopCh:   make(chan struct{}),
	}
	m.workers[battleID] = worker
	m.mu.Unlock()
	go worker.run()
}

// StopBattle 幂等：取消worker并在同一步从注册表移除
func (m *BattleManager) StopBattle(battleID int64) {
	m.mu.Lock()
	worker, ok := m.workers[battleID]
	if ok {
		close(worker.stopCh)
		delete(m.workers, battleID)
	}
	m.mu.Unlock()
}

// Running 是否存在该对战的worker，测试与调试用
func (m *BattleManager) Running(battleID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.workers[battleID]
	return ok
}

func (w *battleWorker) run() {
	ticker := time.NewTicker(w.manager.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.manager.pollOnce(w.battleID)
		case <-w.stopCh:
			return
		}
	}
}

// loadSnapshot 镜像优先，未命中时从持久层重建
func (m *BattleManager) loadSnapshot(battleID int64) (*types.BattleSnapshot, bool) {
	if snapshot, ok := m.mirror.Get(battleID); ok {
		return snapshot, true
	}
	battle, players, problems, err := m.store.GetFull(battleID)
	if err != nil {
		return nil, false
	}
	snapshot := BuildBattleSnapshot(battle, players, problems)
	m.mirror.Put(snapshot)
	return snapshot, true
}

// pollOnce 单次轮询。单个玩家或比赛的拉取失败只影响该子集，
// 其余照常处理，下个周期自然重试。
func (m *BattleManager) pollOnce(battleID int64) {
	snapshot, ok := m.loadSnapshot(battleID)
	if !ok {
		m.StopBattle(battleID)
		return
	}
	if snapshot.Status != model.BattleStatusActive {
		m.StopBattle(battleID)
		return
	}
	now := time.Now().Unix()
	if now >= snapshot.EndTime {
		m.CompleteBattle(context.Background(), battleID, "", FinishReasonExpiry)
		return
	}

	// 最后一个轮询周期内提高优先级，保证临近结束的对战尽快出结果
	priority := 0
	if snapshot.EndTime-now <= int64(m.pollInterval/time.Second) {
		priority = 1
	}

	submissions := m.fetchSubmissions(snapshot, priority)
	if len(submissions) == 0 {
		return
	}
	newSolves := m.processSubmissions(snapshot, submissions)
	m.checkCompletion(battleID, newSolves)
}

// fetchSubmissions 按代价选择策略：人数不超过未解题数时逐人拉取，
// 否则逐场比赛拉取后按参赛账号过滤。外部调用量不超过min(玩家数,比赛数)。
func (m *BattleManager) fetchSubmissions(snapshot *types.BattleSnapshot, priority int) []CfSubmission {
	ctx := context.Background()
	handles := make(map[string]bool, len(snapshot.Players))
	for _, p := range snapshot.Players {
		handles[strings.ToLower(p.Handle)] = true
	}

	pending := snapshot.UnsolvedCount()
	if snapshot.WinCondition == model.WinConditionTotalSolves {
		pending = len(snapshot.Problems)
	}

	var result []CfSubmission
	if len(snapshot.Players) <= pending {
		for _, p := range snapshot.Players {
			subs, err := m.fetcher.UserStatus(ctx, p.Handle, cfMaxSubmissions, CfRequestOpts{Priority: priority, UseCache: true})
			if err != nil {
				zlog.Warnf("拉取玩家提交失败 battle=%d handle=%s:%v", snapshot.BattleID, p.Handle, err)
				continue
			}
			for i := range subs {
				if subs[i].Handle == "" {
					subs[i].Handle = p.Handle
				}
			}
			result = append(result, subs...)
		}
		return result
	}

	contests := make(map[int]bool)
	for _, p := range snapshot.Problems {
		if p.ContestID <= 0 {
			continue
		}
		if p.SolvedBy == "" || snapshot.WinCondition == model.WinConditionTotalSolves {
			contests[p.ContestID] = true
		}
	}
	for contestID := range contests {
		subs, err := m.fetcher.ContestStatus(ctx, contestID, cfMaxSubmissions, CfRequestOpts{Priority: priority, UseCache: true})
		if err != nil {
			zlog.Warnf("拉取比赛提交失败 battle=%d contest=%d:%v", snapshot.BattleID, contestID, err)
			continue
		}
		for _, sub := range subs {
			if handles[strings.ToLower(sub.Handle)] {
				result = append(result, sub)
			}
		}
	}
	return result
}

// processSubmissions 记录尝试并提交过题，返回是否产生新的过题
func (m *BattleManager) processSubmissions(snapshot *types.BattleSnapshot, submissions []CfSubmission) bool {
	problemByID := make(map[string]*types.BattleProblemInfo, len(snapshot.Problems))
	for i := range snapshot.Problems {
		p := &snapshot.Problems[i]
		key := CfSubmission{ContestID: p.ContestID, ProblemKey: p.ProblemKey}.ProblemID()
		if key != "" {
			problemByID[key] = p
		}
	}
	playerByHandle := make(map[string]*types.BattlePlayerInfo, len(snapshot.Players))
	for i := range snapshot.Players {
		playerByHandle[strings.ToLower(snapshot.Players[i].Handle)] = &snapshot.Players[i]
	}

	newSolve := false
	var solveEvents []map[string]interface{}
	for _, sub := range submissions {
		if isPendingVerdict(sub.Verdict) {
			continue
		}
		if sub.CreationTime < snapshot.StartTime || sub.CreationTime > snapshot.EndTime {
			continue
		}
		problem, ok := problemByID[sub.ProblemID()]
		if !ok {
			continue
		}
		player, ok := playerByHandle[strings.ToLower(sub.Handle)]
		if !ok {
			continue
		}

		inserted, err := m.store.CreateAttempt(&model.BattleAttempt{
			BattleID:     snapshot.BattleID,
			UserID:       player.UserID,
			ProblemIndex: problem.ProblemIndex,
			SubmissionID: sub.SubmissionID,
			Verdict:      sub.Verdict,
			SubmittedAt:  sub.CreationTime,
		})
		if err != nil {
			zlog.Warnf("写入提交记录失败 battle=%d submission=%d:%v", snapshot.BattleID, sub.SubmissionID, err)
			continue
		}
		if !inserted || sub.Verdict != "OK" {
			continue
		}

		// 条件更新保证同一题只记给一个队伍，双方同tick过题也只成功一次
		credited, err := m.store.MarkProblemSolved(snapshot.BattleID, problem.ProblemIndex, player.Team, player.UserID, player.Username, sub.CreationTime)
		if err != nil {
			zlog.Warnf("过题结算失败 battle=%d problem=%d:%v", snapshot.BattleID, problem.ProblemIndex, err)
		} else if credited {
			m.mirror.MarkSolved(snapshot.BattleID, problem.ProblemIndex, player.Team, player.UserID, player.Username, sub.CreationTime)
			problem.SolvedBy = player.Team
			newSolve = true
			solveEvents = append(solveEvents, map[string]interface{}{
				"problem_index": problem.ProblemIndex,
				"team":          player.Team,
				"user_id":       player.UserID,
				"username":      player.Username,
				"solved_at":     sub.CreationTime,
			})
		}

		if snapshot.WinCondition == model.WinConditionTotalSolves {
			inserted, err := m.store.CreateSolve(&model.BattleSolve{
				BattleID:     snapshot.BattleID,
				ProblemIndex: problem.ProblemIndex,
				UserID:       player.UserID,
				Team:         player.Team,
				Points:       problem.Points,
				SolvedAt:     sub.CreationTime,
			})
			if err != nil {
				zlog.Warnf("写入个人过题失败 battle=%d problem=%d user=%d:%v", snapshot.BattleID, problem.ProblemIndex, player.UserID, err)
			} else if inserted {
				newSolve = true
				solveEvents = append(solveEvents, map[string]interface{}{
					"problem_index": problem.ProblemIndex,
					"team":          player.Team,
					"user_id":       player.UserID,
					"username":      player.Username,
					"solved_at":     sub.CreationTime,
					"individual":    true,
				})
			}
		}
	}

	if len(solveEvents) > 0 {
		current, _ := m.mirror.Get(snapshot.BattleID)
		m.hub.SendToBattle(snapshot.BattleID, types.WsResponse{
			Type:    "new_solve",
			Code:    response.SUCCESS.Code,
			Message: response.SUCCESS.Msg,
			Data: map[string]interface{}{
				"battle": current,
				"solves": solveEvents,
			},
		})
	}
	return newSolve
}

// checkCompletion 过题后判断是否达成提前结束条件
func (m *BattleManager) checkCompletion(battleID int64, newSolve bool) {
	if !newSolve {
		return
	}
	snapshot, ok := m.mirror.Get(battleID)
	if !ok {
		return
	}
	switch snapshot.WinCondition {
	case model.WinConditionTotalSolves:
		solves, err := m.store.ListSolves(battleID)
		if err != nil {
			zlog.Warnf("读取过题记录失败 battle=%d:%v", battleID, err)
			return
		}
		solvedPerTeam := map[string]map[int]bool{
			model.TeamA: make(map[int]bool),
			model.TeamB: make(map[int]bool),
		}
		for _, s := range solves {
			if set, ok := solvedPerTeam[s.Team]; ok {
				set[s.ProblemIndex] = true
			}
		}
		total := len(snapshot.Problems)
		if total > 0 && (len(solvedPerTeam[model.TeamA]) == total || len(solvedPerTeam[model.TeamB]) == total) {
			m.CompleteBattle(context.Background(), battleID, "", FinishReasonExhaustion)
		}
	default:
		if snapshot.UnsolvedCount() == 0 && len(snapshot.Problems) > 0 {
			m.CompleteBattle(context.Background(), battleID, "", FinishReasonExhaustion)
		}
	}
}

// CompleteBattle 终态收口：弃权传入获胜队伍，到时/做完传空串由结算函数决定。
// 持久层的条件更新保证并发触发下只结算一次；无论谁赢得竞争都会停掉worker。
func (m *BattleManager) CompleteBattle(ctx context.Context, battleID int64, winningTeam string, reason string) {
	defer m.StopBattle(battleID)

	snapshot, ok := m.loadSnapshot(battleID)
	if !ok {
		return
	}
	if winningTeam == "" && reason != FinishReasonForfeit {
		var solves []model.BattleSolve
		if snapshot.WinCondition == model.WinConditionTotalSolves {
			var err error
			solves, err = m.store.ListSolves(battleID)
			if err != nil {
				zlog.CtxWarnf(ctx, "结算读取过题记录失败 battle=%d:%v", battleID, err)
			}
		}
		winningTeam = ResolveWinner(snapshot, solves)
	}

	completed, err := m.store.Complete(battleID, winningTeam)
	if err != nil {
		zlog.CtxErrorf(ctx, "对战结算失败 battle=%d:%v", battleID, err)
		return
	}
	if !completed {
		// 已被并发路径结算过，视为成功
		return
	}

	m.mirror.SetStatus(battleID, model.BattleStatusCompleted, 0, 0, winningTeam)
	final, _ := m.mirror.Get(battleID)
	if m.cache != nil && final != nil {
		if err := m.cache.SetFinal(ctx, final); err != nil {
			zlog.CtxWarnf(ctx, "写入结果缓存失败 battle=%d:%v", battleID, err)
		}
	}
	m.hub.SendToBattle(battleID, types.WsResponse{
		Type:    "battle_ended",
		Code:    response.SUCCESS.Code,
		Message: response.SUCCESS.Msg,
		Data: map[string]interface{}{
			"battle":       final,
			"winning_team": winningTeam,
			"reason":       reason,
		},
	})
	zlog.CtxInfof(ctx, "对战结束 battle=%d winner=%s reason=%s", battleID, winningTeam, reason)
}

func isPendingVerdict(verdict string) bool {
	if verdict == "" {
		return true
	}
	switch verdict {
	case "TESTING", "SUBMITTED":
		return true
	default:
		return false
	}
}

// StartAllActiveBattles 进程启动时为库中仍活跃的对战重挂worker
func StartAllActiveBattles() error {
	battleRepo := repo.NewBattleRepo(global.DB)
	battles, err := battleRepo.ListActive()
	if err != nil {
		zlog.Errorf("恢复活跃对战失败:%v", err)
		return err
	}
	manager := GetBattleManager()
	for _, battle := range battles {
		manager.StartBattle(battle.ID)
	}
	if len(battles) > 0 {
		zlog.Infof("已恢复%d场活跃对战", len(battles))
	}
	return nil
}

// StopAllBattles 进程退出前停掉全部worker
func StopAllBattles() {
	manager := GetBattleManager()
	manager.mu.Lock()
	ids := make([]int64, 0, len(manager.workers))
	for id := range manager.workers {
		ids = append(ids, id)
	}
	manager.mu.Unlock()
	for _, id := range ids {
		manager.StopBattle(id)
	}
}

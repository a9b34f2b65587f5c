package logic

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"gorm.io/gorm"

	"cfbattle/configs"
	"cfbattle/global"
	"cfbattle/log/zlog"
	"cfbattle/model"
	"cfbattle/repo"
	"cfbattle/response"
	"cfbattle/types"
	"cfbattle/utils"
)

const (
	battleDefaultPoints   = 100
	battleJoinCodeRetries = 5
)

// 支持problemset与contest两种题目链接
var problemURLRegex = regexp.MustCompile(`codeforces\.com/(?:problemset/problem/(\d+)/([A-Z]\d?)|contest/(\d+)/problem/([A-Z]\d?))`)

// BattleLogic 对战生命周期控制器。
// 用户操作先同步改镜像再落库；镜像写失败时从库重载覆盖，不做局部合并。
type BattleLogic struct {
	store    BattleStore
	users    UserStore
	problems ProblemPicker
	mirror   *BattleMirror
	manager  *BattleManager
	hub      Publisher
	cache    *BattleCache
}

func NewBattleLogic() *BattleLogic {
	return &BattleLogic{
		store:    repo.NewBattleRepo(global.DB),
		users:    repo.NewUserRepo(global.DB),
		problems: repo.NewCodeforcesProblemRepo(global.DB),
		mirror:   GetBattleMirror(),
		manager:  GetBattleManager(),
		hub:      GetWsHub(),
		cache:    GetBattleCache(),
	}
}

// NewBattleLogicWith 依赖注入构造，测试使用
func NewBattleLogicWith(store BattleStore, users UserStore, problems ProblemPicker, mirror *BattleMirror, manager *BattleManager, hub Publisher, cache *BattleCache) *BattleLogic {
	return &BattleLogic{
		store:    store,
		users:    users,
		problems: problems,
		mirror:   mirror,
		manager:  manager,
		hub:      hub,
		cache:    cache,
	}
}

func currentBattleConfig() *configs.BattleConfig {
	if global.Config == nil {
		return nil
	}
	return &global.Config.Battle
}

func (l *BattleLogic) maxProblems() int {
	if conf := currentBattleConfig(); conf != nil && conf.MaxProblems > 0 {
		return conf.MaxProblems
	}
	return 10
}

func (l *BattleLogic) maxDurationMinutes() int {
	if conf := currentBattleConfig(); conf != nil && conf.MaxDurationMin > 0 {
		return conf.MaxDurationMin
	}
	return 300
}

func (l *BattleLogic) CreateBattle(ctx context.Context, userID int64, req types.BattleCreateReq) (resp types.BattleCreateResp, err error) {
	if userID == 0 || len(req.Problems) == 0 {
		return resp, response.ErrResp(errors.New("param blank"), response.PARAM_NOT_COMPLETE)
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > l.maxDurationMinutes() {
		return resp, response.ErrResp(errors.New("duration out of range"), response.PARAM_NOT_VALID)
	}
	if len(req.Problems) > l.maxProblems() {
		return resp, response.ErrResp(errors.New("too many problems"), response.PARAM_NOT_VALID)
	}
	if req.WinCondition != model.WinConditionFirstSolve && req.WinCondition != model.WinConditionTotalSolves {
		return resp, response.ErrResp(errors.New("win condition not exist"), response.PARAM_NOT_VALID)
	}

	problems := make([]model.BattleProblem, 0, len(req.Problems))
	for i, spec := range req.Problems {
		points := spec.Points
		if points <= 0 {
			points = battleDefaultPoints
		}
		problem := model.BattleProblem{
			ProblemIndex: i,
			Points:       points,
			ResolveMode:  spec.Mode,
		}
		switch spec.Mode {
		case model.ProblemModeCustom:
			if _, _, ok := parseProblemURL(spec.CustomURL); !ok {
				return resp, response.ErrResp(errors.New("bad problem url"), response.PROBLEM_LINK_ERROR)
			}
			problem.CustomURL = spec.CustomURL
		case model.ProblemModeRating:
			if spec.MinRating <= 0 || spec.MaxRating < spec.MinRating {
				return resp, response.ErrResp(errors.New("bad rating range"), response.PARAM_NOT_VALID)
			}
			problem.MinRating = spec.MinRating
			problem.MaxRating = spec.MaxRating
		default:
			return resp, response.ErrResp(errors.New("problem mode not exist"), response.PARAM_NOT_VALID)
		}
		problems = append(problems, problem)
	}

	user, err := l.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, response.ErrResp(err, response.MEMBER_NOT_EXIST)
		}
		return resp, response.ErrResp(err, response.DATABASE_ERROR)
	}
	if user.Handle == "" {
		return resp, response.ErrResp(errors.New("handle blank"), response.HANDLE_NOT_LINKED)
	}
	if _, err := l.store.GetActiveByUser(userID); err == nil {
		return resp, response.ErrResp(errors.New("already in battle"), response.ALREADY_IN_BATTLE)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return resp, response.ErrResp(err, response.DATABASE_ERROR)
	}

	joinCode, err := l.pickJoinCode()
	if err != nil {
		return resp, err
	}
	battle := model.Battle{
		JoinCode:        joinCode,
		DurationSeconds: int64(req.DurationMinutes) * 60,
		ProblemCount:    len(problems),
		WinCondition:    req.WinCondition,
		Status:          model.BattleStatusWaiting,
		CreatorID:       userID,
	}
	creator := model.BattlePlayer{
		UserID:    userID,
		Username:  user.Username,
		Handle:    user.Handle,
		Rating:    user.Rating,
		Team:      model.TeamA,
		Position:  0,
		IsCreator: true,
	}
	if err := l.store.Create(&battle, &creator, problems); err != nil {
		return resp, response.ErrResp(err, response.DATABASE_ERROR)
	}

	snapshot := BuildBattleSnapshot(battle, []model.BattlePlayer{creator}, problems)
	l.mirror.Put(snapshot)
	mirrored, _ := l.mirror.Get(battle.ID)
	resp.Battle = *mirrored
	return resp, nil
}

func (l *BattleLogic) pickJoinCode() (string, error) {
	for attempt := 0; attempt < battleJoinCodeRetries; attempt++ {
		code := utils.RandomCode()
		_, err := l.store.GetByJoinCode(code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", response.ErrResp(err, response.DATABASE_ERROR)
		}
	}
	return "", response.ErrResp(errors.New("join code exhausted"), response.COMMON_FAIL)
}

// GetBattle 镜像→结果缓存→持久层三级读取
func (l *BattleLogic) GetBattle(ctx context.Context, req types.BattleInfoReq) (resp types.BattleInfoResp, err error) {
	if req.JoinCode != "" {
		if snapshot, ok := l.mirror.GetByCode(req.JoinCode); ok {
			resp.Battle = *snapshot
			return resp, nil
		}
		battle, getErr := l.store.GetByJoinCode(req.JoinCode)
		if getErr != nil {
			if errors.Is(getErr, gorm.ErrRecordNotFound) {
				return resp, response.ErrResp(getErr, response.BATTLE_NOT_EXIST)
			}
			return resp, response.ErrResp(getErr, response.DATABASE_ERROR)
		}
		return l.getBattleByID(ctx, battle.ID)
	}
	battleID, parseErr := parseBattleID(req.BattleID)
	if parseErr != nil {
		return resp, response.ErrResp(parseErr, response.PARAM_NOT_COMPLETE)
	}
	return l.getBattleByID(ctx, battleID)
}

func (l *BattleLogic) getBattleByID(ctx context.Context, battleID int64) (resp types.BattleInfoResp, err error) {
	if snapshot, ok := l.mirror.Get(battleID); ok {
		resp.Battle = *snapshot
		return resp, nil
	}
	if l.cache != nil {
		if snapshot, cacheErr := l.cache.GetFinal(ctx, battleID); cacheErr != nil {
			zlog.CtxWarnf(ctx, "读取结果缓存失败 battle=%d:%v", battleID, cacheErr)
		} else if snapshot != nil {
			resp.Battle = *snapshot
			return resp, nil
		}
	}
	snapshot, loadErr := l.reloadSnapshot(battleID)
	if loadErr != nil {
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			return resp, response.ErrResp(loadErr, response.BATTLE_NOT_EXIST)
		}
		return resp, response.ErrResp(loadErr, response.DATABASE_ERROR)
	}
	resp.Battle = *snapshot
	return resp, nil
}

// reloadSnapshot 从持久层重建快照；未结束的对战回填镜像
func (l *BattleLogic) reloadSnapshot(battleID int64) (*types.BattleSnapshot, error) {
	battle, players, problems, err := l.store.GetFull(battleID)
	if err != nil {
		return nil, err
	}
	snapshot := BuildBattleSnapshot(battle, players, problems)
	if battle.Status != model.BattleStatusCompleted {
		l.mirror.Put(snapshot)
		if mirrored, ok := l.mirror.Get(battleID); ok {
			return mirrored, nil
		}
	}
	return snapshot, nil
}

func (l *BattleLogic) GetBattleByUser(ctx context.Context, userID int64) (resp types.BattleInfoResp, err error) {
	_ = ctx
	if snapshot, ok := l.mirror.GetByParticipant(userID); ok {
		resp.Battle = *snapshot
		return resp, nil
	}
	battle, getErr := l.store.GetActiveByUser(userID)
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return resp, response.ErrResp(getErr, response.NOT_IN_BATTLE)
		}
		return resp, response.ErrResp(getErr, response.DATABASE_ERROR)
	}
	snapshot, loadErr := l.reloadSnapshot(battle.ID)
	if loadErr != nil {
		return resp, response.ErrResp(loadErr, response.DATABASE_ERROR)
	}
	resp.Battle = *snapshot
	return resp, nil
}

func (l *BattleLogic) ListBattles(ctx context.Context, req types.BattleListReq) (resp types.BattleListResp, err error) {
	_ = ctx
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit
	battles, total, listErr := l.store.List(offset, limit, req.Status)
	if listErr != nil {
		return resp, response.ErrResp(listErr, response.DATABASE_ERROR)
	}
	items := make([]types.BattleListItem, 0, len(battles))
	for _, battle := range battles {
		playerCount := 0
		if snapshot, ok := l.mirror.Get(battle.ID); ok {
			playerCount = len(snapshot.Players)
		} else if players, playersErr := l.store.ListPlayers(battle.ID); playersErr == nil {
			playerCount = len(players)
		}
		items = append(items, types.BattleListItem{
			BattleID:     battle.ID,
			JoinCode:     battle.JoinCode,
			Status:       battle.Status,
			WinCondition: battle.WinCondition,
			CreatedAt:    battle.CreatedAt,
			EndTime:      battle.EndTime,
			PlayerCount:  playerCount,
			ProblemCount: battle.ProblemCount,
		})
	}
	resp.Total = total
	resp.Battles = items
	return resp, nil
}

// JoinBattle 队伍取人数较少一方，人数相同进A队；位置取队内最小空位
func (l *BattleLogic) JoinBattle(ctx context.Context, userID int64, joinCode string) (resp types.BattleInfoResp, err error) {
	if userID == 0 || joinCode == "" {
		return resp, response.ErrResp(errors.New("param blank"), response.PARAM_NOT_COMPLETE)
	}
	user, getErr := l.users.GetByID(userID)
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return resp, response.ErrResp(getErr, response.MEMBER_NOT_EXIST)
		}
		return resp, response.ErrResp(getErr, response.DATABASE_ERROR)
	}
	if user.Handle == "" {
		return resp, response.ErrResp(errors.New("handle blank"), response.HANDLE_NOT_LINKED)
	}

	battle, getErr := l.store.GetByJoinCode(joinCode)
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return resp, response.ErrResp(getErr, response.BATTLE_NOT_EXIST)
		}
		return resp, response.ErrResp(getErr, response.DATABASE_ERROR)
	}
	if battle.Status != model.BattleStatusWaiting {
		return resp, response.ErrResp(errors.New("battle not waiting"), response.BATTLE_NOT_WAITING)
	}

	// 槽位竞争时靠(battle,team,position)唯一索引兜底，冲突后重算一次
	for attempt := 0; attempt < 2; attempt++ {
		players, listErr := l.store.ListPlayers(battle.ID)
		if listErr != nil {
			return resp, response.ErrResp(listErr, response.DATABASE_ERROR)
		}
		if len(players) >= model.MaxBattlePlayers {
			return resp, response.ErrResp(errors.New("battle full"), response.BATTLE_FULL)
		}
		for _, p := range players {
			if p.UserID == userID {
				return resp, response.ErrResp(errors.New("already joined"), response.ALREADY_IN_BATTLE)
			}
		}
		team, position, ok := assignSlot(players)
		if !ok {
			return resp, response.ErrResp(errors.New("battle full"), response.BATTLE_FULL)
		}
		player := model.BattlePlayer{
			BattleID: battle.ID,
			UserID:   userID,
			Username: user.Username,
			Handle:   user.Handle,
			Rating:   user.Rating,
			Team:     team,
			Position: position,
		}
		if createErr := l.store.CreatePlayer(&player); createErr != nil {
			if attempt == 0 {
				continue
			}
			return resp, response.ErrResp(createErr, response.DATABASE_ERROR)
		}
		if l.mirror.AddPlayer(battle.ID, buildPlayerInfo(player)) != MirrorOK {
			if _, loadErr := l.reloadSnapshot(battle.ID); loadErr != nil {
				zlog.CtxWarnf(ctx, "镜像重建失败 battle=%d:%v", battle.ID, loadErr)
			}
		}
		l.broadcastUpdate(battle.ID)
		snapshot, _ := l.mirror.Get(battle.ID)
		if snapshot != nil {
			resp.Battle = *snapshot
		}
		return resp, nil
	}
	return resp, response.ErrResp(errors.New("join conflict"), response.SLOT_OCCUPIED)
}

// assignSlot 人数较少的队伍优先，平时进A队；返回队内最小空位
func assignSlot(players []model.BattlePlayer) (string, int, bool) {
	var aCount, bCount int
	taken := map[string]map[int]bool{
		model.TeamA: make(map[int]bool),
		model.TeamB: make(map[int]bool),
	}
	for _, p := range players {
		if p.Team == model.TeamA {
			aCount++
		} else {
			bCount++
		}
		if set, ok := taken[p.Team]; ok {
			set[p.Position] = true
		}
	}
	team := model.TeamA
	if bCount < aCount {
		team = model.TeamB
	}
	for pos := 0; pos < model.MaxTeamSize; pos++ {
		if !taken[team][pos] {
			return team, pos, true
		}
	}
	// 首选队伍满员时尝试另一队
	other := model.TeamB
	if team == model.TeamB {
		other = model.TeamA
	}
	for pos := 0; pos < model.MaxTeamSize; pos++ {
		if !taken[other][pos] {
			return other, pos, true
		}
	}
	return "", 0, false
}

// MovePlayer 仅等待阶段可换位，目标位置被占用时返回冲突
func (l *BattleLogic) MovePlayer(ctx context.Context, userID int64, req types.BattleMoveReq) (resp types.BattleInfoResp, err error) {
	battleID, parseErr := parseBattleID(req.BattleID)
	if parseErr != nil || userID == 0 {
		return resp, response.ErrResp(errors.New("param blank"), response.PARAM_NOT_COMPLETE)
	}
	if req.Team != model.TeamA && req.Team != model.TeamB {
		return resp, response.ErrResp(errors.New("team not exist"), response.PARAM_NOT_VALID)
	}
	if req.Position < 0 || req.Position >= model.MaxTeamSize {
		return resp, response.ErrResp(errors.New("position out of range"), response.PARAM_NOT_VALID)
	}
	battle, getErr := l.store.GetByID(battleID)
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return resp, response.ErrResp(getErr, response.BATTLE_NOT_EXIST)
		}
		return resp, response.ErrResp(getErr, response.DATABASE_ERROR)
	}
	if battle.Status != model.BattleStatusWaiting {
		return resp, response.ErrResp(errors.New("battle not waiting"), response.BATTLE_NOT_WAITING)
	}

	if _, ok := l.mirror.Get(battleID); !ok {
		if _, loadErr := l.reloadSnapshot(battleID); loadErr != nil {
			return resp, response.ErrResp(loadErr, response.DATABASE_ERROR)
		}
	}
	snapshot, result := l.mirror.MovePlayer(battleID, userID, req.Team, req.Position)
	switch result {
	case MirrorSlotOccupied:
		return resp, response.ErrResp(errors.New("slot occupied"), response.SLOT_OCCUPIED)
	case MirrorNotFound:
		return resp, response.ErrResp(errors.New("player not in battle"), response.NOT_IN_BATTLE)
	}
	if updateErr := l.store.UpdatePlayerSlot(battleID, userID, req.Team, req.Position); updateErr != nil {
		// 镜像已改而落库失败：丢弃镜像条目，从库重建后重新广播
		if _, loadErr := l.reloadSnapshot(battleID); loadErr != nil {
			zlog.CtxErrorf(ctx, "镜像恢复失败 battle=%d:%v", battleID, loadErr)
		}
		l.broadcastUpdate(battleID)
		return resp, response.ErrResp(updateErr, response.DATABASE_ERROR)
	}
	l.broadcastUpdate(battleID)
	resp.Battle = *snapshot
	return resp, nil
}

// LeaveBattle 主动离开。对已结束对战或已不在对战中的玩家视为成功
func (l *BattleLogic) LeaveBattle(ctx context.Context, userID int64, battleIDStr string) (resp types.BattleInfoResp, err error) {
	battleID, parseErr := parseBattleID(battleIDStr)
	if parseErr != nil || userID == 0 {
		return resp, response.ErrResp(errors.New("param blank"), response.PARAM_NOT_COMPLETE)
	}
	return l.removePlayer(ctx, battleID, userID, false)
}

// RemovePlayer 创建者强制移除玩家
func (l *BattleLogic) RemovePlayer(ctx context.Context, actorID int64, req types.BattleRemoveReq) (resp types.BattleInfoResp, err error) {
	battleID, parseErr := parseBattleID(req.BattleID)
	targetID, targetErr := parseBattleID(req.TargetUserID)
	if parseErr != nil || targetErr != nil || actorID == 0 {
		return resp, response.ErrResp(errors.New("param blank"), response.PARAM_NOT_COMPLETE)
	}
	battle, getErr := l.store.GetByID(battleID)
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return resp, response.ErrResp(getErr, response.BATTLE_NOT_EXIST)
		}
		return resp, response.ErrResp(getErr, response.DATABASE_ERROR)
	}
	if battle.CreatorID != actorID {
		return resp, response.ErrResp(errors.New("not creator"), response.NOT_BATTLE_CREATOR)
	}
	if targetID == actorID {
		return l.removePlayer(ctx, battleID, actorID, false)
	}
	return l.removePlayer(ctx, battleID, targetID, true)
}

// removePlayer 离开/移除的共同路径。
// 先删玩家行，人数统计严格在删除之后，再决定继续、解散或弃权。
func (l *BattleLogic) removePlayer(ctx context.Context, battleID, targetID int64, forced bool) (resp types.BattleInfoResp, err error) {
	battle, getErr := l.store.GetByID(battleID)
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			// 对战已删除，竞态中的离开视为成功
			l.mirror.Remove(battleID)
			return resp, nil
		}
		return resp, response.ErrResp(getErr, response.DATABASE_ERROR)
	}
	if battle.Status == model.BattleStatusCompleted {
		return resp, nil
	}

	rows, delErr := l.store.DeletePlayer(battleID, targetID)
	if delErr != nil {
		return resp, response.ErrResp(delErr, response.DATABASE_ERROR)
	}
	if rows == 0 {
		// 玩家本就不在对战中，幂等成功
		return resp, nil
	}
	l.mirror.RemovePlayer(battleID, targetID)

	aCount, bCount, countErr := l.store.CountTeamPlayers(battleID)
	if countErr != nil {
		return resp, response.ErrResp(countErr, response.DATABASE_ERROR)
	}

	if battle.Status == model.BattleStatusWaiting && aCount+bCount == 0 {
		if delAllErr := l.store.Delete(battleID); delAllErr != nil {
			return resp, response.ErrResp(delAllErr, response.DATABASE_ERROR)
		}
		l.manager.StopBattle(battleID)
		l.hub.SendToBattle(battleID, types.WsResponse{
			Type:    "battle_deleted",
			Code:    response.SUCCESS.Code,
			Message: response.SUCCESS.Msg,
			Data:    map[string]interface{}{"battle_id": battleID},
		})
		l.mirror.Remove(battleID)
		return resp, nil
	}

	if battle.Status == model.BattleStatusActive {
		if aCount == 0 || bCount == 0 {
			winner := model.TeamA
			if aCount == 0 {
				winner = model.TeamB
			}
			l.manager.CompleteBattle(ctx, battleID, winner, FinishReasonForfeit)
			l.broadcastRemoved(battleID, targetID, forced)
			return resp, nil
		}
	}

	if battle.CreatorID == targetID {
		players, listErr := l.store.ListPlayers(battleID)
		if listErr == nil && len(players) > 0 {
			next := players[0]
			for _, p := range players {
				if p.ID < next.ID {
					next = p
				}
			}
			if transferErr := l.store.TransferCreator(battleID, next.UserID); transferErr != nil {
				zlog.CtxWarnf(ctx, "移交房主失败 battle=%d:%v", battleID, transferErr)
			} else if _, loadErr := l.reloadSnapshot(battleID); loadErr != nil {
				zlog.CtxWarnf(ctx, "镜像重建失败 battle=%d:%v", battleID, loadErr)
			}
		}
	}

	l.broadcastRemoved(battleID, targetID, forced)
	l.broadcastUpdate(battleID)
	if snapshot, ok := l.mirror.Get(battleID); ok {
		resp.Battle = *snapshot
	}
	return resp, nil
}

// StartBattle 确定全部题目并固定起止时间，随后启动轮询
func (l *BattleLogic) StartBattle(ctx context.Context, userID int64, battleIDStr string) (resp types.BattleInfoResp, err error) {
	battleID, parseErr := parseBattleID(battleIDStr)
	if parseErr != nil || userID == 0 {
		return resp, response.ErrResp(errors.New("param blank"), response.PARAM_NOT_COMPLETE)
	}
	battle, players, problems, getErr := l.store.GetFull(battleID)
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return resp, response.ErrResp(getErr, response.BATTLE_NOT_EXIST)
		}
		return resp, response.ErrResp(getErr, response.DATABASE_ERROR)
	}
	if battle.CreatorID != userID {
		return resp, response.ErrResp(errors.New("not creator"), response.NOT_BATTLE_CREATOR)
	}
	if battle.Status != model.BattleStatusWaiting {
		return resp, response.ErrResp(errors.New("battle not waiting"), response.BATTLE_NOT_WAITING)
	}
	var aCount, bCount int
	for _, p := range players {
		if p.Team == model.TeamA {
			aCount++
		} else {
			bCount++
		}
	}
	if aCount == 0 || bCount == 0 {
		return resp, response.ErrResp(errors.New("team empty"), response.TEAM_NOT_READY)
	}

	if resolveErr := l.resolveProblems(ctx, problems); resolveErr != nil {
		return resp, resolveErr
	}

	startTime := time.Now().Unix()
	endTime := startTime + battle.DurationSeconds
	activated, activateErr := l.store.Activate(battleID, startTime, endTime)
	if activateErr != nil {
		return resp, response.ErrResp(activateErr, response.DATABASE_ERROR)
	}
	if !activated {
		return resp, response.ErrResp(errors.New("battle not waiting"), response.BATTLE_NOT_WAITING)
	}

	snapshot, loadErr := l.reloadSnapshot(battleID)
	if loadErr != nil {
		return resp, response.ErrResp(loadErr, response.DATABASE_ERROR)
	}
	l.manager.StartBattle(battleID)
	l.hub.SendToBattle(battleID, types.WsResponse{
		Type:    "battle_started",
		Code:    response.SUCCESS.Code,
		Message: response.SUCCESS.Msg,
		Data:    map[string]interface{}{"battle": snapshot},
	})
	zlog.CtxInfof(ctx, "对战开始 battle=%d players=%d problems=%d", battleID, len(players), len(problems))
	resp.Battle = *snapshot
	return resp, nil
}

// resolveProblems 自选题解析链接，随机题按难度区间从题库抽取，场内去重
func (l *BattleLogic) resolveProblems(ctx context.Context, problems []model.BattleProblem) error {
	used := make([]string, 0, len(problems))
	for i := range problems {
		problem := &problems[i]
		if problem.ContestID > 0 {
			used = append(used, CfSubmission{ContestID: problem.ContestID, ProblemKey: problem.ProblemKey}.ProblemID())
			continue
		}
		switch problem.ResolveMode {
		case model.ProblemModeCustom:
			contestID, key, ok := parseProblemURL(problem.CustomURL)
			if !ok {
				return response.ErrResp(errors.New("bad problem url"), response.PROBLEM_LINK_ERROR)
			}
			problem.ContestID = contestID
			problem.ProblemKey = key
			if pooled, poolErr := l.problems.GetByID(CfSubmission{ContestID: contestID, ProblemKey: key}.ProblemID()); poolErr == nil {
				problem.Name = pooled.Name
				problem.Rating = pooled.Difficulty
			}
		case model.ProblemModeRating:
			picked, pickErr := l.problems.GetRandomByDifficulty(problem.MinRating, problem.MaxRating, used)
			if pickErr != nil {
				if errors.Is(pickErr, gorm.ErrRecordNotFound) {
					return response.ErrResp(pickErr, response.PROBLEM_POOL_EMPTY)
				}
				return response.ErrResp(pickErr, response.DATABASE_ERROR)
			}
			problem.ContestID = picked.ContestID
			problem.ProblemKey = picked.ProblemKey
			problem.Name = picked.Name
			problem.Rating = picked.Difficulty
		default:
			return response.ErrResp(errors.New("problem mode not exist"), response.PARAM_NOT_VALID)
		}
		used = append(used, CfSubmission{ContestID: problem.ContestID, ProblemKey: problem.ProblemKey}.ProblemID())
		if saveErr := l.store.SaveProblem(problem); saveErr != nil {
			return response.ErrResp(saveErr, response.DATABASE_ERROR)
		}
	}
	_ = ctx
	return nil
}

// GetBattleStats 任何阶段可查的比分
func (l *BattleLogic) GetBattleStats(ctx context.Context, battleIDStr string) (resp types.BattleStatsResp, err error) {
	battleID, parseErr := parseBattleID(battleIDStr)
	if parseErr != nil {
		return resp, response.ErrResp(parseErr, response.PARAM_NOT_COMPLETE)
	}
	info, getErr := l.getBattleByID(ctx, battleID)
	if getErr != nil {
		return resp, getErr
	}
	snapshot := info.Battle
	var solves []model.BattleSolve
	if snapshot.WinCondition == model.WinConditionTotalSolves {
		var listErr error
		solves, listErr = l.store.ListSolves(battleID)
		if listErr != nil {
			return resp, response.ErrResp(listErr, response.DATABASE_ERROR)
		}
	}
	resp.Stats = ComputeBattleStats(&snapshot, solves)
	return resp, nil
}

func (l *BattleLogic) broadcastUpdate(battleID int64) {
	snapshot, ok := l.mirror.Get(battleID)
	if !ok {
		return
	}
	l.hub.SendToBattle(battleID, types.WsResponse{
		Type:    "battle_updated",
		Code:    response.SUCCESS.Code,
		Message: response.SUCCESS.Msg,
		Data:    map[string]interface{}{"battle": snapshot},
	})
}

func (l *BattleLogic) broadcastRemoved(battleID, userID int64, forced bool) {
	l.hub.SendToBattle(battleID, types.WsResponse{
		Type:    "player_removed",
		Code:    response.SUCCESS.Code,
		Message: response.SUCCESS.Msg,
		Data: map[string]interface{}{
			"battle_id": battleID,
			"user_id":   userID,
			"forced":    forced,
		},
	})
}

func parseBattleID(value string) (int64, error) {
	if value == "" {
		return 0, errors.New("param blank")
	}
	return strconv.ParseInt(value, 10, 64)
}

func parseProblemURL(rawURL string) (int, string, bool) {
	match := problemURLRegex.FindStringSubmatch(rawURL)
	if match == nil {
		return 0, "", false
	}
	contestStr, key := match[1], match[2]
	if contestStr == "" {
		contestStr, key = match[3], match[4]
	}
	contestID, err := strconv.Atoi(contestStr)
	if err != nil || contestID <= 0 || key == "" {
		return 0, "", false
	}
	return contestID, key, true
}

// BuildBattleSnapshot 由持久层记录构造镜像快照
func BuildBattleSnapshot(battle model.Battle, players []model.BattlePlayer, problems []model.BattleProblem) *types.BattleSnapshot {
	playerInfos := make([]types.BattlePlayerInfo, 0, len(players))
	for _, p := range players {
		playerInfos = append(playerInfos, buildPlayerInfo(p))
	}
	problemInfos := make([]types.BattleProblemInfo, 0, len(problems))
	for _, p := range problems {
		problemInfos = append(problemInfos, types.BattleProblemInfo{
			ProblemIndex: p.ProblemIndex,
			Points:       p.Points,
			ResolveMode:  p.ResolveMode,
			CustomURL:    p.CustomURL,
			MinRating:    p.MinRating,
			MaxRating:    p.MaxRating,
			ContestID:    p.ContestID,
			ProblemKey:   p.ProblemKey,
			Name:         p.Name,
			Rating:       p.Rating,
			SolvedBy:     p.SolvedBy,
			SolverID:     p.SolverID,
			SolverName:   p.SolverName,
			SolvedAt:     p.SolvedAt,
		})
	}
	return &types.BattleSnapshot{
		BattleID:        battle.ID,
		JoinCode:        battle.JoinCode,
		Status:          battle.Status,
		WinCondition:    battle.WinCondition,
		DurationSeconds: battle.DurationSeconds,
		StartTime:       battle.StartTime,
		EndTime:         battle.EndTime,
		WinningTeam:     battle.WinningTeam,
		CreatorID:       battle.CreatorID,
		CreatedAt:       battle.CreatedAt,
		Players:         playerInfos,
		Problems:        problemInfos,
	}
}

func buildPlayerInfo(p model.BattlePlayer) types.BattlePlayerInfo {
	return types.BattlePlayerInfo{
		UserID:    p.UserID,
		Username:  p.Username,
		Handle:    p.Handle,
		Rating:    p.Rating,
		Team:      p.Team,
		Position:  p.Position,
		IsCreator: p.IsCreator,
		JoinAt:    p.CreatedAt.Unix(),
	}
}

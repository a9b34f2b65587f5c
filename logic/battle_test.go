package logic

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cfbattle/model"
	"cfbattle/response"
	"cfbattle/types"
)

type battleEnv struct {
	store   *fakeStore
	users   *fakeUsers
	pool    *fakeProblems
	mirror  *BattleMirror
	manager *BattleManager
	hub     *fakePublisher
	logic   *BattleLogic
}

func newBattleEnv() *battleEnv {
	store := newFakeStore()
	users := &fakeUsers{users: map[int64]model.User{}}
	pool := &fakeProblems{pool: []model.CodeforcesProblem{
		{ID: "2042A", ContestID: 2042, ProblemKey: "A", Name: "Greedy Monocarp", Difficulty: 900},
		{ID: "2042B", ContestID: 2042, ProblemKey: "B", Name: "Game with Colored Marbles", Difficulty: 1100},
		{ID: "1999C", ContestID: 1999, ProblemKey: "C", Name: "Showering", Difficulty: 1000},
	}}
	mirror := NewBattleMirror()
	mirror.SetRetainer(func(int64, time.Duration) {})
	hub := &fakePublisher{}
	manager := NewBattleManager(store, mirror, &fakeFetcher{}, hub, nil, time.Second)
	return &battleEnv{
		store:   store,
		users:   users,
		pool:    pool,
		mirror:  mirror,
		manager: manager,
		hub:     hub,
		logic:   NewBattleLogicWith(store, users, pool, mirror, manager, hub, nil),
	}
}

func (e *battleEnv) addUser(id int64, handle string) {
	e.users.users[id] = model.User{
		CommonModel: model.CommonModel{ID: id},
		Username:    fmt.Sprintf("user%d", id),
		Handle:      handle,
		Rating:      1200,
	}
}

func wantCode(t *testing.T, err error, code response.RespCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected code %d, got nil error", code.Code)
	}
	var codeErr *response.CodeError
	if !errors.As(err, &codeErr) {
		t.Fatalf("expected CodeError, got %v", err)
	}
	if codeErr.Resp.Code != code.Code {
		t.Fatalf("code = %d (%s), want %d (%s)", codeErr.Resp.Code, codeErr.Resp.Msg, code.Code, code.Msg)
	}
}

func ratingBattleReq() types.BattleCreateReq {
	return types.BattleCreateReq{
		DurationMinutes: 60,
		WinCondition:    model.WinConditionFirstSolve,
		Problems: []types.BattleProblemSpec{
			{Points: 100, Mode: model.ProblemModeRating, MinRating: 800, MaxRating: 1200},
			{Points: 200, Mode: model.ProblemModeRating, MinRating: 800, MaxRating: 1200},
		},
	}
}

func TestCreateBattle(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")

	resp, err := env.logic.CreateBattle(context.Background(), 100, ratingBattleReq())
	if err != nil {
		t.Fatalf("CreateBattle err: %v", err)
	}
	battle := resp.Battle
	if battle.Status != model.BattleStatusWaiting {
		t.Errorf("status = %d, want waiting", battle.Status)
	}
	if len(battle.JoinCode) != 6 {
		t.Errorf("join code = %q, want 6 chars", battle.JoinCode)
	}
	if len(battle.Players) != 1 || battle.Players[0].Team != model.TeamA || battle.Players[0].Position != 0 {
		t.Errorf("creator slot = %+v, want team A position 0", battle.Players)
	}
	if !battle.Players[0].IsCreator {
		t.Error("creator flag not set")
	}
	if _, ok := env.mirror.GetByCode(battle.JoinCode); !ok {
		t.Error("battle should be mirrored on creation")
	}
}

func TestCreateBattleValidation(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")
	env.addUser(101, "")

	req := ratingBattleReq()
	req.WinCondition = "most_elegant"
	_, err := env.logic.CreateBattle(context.Background(), 100, req)
	wantCode(t, err, response.PARAM_NOT_VALID)

	req = ratingBattleReq()
	req.DurationMinutes = 0
	_, err = env.logic.CreateBattle(context.Background(), 100, req)
	wantCode(t, err, response.PARAM_NOT_VALID)

	req = ratingBattleReq()
	req.Problems[0] = types.BattleProblemSpec{Mode: model.ProblemModeCustom, CustomURL: "https://example.com/nope"}
	_, err = env.logic.CreateBattle(context.Background(), 100, req)
	wantCode(t, err, response.PROBLEM_LINK_ERROR)

	_, err = env.logic.CreateBattle(context.Background(), 101, ratingBattleReq())
	wantCode(t, err, response.HANDLE_NOT_LINKED)

	// 已在对战中的用户不能再建
	if _, err := env.logic.CreateBattle(context.Background(), 100, ratingBattleReq()); err != nil {
		t.Fatalf("first CreateBattle err: %v", err)
	}
	_, err = env.logic.CreateBattle(context.Background(), 100, ratingBattleReq())
	wantCode(t, err, response.ALREADY_IN_BATTLE)
}

func TestJoinBattleBalancesTeams(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")
	resp, err := env.logic.CreateBattle(context.Background(), 100, ratingBattleReq())
	if err != nil {
		t.Fatalf("CreateBattle err: %v", err)
	}
	code := resp.Battle.JoinCode

	env.addUser(200, "bob_cf")
	joined, err := env.logic.JoinBattle(context.Background(), 200, code)
	if err != nil {
		t.Fatalf("JoinBattle err: %v", err)
	}
	var bob types.BattlePlayerInfo
	for _, p := range joined.Battle.Players {
		if p.UserID == 200 {
			bob = p
		}
	}
	if bob.Team != model.TeamB || bob.Position != 0 {
		t.Errorf("second player slot = %s/%d, want B/0 (smaller team)", bob.Team, bob.Position)
	}

	// 人数相同时进A队
	env.addUser(300, "carol_cf")
	joined, err = env.logic.JoinBattle(context.Background(), 300, code)
	if err != nil {
		t.Fatalf("JoinBattle err: %v", err)
	}
	for _, p := range joined.Battle.Players {
		if p.UserID == 300 && (p.Team != model.TeamA || p.Position != 1) {
			t.Errorf("third player slot = %s/%d, want A/1", p.Team, p.Position)
		}
	}
}

func TestJoinBattleRejections(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")
	resp, _ := env.logic.CreateBattle(context.Background(), 100, ratingBattleReq())
	code := resp.Battle.JoinCode

	_, err := env.logic.JoinBattle(context.Background(), 100, code)
	wantCode(t, err, response.ALREADY_IN_BATTLE)

	env.addUser(201, "")
	_, err = env.logic.JoinBattle(context.Background(), 201, code)
	wantCode(t, err, response.HANDLE_NOT_LINKED)

	env.addUser(202, "dave_cf")
	_, err = env.logic.JoinBattle(context.Background(), 202, "nocode")
	wantCode(t, err, response.BATTLE_NOT_EXIST)

	// 填满8人后再加入报满员
	for i := int64(0); i < 7; i++ {
		userID := 300 + i
		env.addUser(userID, fmt.Sprintf("cf_%d", userID))
		if _, err := env.logic.JoinBattle(context.Background(), userID, code); err != nil {
			t.Fatalf("join %d err: %v", userID, err)
		}
	}
	env.addUser(400, "late_cf")
	_, err = env.logic.JoinBattle(context.Background(), 400, code)
	wantCode(t, err, response.BATTLE_FULL)
}

func TestAssignSlot(t *testing.T) {
	players := []model.BattlePlayer{
		{UserID: 1, Team: model.TeamA, Position: 0},
		{UserID: 2, Team: model.TeamA, Position: 1},
		{UserID: 3, Team: model.TeamB, Position: 0},
	}
	team, position, ok := assignSlot(players)
	if !ok || team != model.TeamB || position != 1 {
		t.Errorf("assignSlot = %s/%d/%v, want B/1/true", team, position, ok)
	}

	// 空位取最小编号
	players = []model.BattlePlayer{
		{UserID: 1, Team: model.TeamA, Position: 0},
		{UserID: 2, Team: model.TeamA, Position: 2},
	}
	team, position, ok = assignSlot(players)
	if !ok || team != model.TeamB || position != 0 {
		t.Errorf("assignSlot = %s/%d/%v, want B/0/true", team, position, ok)
	}
}

func TestMovePlayer(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")
	env.addUser(200, "bob_cf")
	resp, _ := env.logic.CreateBattle(context.Background(), 100, ratingBattleReq())
	battleID := fmt.Sprintf("%d", resp.Battle.BattleID)
	env.logic.JoinBattle(context.Background(), 200, resp.Battle.JoinCode)

	moved, err := env.logic.MovePlayer(context.Background(), 200, types.BattleMoveReq{
		BattleID: battleID, Team: model.TeamA, Position: 2,
	})
	if err != nil {
		t.Fatalf("MovePlayer err: %v", err)
	}
	for _, p := range moved.Battle.Players {
		if p.UserID == 200 && (p.Team != model.TeamA || p.Position != 2) {
			t.Errorf("moved slot = %s/%d, want A/2", p.Team, p.Position)
		}
	}
	// 落库同步
	players, _ := env.store.ListPlayers(resp.Battle.BattleID)
	for _, p := range players {
		if p.UserID == 200 && (p.Team != model.TeamA || p.Position != 2) {
			t.Errorf("persisted slot = %s/%d, want A/2", p.Team, p.Position)
		}
	}

	_, err = env.logic.MovePlayer(context.Background(), 200, types.BattleMoveReq{
		BattleID: battleID, Team: model.TeamA, Position: 0,
	})
	wantCode(t, err, response.SLOT_OCCUPIED)

	_, err = env.logic.MovePlayer(context.Background(), 200, types.BattleMoveReq{
		BattleID: battleID, Team: "C", Position: 0,
	})
	wantCode(t, err, response.PARAM_NOT_VALID)
}

func TestStartBattle(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")
	env.addUser(200, "bob_cf")
	resp, _ := env.logic.CreateBattle(context.Background(), 100, ratingBattleReq())
	battleID := resp.Battle.BattleID
	battleIDStr := fmt.Sprintf("%d", battleID)

	// 单边队伍不能开始
	_, err := env.logic.StartBattle(context.Background(), 100, battleIDStr)
	wantCode(t, err, response.TEAM_NOT_READY)

	env.logic.JoinBattle(context.Background(), 200, resp.Battle.JoinCode)

	// 非创建者不能开始
	_, err = env.logic.StartBattle(context.Background(), 200, battleIDStr)
	wantCode(t, err, response.NOT_BATTLE_CREATOR)

	started, err := env.logic.StartBattle(context.Background(), 100, battleIDStr)
	if err != nil {
		t.Fatalf("StartBattle err: %v", err)
	}
	defer env.manager.StopBattle(battleID)

	battle := started.Battle
	if battle.Status != model.BattleStatusActive {
		t.Fatalf("status = %d, want active", battle.Status)
	}
	if battle.EndTime != battle.StartTime+battle.DurationSeconds {
		t.Errorf("end = %d, want start+duration", battle.EndTime)
	}
	// 随机题已确定且场内不重复
	seen := map[string]bool{}
	for _, p := range battle.Problems {
		if p.ContestID == 0 || p.ProblemKey == "" {
			t.Errorf("problem %d unresolved: %+v", p.ProblemIndex, p)
		}
		id := CfSubmission{ContestID: p.ContestID, ProblemKey: p.ProblemKey}.ProblemID()
		if seen[id] {
			t.Errorf("duplicate problem %s in one battle", id)
		}
		seen[id] = true
	}
	if !env.manager.Running(battleID) {
		t.Error("poll worker should start with the battle")
	}

	// 已开始的对战不能再开始也不能再加入
	_, err = env.logic.StartBattle(context.Background(), 100, battleIDStr)
	wantCode(t, err, response.BATTLE_NOT_WAITING)
	env.addUser(300, "late_cf")
	_, err = env.logic.JoinBattle(context.Background(), 300, battle.JoinCode)
	wantCode(t, err, response.BATTLE_NOT_WAITING)
}

func TestStartBattleCustomProblem(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")
	env.addUser(200, "bob_cf")
	req := types.BattleCreateReq{
		DurationMinutes: 30,
		WinCondition:    model.WinConditionFirstSolve,
		Problems: []types.BattleProblemSpec{
			{Points: 100, Mode: model.ProblemModeCustom, CustomURL: "https://codeforces.com/problemset/problem/2042/A"},
			{Points: 100, Mode: model.ProblemModeCustom, CustomURL: "https://codeforces.com/contest/1999/problem/C"},
		},
	}
	resp, err := env.logic.CreateBattle(context.Background(), 100, req)
	if err != nil {
		t.Fatalf("CreateBattle err: %v", err)
	}
	env.logic.JoinBattle(context.Background(), 200, resp.Battle.JoinCode)

	started, err := env.logic.StartBattle(context.Background(), 100, fmt.Sprintf("%d", resp.Battle.BattleID))
	if err != nil {
		t.Fatalf("StartBattle err: %v", err)
	}
	defer env.manager.StopBattle(resp.Battle.BattleID)

	problems := started.Battle.Problems
	if problems[0].ContestID != 2042 || problems[0].ProblemKey != "A" {
		t.Errorf("problem 0 = %d/%s, want 2042/A", problems[0].ContestID, problems[0].ProblemKey)
	}
	if problems[1].ContestID != 1999 || problems[1].ProblemKey != "C" {
		t.Errorf("problem 1 = %d/%s, want 1999/C", problems[1].ContestID, problems[1].ProblemKey)
	}
	// 题库里有的自选题补全元数据
	if problems[0].Name != "Greedy Monocarp" {
		t.Errorf("problem 0 name = %q", problems[0].Name)
	}
}

func TestLeaveBattleLifecycle(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")
	env.addUser(200, "bob_cf")
	resp, _ := env.logic.CreateBattle(context.Background(), 100, ratingBattleReq())
	battleID := resp.Battle.BattleID
	battleIDStr := fmt.Sprintf("%d", battleID)
	env.logic.JoinBattle(context.Background(), 200, resp.Battle.JoinCode)

	// 创建者离开后房主移交
	if _, err := env.logic.LeaveBattle(context.Background(), 100, battleIDStr); err != nil {
		t.Fatalf("LeaveBattle err: %v", err)
	}
	battle, _ := env.store.GetByID(battleID)
	if battle.CreatorID != 200 {
		t.Errorf("creator = %d, want transferred to 200", battle.CreatorID)
	}

	// 重复离开幂等
	if _, err := env.logic.LeaveBattle(context.Background(), 100, battleIDStr); err != nil {
		t.Errorf("repeat leave should be idempotent, got %v", err)
	}

	// 最后一人离开，等待中的对战删除
	if _, err := env.logic.LeaveBattle(context.Background(), 200, battleIDStr); err != nil {
		t.Fatalf("final LeaveBattle err: %v", err)
	}
	if _, err := env.store.GetByID(battleID); err == nil {
		t.Error("empty waiting battle should be deleted")
	}
	if _, ok := env.mirror.Get(battleID); ok {
		t.Error("mirror entry should be removed with the battle")
	}
	found := false
	for _, name := range env.hub.eventTypes() {
		if name == "battle_deleted" {
			found = true
		}
	}
	if !found {
		t.Error("battle_deleted event not emitted")
	}
}

func TestLeaveActiveBattleForfeits(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")
	env.addUser(200, "bob_cf")
	resp, _ := env.logic.CreateBattle(context.Background(), 100, ratingBattleReq())
	battleID := resp.Battle.BattleID
	battleIDStr := fmt.Sprintf("%d", battleID)
	env.logic.JoinBattle(context.Background(), 200, resp.Battle.JoinCode)
	if _, err := env.logic.StartBattle(context.Background(), 100, battleIDStr); err != nil {
		t.Fatalf("StartBattle err: %v", err)
	}

	// B队唯一玩家离开，A队弃权获胜
	if _, err := env.logic.LeaveBattle(context.Background(), 200, battleIDStr); err != nil {
		t.Fatalf("LeaveBattle err: %v", err)
	}
	battle, _ := env.store.GetByID(battleID)
	if battle.Status != model.BattleStatusCompleted {
		t.Fatalf("status = %d, want completed after forfeit", battle.Status)
	}
	if battle.WinningTeam != model.TeamA {
		t.Errorf("winner = %q, want A", battle.WinningTeam)
	}
	if env.manager.Running(battleID) {
		t.Error("poll worker should stop on forfeit")
	}
}

func TestRemovePlayerByCreator(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")
	env.addUser(200, "bob_cf")
	resp, _ := env.logic.CreateBattle(context.Background(), 100, ratingBattleReq())
	battleIDStr := fmt.Sprintf("%d", resp.Battle.BattleID)
	env.logic.JoinBattle(context.Background(), 200, resp.Battle.JoinCode)

	// 非创建者无权移除
	_, err := env.logic.RemovePlayer(context.Background(), 200, types.BattleRemoveReq{
		BattleID: battleIDStr, TargetUserID: "100",
	})
	wantCode(t, err, response.NOT_BATTLE_CREATOR)

	if _, err := env.logic.RemovePlayer(context.Background(), 100, types.BattleRemoveReq{
		BattleID: battleIDStr, TargetUserID: "200",
	}); err != nil {
		t.Fatalf("RemovePlayer err: %v", err)
	}
	players, _ := env.store.ListPlayers(resp.Battle.BattleID)
	if len(players) != 1 {
		t.Errorf("players = %d, want 1 after removal", len(players))
	}
	found := false
	for _, name := range env.hub.eventTypes() {
		if name == "player_removed" {
			found = true
		}
	}
	if !found {
		t.Error("player_removed event not emitted")
	}
}

func TestGetBattleFallsBackToStore(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")
	resp, _ := env.logic.CreateBattle(context.Background(), 100, ratingBattleReq())
	battleID := resp.Battle.BattleID

	// 模拟镜像丢失（如进程重启）
	env.mirror.Remove(battleID)

	got, err := env.logic.GetBattle(context.Background(), types.BattleInfoReq{BattleID: fmt.Sprintf("%d", battleID)})
	if err != nil {
		t.Fatalf("GetBattle err: %v", err)
	}
	if got.Battle.BattleID != battleID {
		t.Errorf("battle id = %d, want %d", got.Battle.BattleID, battleID)
	}
	// 未结束的对战应回填镜像
	if _, ok := env.mirror.Get(battleID); !ok {
		t.Error("store fallback should re-mirror a live battle")
	}

	_, err = env.logic.GetBattle(context.Background(), types.BattleInfoReq{BattleID: "99999"})
	wantCode(t, err, response.BATTLE_NOT_EXIST)
}

func TestGetBattleStats(t *testing.T) {
	env := newBattleEnv()
	env.addUser(100, "alice_cf")
	env.addUser(200, "bob_cf")
	resp, _ := env.logic.CreateBattle(context.Background(), 100, ratingBattleReq())
	battleID := resp.Battle.BattleID
	battleIDStr := fmt.Sprintf("%d", battleID)
	env.logic.JoinBattle(context.Background(), 200, resp.Battle.JoinCode)
	if _, err := env.logic.StartBattle(context.Background(), 100, battleIDStr); err != nil {
		t.Fatalf("StartBattle err: %v", err)
	}
	defer env.manager.StopBattle(battleID)

	env.mirror.MarkSolved(battleID, 0, model.TeamA, 100, "alice", time.Now().Unix())

	stats, err := env.logic.GetBattleStats(context.Background(), battleIDStr)
	if err != nil {
		t.Fatalf("GetBattleStats err: %v", err)
	}
	if stats.Stats.TeamAScore != 100 || stats.Stats.TeamBScore != 0 {
		t.Errorf("scores = (%d,%d), want (100,0)", stats.Stats.TeamAScore, stats.Stats.TeamBScore)
	}
}

func TestParseProblemURL(t *testing.T) {
	tests := []struct {
		url     string
		contest int
		key     string
		ok      bool
	}{
		{"https://codeforces.com/problemset/problem/2042/A", 2042, "A", true},
		{"https://codeforces.com/contest/1999/problem/C", 1999, "C", true},
		{"https://codeforces.com/contest/1999/problem/C1", 1999, "C1", true},
		{"https://codeforces.com/problemset/", 0, "", false},
		{"https://example.com/problemset/problem/2042/A", 0, "", false},
		{"", 0, "", false},
	}
	for _, tc := range tests {
		contest, key, ok := parseProblemURL(tc.url)
		if ok != tc.ok || contest != tc.contest || key != tc.key {
			t.Errorf("parseProblemURL(%q) = (%d,%q,%v), want (%d,%q,%v)",
				tc.url, contest, key, ok, tc.contest, tc.key, tc.ok)
		}
	}
}

package logic

import (
	"context"
	"testing"
	"time"

	"cfbattle/model"
	"cfbattle/types"
)

func activeBattleFixture(store *fakeStore, winCondition string) int64 {
	battle := &model.Battle{
		JoinCode:        "join01",
		DurationSeconds: 3600,
		ProblemCount:    2,
		WinCondition:    winCondition,
		CreatorID:       100,
	}
	creator := &model.BattlePlayer{
		UserID: 100, Username: "alice", Handle: "alice_cf",
		Team: model.TeamA, Position: 0, IsCreator: true,
	}
	problems := []model.BattleProblem{
		{ProblemIndex: 0, Points: 100, ContestID: 2042, ProblemKey: "A"},
		{ProblemIndex: 1, Points: 200, ContestID: 2042, ProblemKey: "B"},
	}
	_ = store.Create(battle, creator, problems)
	_ = store.CreatePlayer(&model.BattlePlayer{
		BattleID: battle.ID, UserID: 200, Username: "bob", Handle: "bob_cf",
		Team: model.TeamB, Position: 0,
	})
	now := time.Now().Unix()
	_, _ = store.Activate(battle.ID, now-600, now+3000)
	return battle.ID
}

func newTestManager(store *fakeStore, fetcher *fakeFetcher, hub *fakePublisher) (*BattleManager, *BattleMirror) {
	mirror := NewBattleMirror()
	mirror.SetRetainer(func(int64, time.Duration) {})
	manager := NewBattleManager(store, mirror, fetcher, hub, nil, time.Second)
	return manager, mirror
}

func TestPollCreditsFirstSolveOnce(t *testing.T) {
	store := newFakeStore()
	battleID := activeBattleFixture(store, model.WinConditionFirstSolve)
	now := time.Now().Unix()
	fetcher := &fakeFetcher{submissions: []CfSubmission{
		{SubmissionID: 11, ContestID: 2042, ProblemKey: "A", Verdict: "OK", Handle: "alice_cf", CreationTime: now - 100},
		{SubmissionID: 12, ContestID: 2042, ProblemKey: "A", Verdict: "OK", Handle: "bob_cf", CreationTime: now - 90},
	}}
	hub := &fakePublisher{}
	manager, mirror := newTestManager(store, fetcher, hub)

	manager.pollOnce(battleID)

	_, _, problems, _ := store.GetFull(battleID)
	if problems[0].SolvedBy != model.TeamA {
		t.Errorf("SolvedBy = %q, want A (earlier submission wins)", problems[0].SolvedBy)
	}
	if problems[0].SolverID != 100 {
		t.Errorf("SolverID = %d, want 100", problems[0].SolverID)
	}
	snapshot, _ := mirror.Get(battleID)
	if snapshot.Problems[0].SolvedBy != model.TeamA {
		t.Error("mirror not updated after credit")
	}
	attempts, _ := store.ListAttempts(battleID)
	if len(attempts) != 2 {
		t.Errorf("attempts = %d, want 2 (losing attempt still recorded)", len(attempts))
	}

	found := false
	for _, name := range hub.eventTypes() {
		if name == "new_solve" {
			found = true
		}
	}
	if !found {
		t.Error("new_solve event not emitted")
	}
}

func TestPollIgnoresRepeatAndOutOfWindow(t *testing.T) {
	store := newFakeStore()
	battleID := activeBattleFixture(store, model.WinConditionFirstSolve)
	now := time.Now().Unix()
	fetcher := &fakeFetcher{submissions: []CfSubmission{
		{SubmissionID: 21, ContestID: 2042, ProblemKey: "A", Verdict: "OK", Handle: "alice_cf", CreationTime: now - 100},
		// 开赛前的过题不计
		{SubmissionID: 22, ContestID: 2042, ProblemKey: "B", Verdict: "OK", Handle: "alice_cf", CreationTime: now - 7200},
		// 测评中的提交跳过，下轮重查
		{SubmissionID: 23, ContestID: 2042, ProblemKey: "B", Verdict: "TESTING", Handle: "bob_cf", CreationTime: now - 50},
	}}
	hub := &fakePublisher{}
	manager, _ := newTestManager(store, fetcher, hub)

	manager.pollOnce(battleID)
	manager.pollOnce(battleID)

	_, _, problems, _ := store.GetFull(battleID)
	if problems[1].SolvedBy != "" {
		t.Errorf("problem B SolvedBy = %q, want unclaimed", problems[1].SolvedBy)
	}
	attempts, _ := store.ListAttempts(battleID)
	if len(attempts) != 1 {
		t.Errorf("attempts = %d, want 1 (repeat poll must not duplicate)", len(attempts))
	}
}

func TestPollExhaustionCompletesBattle(t *testing.T) {
	store := newFakeStore()
	battleID := activeBattleFixture(store, model.WinConditionFirstSolve)
	now := time.Now().Unix()
	fetcher := &fakeFetcher{submissions: []CfSubmission{
		{SubmissionID: 31, ContestID: 2042, ProblemKey: "A", Verdict: "OK", Handle: "alice_cf", CreationTime: now - 100},
		{SubmissionID: 32, ContestID: 2042, ProblemKey: "B", Verdict: "OK", Handle: "alice_cf", CreationTime: now - 80},
	}}
	hub := &fakePublisher{}
	manager, _ := newTestManager(store, fetcher, hub)
	manager.StartBattle(battleID)

	manager.pollOnce(battleID)

	battle, _ := store.GetByID(battleID)
	if battle.Status != model.BattleStatusCompleted {
		t.Fatalf("status = %d, want completed", battle.Status)
	}
	if battle.WinningTeam != model.TeamA {
		t.Errorf("winner = %q, want A", battle.WinningTeam)
	}
	if manager.Running(battleID) {
		t.Error("worker should stop after completion")
	}
	found := false
	for _, name := range hub.eventTypes() {
		if name == "battle_ended" {
			found = true
		}
	}
	if !found {
		t.Error("battle_ended event not emitted")
	}
}

func TestPollExpiryCompletesBattle(t *testing.T) {
	store := newFakeStore()
	battleID := activeBattleFixture(store, model.WinConditionFirstSolve)
	// 将结束时间改到过去
	store.mu.Lock()
	store.battles[battleID].EndTime = time.Now().Unix() - 10
	store.mu.Unlock()

	hub := &fakePublisher{}
	manager, _ := newTestManager(store, &fakeFetcher{}, hub)
	manager.StartBattle(battleID)

	manager.pollOnce(battleID)

	battle, _ := store.GetByID(battleID)
	if battle.Status != model.BattleStatusCompleted {
		t.Fatalf("status = %d, want completed after expiry", battle.Status)
	}
	if battle.WinningTeam != "" {
		t.Errorf("winner = %q, want draw with no solves", battle.WinningTeam)
	}
	if manager.Running(battleID) {
		t.Error("worker should stop after expiry")
	}
}

func TestTotalSolvesIndividualCredit(t *testing.T) {
	store := newFakeStore()
	battleID := activeBattleFixture(store, model.WinConditionTotalSolves)
	now := time.Now().Unix()
	fetcher := &fakeFetcher{submissions: []CfSubmission{
		{SubmissionID: 41, ContestID: 2042, ProblemKey: "A", Verdict: "OK", Handle: "alice_cf", CreationTime: now - 100},
		// 同题另一队也记个人过题
		{SubmissionID: 42, ContestID: 2042, ProblemKey: "A", Verdict: "OK", Handle: "bob_cf", CreationTime: now - 90},
	}}
	hub := &fakePublisher{}
	manager, _ := newTestManager(store, fetcher, hub)

	manager.pollOnce(battleID)

	solves, _ := store.ListSolves(battleID)
	if len(solves) != 2 {
		t.Fatalf("solves = %d, want 2 (per-player facts)", len(solves))
	}
	// 首个归属仍然唯一
	_, _, problems, _ := store.GetFull(battleID)
	if problems[0].SolvedBy != model.TeamA {
		t.Errorf("SolvedBy = %q, want A", problems[0].SolvedBy)
	}
}

func TestCompleteBattleForfeit(t *testing.T) {
	store := newFakeStore()
	battleID := activeBattleFixture(store, model.WinConditionFirstSolve)
	hub := &fakePublisher{}
	manager, mirror := newTestManager(store, &fakeFetcher{}, hub)
	manager.StartBattle(battleID)

	manager.CompleteBattle(context.Background(), battleID, model.TeamB, FinishReasonForfeit)

	battle, _ := store.GetByID(battleID)
	if battle.Status != model.BattleStatusCompleted || battle.WinningTeam != model.TeamB {
		t.Fatalf("battle = status %d winner %q, want completed/B", battle.Status, battle.WinningTeam)
	}
	snapshot, ok := mirror.Get(battleID)
	if !ok || snapshot.Status != model.BattleStatusCompleted {
		t.Error("mirror should reflect completion")
	}

	// 并发路径重复结算应无副作用
	manager.CompleteBattle(context.Background(), battleID, model.TeamA, FinishReasonForfeit)
	battle, _ = store.GetByID(battleID)
	if battle.WinningTeam != model.TeamB {
		t.Errorf("winner overwritten to %q by repeat completion", battle.WinningTeam)
	}
}

func TestStartStopWorker(t *testing.T) {
	store := newFakeStore()
	battleID := activeBattleFixture(store, model.WinConditionFirstSolve)
	manager, _ := newTestManager(store, &fakeFetcher{}, &fakePublisher{})

	manager.StartBattle(battleID)
	if !manager.Running(battleID) {
		t.Fatal("worker should run after StartBattle")
	}
	manager.StartBattle(battleID)
	manager.StopBattle(battleID)
	if manager.Running(battleID) {
		t.Fatal("worker should stop after StopBattle")
	}
	// 幂等
	manager.StopBattle(battleID)
}

func TestFetchStrategyPerContest(t *testing.T) {
	store := newFakeStore()
	battleID := activeBattleFixture(store, model.WinConditionFirstSolve)
	fetcher := &fakeFetcher{}
	manager, mirror := newTestManager(store, fetcher, &fakePublisher{})

	snapshot, ok := manager.loadSnapshot(battleID)
	if !ok {
		t.Fatal("loadSnapshot miss")
	}
	// 玩家数超过未解题数时应按比赛拉取
	extra := []types.BattlePlayerInfo{
		{UserID: 300, Handle: "carol_cf", Team: model.TeamA, Position: 1},
		{UserID: 400, Handle: "dave_cf", Team: model.TeamB, Position: 1},
	}
	for _, p := range extra {
		mirror.AddPlayer(battleID, p)
	}
	mirror.MarkSolved(battleID, 1, model.TeamA, 100, "alice", snapshot.StartTime+1)
	snapshot, _ = mirror.Get(battleID)

	manager.fetchSubmissions(snapshot, 0)
	if fetcher.userCalls != 0 {
		t.Errorf("userCalls = %d, want 0", fetcher.userCalls)
	}
	if len(fetcher.contests) != 1 || fetcher.contests[0] != 2042 {
		t.Errorf("contests = %v, want [2042]", fetcher.contests)
	}
}

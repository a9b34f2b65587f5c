package logic

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"cfbattle/model"
	"cfbattle/types"
)

// fakeStore 内存实现的持久层，行为与MySQL版本保持一致：
// 条件更新、唯一索引去重都按真实语义模拟。
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	battles  map[int64]*model.Battle
	players  map[int64][]model.BattlePlayer
	problems map[int64][]model.BattleProblem
	attempts map[int64][]model.BattleAttempt
	solves   map[int64][]model.BattleSolve
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:   1,
		battles:  make(map[int64]*model.Battle),
		players:  make(map[int64][]model.BattlePlayer),
		problems: make(map[int64][]model.BattleProblem),
		attempts: make(map[int64][]model.BattleAttempt),
		solves:   make(map[int64][]model.BattleSolve),
	}
}

func (s *fakeStore) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *fakeStore) Create(battle *model.Battle, creator *model.BattlePlayer, problems []model.BattleProblem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	battle.ID = s.allocID()
	saved := *battle
	s.battles[battle.ID] = &saved
	creator.ID = s.allocID()
	creator.BattleID = battle.ID
	s.players[battle.ID] = []model.BattlePlayer{*creator}
	for i := range problems {
		problems[i].ID = s.allocID()
		problems[i].BattleID = battle.ID
	}
	s.problems[battle.ID] = append([]model.BattleProblem(nil), problems...)
	return nil
}

func (s *fakeStore) GetByID(id int64) (model.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	battle, ok := s.battles[id]
	if !ok {
		return model.Battle{}, gorm.ErrRecordNotFound
	}
	return *battle, nil
}

func (s *fakeStore) GetByJoinCode(code string) (model.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, battle := range s.battles {
		if battle.JoinCode == code {
			return *battle, nil
		}
	}
	return model.Battle{}, gorm.ErrRecordNotFound
}

func (s *fakeStore) GetFull(id int64) (model.Battle, []model.BattlePlayer, []model.BattleProblem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	battle, ok := s.battles[id]
	if !ok {
		return model.Battle{}, nil, nil, gorm.ErrRecordNotFound
	}
	return *battle, append([]model.BattlePlayer(nil), s.players[id]...), append([]model.BattleProblem(nil), s.problems[id]...), nil
}

func (s *fakeStore) GetActiveByUser(userID int64) (model.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, battle := range s.battles {
		if battle.Status == model.BattleStatusCompleted {
			continue
		}
		for _, p := range s.players[id] {
			if p.UserID == userID {
				return *battle, nil
			}
		}
	}
	return model.Battle{}, gorm.ErrRecordNotFound
}

func (s *fakeStore) List(offset, limit int, status *int8) ([]model.Battle, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.Battle
	for _, battle := range s.battles {
		if status != nil && battle.Status != *status {
			continue
		}
		all = append(all, *battle)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *fakeStore) ListActive() ([]model.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []model.Battle
	for _, battle := range s.battles {
		if battle.Status == model.BattleStatusActive {
			active = append(active, *battle)
		}
	}
	return active, nil
}

func (s *fakeStore) CreatePlayer(player *model.BattlePlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players[player.BattleID] {
		if p.UserID == player.UserID {
			return gorm.ErrDuplicatedKey
		}
		if p.Team == player.Team && p.Position == player.Position {
			return gorm.ErrDuplicatedKey
		}
	}
	player.ID = s.allocID()
	s.players[player.BattleID] = append(s.players[player.BattleID], *player)
	return nil
}

func (s *fakeStore) DeletePlayer(battleID, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	players := s.players[battleID]
	for i, p := range players {
		if p.UserID == userID {
			s.players[battleID] = append(players[:i], players[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *fakeStore) ListPlayers(battleID int64) ([]model.BattlePlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.BattlePlayer(nil), s.players[battleID]...), nil
}

func (s *fakeStore) CountTeamPlayers(battleID int64) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var aCount, bCount int64
	for _, p := range s.players[battleID] {
		if p.Team == model.TeamA {
			aCount++
		} else {
			bCount++
		}
	}
	return aCount, bCount, nil
}

func (s *fakeStore) UpdatePlayerSlot(battleID, userID int64, team string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	players := s.players[battleID]
	for i := range players {
		if players[i].UserID == userID {
			players[i].Team = team
			players[i].Position = position
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *fakeStore) TransferCreator(battleID, newCreatorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	battle, ok := s.battles[battleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	battle.CreatorID = newCreatorID
	players := s.players[battleID]
	for i := range players {
		players[i].IsCreator = players[i].UserID == newCreatorID
	}
	return nil
}

func (s *fakeStore) Activate(id, startTime, endTime int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	battle, ok := s.battles[id]
	if !ok || battle.Status != model.BattleStatusWaiting {
		return false, nil
	}
	battle.Status = model.BattleStatusActive
	battle.StartTime = startTime
	battle.EndTime = endTime
	return true, nil
}

func (s *fakeStore) SaveProblem(problem *model.BattleProblem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	problems := s.problems[problem.BattleID]
	for i := range problems {
		if problems[i].ID == problem.ID {
			problems[i].ContestID = problem.ContestID
			problems[i].ProblemKey = problem.ProblemKey
			problems[i].Name = problem.Name
			problems[i].Rating = problem.Rating
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *fakeStore) Complete(id int64, winningTeam string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	battle, ok := s.battles[id]
	if !ok || battle.Status != model.BattleStatusActive {
		return false, nil
	}
	battle.Status = model.BattleStatusCompleted
	battle.WinningTeam = winningTeam
	return true, nil
}

func (s *fakeStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.battles, id)
	delete(s.players, id)
	delete(s.problems, id)
	delete(s.attempts, id)
	delete(s.solves, id)
	return nil
}

func (s *fakeStore) MarkProblemSolved(battleID int64, problemIndex int, team string, solverID int64, solverName string, solvedAt int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	problems := s.problems[battleID]
	for i := range problems {
		if problems[i].ProblemIndex != problemIndex {
			continue
		}
		if problems[i].SolvedBy != "" {
			return false, nil
		}
		problems[i].SolvedBy = team
		problems[i].SolverID = solverID
		problems[i].SolverName = solverName
		problems[i].SolvedAt = solvedAt
		return true, nil
	}
	return false, nil
}

func (s *fakeStore) CreateAttempt(attempt *model.BattleAttempt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts[attempt.BattleID] {
		if a.SubmissionID == attempt.SubmissionID {
			return false, nil
		}
	}
	attempt.ID = s.allocID()
	s.attempts[attempt.BattleID] = append(s.attempts[attempt.BattleID], *attempt)
	return true, nil
}

func (s *fakeStore) CreateSolve(solve *model.BattleSolve) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.solves[solve.BattleID] {
		if existing.ProblemIndex == solve.ProblemIndex && existing.UserID == solve.UserID {
			return false, nil
		}
	}
	solve.ID = s.allocID()
	s.solves[solve.BattleID] = append(s.solves[solve.BattleID], *solve)
	return true, nil
}

func (s *fakeStore) ListSolves(battleID int64) ([]model.BattleSolve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.BattleSolve(nil), s.solves[battleID]...), nil
}

func (s *fakeStore) ListAttempts(battleID int64) ([]model.BattleAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.BattleAttempt(nil), s.attempts[battleID]...), nil
}

// fakeFetcher 固定返回预置提交
type fakeFetcher struct {
	mu          sync.Mutex
	submissions []CfSubmission
	userCalls   int
	contests    []int
	err         error
}

func (f *fakeFetcher) UserStatus(ctx context.Context, handle string, count int, opts CfRequestOpts) ([]CfSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	if f.err != nil {
		return nil, f.err
	}
	var result []CfSubmission
	for _, sub := range f.submissions {
		if sub.Handle == handle {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (f *fakeFetcher) ContestStatus(ctx context.Context, contestID int, count int, opts CfRequestOpts) ([]CfSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contests = append(f.contests, contestID)
	if f.err != nil {
		return nil, f.err
	}
	var result []CfSubmission
	for _, sub := range f.submissions {
		if sub.ContestID == contestID {
			result = append(result, sub)
		}
	}
	return result, nil
}

// fakePublisher 记录全部推送
type fakePublisher struct {
	mu     sync.Mutex
	events []types.WsResponse
}

func (p *fakePublisher) SendToBattle(battleID int64, resp types.WsResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, resp)
}

func (p *fakePublisher) SendToUser(userID int64, resp types.WsResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, resp)
}

func (p *fakePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var names []string
	for _, e := range p.events {
		names = append(names, e.Type)
	}
	return names
}

// fakeUsers 内存用户表
type fakeUsers struct {
	users map[int64]model.User
}

func (u *fakeUsers) GetByID(id int64) (model.User, error) {
	user, ok := u.users[id]
	if !ok {
		return model.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

// fakeProblems 内存题库
type fakeProblems struct {
	pool []model.CodeforcesProblem
}

func (p *fakeProblems) GetRandomByDifficulty(minDifficulty, maxDifficulty int, excludeIDs []string) (model.CodeforcesProblem, error) {
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	for _, problem := range p.pool {
		if problem.Difficulty < minDifficulty || problem.Difficulty > maxDifficulty {
			continue
		}
		if excluded[problem.ID] {
			continue
		}
		return problem, nil
	}
	return model.CodeforcesProblem{}, gorm.ErrRecordNotFound
}

func (p *fakeProblems) GetByID(id string) (model.CodeforcesProblem, error) {
	for _, problem := range p.pool {
		if problem.ID == id {
			return problem, nil
		}
	}
	return model.CodeforcesProblem{}, gorm.ErrRecordNotFound
}

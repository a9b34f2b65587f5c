package logic

import (
	"sync"
	"time"

	"cfbattle/model"
	"cfbattle/types"
)

// 镜像操作结果码
type MirrorResult int

const (
	MirrorOK MirrorResult = iota
	MirrorNotFound
	MirrorSlotOccupied
	MirrorAlreadySolved
)

type mirrorEntry struct {
	mu       sync.Mutex
	snapshot *types.BattleSnapshot
}

// BattleMirror 进行中对战的内存镜像。
// 持久层是唯一可信来源，镜像只是缓存：任何不一致直接丢弃条目从库重建。
// 同一对战的写操作由条目级互斥串行，不同对战互不阻塞。
type BattleMirror struct {
	mu       sync.RWMutex
	entries  map[int64]*mirrorEntry
	byCode   map[string]int64
	byUser   map[int64]int64
	retainer func(battleID int64, d time.Duration)
}

var battleMirrorOnce sync.Once
var battleMirror *BattleMirror

func GetBattleMirror() *BattleMirror {
	battleMirrorOnce.Do(func() {
		battleMirror = NewBattleMirror()
	})
	return battleMirror
}

func NewBattleMirror() *BattleMirror {
	return &BattleMirror{
		entries: make(map[int64]*mirrorEntry),
		byCode:  make(map[string]int64),
		byUser:  make(map[int64]int64),
	}
}

// Put 整体替换快照并重建索引
func (m *BattleMirror) Put(snapshot *types.BattleSnapshot) {
	if snapshot == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[snapshot.BattleID]; ok {
		m.deindexLocked(old.snapshot)
	}
	entry := &mirrorEntry{snapshot: snapshot.Clone()}
	entry.snapshot.Version++
	m.entries[snapshot.BattleID] = entry
	m.indexLocked(entry.snapshot)
}

func (m *BattleMirror) indexLocked(snapshot *types.BattleSnapshot) {
	if snapshot.JoinCode != "" {
		m.byCode[snapshot.JoinCode] = snapshot.BattleID
	}
	for _, p := range snapshot.Players {
		m.byUser[p.UserID] = snapshot.BattleID
	}
}

func (m *BattleMirror) deindexLocked(snapshot *types.BattleSnapshot) {
	if snapshot == nil {
		return
	}
	if id, ok := m.byCode[snapshot.JoinCode]; ok && id == snapshot.BattleID {
		delete(m.byCode, snapshot.JoinCode)
	}
	for _, p := range snapshot.Players {
		if id, ok := m.byUser[p.UserID]; ok && id == snapshot.BattleID {
			delete(m.byUser, p.UserID)
		}
	}
}

func (m *BattleMirror) entry(battleID int64) (*mirrorEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[battleID]
	return entry, ok
}

func (m *BattleMirror) Get(battleID int64) (*types.BattleSnapshot, bool) {
	entry, ok := m.entry(battleID)
	if !ok {
		return nil, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.snapshot.Clone(), true
}

func (m *BattleMirror) GetByCode(code string) (*types.BattleSnapshot, bool) {
	m.mu.RLock()
	battleID, ok := m.byCode[code]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return m.Get(battleID)
}

func (m *BattleMirror) GetByParticipant(userID int64) (*types.BattleSnapshot, bool) {
	m.mu.RLock()
	battleID, ok := m.byUser[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return m.Get(battleID)
}

// AddPlayer 玩家加入后更新镜像
func (m *BattleMirror) AddPlayer(battleID int64, player types.BattlePlayerInfo) MirrorResult {
	entry, ok := m.entry(battleID)
	if !ok {
		return MirrorNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	for _, p := range entry.snapshot.Players {
		if p.Team == player.Team && p.Position == player.Position {
			return MirrorSlotOccupied
		}
		if p.UserID == player.UserID {
			return MirrorSlotOccupied
		}
	}
	entry.snapshot.Players = append(entry.snapshot.Players, player)
	entry.snapshot.Version++
	m.mu.Lock()
	m.byUser[player.UserID] = battleID
	m.mu.Unlock()
	return MirrorOK
}

// RemovePlayer 玩家离开后更新镜像
func (m *BattleMirror) RemovePlayer(battleID, userID int64) MirrorResult {
	entry, ok := m.entry(battleID)
	if !ok {
		return MirrorNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	players := entry.snapshot.Players
	found := false
	next := players[:0]
	for _, p := range players {
		if p.UserID == userID {
			found = true
			continue
		}
		next = append(next, p)
	}
	if !found {
		return MirrorNotFound
	}
	entry.snapshot.Players = next
	entry.snapshot.Version++
	m.mu.Lock()
	if id, ok := m.byUser[userID]; ok && id == battleID {
		delete(m.byUser, userID)
	}
	m.mu.Unlock()
	return MirrorOK
}

// MovePlayer 目标位置被占用时返回冲突，否则原地修改
func (m *BattleMirror) MovePlayer(battleID, userID int64, team string, position int) (*types.BattleSnapshot, MirrorResult) {
	entry, ok := m.entry(battleID)
	if !ok {
		return nil, MirrorNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	var target *types.BattlePlayerInfo
	for i := range entry.snapshot.Players {
		p := &entry.snapshot.Players[i]
		if p.UserID == userID {
			target = p
			continue
		}
		if p.Team == team && p.Position == position {
			return nil, MirrorSlotOccupied
		}
	}
	if target == nil {
		return nil, MirrorNotFound
	}
	target.Team = team
	target.Position = position
	entry.snapshot.Version++
	return entry.snapshot.Clone(), MirrorOK
}

// MarkSolved 题目已有归属时无效果，返回已解出
func (m *BattleMirror) MarkSolved(battleID int64, problemIndex int, team string, solverID int64, solverName string, solvedAt int64) MirrorResult {
	entry, ok := m.entry(battleID)
	if !ok {
		return MirrorNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	for i := range entry.snapshot.Problems {
		p := &entry.snapshot.Problems[i]
		if p.ProblemIndex != problemIndex {
			continue
		}
		if p.SolvedBy != "" {
			return MirrorAlreadySolved
		}
		p.SolvedBy = team
		p.SolverID = solverID
		p.SolverName = solverName
		p.SolvedAt = solvedAt
		entry.snapshot.Version++
		return MirrorOK
	}
	return MirrorNotFound
}

// SetStatus 生命周期变更写入镜像
func (m *BattleMirror) SetStatus(battleID int64, status int8, startTime, endTime int64, winningTeam string) MirrorResult {
	entry, ok := m.entry(battleID)
	if !ok {
		return MirrorNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.snapshot.Status = status
	if startTime > 0 && entry.snapshot.StartTime == 0 {
		entry.snapshot.StartTime = startTime
	}
	if endTime > 0 && entry.snapshot.EndTime == 0 {
		entry.snapshot.EndTime = endTime
	}
	entry.snapshot.WinningTeam = winningTeam
	entry.snapshot.Version++
	if status == model.BattleStatusCompleted {
		m.scheduleEviction(battleID)
	}
	return MirrorOK
}

// UpdateProblems 开始对战时写入已确定的题目
func (m *BattleMirror) UpdateProblems(battleID int64, problems []types.BattleProblemInfo) MirrorResult {
	entry, ok := m.entry(battleID)
	if !ok {
		return MirrorNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.snapshot.Problems = make([]types.BattleProblemInfo, len(problems))
	copy(entry.snapshot.Problems, problems)
	entry.snapshot.Version++
	return MirrorOK
}

// Remove 驱逐并解除全部索引
func (m *BattleMirror) Remove(battleID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[battleID]
	if !ok {
		return
	}
	m.deindexLocked(entry.snapshot)
	delete(m.entries, battleID)
}

// SetRetainer 注入已结束对战的延迟驱逐实现，便于测试替换
func (m *BattleMirror) SetRetainer(retainer func(battleID int64, d time.Duration)) {
	m.retainer = retainer
}

func (m *BattleMirror) scheduleEviction(battleID int64) {
	retention := 5 * time.Minute
	if conf := currentBattleConfig(); conf != nil {
		retention = conf.MirrorRetention()
	}
	if m.retainer != nil {
		m.retainer(battleID, retention)
		return
	}
	time.AfterFunc(retention, func() {
		m.Remove(battleID)
	})
}

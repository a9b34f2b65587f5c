package logic

import (
	"container/heap"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"cfbattle/configs"
	"cfbattle/global"
	"cfbattle/log/zlog"
)

const (
	cfDefaultSpacing   = time.Second
	cfDefaultTimeout   = 10 * time.Second
	cfDefaultCacheTTL  = 10 * time.Second
	cfDefaultSweep     = 30 * time.Second
	cfDefaultQueueCap  = 256
	cfMaxSubmissions   = 50
	cfEndpointUser     = "user.status"
	cfEndpointContest  = "contest.status"
	cfAPIBase          = "https://codeforces.com/api/"
)

var (
	ErrCfQueueFull   = errors.New("请求队列已满")
	ErrCfGatewayDown = errors.New("请求网关已停止")
)

type CfSubmission struct {
	SubmissionID int64  `json:"submission_id"`
	ContestID    int    `json:"contest_id"`
	ProblemKey   string `json:"problem_key"`
	Verdict      string `json:"verdict"`
	Handle       string `json:"handle"`
	CreationTime int64  `json:"creation_time"`
}

// ProblemID 形如"2042A"，与battle_problems中的contest_id+problem_key对应
func (s CfSubmission) ProblemID() string {
	if s.ContestID <= 0 || s.ProblemKey == "" {
		return ""
	}
	return fmt.Sprintf("%d%s", s.ContestID, s.ProblemKey)
}

// CfRequestOpts 请求选项：priority越大越先出队，useCache命中缓存时不进队列
type CfRequestOpts struct {
	Priority int
	UseCache bool
}

type cfResult struct {
	submissions []CfSubmission
	err         error
}

type cfRequest struct {
	endpoint string
	params   url.Values
	cacheKey string
	priority int
	seq      int64
	resultCh chan cfResult
}

// 优先级大根堆，同优先级先进先出
type cfRequestQueue []*cfRequest

func (q cfRequestQueue) Len() int { return len(q) }
func (q cfRequestQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}
func (q cfRequestQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *cfRequestQueue) Push(x interface{}) {
	*q = append(*q, x.(*cfRequest))
}
func (q *cfRequestQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

type cfCacheEntry struct {
	submissions []CfSubmission
	expireAt    time.Time
}

type cfFetchFunc func(ctx context.Context, endpoint string, params url.Values) ([]CfSubmission, error)

// CfGateway 全局唯一的Codeforces请求网关。
// 所有外部请求经单一队列串行发出，按固定间隔限速；结果短期缓存。
type CfGateway struct {
	mu       sync.Mutex
	queue    cfRequestQueue
	queueCap int
	seq      int64

	cacheMu  sync.RWMutex
	cache    map[string]cfCacheEntry
	cacheTTL time.Duration

	spacing       time.Duration
	timeout       time.Duration
	sweepInterval time.Duration
	fetch         cfFetchFunc

	reqTicker   *time.Ticker
	sweepTicker *time.Ticker
	stopCh      chan struct{}
	running     int32
}

var cfGatewayOnce sync.Once
var cfGateway *CfGateway

func GetCfGateway() *CfGateway {
	cfGatewayOnce.Do(func() {
		conf := configs.CodeforcesConfig{}
		if global.Config != nil {
			conf = global.Config.Codeforces
		}
		cfGateway = NewCfGateway(conf, nil)
	})
	return cfGateway
}

// NewCfGateway 构造网关；fetch为nil时使用真实Codeforces接口，测试可注入假实现
func NewCfGateway(conf configs.CodeforcesConfig, fetch cfFetchFunc) *CfGateway {
	g := &CfGateway{
		queue:         make(cfRequestQueue, 0),
		queueCap:      conf.QueueCap,
		cache:         make(map[string]cfCacheEntry),
		cacheTTL:      conf.CacheTTL(),
		spacing:       conf.RequestInterval(),
		timeout:       conf.RequestTimeout(),
		sweepInterval: conf.CacheSweepInterval(),
		fetch:         fetch,
	}
	if g.queueCap <= 0 {
		g.queueCap = cfDefaultQueueCap
	}
	if g.fetch == nil {
		g.fetch = fetchCodeforces
	}
	return g
}

func StartCfGateway() {
	GetCfGateway().Start()
}

func StopCfGateway() {
	GetCfGateway().Stop()
}

func (g *CfGateway) Start() {
	if !atomic.CompareAndSwapInt32(&g.running, 0, 1) {
		return
	}
	g.reqTicker = time.NewTicker(g.spacing)
	g.sweepTicker = time.NewTicker(g.sweepInterval)
	g.stopCh = make(chan struct{})
	go g.requestLoop()
	go g.sweepLoop()
}

func (g *CfGateway) Stop() {
	if !atomic.CompareAndSwapInt32(&g.running, 1, 0) {
		return
	}
	if g.reqTicker != nil {
		g.reqTicker.Stop()
	}
	if g.sweepTicker != nil {
		g.sweepTicker.Stop()
	}
	if g.stopCh != nil {
		close(g.stopCh)
	}
	g.rejectAll(ErrCfGatewayDown)
}

// UserStatus 拉取某账号最近提交
func (g *CfGateway) UserStatus(ctx context.Context, handle string, count int, opts CfRequestOpts) ([]CfSubmission, error) {
	if count <= 0 {
		count = cfMaxSubmissions
	}
	params := url.Values{}
	params.Set("handle", handle)
	params.Set("from", "1")
	params.Set("count", strconv.Itoa(count))
	return g.do(ctx, cfEndpointUser, params, opts)
}

// ContestStatus 拉取某场比赛最近提交
func (g *CfGateway) ContestStatus(ctx context.Context, contestID int, count int, opts CfRequestOpts) ([]CfSubmission, error) {
	if count <= 0 {
		count = cfMaxSubmissions
	}
	params := url.Values{}
	params.Set("contestId", strconv.Itoa(contestID))
	params.Set("from", "1")
	params.Set("count", strconv.Itoa(count))
	return g.do(ctx, cfEndpointContest, params, opts)
}

func (g *CfGateway) do(ctx context.Context, endpoint string, params url.Values, opts CfRequestOpts) ([]CfSubmission, error) {
	cacheKey := endpoint + "?" + params.Encode()
	if opts.UseCache {
		if cached, ok := g.getCache(cacheKey); ok {
			return cached, nil
		}
	}

	req := &cfRequest{
		endpoint: endpoint,
		params:   params,
		cacheKey: cacheKey,
		priority: opts.Priority,
		resultCh: make(chan cfResult, 1),
	}
	if err := g.enqueue(req); err != nil {
		return nil, err
	}

	select {
	case result := <-req.resultCh:
		return result.submissions, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *CfGateway) enqueue(req *cfRequest) error {
	if atomic.LoadInt32(&g.running) == 0 {
		return ErrCfGatewayDown
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) >= g.queueCap {
		return ErrCfQueueFull
	}
	g.seq++
	req.seq = g.seq
	heap.Push(&g.queue, req)
	return nil
}

func (g *CfGateway) pop() (*cfRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) == 0 {
		return nil, false
	}
	return heap.Pop(&g.queue).(*cfRequest), true
}

func (g *CfGateway) rejectAll(err error) {
	g.mu.Lock()
	pending := g.queue
	g.queue = make(cfRequestQueue, 0)
	g.mu.Unlock()
	for _, req := range pending {
		req.resultCh <- cfResult{err: err}
	}
}

func (g *CfGateway) requestLoop() {
	for {
		select {
		case <-g.reqTicker.C:
			req, ok := g.pop()
			if !ok {
				continue
			}
			// 排队期间可能已有同参数请求写入缓存
			if cached, ok := g.getCache(req.cacheKey); ok {
				req.resultCh <- cfResult{submissions: cached}
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
			submissions, err := g.fetch(ctx, req.endpoint, req.params)
			cancel()
			if err != nil {
				zlog.Warnf("Codeforces请求失败 endpoint=%s:%v", req.endpoint, err)
				req.resultCh <- cfResult{err: err}
				continue
			}
			g.setCache(req.cacheKey, submissions)
			req.resultCh <- cfResult{submissions: submissions}
		case <-g.stopCh:
			return
		}
	}
}

func (g *CfGateway) sweepLoop() {
	for {
		select {
		case <-g.sweepTicker.C:
			g.sweepCache(time.Now())
		case <-g.stopCh:
			return
		}
	}
}

func (g *CfGateway) getCache(key string) ([]CfSubmission, bool) {
	g.cacheMu.RLock()
	defer g.cacheMu.RUnlock()
	entry, ok := g.cache[key]
	if !ok || time.Now().After(entry.expireAt) {
		return nil, false
	}
	result := make([]CfSubmission, len(entry.submissions))
	copy(result, entry.submissions)
	return result, true
}

func (g *CfGateway) setCache(key string, submissions []CfSubmission) {
	items := make([]CfSubmission, len(submissions))
	copy(items, submissions)
	g.cacheMu.Lock()
	g.cache[key] = cfCacheEntry{submissions: items, expireAt: time.Now().Add(g.cacheTTL)}
	g.cacheMu.Unlock()
}

func (g *CfGateway) sweepCache(now time.Time) {
	g.cacheMu.Lock()
	for key, entry := range g.cache {
		if now.After(entry.expireAt) {
			delete(g.cache, key)
		}
	}
	g.cacheMu.Unlock()
}

type cfStatusResponse struct {
	Status  string            `json:"status"`
	Result  []cfRawSubmission `json:"result"`
	Comment string            `json:"comment"`
}

type cfRawSubmission struct {
	ID                  int64  `json:"id"`
	Verdict             string `json:"verdict"`
	CreationTimeSeconds int64  `json:"creationTimeSeconds"`
	Problem             struct {
		ContestID int    `json:"contestId"`
		Index     string `json:"index"`
	} `json:"problem"`
	Author struct {
		Members []struct {
			Handle string `json:"handle"`
		} `json:"members"`
	} `json:"author"`
}

func fetchCodeforces(ctx context.Context, endpoint string, params url.Values) ([]CfSubmission, error) {
	client := &http.Client{}
	reqURL := cfAPIBase + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP状态码异常:%d", resp.StatusCode)
	}
	var data cfStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if data.Status != "OK" {
		if data.Comment != "" {
			return nil, fmt.Errorf("API返回失败:%s", data.Comment)
		}
		return nil, fmt.Errorf("API返回失败")
	}
	items := make([]CfSubmission, 0, len(data.Result))
	for _, raw := range data.Result {
		item := CfSubmission{
			SubmissionID: raw.ID,
			ContestID:    raw.Problem.ContestID,
			ProblemKey:   raw.Problem.Index,
			Verdict:      raw.Verdict,
			CreationTime: raw.CreationTimeSeconds,
		}
		if len(raw.Author.Members) > 0 {
			item.Handle = raw.Author.Members[0].Handle
		}
		items = append(items, item)
	}
	return items, nil
}

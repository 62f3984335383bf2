package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/config"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/handler"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/repository"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler/schedulertest"
)

const (
	testSecret = "test-secret"
	testCookie = "__test_token"
	testWeek   = "2026-01-03"
)

// fakeStore 在内存中实现写接口，语义与 repository 一致
type fakeStore struct {
	schedulertest.Store

	nextID int64
	// beforeApply 在 ApplyOverrideChanges 检查之前调用，用来模拟并发修改
	beforeApply func(s *fakeStore)
}

func (s *fakeStore) current(employeeID int64, date time.Time) *int64 {
	for _, ov := range s.Overrides {
		if ov.IsActive && ov.EmployeeID == employeeID && ov.Date.Equal(scheduler.Day(date)) {
			id := ov.ID
			return &id
		}
	}
	return nil
}

func (s *fakeStore) replace(changes []domain.OverrideChange, check bool) ([]domain.ShiftOverride, error) {
	s.Lock()
	defer s.Unlock()

	if check {
		for _, c := range changes {
			cur, want := s.current(c.EmployeeID, c.Date), c.ExpectedOverrideID
			if (cur == nil) != (want == nil) || (cur != nil && *cur != *want) {
				return nil, repository.ErrVersionConflict
			}
		}
	}

	var out []domain.ShiftOverride
	for _, c := range changes {
		for i := range s.Overrides {
			if s.Overrides[i].IsActive && s.Overrides[i].EmployeeID == c.EmployeeID && s.Overrides[i].Date.Equal(scheduler.Day(c.Date)) {
				s.Overrides[i].IsActive = false
			}
		}
		s.nextID++
		ov := domain.ShiftOverride{
			ID:         1000 + s.nextID,
			EmployeeID: c.EmployeeID,
			Date:       scheduler.Day(c.Date),
			Shift:      c.Shift,
			Location:   c.Location,
			IsActive:   true,
		}
		s.Overrides = append(s.Overrides, ov)
		out = append(out, ov)
	}
	return out, nil
}

func (s *fakeStore) UpsertOverride(ctx context.Context, change domain.OverrideChange) (*domain.ShiftOverride, error) {
	ovs, err := s.replace([]domain.OverrideChange{change}, false)
	if err != nil {
		return nil, err
	}
	return &ovs[0], nil
}

func (s *fakeStore) ApplyOverrideChanges(ctx context.Context, changes []domain.OverrideChange) ([]domain.ShiftOverride, error) {
	if s.beforeApply != nil {
		s.beforeApply(s)
	}
	return s.replace(changes, true)
}

func (s *fakeStore) DeactivateOverride(ctx context.Context, id int64) (*domain.ShiftOverride, error) {
	s.Lock()
	defer s.Unlock()
	for i := range s.Overrides {
		if s.Overrides[i].ID == id && s.Overrides[i].IsActive {
			s.Overrides[i].IsActive = false
			ov := s.Overrides[i]
			return &ov, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) UpsertCoverageRule(ctx context.Context, rule *domain.CoverageRule) error {
	s.Lock()
	defer s.Unlock()
	rule.ID = int64(rule.DayOfWeek + 1)
	for i := range s.Rules {
		if s.Rules[i].DayOfWeek == rule.DayOfWeek {
			s.Rules[i] = *rule
			return nil
		}
	}
	s.Rules = append(s.Rules, *rule)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.ScheduleEvent
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if key != domain.ScheduleEventQueue {
		return nil
	}
	var ev domain.ScheduleEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		return err
	}
	p.events = append(p.events, ev)
	return nil
}

// recordingCache 不缓存，只记录失效调用
type recordingCache struct {
	mu          sync.Mutex
	invalidated []string
	keys        []string // 日期:门店，与 Redis 中的键一一对应，空门店表示不限门店视图
	cleared     int
}

func (c *recordingCache) GetOrLoad(ctx context.Context, date time.Time, scope string, load func(ctx context.Context) ([]scheduler.ValidationResult, error)) ([]scheduler.ValidationResult, error) {
	return load(ctx)
}

func (c *recordingCache) Invalidate(ctx context.Context, date time.Time, scopes ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, scheduler.DateKey(date))
	c.keys = append(c.keys, scheduler.DateKey(date)+":")
	for _, scope := range scopes {
		if scope != "" {
			c.keys = append(c.keys, scheduler.DateKey(date)+":"+scope)
		}
	}
	return nil
}

func (c *recordingCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared++
	return nil
}

// rosterStore A 组和 B 组按顺序编号，所有人周四休息
func rosterStore(teamA, teamB []string) *fakeStore {
	s := &fakeStore{}
	s.Locations = []string{"DXB"}
	id := int64(0)
	for _, name := range teamA {
		id++
		s.Employees = append(s.Employees, schedulertest.Employee(id, name, domain.TeamA, time.Thursday))
	}
	for _, name := range teamB {
		id++
		s.Employees = append(s.Employees, schedulertest.Employee(id, name, domain.TeamB, time.Thursday))
	}
	return s
}

func defaultRoster() *fakeStore {
	return rosterStore(
		[]string{"王芳", "李娜", "张伟", "陈静", "刘洋"},
		[]string{"赵敏", "孙丽", "周杰"},
	)
}

type testServer struct {
	h     *handler.Handler
	store *fakeStore
	pub   *fakePublisher
	cache *recordingCache
}

func newTestServer(t *testing.T, store *fakeStore) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.JWT.CookieName = testCookie
	cfg.RabbitMQ.PublishTimeout = 1

	cache := &recordingCache{}
	pub := &fakePublisher{}
	engine, err := scheduler.NewEngine(scheduler.DefaultConfig(), store, cache)
	require.NoError(t, err)

	h, err := handler.NewHandler(cfg, engine, store, cache, pub)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testServer{h: h, store: store, pub: pub, cache: cache}
}

func token(t *testing.T, role domain.Role, secret string) string {
	t.Helper()
	claims := handler.AuthClaims{
		Role: string(role),
		Name: "测试主管",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

// do 发送请求，role 为空时不带令牌
func (ts *testServer) do(t *testing.T, method, path string, body any, role domain.Role) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if role != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: token(t, role, testSecret)})
	}

	rec := httptest.NewRecorder()
	ts.h.Mux.ServeHTTP(rec, req)
	return rec
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) response {
	t.Helper()
	var res response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(res.Data, data))
	}
	return res
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

const testSecret = "test-secret"

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.JWT.Expiration = 3600
	cfg.Server.MaxUploadSize = 1 << 20

	h, err := NewHandler(cfg, nil, nil, nil)
	require.NoError(t, err)
	h.RegisterRoutes()
	return h
}

func tokenCookie(t *testing.T, role domain.Role, secret string) *http.Cookie {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Subject:   "1",
		},
	})
	ss, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return &http.Cookie{Name: tokenCookieName, Value: ss}
}

func serve(t *testing.T, h *Handler, req *http.Request) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	h := newTestHandler(t)

	for _, path := range []string{"/rosters", "/runs", "/my-info", "/users"} {
		status, resp := serve(t, h, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, status, path)
		require.False(t, resp.Success, path)
		require.Equal(t, "用户未登录", resp.Message, path)
	}
}

func TestInvalidTokenIsRejected(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/rosters", nil)
	req.AddCookie(tokenCookie(t, domain.RoleAdmin, "another-secret"))

	_, resp := serve(t, h, req)
	require.False(t, resp.Success)
	require.Equal(t, "无效的令牌", resp.Message)
}

func TestViewerCannotCreateRostersOrRuns(t *testing.T) {
	h := newTestHandler(t)

	for _, path := range []string{"/rosters", "/rosters/upload", "/runs"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		req.AddCookie(tokenCookie(t, domain.RoleViewer, testSecret))

		_, resp := serve(t, h, req)
		require.False(t, resp.Success, path)
		require.Equal(t, "权限不足", resp.Message, path)
	}
}

func TestLoginValidatesRequest(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"admin"}`))
	_, resp := serve(t, h, req)
	require.False(t, resp.Success)
	require.Contains(t, resp.Message, "Password")
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, tokenCookieName, cookies[0].Name)
	require.Empty(t, cookies[0].Value)
}

func TestWriteCSV(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.writeCSV(rec, req, "student_assignments.csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "id,letter\nS1,A\n")
		return err
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "student_assignments.csv")
	require.Equal(t, "id,letter\nS1,A\n", rec.Body.String())

	rec = httptest.NewRecorder()
	h.writeCSV(rec, req, "broken.csv", func(w io.Writer) error {
		return errors.New("写入失败")
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReadJSON(t *testing.T) {
	h := newTestHandler(t)

	var v struct {
		Name string `json:"name"`
	}

	cases := []struct{ body, msg string }{
		{"", "请求体不能为空"},
		{`{"name":`, "请求体不是合法的 JSON"},
		{`{"name":1}`, "字段 name 的类型错误"},
		{`{"name":"a"}{"name":"b"}`, "请求体只能包含一个 JSON 对象"},
		{`{"name":"a","unknown":true}`, `json: unknown field "unknown"`},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(c.body))
		require.EqualError(t, h.readJSON(req, &v), c.msg, c.body)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"高一"}`))
	require.NoError(t, h.readJSON(req, &v))
	require.Equal(t, "高一", v.Name)

	h.config.Server.MaxUploadSize = 4
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"高一"}`))
	require.EqualError(t, h.readJSON(req, &v), "请求体过大")
}

func TestLoadByIDRejectsInvalidID(t *testing.T) {
	h := newTestHandler(t)

	cases := []struct{ path, msg string }{
		{"/users/abc", "用户ID无效"},
		{"/users/abc/runs", "用户ID无效"},
		{"/rosters/abc", "名单ID无效"},
		{"/rosters/-3/records", "名单ID无效"},
		{"/runs/abc", "任务ID无效"},
		{"/runs/0/result", "任务ID无效"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, c.path, nil)
		req.AddCookie(tokenCookie(t, domain.RoleViewer, testSecret))

		_, resp := serve(t, h, req)
		require.False(t, resp.Success, c.path)
		require.Equal(t, c.msg, resp.Message, c.path)
	}
}

func TestListFiltersAreValidated(t *testing.T) {
	h := newTestHandler(t)

	cases := []struct{ path, msg string }{
		{"/users?role=%E5%AD%A6%E7%94%9F", "角色无效"},
		{"/runs?rosterID=abc", "名单ID无效"},
		{"/runs?requestedBy=-1", "用户ID无效"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, c.path, nil)
		req.AddCookie(tokenCookie(t, domain.RoleScheduler, testSecret))

		_, resp := serve(t, h, req)
		require.False(t, resp.Success, c.path)
		require.Equal(t, c.msg, resp.Message, c.path)
	}
}

func TestQueryID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/runs?rosterID=12&requestedBy=x", nil)

	id, err := queryID(req, "rosterID")
	require.NoError(t, err)
	require.Equal(t, int64(12), id)

	id, err = queryID(req, "missing")
	require.NoError(t, err)
	require.Zero(t, id)

	_, err = queryID(req, "requestedBy")
	require.Error(t, err)
}

func TestConstraintMessage(t *testing.T) {
	err := fmt.Errorf("插入失败: %w", &pgconn.PgError{ConstraintName: "rosters_created_by_fkey"})
	msg, ok := constraintMessage(err, userConstraints)
	require.True(t, ok)
	require.Equal(t, "该用户创建过名单，无法删除，请改为停用", msg)

	// 同一个约束在不同的操作中提示不同
	err = &pgconn.PgError{ConstraintName: "optimization_runs_roster_id_fkey"}
	msg, _ = constraintMessage(err, rosterConstraints)
	require.Equal(t, "该名单存在优化任务，无法删除", msg)
	msg, _ = constraintMessage(err, runConstraints)
	require.Equal(t, "名单不存在", msg)

	_, ok = constraintMessage(&pgconn.PgError{ConstraintName: "users_pkey"}, userConstraints)
	require.False(t, ok)
	_, ok = constraintMessage(errors.New("连接断开"), userConstraints)
	require.False(t, ok)
}

func TestStoreError(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/users", nil)

	rec := httptest.NewRecorder()
	h.storeError(rec, req, &pgconn.PgError{ConstraintName: "users_email_key"}, userConstraints)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.False(t, resp.Success)
	require.Equal(t, "邮箱已存在", resp.Message)

	rec = httptest.NewRecorder()
	h.storeError(rec, req, errors.New("连接断开"), userConstraints)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRoleValid(t *testing.T) {
	for _, role := range domain.Roles {
		require.True(t, role.Valid())
	}
	require.False(t, domain.Role("学生").Valid())
}

package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// 数据库约束名到错误提示的映射
var (
	userConstraints = map[string]string{
		"users_username_key":                  "用户名已存在",
		"users_email_key":                     "邮箱已存在",
		"rosters_created_by_fkey":             "该用户创建过名单，无法删除，请改为停用",
		"optimization_runs_requested_by_fkey": "该用户发起过优化任务，无法删除，请改为停用",
	}
	rosterConstraints = map[string]string{
		"rosters_name_key":                 "名单名称已存在",
		"optimization_runs_roster_id_fkey": "该名单存在优化任务，无法删除",
	}
	runConstraints = map[string]string{
		"optimization_runs_roster_id_fkey": "名单不存在",
	}
)

func constraintMessage(err error, messages map[string]string) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	msg, ok := messages[pgErr.ConstraintName]
	return msg, ok
}

// storeError 把已知的约束冲突返回给用户，其余的按服务器内部错误处理
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error, messages map[string]string) {
	if msg, ok := constraintMessage(err, messages); ok {
		h.errorResponse(w, r, msg)
		return
	}
	h.internalServerError(w, r, err)
}

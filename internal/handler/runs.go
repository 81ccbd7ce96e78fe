package handler

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/optimizer"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/report"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/repository"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/utils"
)

// CreateRun 创建优化任务并投递到任务队列，请求中未指定的参数使用配置中的默认值
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RosterID   int64                `json:"rosterID" validate:"required"`
		Parameters domain.RunParameters `json:"parameters"`
	}
	req.Parameters = optimizer.DefaultParameters(&h.config.Optimizer)

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateRunParameters(&req.Parameters); err != nil {
		h.badRequest(w, r, err)
		return
	}

	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	run := &domain.OptimizationRun{
		RosterID:    req.RosterID,
		Status:      domain.RunStatusQueued,
		Parameters:  req.Parameters,
		RequestedBy: myInfo.ID,
	}

	if err := h.repository.CreateRun(run); err != nil {
		h.storeError(w, r, err, runConstraints)
		return
	}

	if err := h.publisher.PublishJob(r.Context(), domain.OptimizationJob{RunID: run.ID}); err != nil {
		// 投递失败的任务不会被执行，直接标记为失败
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = "任务投递失败"
		if uerr := h.repository.UpdateRun(run); uerr != nil {
			h.logInternalServerError(r, uerr)
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建优化任务成功", run)
}

// queryID 读取可选的 ID 查询参数，未提供时返回 0
func queryID(r *http.Request, key string) (int64, error) {
	param := r.URL.Query().Get(key)
	if param == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("参数 %s 无效", key)
	}
	return id, nil
}

// GetAllRuns 支持通过 ?rosterID= 与 ?requestedBy= 过滤
func (h *Handler) GetAllRuns(w http.ResponseWriter, r *http.Request) {
	var filter repository.RunFilter
	var err error
	if filter.RosterID, err = queryID(r, "rosterID"); err != nil {
		h.errorResponse(w, r, "名单ID无效")
		return
	}
	if filter.RequestedBy, err = queryID(r, "requestedBy"); err != nil {
		h.errorResponse(w, r, "用户ID无效")
		return
	}

	runs, err := h.repository.GetAllRuns(filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取优化任务列表成功", runs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(RunCtx).(*domain.OptimizationRun)
	h.successResponse(w, r, "获取优化任务成功", run)
}

func (h *Handler) GetRunProgress(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(RunCtx).(*domain.OptimizationRun)

	progress, err := h.progress.Get(r.Context(), run.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取任务进度成功", progress)
}

// runResult 获取任务的结果，失败时已经写好了响应
func (h *Handler) runResult(w http.ResponseWriter, r *http.Request) *domain.RunResult {
	run := r.Context().Value(RunCtx).(*domain.OptimizationRun)

	result, err := h.repository.GetRunResult(run.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "任务暂无结果")
		default:
			h.internalServerError(w, r, err)
		}
		return nil
	}
	return result
}

func (h *Handler) GetRunResult(w http.ResponseWriter, r *http.Request) {
	result := h.runResult(w, r)
	if result == nil {
		return
	}

	h.successResponse(w, r, "获取任务结果成功", result)
}

func (h *Handler) writeCSV(w http.ResponseWriter, r *http.Request, filename string, write func(w io.Writer) error) {
	// 先写入缓冲区，避免写到一半出错时响应头已经发出
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) DownloadAssignments(w http.ResponseWriter, r *http.Request) {
	result := h.runResult(w, r)
	if result == nil {
		return
	}

	h.writeCSV(w, r, report.AssignmentsFile, func(w io.Writer) error {
		return report.WriteAssignments(w, result.Assignments)
	})
}

func (h *Handler) DownloadCourseAnalysis(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(RunCtx).(*domain.OptimizationRun)
	result := h.runResult(w, r)
	if result == nil {
		return
	}

	h.writeCSV(w, r, report.AnalysisFile, func(w io.Writer) error {
		return report.WriteCourseAnalysis(w, int(run.Parameters.LabelCount), result.Buckets)
	})
}

// resultModel 用名单记录重建模型，并应用任务目前的最佳分组
func (h *Handler) resultModel(w http.ResponseWriter, r *http.Request) *roster.Model {
	run := r.Context().Value(RunCtx).(*domain.OptimizationRun)
	result := h.runResult(w, r)
	if result == nil {
		return nil
	}

	records, err := h.repository.GetRosterRecords(run.RosterID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "名单记录不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return nil
	}

	model, err := optimizer.BuildModel(records, &run.Parameters)
	if err != nil {
		h.internalServerError(w, r, err)
		return nil
	}
	if err := optimizer.ApplyResult(model, result.Assignments); err != nil {
		h.internalServerError(w, r, err)
		return nil
	}
	return model
}

func (h *Handler) GetUnitSchedule(w http.ResponseWriter, r *http.Request) {
	unitID, err := url.PathUnescape(chi.URLParam(r, "unitID"))
	if err != nil {
		h.errorResponse(w, r, "学生ID无效")
		return
	}

	model := h.resultModel(w, r)
	if model == nil {
		return
	}

	assignment, keys, err := model.UnitSchedule(unitID)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrUnknownUnit):
			h.errorResponse(w, r, "学生不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	buckets := make([]domain.BucketDeclaration, len(keys))
	for i, k := range keys {
		buckets[i] = domain.BucketDeclaration{Room: k.Room, Period: k.Period}
	}

	h.successResponse(w, r, "获取学生分组成功", struct {
		Assignment domain.UnitAssignment      `json:"assignment"`
		Buckets    []domain.BucketDeclaration `json:"buckets"`
	}{
		Assignment: report.FromAssignments([]roster.Assignment{assignment})[0],
		Buckets:    buckets,
	})
}

func (h *Handler) GetBucketRoster(w http.ResponseWriter, r *http.Request) {
	room, err := url.PathUnescape(chi.URLParam(r, "room"))
	if err != nil {
		h.errorResponse(w, r, "教室无效")
		return
	}
	period, err := url.PathUnescape(chi.URLParam(r, "period"))
	if err != nil {
		h.errorResponse(w, r, "节次无效")
		return
	}

	model := h.resultModel(w, r)
	if model == nil {
		return
	}

	assignments, err := model.BucketRoster(roster.BucketKey{Room: room, Period: period})
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrUnknownBucket):
			h.errorResponse(w, r, "班级不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取班级名单成功", report.FromAssignments(assignments))
}

func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(RunCtx).(*domain.OptimizationRun)
	if run.Status == domain.RunStatusRunning {
		h.errorResponse(w, r, "任务正在运行，无法删除")
		return
	}

	if err := h.repository.DeleteRun(run.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if err := h.progress.Clear(r.Context(), run.ID); err != nil {
		h.logInternalServerError(r, err)
	}

	h.successResponse(w, r, "删除优化任务成功", nil)
}

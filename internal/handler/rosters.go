package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/ingest"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/utils"
)

func (h *Handler) CreateRoster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string               `json:"name" validate:"required,max=64"`
		Description string               `json:"description"`
		Records     domain.RosterRecords `json:"records"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.saveRoster(w, r, req.Name, req.Description, &req.Records)
}

// UploadRoster 通过 multipart 表单上传 CSV 文件，其中选课记录是必须的，配对和偏好分组是可选的
func (h *Handler) UploadRoster(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadSize)
	if err := r.ParseMultipartForm(h.config.Server.MaxUploadSize); err != nil {
		h.errorResponse(w, r, "上传的文件过大或格式错误")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	name := r.FormValue("name")
	if name == "" {
		h.errorResponse(w, r, "名单名称不能为空")
		return
	}

	records := &domain.RosterRecords{}

	enrollments, err := readFormFile(r, "enrollments", true, ingest.ReadEnrollments)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	records.Enrollments = enrollments

	if records.Pairings, err = readFormFile(r, "pairings", false, ingest.ReadPairings); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if records.PreferredGroups, err = readFormFile(r, "preferredGroups", false, ingest.ReadPreferredGroups); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.saveRoster(w, r, name, r.FormValue("description"), records)
}

func readFormFile[T any](r *http.Request, field string, required bool, read func(io.Reader) ([]T, error)) ([]T, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, nil
		}
		return nil, fmt.Errorf("缺少文件 %s", field)
	}
	defer func(f multipart.File) {
		_ = f.Close()
	}(file)

	rows, err := read(file)
	if err != nil {
		return nil, fmt.Errorf("文件 %s 格式错误: %w", field, err)
	}
	return rows, nil
}

func (h *Handler) saveRoster(w http.ResponseWriter, r *http.Request, name, description string, records *domain.RosterRecords) {
	if err := utils.ValidateRosterRecords(records); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 构建一次模型，统计学生和班级数量
	model, err := roster.Build(roster.DefaultRules(2), roster.Input{
		Enrollments:     records.Enrollments,
		Pairings:        records.Pairings,
		PreferredGroups: records.PreferredGroups,
		Buckets:         records.Buckets,
	})
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	rst := &domain.Roster{
		Name:        name,
		Description: description,
		UnitCount:   int32(model.UnitCount()),
		BucketCount: int32(model.BucketCount()),
		CreatedBy:   myInfo.ID,
	}

	if err := h.repository.CreateRoster(rst, records); err != nil {
		h.storeError(w, r, err, rosterConstraints)
		return
	}

	h.successResponse(w, r, "创建名单成功", rst)
}

func (h *Handler) GetAllRosters(w http.ResponseWriter, r *http.Request) {
	rosters, err := h.repository.GetAllRosters()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取名单列表成功", rosters)
}

func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	rst := r.Context().Value(RosterCtx).(*domain.Roster)
	h.successResponse(w, r, "获取名单成功", rst)
}

func (h *Handler) GetRosterRecords(w http.ResponseWriter, r *http.Request) {
	rst := r.Context().Value(RosterCtx).(*domain.Roster)

	records, err := h.repository.GetRosterRecords(rst.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "名单记录不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取名单记录成功", records)
}

func (h *Handler) UpdateRoster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string `json:"name" validate:"omitempty,min=1,max=64"`
		Description *string `json:"description"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	rst := r.Context().Value(RosterCtx).(*domain.Roster)
	if req.Name != nil {
		rst.Name = *req.Name
	}
	if req.Description != nil {
		rst.Description = *req.Description
	}

	if err := h.repository.UpdateRoster(rst); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新名单失败，请重试")
		default:
			h.storeError(w, r, err, rosterConstraints)
		}
		return
	}

	h.successResponse(w, r, "更新名单成功", rst)
}

func (h *Handler) DeleteRoster(w http.ResponseWriter, r *http.Request) {
	rst := r.Context().Value(RosterCtx).(*domain.Roster)

	if err := h.repository.DeleteRoster(rst.ID); err != nil {
		h.storeError(w, r, err, rosterConstraints)
		return
	}

	h.successResponse(w, r, "删除名单成功", nil)
}

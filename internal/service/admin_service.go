package service

import (
	"context"

	"ai-tripplanner-be/internal/pkg/logger"
)

type IAdminService interface {
	GetSystemLogs(ctx context.Context, page, limit int, level string) ([]logger.LogEntry, error)
	GetLogDetail(ctx context.Context, logId string) (*logger.LogEntry, error)
}

type adminService struct {
	logger logger.ILogger
}

func NewAdminService(log logger.ILogger) IAdminService {
	return &adminService{logger: log}
}

func (s *adminService) GetSystemLogs(_ context.Context, page, limit int, level string) ([]logger.LogEntry, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.logger.GetLogs(level, limit, offset)
}

func (s *adminService) GetLogDetail(_ context.Context, logId string) (*logger.LogEntry, error) {
	return s.logger.GetLogById(logId)
}

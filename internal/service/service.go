package service

import (
	"go.uber.org/zap"

	"spaxio-scheduled/config"
	"spaxio-scheduled/internal/oracle"
	"spaxio-scheduled/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Extraction ExtractionService
	Course     CourseService
	Event      EventService
	Session    SessionService
	Export     ExportService
	Quota      QuotaGate
}

// NewService 创建 Service 聚合
//
// counter 为 nil 时额度判定降级为不限额
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	oracleClient oracle.Client,
	counter QuotaCounter,
	logger *zap.Logger,
) *Service {
	quota := NewQuotaGate(&cfg.Quota, counter, logger)
	sessions := NewSessionService(repo, logger)

	return &Service{
		Extraction: NewExtractionService(&cfg.Extraction, repo, oracleClient, quota, logger),
		Course:     NewCourseService(repo, sessions, logger),
		Event:      NewEventService(repo, logger),
		Session:    sessions,
		Export:     NewExportService(repo, logger),
		Quota:      quota,
	}
}
